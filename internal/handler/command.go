package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/command"
)

// EstablishCommands registers every command of registry as a slash command.
// An empty guildID registers them globally.
func EstablishCommands(s *discordgo.Session, guildID string, registry *command.Registry) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, registry.ApplicationCommands())
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
