package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/presenters"
)

// Related toggles queueing a related track whenever a YouTube track ends.
func Related() *Command {
	return &Command{
		Name:        "related",
		Aliases:     []string{"relatedsong", "r", "recommend"},
		Description: "Toggle adding a related track when a YouTube track ends.",
		Category:    "playlist",
		Permissions: []Permission{PermissionAdmin, PermissionNoConnection, PermissionSameVC},
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			if !args.Server.ToggleAddRelated() {
				return chat.ReplyText(msg, ":x: Turned off related-song autoplay.")
			}
			_, err := msg.Reply(&discordgo.MessageSend{
				Embeds: []*discordgo.MessageEmbed{presenters.RelatedOn()},
			})
			return err
		},
	}
}
