package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/server"
)

type ReadyHandler = func(*discordgo.Session, *discordgo.Ready)
type MessageCreateHandler = func(*discordgo.Session, *discordgo.MessageCreate)
type InteractionCreateHandler = func(*discordgo.Session, *discordgo.InteractionCreate)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	username := r.User.Username
	userID := r.User.ID
	slog.Info("Bot is ready", "username", username, "userID", userID, "guilds", len(r.Guilds))
}

// Dispatcher runs commands against the server of the guild they come from.
type Dispatcher struct {
	registry *command.Registry
	servers  *server.Manager
	checker  *command.Checker
}

func NewDispatcher(registry *command.Registry, servers *server.Manager, checker *command.Checker) *Dispatcher {
	return &Dispatcher{registry: registry, servers: servers, checker: checker}
}

// HandleMessage runs the command in a text message, if it holds one.
func (d *Dispatcher) HandleMessage(ctx context.Context, s chat.Session, m *discordgo.Message, botUserID string) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	srv := d.servers.Get(m.GuildID)

	parsed, ok := command.ParseMessage(m.Content, srv.Prefix(), botUserID)
	if !ok {
		return
	}
	cmd, ok := d.registry.Lookup(parsed.Name)
	if !ok {
		slog.Debug("Unknown command", "guildID", m.GuildID, "name", parsed.Name)
		return
	}

	d.run(ctx, cmd, chat.NewTextMessage(s, m), srv, parsed, botUserID)
}

// HandleInteraction runs a slash command.
func (d *Dispatcher) HandleInteraction(ctx context.Context, s chat.Session, i *discordgo.Interaction, botUserID string) {
	if i.Type != discordgo.InteractionApplicationCommand || i.GuildID == "" {
		return
	}
	parsed := command.ParseInteraction(i.ApplicationCommandData())
	cmd, ok := d.registry.Lookup(parsed.Name)
	if !ok {
		slog.Warn("Unknown slash command", "guildID", i.GuildID, "name", parsed.Name)
		return
	}

	msg := chat.NewInteractionMessage(s, i)
	if cmd.ShouldDefer {
		if err := msg.Defer(); err != nil {
			slog.Error("Failed to defer interaction", "command", cmd.Name, "error", err)
			return
		}
	}
	d.run(ctx, cmd, msg, d.servers.Get(i.GuildID), parsed, botUserID)
}

func (d *Dispatcher) run(
	ctx context.Context,
	cmd *command.Command,
	msg chat.CommandMessage,
	srv *server.Server,
	parsed command.Parsed,
	botUserID string,
) {
	if !d.checker.Allowed(cmd, msg, srv) {
		reply(msg, fmt.Sprintf(":no_entry: This command is only for: %s.", command.Describe(cmd.Permissions)))
		return
	}

	slog.Info("Running command", "guildID", srv.GuildID, "command", cmd.Name, "userID", chat.UserID(msg))
	err := cmd.Run(ctx, msg, command.Args{
		Server:         srv,
		RawArgs:        parsed.RawArgs,
		Args:           parsed.Args,
		IncludeMention: parsed.IncludeMention,
		BotUserID:      botUserID,
		Prefix:         srv.Prefix(),
	})
	if err == nil {
		return
	}

	var userErr *command.UserError
	if errors.As(err, &userErr) {
		reply(msg, userErr.Message)
		return
	}
	slog.Error("Command failed", "guildID", srv.GuildID, "command", cmd.Name, "error", err)
	reply(msg, ":x: An internal error occurred.")
}

func reply(msg chat.CommandMessage, content string) {
	if err := chat.ReplyText(msg, content); err != nil {
		slog.Warn("Failed to reply", "guildID", msg.GuildID(), "error", err)
	}
}

func MakeMessageCreateHandler(d *Dispatcher) MessageCreateHandler {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		d.HandleMessage(context.Background(), s, m.Message, s.State.User.ID)
	}
}

func MakeInteractionCreateHandler(d *Dispatcher) InteractionCreateHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		d.HandleInteraction(context.Background(), s, i.Interaction, s.State.User.ID)
	}
}

type Handlers struct {
	Ready             ReadyHandler
	MessageCreate     MessageCreateHandler
	InteractionCreate InteractionCreateHandler
}

// NewSession creates a session with the intents the bot needs. Handlers are
// added separately since they usually depend on the session.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsMessageContent
	return s, nil
}

func AddHandlers(s *discordgo.Session, handlers Handlers) {
	s.AddHandler(handlers.Ready)
	s.AddHandler(handlers.MessageCreate)
	s.AddHandler(handlers.InteractionCreate)
}
