package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/presenters"
)

func Ping() *Command {
	return &Command{
		Name:        "ping",
		Description: "Check that the bot responds.",
		Category:    "utility",
		Run: func(_ context.Context, msg chat.CommandMessage, _ Args) error {
			return chat.ReplyText(msg, "Pong!")
		},
	}
}

// Prefix changes the prefix of text commands in the guild.
func Prefix() *Command {
	return &Command{
		Name:        "prefix",
		Description: "Change the command prefix.",
		Category:    "settings",
		Arguments: []Argument{
			{Name: "prefix", Description: "The new prefix.", Type: discordgo.ApplicationCommandOptionString, Required: true},
		},
		Permissions: []Permission{PermissionAdmin},
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			if len(args.Args) != 1 {
				return &UserError{Message: ":warning: Give exactly one prefix without spaces."}
			}
			args.Server.SetPrefix(args.Args[0])
			return chat.ReplyText(msg, fmt.Sprintf(":white_check_mark: The prefix is now `%s`.", args.Args[0]))
		},
	}
}

// Help lists the commands of registry.
func Help(registry *Registry) *Command {
	return &Command{
		Name:        "help",
		Aliases:     []string{"h", "commands"},
		Description: "List the commands.",
		Category:    "utility",
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			embed := &discordgo.MessageEmbed{
				Title: "Commands",
				Color: presenters.ColorQueue,
			}
			for _, c := range registry.All() {
				var b strings.Builder
				b.WriteString(c.Description)
				if len(c.Aliases) > 0 {
					fmt.Fprintf(&b, "\nAliases: %s", strings.Join(c.Aliases, ", "))
				}
				if len(c.Permissions) > 0 {
					fmt.Fprintf(&b, "\nAllowed for: %s", Describe(c.Permissions))
				}
				embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
					Name:  args.Prefix + c.Name,
					Value: b.String(),
				})
			}
			_, err := msg.Reply(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
			return err
		},
	}
}

// Deps are what the default commands need from the outside.
type Deps struct {
	Searcher audiosource.Searcher
}

// Default builds the registry of every command the bot offers.
func Default(deps Deps) *Registry {
	r := NewRegistry(
		Play(deps.Searcher),
		Related(),
		Pause(),
		Skip(),
		Queue(),
		NowPlaying(),
		Loop(),
		Remove(),
		Join(),
		Leave(),
		Prefix(),
		Ping(),
	)
	r.Register(Help(r))
	return r
}
