// Package command defines the chat commands of the bot.
package command

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/server"
)

// Permission is a condition under which a member may run a command.
type Permission string

const (
	// PermissionAdmin holds for members who may manage the channel.
	PermissionAdmin Permission = "admin"
	// PermissionNoConnection holds while the bot is not in a voice channel.
	PermissionNoConnection Permission = "noConnection"
	// PermissionSameVC holds for members in the bot's voice channel.
	PermissionSameVC Permission = "sameVc"
)

type Argument struct {
	Name        string
	Description string
	Type        discordgo.ApplicationCommandOptionType
	Required    bool
}

// Args is what a command is invoked with.
type Args struct {
	Server  *server.Server
	RawArgs string
	Args    []string
	// IncludeMention is set when the bot was addressed by mention instead of prefix.
	IncludeMention bool
	BotUserID      string
	Prefix         string
}

type RunFunc func(ctx context.Context, msg chat.CommandMessage, args Args) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Category    string
	Arguments   []Argument
	// Permissions are alternatives: any one of them is enough. Empty means everyone.
	Permissions []Permission
	// ShouldDefer acknowledges slash commands before running.
	ShouldDefer bool
	Run         RunFunc
}

// Registry looks commands up by name or alias, case-insensitively.
type Registry struct {
	commands []*Command
	byName   map[string]*Command
}

func NewRegistry(commands ...*Command) *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	for _, c := range commands {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c *Command) {
	for _, name := range append([]string{c.Name}, c.Aliases...) {
		key := strings.ToLower(name)
		if _, exists := r.byName[key]; exists {
			panic(fmt.Sprintf("command name %q already registered", name))
		}
		r.byName[key] = c
	}
	r.commands = append(r.commands, c)
}

func (r *Registry) Lookup(name string) (*Command, bool) {
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

func (r *Registry) All() []*Command {
	return append([]*Command(nil), r.commands...)
}

// ApplicationCommands describes every command for slash command registration.
func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		ac := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		for _, a := range c.Arguments {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Name:        a.Name,
				Description: a.Description,
				Type:        a.Type,
				Required:    a.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}

// Parsed is a text message split into a command invocation.
type Parsed struct {
	Name           string
	RawArgs        string
	Args           []string
	IncludeMention bool
}

// ParseMessage recognizes content addressed to the bot, either by prefix or by
// mentioning botUserID, and splits it into name and arguments.
func ParseMessage(content, prefix, botUserID string) (Parsed, bool) {
	content = strings.TrimSpace(content)

	var rest string
	var mentioned bool
	switch {
	case botUserID != "" && strings.HasPrefix(content, "<@"+botUserID+">"):
		rest, mentioned = strings.TrimPrefix(content, "<@"+botUserID+">"), true
	case botUserID != "" && strings.HasPrefix(content, "<@!"+botUserID+">"):
		rest, mentioned = strings.TrimPrefix(content, "<@!"+botUserID+">"), true
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = strings.TrimPrefix(content, prefix)
	default:
		return Parsed{}, false
	}

	rest = strings.TrimSpace(rest)
	name, rawArgs := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, rawArgs = rest[:i], strings.TrimSpace(rest[i:])
	}
	if name == "" {
		return Parsed{}, false
	}
	return Parsed{
		Name:           strings.ToLower(name),
		RawArgs:        rawArgs,
		Args:           fields(rawArgs),
		IncludeMention: mentioned,
	}, true
}

// ParseInteraction reads the string options of a slash command as arguments.
func ParseInteraction(data discordgo.ApplicationCommandInteractionData) Parsed {
	var parts []string
	for _, option := range data.Options {
		if option.Type == discordgo.ApplicationCommandOptionString {
			parts = append(parts, strings.TrimSpace(option.StringValue()))
		}
	}
	rawArgs := strings.TrimSpace(strings.Join(parts, " "))
	return Parsed{
		Name:    strings.ToLower(data.Name),
		RawArgs: rawArgs,
		Args:    fields(rawArgs),
	}
}

func fields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}
