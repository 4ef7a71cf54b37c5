package command

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/server"
)

// PermissionLookup computes a member's permissions in a channel.
// discordgo's State implements it.
type PermissionLookup interface {
	UserChannelPermissions(userID, channelID string) (int64, error)
}

type Checker struct {
	permissions PermissionLookup
	voice       server.VoiceJoiner
}

func NewChecker(permissions PermissionLookup, voice server.VoiceJoiner) *Checker {
	return &Checker{permissions: permissions, voice: voice}
}

// Allowed reports whether the author of msg satisfies any of the command's permissions.
func (c *Checker) Allowed(cmd *Command, msg chat.CommandMessage, srv *server.Server) bool {
	if len(cmd.Permissions) == 0 {
		return true
	}
	for _, p := range cmd.Permissions {
		if c.holds(p, msg, srv) {
			return true
		}
	}
	return false
}

func (c *Checker) holds(p Permission, msg chat.CommandMessage, srv *server.Server) bool {
	switch p {
	case PermissionAdmin:
		return c.isAdmin(msg)
	case PermissionNoConnection:
		return !srv.Player().IsConnecting()
	case PermissionSameVC:
		conn := srv.Player().Connection()
		if conn == nil {
			return false
		}
		channelID, err := c.voice.UserChannel(msg.GuildID(), chat.UserID(msg))
		return err == nil && channelID == conn.ChannelID()
	default:
		return false
	}
}

const adminPermissions = discordgo.PermissionAdministrator | discordgo.PermissionManageChannels

func (c *Checker) isAdmin(msg chat.CommandMessage) bool {
	if c.permissions == nil {
		return false
	}
	perms, err := c.permissions.UserChannelPermissions(chat.UserID(msg), msg.ChannelID())
	if err != nil {
		slog.Debug("failed to compute permissions", "guildID", msg.GuildID(), "error", err)
		return false
	}
	return perms&adminPermissions != 0
}

// Describe renders permissions for the help command.
func Describe(perms []Permission) string {
	if len(perms) == 0 {
		return "everyone"
	}
	labels := map[Permission]string{
		PermissionAdmin:        "manage channel",
		PermissionNoConnection: "bot not in a voice channel",
		PermissionSameVC:       "in the same voice channel",
	}
	out := ""
	for i, p := range perms {
		if i > 0 {
			out += " or "
		}
		out += labels[p]
	}
	return out
}
