// Package chat abstracts over the two ways a command reaches the bot:
// a prefixed text message and a slash command interaction.
package chat

import (
	"github.com/bwmarrin/discordgo"
)

// Session is the part of a discordgo.Session used to answer commands.
type Session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Session = (*discordgo.Session)(nil)

// CommandMessage is the message a command was invoked with.
type CommandMessage interface {
	GuildID() string
	ChannelID() string
	Member() *discordgo.Member
	// Attachments of the invoking message, in order.
	Attachments() []*discordgo.MessageAttachment
	// ReferencedMessage is the message replied to, or nil.
	ReferencedMessage() *discordgo.Message
	// Reply answers the invoking message.
	Reply(data *discordgo.MessageSend) (*discordgo.Message, error)
	// Send posts to the channel without replying.
	Send(data *discordgo.MessageSend) (*discordgo.Message, error)
	Delete(message *discordgo.Message) error
}

// UserID is the id of the member, or "" when unknown.
func UserID(m CommandMessage) string {
	member := m.Member()
	if member == nil || member.User == nil {
		return ""
	}
	return member.User.ID
}

// DisplayName is the name the member shows up as in the guild.
func DisplayName(m CommandMessage) string {
	member := m.Member()
	if member == nil {
		return ""
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User == nil {
		return ""
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}

// ReplyText is a shorthand for a plain text reply.
func ReplyText(m CommandMessage, content string) error {
	_, err := m.Reply(&discordgo.MessageSend{Content: content})
	return err
}

// NoMentions suppresses every mention in a message.
func NoMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}
