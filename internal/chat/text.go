package chat

import "github.com/bwmarrin/discordgo"

// TextMessage is a command typed into a text channel.
type TextMessage struct {
	session Session
	message *discordgo.Message
}

func NewTextMessage(session Session, message *discordgo.Message) *TextMessage {
	return &TextMessage{session: session, message: message}
}

var _ CommandMessage = (*TextMessage)(nil)

func (t *TextMessage) GuildID() string   { return t.message.GuildID }
func (t *TextMessage) ChannelID() string { return t.message.ChannelID }
func (t *TextMessage) Content() string   { return t.message.Content }

func (t *TextMessage) Member() *discordgo.Member {
	member := t.message.Member
	if member == nil {
		return &discordgo.Member{GuildID: t.message.GuildID, User: t.message.Author}
	}
	if member.User == nil {
		// Members attached to messages come without their user.
		withUser := *member
		withUser.User = t.message.Author
		return &withUser
	}
	return member
}

func (t *TextMessage) Attachments() []*discordgo.MessageAttachment {
	return t.message.Attachments
}

func (t *TextMessage) ReferencedMessage() *discordgo.Message {
	return t.message.ReferencedMessage
}

func (t *TextMessage) Reply(data *discordgo.MessageSend) (*discordgo.Message, error) {
	reply := *data
	reply.Reference = t.message.Reference()
	return t.session.ChannelMessageSendComplex(t.message.ChannelID, &reply)
}

func (t *TextMessage) Send(data *discordgo.MessageSend) (*discordgo.Message, error) {
	return t.session.ChannelMessageSendComplex(t.message.ChannelID, data)
}

func (t *TextMessage) Delete(message *discordgo.Message) error {
	return t.session.ChannelMessageDelete(message.ChannelID, message.ID)
}
