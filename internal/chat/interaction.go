package chat

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// InteractionMessage is a slash command invocation.
// The first reply answers the interaction, later ones are followups.
type InteractionMessage struct {
	session     Session
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

func NewInteractionMessage(session Session, interaction *discordgo.Interaction) *InteractionMessage {
	return &InteractionMessage{session: session, interaction: interaction}
}

var _ CommandMessage = (*InteractionMessage)(nil)

func (i *InteractionMessage) GuildID() string   { return i.interaction.GuildID }
func (i *InteractionMessage) ChannelID() string { return i.interaction.ChannelID }

func (i *InteractionMessage) Member() *discordgo.Member {
	if i.interaction.Member != nil {
		return i.interaction.Member
	}
	return &discordgo.Member{User: i.interaction.User}
}

// Attachments are the attachment options of the command.
func (i *InteractionMessage) Attachments() []*discordgo.MessageAttachment {
	if i.interaction.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	data := i.interaction.ApplicationCommandData()
	if data.Resolved == nil {
		return nil
	}

	var attachments []*discordgo.MessageAttachment
	for _, option := range data.Options {
		if option.Type != discordgo.ApplicationCommandOptionAttachment {
			continue
		}
		id, ok := option.Value.(string)
		if !ok {
			continue
		}
		if a, ok := data.Resolved.Attachments[id]; ok {
			attachments = append(attachments, a)
		}
	}
	return attachments
}

func (i *InteractionMessage) ReferencedMessage() *discordgo.Message { return nil }

// Defer acknowledges the interaction so the command may take its time.
func (i *InteractionMessage) Defer() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.responded {
		return nil
	}
	err := i.session.InteractionRespond(i.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}
	i.responded = true
	return nil
}

func (i *InteractionMessage) Reply(data *discordgo.MessageSend) (*discordgo.Message, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.responded {
		err := i.session.InteractionRespond(i.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         data.Content,
				Embeds:          data.Embeds,
				AllowedMentions: data.AllowedMentions,
			},
		})
		if err != nil {
			return nil, err
		}
		i.responded = true
		return nil, nil
	}

	return i.session.FollowupMessageCreate(i.interaction, true, &discordgo.WebhookParams{
		Content:         data.Content,
		Embeds:          data.Embeds,
		AllowedMentions: data.AllowedMentions,
	})
}

func (i *InteractionMessage) Send(data *discordgo.MessageSend) (*discordgo.Message, error) {
	return i.session.ChannelMessageSendComplex(i.interaction.ChannelID, data)
}

func (i *InteractionMessage) Delete(message *discordgo.Message) error {
	return i.session.ChannelMessageDelete(message.ChannelID, message.ID)
}
