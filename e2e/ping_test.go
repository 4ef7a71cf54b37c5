package e2e_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/handler"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/glizzus/sound-on/internal/server/servertest"
)

type mockSession struct {
	Called bool
	Resp   *discordgo.InteractionResponse
	Sent   []*discordgo.MessageSend
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.Called = true
	m.Resp = resp
	return nil
}

func (m *mockSession) FollowupMessageCreate(i *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.Sent = append(m.Sent, data)
	return &discordgo.Message{ID: "sent", ChannelID: channelID}, nil
}

func (m *mockSession) ChannelMessageDelete(channelID, messageID string, opts ...discordgo.RequestOption) error {
	return nil
}

var _ chat.Session = (*mockSession)(nil)

func TestInteractionCreatePing(t *testing.T) {
	session := &mockSession{}

	interaction := &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "517907971481534467",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "ping",
		},
	}

	joiner := &servertest.Joiner{}
	servers := server.NewManager(server.Deps{Joiner: joiner, Prefix: ">"})
	dispatcher := handler.NewDispatcher(command.Default(command.Deps{}), servers, command.NewChecker(nil, joiner))
	dispatcher.HandleInteraction(t.Context(), session, interaction, "bot")

	expectedSession := &mockSession{
		Called: true,
		Resp: &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "Pong!",
			},
		},
	}

	diff := cmp.Diff(expectedSession, session)
	if diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}
