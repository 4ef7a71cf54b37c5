package handler_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/handler"
	"github.com/glizzus/sound-on/internal/server"
	"github.com/glizzus/sound-on/internal/server/servertest"
	"github.com/google/go-cmp/cmp"
)

type fakeSession struct {
	mu        sync.Mutex
	sent      []string
	responses []discordgo.InteractionResponseType
}

func (f *fakeSession) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data.Content)
	return &discordgo.Message{ID: "m"}, nil
}

func (f *fakeSession) ChannelMessageDelete(string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp.Type)
	return nil
}

func (f *fakeSession) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data.Content)
	return &discordgo.Message{ID: "f"}, nil
}

var _ chat.Session = (*fakeSession)(nil)

type recorder struct {
	mu   sync.Mutex
	args []command.Args
}

func (r *recorder) command(name string, err error, perms ...command.Permission) *command.Command {
	return &command.Command{
		Name:        name,
		Permissions: perms,
		ShouldDefer: name == "slow",
		Run: func(_ context.Context, _ chat.CommandMessage, args command.Args) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.args = append(r.args, args)
			return err
		},
	}
}

func newDispatcher(r *recorder) (*handler.Dispatcher, *server.Manager) {
	joiner := &servertest.Joiner{Absent: map[string]bool{"u1": true}}
	manager := server.NewManager(server.Deps{
		Resolver: &servertest.Resolver{},
		Joiner:   joiner,
		Encoder:  servertest.ShortEncoder,
		Prefix:   "!",
	})
	registry := command.NewRegistry(
		r.command("echo", nil),
		r.command("slow", nil),
		r.command("broken", errors.New("boom")),
		r.command("picky", &command.UserError{Message: "not like that"}),
		r.command("guarded", nil, command.PermissionSameVC),
	)
	return handler.NewDispatcher(registry, manager, command.NewChecker(nil, joiner)), manager
}

func textMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "listener"},
	}
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		message   *discordgo.Message
		wantArgs  []string
		wantSent  []string
		wantCalls int
	}{
		{name: "prefixed", message: textMessage("!echo a b"), wantArgs: []string{"a", "b"}, wantCalls: 1},
		{name: "mention", message: textMessage("<@bot> echo"), wantCalls: 1},
		{name: "other prefix", message: textMessage(">echo a")},
		{name: "unknown command", message: textMessage("!nope")},
		{name: "direct message", message: func() *discordgo.Message { m := textMessage("!echo"); m.GuildID = ""; return m }()},
		{name: "from a bot", message: func() *discordgo.Message { m := textMessage("!echo"); m.Author.Bot = true; return m }()},
		{name: "internal error", message: textMessage("!broken"), wantSent: []string{":x: An internal error occurred."}, wantCalls: 1},
		{name: "user error", message: textMessage("!picky"), wantSent: []string{"not like that"}, wantCalls: 1},
		{
			name:     "permission denied",
			message:  textMessage("!guarded"),
			wantSent: []string{":no_entry: This command is only for: in the same voice channel."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			d, _ := newDispatcher(r)
			s := &fakeSession{}

			d.HandleMessage(t.Context(), s, tt.message, "bot")

			if len(r.args) != tt.wantCalls {
				t.Fatalf("command ran %d times, want %d", len(r.args), tt.wantCalls)
			}
			if tt.wantCalls > 0 {
				if diff := cmp.Diff(tt.wantArgs, r.args[0].Args); diff != "" {
					t.Errorf("args mismatch (-want +got):\n%s", diff)
				}
				if r.args[0].Server == nil || r.args[0].Server.GuildID != "g1" || r.args[0].Prefix != "!" {
					t.Errorf("command got server %+v with prefix %q", r.args[0].Server, r.args[0].Prefix)
				}
			}
			if diff := cmp.Diff(tt.wantSent, s.sent); diff != "" {
				t.Errorf("sent mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleMessageUsesGuildPrefix(t *testing.T) {
	r := &recorder{}
	d, manager := newDispatcher(r)
	manager.Get("g1").SetPrefix("?")

	d.HandleMessage(t.Context(), &fakeSession{}, textMessage("!echo"), "bot")
	d.HandleMessage(t.Context(), &fakeSession{}, textMessage("?echo"), "bot")

	if len(r.args) != 1 || r.args[0].Prefix != "?" {
		t.Errorf("got calls %+v, want one with prefix ?", r.args)
	}
}

func TestHandleInteraction(t *testing.T) {
	interaction := func(name string) *discordgo.Interaction {
		return &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "g1",
			ChannelID: "c1",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: name,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "keyword", Type: discordgo.ApplicationCommandOptionString, Value: "hello world"},
				},
			},
		}
	}

	t.Run("deferred", func(t *testing.T) {
		r := &recorder{}
		d, _ := newDispatcher(r)
		s := &fakeSession{}

		d.HandleInteraction(t.Context(), s, interaction("slow"), "bot")

		if len(r.args) != 1 || r.args[0].RawArgs != "hello world" {
			t.Fatalf("got calls %+v", r.args)
		}
		want := []discordgo.InteractionResponseType{discordgo.InteractionResponseDeferredChannelMessageWithSource}
		if diff := cmp.Diff(want, s.responses); diff != "" {
			t.Errorf("responses mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("not deferred", func(t *testing.T) {
		r := &recorder{}
		d, _ := newDispatcher(r)
		s := &fakeSession{}

		d.HandleInteraction(t.Context(), s, interaction("echo"), "bot")

		if len(r.args) != 1 || len(s.responses) != 0 {
			t.Errorf("got %d calls and responses %v", len(r.args), s.responses)
		}
	})

	t.Run("component interactions are ignored", func(t *testing.T) {
		r := &recorder{}
		d, _ := newDispatcher(r)
		i := interaction("echo")
		i.Type = discordgo.InteractionMessageComponent
		i.Data = discordgo.MessageComponentInteractionData{CustomID: "x"}

		d.HandleInteraction(t.Context(), &fakeSession{}, i, "bot")

		if len(r.args) != 0 {
			t.Errorf("command ran for a component interaction")
		}
	})
}

func TestHandleMessagePlayFailureRepliesOnce(t *testing.T) {
	const url = "https://bad.example/a.mp3"
	manager := server.NewManager(server.Deps{
		Resolver: &servertest.Resolver{Fail: map[string]bool{url: true}},
		Joiner:   &servertest.Joiner{},
		Encoder:  servertest.ShortEncoder,
		Prefix:   "!",
	})
	t.Cleanup(func() { _ = manager.Get("g1").Leave() })
	registry := command.NewRegistry(command.Play(nil))
	d := handler.NewDispatcher(registry, manager, command.NewChecker(nil, &servertest.Joiner{}))
	s := &fakeSession{}

	d.HandleMessage(t.Context(), s, textMessage("!play "+url), "bot")

	if diff := cmp.Diff([]string{":cry: Could not add <" + url + ">."}, s.sent); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
}
