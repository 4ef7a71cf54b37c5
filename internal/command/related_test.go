package command_test

import (
	"testing"

	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/server/servertest"
)

func TestRelatedToggles(t *testing.T) {
	f := newFixture(t)
	related := command.Related()
	args := command.Args{Server: f.server, Prefix: ">"}

	on := servertest.NewMessage()
	if err := related.Run(t.Context(), on, args); err != nil {
		t.Fatalf("related: %v", err)
	}
	if !f.server.AddRelated() {
		t.Error("AddRelated is off after the first toggle")
	}
	if len(on.Replies) != 1 || len(on.Replies[0].Embeds) != 1 || on.Replies[0].Embeds[0].Color != presenters.ColorRelatedSetup {
		t.Errorf("got replies %+v, want the related setup embed", on.Replies)
	}

	off := servertest.NewMessage()
	if err := related.Run(t.Context(), off, args); err != nil {
		t.Fatalf("related: %v", err)
	}
	if f.server.AddRelated() {
		t.Error("AddRelated is on after the second toggle")
	}
	if got := off.ReplyContents(); len(got) != 1 || got[0] != ":x: Turned off related-song autoplay." {
		t.Errorf("replies = %q", got)
	}
	if got := f.server.BoundChannelID(); got != "c1" {
		t.Errorf("bound channel = %q, want c1", got)
	}
}
