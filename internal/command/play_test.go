package command_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/command"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/server/servertest"
	"github.com/google/go-cmp/cmp"
)

func runPlay(t *testing.T, f *fixture, searcher audiosource.Searcher, msg *servertest.Message, rawArgs string) {
	t.Helper()
	args := command.Args{
		Server:    f.server,
		RawArgs:   rawArgs,
		Args:      strings.Fields(rawArgs),
		BotUserID: "bot",
		Prefix:    ">",
	}
	if err := command.Play(searcher).Run(t.Context(), msg, args); err != nil {
		t.Fatalf("play: %v", err)
	}
}

func TestPlayWithoutContent(t *testing.T) {
	f := newFixture(t)
	msg := servertest.NewMessage()

	runPlay(t, f, &fakeSearcher{}, msg, "")

	if diff := cmp.Diff([]string{"There is no content to play."}, msg.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if f.joiner.Joins != 0 {
		t.Errorf("joined %d times, want 0", f.joiner.Joins)
	}
}

func TestPlayOutsideVoice(t *testing.T) {
	f := newFixture(t)
	f.joiner.Absent = map[string]bool{"u1": true}
	msg := servertest.NewMessage()

	runPlay(t, f, &fakeSearcher{}, msg, "https://youtu.be/abc")

	if diff := cmp.Diff([]string{":warning: Join a voice channel first."}, msg.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if f.server.Queue().Len() != 0 {
		t.Errorf("queue has %d tracks, want 0", f.server.Queue().Len())
	}
}

func TestPlayURL(t *testing.T) {
	f := newFixture(t)

	first := servertest.NewMessage()
	runPlay(t, f, &fakeSearcher{}, first, "<https://youtu.be/abc>")
	eventually(t, "first track to start", func() bool { return f.encoder.Started() == 1 })

	if len(first.Replies) != 0 {
		t.Errorf("got replies %v for a track played right away", first.ReplyContents())
	}
	if got := f.server.BoundChannelID(); got != "c1" {
		t.Errorf("bound channel = %q, want c1", got)
	}

	second := servertest.NewMessage()
	runPlay(t, f, &fakeSearcher{}, second, "https://youtu.be/def")

	if len(second.Replies) != 1 || len(second.Replies[0].Embeds) != 1 {
		t.Fatalf("got replies %+v, want one song added embed", second.Replies)
	}
	if got := second.Replies[0].Embeds[0].Color; got != presenters.ColorSongAdded {
		t.Errorf("embed color = %#x, want %#x", got, presenters.ColorSongAdded)
	}
	want := []string{"https://youtu.be/abc", "https://youtu.be/def"}
	if diff := cmp.Diff(want, f.resolver.ResolvedURLs()); diff != "" {
		t.Errorf("resolved urls mismatch (-want +got):\n%s", diff)
	}
	if f.encoder.Started() != 1 {
		t.Errorf("started %d tracks, want the second one queued", f.encoder.Started())
	}
}

func TestPlaySearch(t *testing.T) {
	tests := []struct {
		name         string
		searcher     *fakeSearcher
		unresolvable bool
		wantReplies  []string
		wantResolved []string
	}{
		{
			name: "plays first video",
			searcher: &fakeSearcher{results: []audiosource.SearchResult{
				{URL: "https://www.youtube.com/channel/x", Video: false},
				{URL: "https://www.youtube.com/watch?v=v1", Video: true},
				{URL: "https://www.youtube.com/watch?v=v2", Video: true},
			}},
			wantResolved: []string{"https://www.youtube.com/watch?v=v1"},
		},
		{
			name: "no videos",
			searcher: &fakeSearcher{results: []audiosource.SearchResult{
				{URL: "https://www.youtube.com/channel/x", Video: false},
			}},
			wantReplies: []string{":face_with_monocle: No matching video was found."},
		},
		{
			name: "result does not resolve",
			searcher: &fakeSearcher{results: []audiosource.SearchResult{
				{URL: "https://www.youtube.com/watch?v=gone", Video: true},
			}},
			unresolvable: true,
			wantReplies:  []string{":cry: Could not add <https://www.youtube.com/watch?v=gone>."},
			wantResolved: []string{"https://www.youtube.com/watch?v=gone"},
		},
		{
			name:        "search fails",
			searcher:    &fakeSearcher{err: errors.New("yt-dlp exited")},
			wantReplies: []string{":x: An internal error occurred."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.unresolvable {
				f.resolver.Fail = map[string]bool{"https://www.youtube.com/watch?v=gone": true}
			}
			msg := servertest.NewMessage()

			runPlay(t, f, tt.searcher, msg, "never gonna give")

			if diff := cmp.Diff([]string{"never gonna give"}, tt.searcher.queries); diff != "" {
				t.Errorf("queries mismatch (-want +got):\n%s", diff)
			}
			if len(msg.Sent) != 1 || msg.Sent[0].Content != ":mag: Searching..." {
				t.Errorf("sent %+v, want the searching message", msg.Sent)
			}
			if diff := cmp.Diff([]string{"sent-1"}, msg.Deleted); diff != "" {
				t.Errorf("deleted mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantReplies, msg.ReplyContents()); diff != "" {
				t.Errorf("replies mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantResolved, f.resolver.ResolvedURLs()); diff != "" {
				t.Errorf("resolved urls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlayUnresolvableURLRepliesOnce(t *testing.T) {
	f := newFixture(t)
	f.resolver.Fail = map[string]bool{"https://bad.example/a.mp3": true}
	msg := servertest.NewMessage()

	runPlay(t, f, &fakeSearcher{}, msg, "https://bad.example/a.mp3")

	if diff := cmp.Diff([]string{":cry: Could not add <https://bad.example/a.mp3>."}, msg.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if f.server.Queue().Len() != 0 {
		t.Errorf("queue has %d tracks, want 0", f.server.Queue().Len())
	}
}

func TestPlayResumes(t *testing.T) {
	f := newFixture(t)
	runPlay(t, f, &fakeSearcher{}, servertest.NewMessage(), "https://youtu.be/abc")
	eventually(t, "track to start", func() bool { return f.encoder.Started() == 1 })

	if !f.server.Player().Pause() {
		t.Fatal("Pause returned false while playing")
	}

	msg := servertest.NewMessage()
	args := command.Args{Server: f.server, IncludeMention: true, Prefix: ">"}
	if err := command.Play(&fakeSearcher{}).Run(t.Context(), msg, args); err != nil {
		t.Fatalf("play: %v", err)
	}

	if diff := cmp.Diff([]string{"<@u1> :arrow_forward: Resuming playback."}, msg.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
	if got := msg.Replies[0].AllowedMentions; got == nil || len(got.Parse) != 0 {
		t.Errorf("allowed mentions = %+v, want none", got)
	}
	if f.server.Player().IsPaused() {
		t.Error("player still paused")
	}
}

func TestPlayAttachment(t *testing.T) {
	f := newFixture(t)
	msg := servertest.NewMessage()
	msg.Files = []*discordgo.MessageAttachment{
		{URL: "https://cdn.discordapp.com/a/song.mp3", Filename: "song.mp3"},
		{URL: "https://cdn.discordapp.com/a/other.mp3", Filename: "other.mp3"},
	}

	runPlay(t, f, &fakeSearcher{}, msg, "")

	if diff := cmp.Diff([]string{"https://cdn.discordapp.com/a/song.mp3"}, f.resolver.ResolvedURLs()); diff != "" {
		t.Errorf("resolved urls mismatch (-want +got):\n%s", diff)
	}
}

func TestPlayReferencedMessage(t *testing.T) {
	const noContent = ":face_with_raised_eyebrow: There is no playable content in the replied message."

	tests := []struct {
		name         string
		referenced   *discordgo.Message
		wantResolved []string
		wantReplies  []string
	}{
		{
			name:         "url",
			referenced:   &discordgo.Message{Author: &discordgo.User{ID: "u2"}, Content: "https://youtu.be/abc"},
			wantResolved: []string{"https://youtu.be/abc"},
		},
		{
			name:         "prefixed url",
			referenced:   &discordgo.Message{Author: &discordgo.User{ID: "u2"}, Content: ">https://youtu.be/abc"},
			wantResolved: []string{"https://youtu.be/abc"},
		},
		{
			name: "attachment",
			referenced: &discordgo.Message{
				Author:      &discordgo.User{ID: "u2"},
				Attachments: []*discordgo.MessageAttachment{{URL: "https://cdn.discordapp.com/a/song.ogg"}},
			},
			wantResolved: []string{"https://cdn.discordapp.com/a/song.ogg"},
		},
		{
			name: "track embed by the bot",
			referenced: &discordgo.Message{
				Author: &discordgo.User{ID: "bot"},
				Embeds: []*discordgo.MessageEmbed{{
					Color:       presenters.ColorNowPlaying,
					Description: "[Some track](https://www.nicovideo.jp/watch/sm9)",
				}},
			},
			wantResolved: []string{"https://www.nicovideo.jp/watch/sm9"},
		},
		{
			name: "queue embed by the bot",
			referenced: &discordgo.Message{
				Author: &discordgo.User{ID: "bot"},
				Embeds: []*discordgo.MessageEmbed{{
					Color:       presenters.ColorQueue,
					Description: "[Some track](https://www.nicovideo.jp/watch/sm9)",
				}},
			},
			wantReplies: []string{noContent},
		},
		{
			name:        "bot message without embeds",
			referenced:  &discordgo.Message{Author: &discordgo.User{ID: "bot"}, Content: "Pong!"},
			wantReplies: []string{noContent},
		},
		{
			name:        "plain text",
			referenced:  &discordgo.Message{Author: &discordgo.User{ID: "u2"}, Content: "nice song"},
			wantReplies: []string{noContent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			msg := servertest.NewMessage()
			msg.Referenced = tt.referenced

			runPlay(t, f, &fakeSearcher{}, msg, "")

			if diff := cmp.Diff(tt.wantResolved, f.resolver.ResolvedURLs()); diff != "" {
				t.Errorf("resolved urls mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantReplies, msg.ReplyContents()); diff != "" {
				t.Errorf("replies mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlayStartsQueue(t *testing.T) {
	f := newFixture(t)
	if _, err := f.server.Queue().Add(audiosource.NewAttachment("https://cdn.discordapp.com/a/song.mp3", "", 30), "listener", false); err != nil {
		t.Fatalf("Add: %v", err)
	}

	first := servertest.NewMessage()
	runPlay(t, f, &fakeSearcher{}, first, "")
	eventually(t, "queue to start", func() bool { return f.encoder.Started() == 1 })

	if diff := cmp.Diff([]string{"Starting playback."}, first.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}

	second := servertest.NewMessage()
	runPlay(t, f, &fakeSearcher{}, second, "")

	if diff := cmp.Diff([]string{"Already playing."}, second.ReplyContents()); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}
