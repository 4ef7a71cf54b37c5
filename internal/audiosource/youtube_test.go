package audiosource_test

import (
	"testing"

	"github.com/glizzus/sound-on/internal/audiosource"
)

func TestNewYouTubeFallsBackToExtractor(t *testing.T) {
	extractor := &fakeExtractor{
		info:   &audiosource.YtDlpInfo{Title: "Song", Duration: 215, Uploader: "Channel", ViewCount: 99},
		stream: "data",
	}

	y, err := audiosource.NewYouTube(t.Context(), "https://www.youtube.com/watch?v=abc", nil, audiosource.Deps{Extractor: extractor})
	if err != nil {
		t.Fatalf("NewYouTube() error = %v", err)
	}
	if !y.IsFallbacked() {
		t.Error("expected fallback without a youtube client")
	}
	if y.Title() != "Song" || y.LengthSeconds() != 215 || y.Author() != "Channel" {
		t.Errorf("unexpected fields %+v", y.Export())
	}

	info, err := y.Fetch(t.Context())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer info.Stream.Close()
	if info.Type != audiosource.StreamReadable {
		t.Errorf("expected a readable stream, got %v", info.Type)
	}
	if got := y.NowPlayingExtra(); got != "Channel: Channel" {
		t.Errorf("NowPlayingExtra() = %q", got)
	}
}

func TestYouTubeFields(t *testing.T) {
	y, err := audiosource.NewYouTube(t.Context(), "https://youtu.be/abc", &audiosource.Exported{
		Title:       "Song",
		Author:      "",
		Views:       5,
		Description: "",
	}, audiosource.Deps{})
	if err != nil {
		t.Fatalf("NewYouTube() error = %v", err)
	}

	fields := y.Fields(false)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[0].Value != "-" {
		t.Errorf("empty uploader should render as '-', got %q", fields[0].Value)
	}
	if fields[1].Value != "5 plays" {
		t.Errorf("unexpected play count %q", fields[1].Value)
	}
}
