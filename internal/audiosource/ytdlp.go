package audiosource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
)

// Runner runs yt-dlp. binary.Manager is the production implementation.
type Runner interface {
	Exec(ctx context.Context, args ...string) ([]byte, error)
	Command(ctx context.Context, args ...string) (*exec.Cmd, error)
}

// Extractor reads metadata and audio through an external extraction tool.
type Extractor interface {
	Info(ctx context.Context, url string) (*YtDlpInfo, error)
	Stream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Searcher finds videos by keyword.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

type YtDlpInfo struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	Thumbnail   string  `json:"thumbnail"`
	Uploader    string  `json:"uploader"`
	ViewCount   int     `json:"view_count"`
	WebpageURL  string  `json:"webpage_url"`
	Extractor   string  `json:"extractor_key"`
}

type SearchResult struct {
	ID       string
	Title    string
	URL      string
	Channel  string
	Duration int
	// Video is false for channels, playlists and other non-playable entries.
	Video bool
}

// YtDlp is an Extractor and Searcher backed by the yt-dlp command line tool.
type YtDlp struct {
	runner      Runner
	searchCount int
}

func NewYtDlp(runner Runner) *YtDlp {
	return &YtDlp{runner: runner, searchCount: 5}
}

var _ Extractor = (*YtDlp)(nil)
var _ Searcher = (*YtDlp)(nil)

func (y *YtDlp) Info(ctx context.Context, url string) (*YtDlpInfo, error) {
	out, err := y.runner.Exec(ctx, "--skip-download", "--print-json", "--no-warnings", url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata error: %w", err)
	}

	var info YtDlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata parse error: %w", err)
	}
	return &info, nil
}

// Stream starts yt-dlp writing the best available audio to its standard output.
// Closing the returned reader stops the process.
func (y *YtDlp) Stream(ctx context.Context, url string) (io.ReadCloser, error) {
	cmd, err := y.runner.Command(ctx, "-f", "bestaudio/best", "-o", "-", "--quiet", "--no-warnings", url)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe output of yt-dlp to stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start yt-dlp process: %w", err)
	}
	slog.Debug("started yt-dlp stream", "url", url, "pid", cmd.Process.Pid)

	return &processReadCloser{ReadCloser: stdout, cmd: cmd}, nil
}

type flatSearchResult struct {
	Entries []struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		URL      string  `json:"url"`
		Channel  string  `json:"channel"`
		Uploader string  `json:"uploader"`
		Duration float64 `json:"duration"`
		IEKey    string  `json:"ie_key"`
	} `json:"entries"`
}

// Search queries YouTube for videos matching query.
func (y *YtDlp) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if query == "" {
		return nil, errors.New("search query is empty")
	}
	target := "ytsearch" + strconv.Itoa(y.searchCount) + ":" + query
	out, err := y.runner.Exec(ctx, "--flat-playlist", "-J", "--no-warnings", target)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search error: %w", err)
	}
	return parseSearchResults(out)
}

func parseSearchResults(out []byte) ([]SearchResult, error) {
	var raw flatSearchResult
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("yt-dlp search parse error: %w", err)
	}

	results := make([]SearchResult, 0, len(raw.Entries))
	for _, e := range raw.Entries {
		url := e.URL
		if url == "" && e.ID != "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		channel := e.Channel
		if channel == "" {
			channel = e.Uploader
		}
		results = append(results, SearchResult{
			ID:       e.ID,
			Title:    e.Title,
			URL:      url,
			Channel:  channel,
			Duration: int(e.Duration),
			Video:    e.IEKey == "Youtube" && url != "",
		})
	}
	return results, nil
}

// processReadCloser ties a process to the lifetime of its output.
type processReadCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (p *processReadCloser) Close() error {
	err := p.ReadCloser.Close()
	// Kill the process if still running (e.g. playback skipped).
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()
	return err
}
