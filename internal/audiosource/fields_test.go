package audiosource_test

import (
	"strings"
	"testing"

	"github.com/glizzus/sound-on/internal/audiosource"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		description string
		verbose     bool
		want        string
	}{
		{
			name:        "short description is kept",
			description: "hello",
			want:        "hello",
		},
		{
			name:        "exactly at the limit is kept",
			description: strings.Repeat("a", 350),
			want:        strings.Repeat("a", 350),
		},
		{
			name:        "limit counts characters not bytes",
			description: strings.Repeat("あ", 350),
			want:        strings.Repeat("あ", 350),
		},
		{
			name:        "long description is cut to 300",
			description: strings.Repeat("a", 351),
			want:        strings.Repeat("a", 300) + "...",
		},
		{
			name:        "verbose keeps up to 1000",
			description: strings.Repeat("a", 351),
			verbose:     true,
			want:        strings.Repeat("a", 351),
		},
		{
			name:        "verbose cuts at 1000",
			description: strings.Repeat("あ", 1001),
			verbose:     true,
			want:        strings.Repeat("あ", 1000) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := audiosource.Summarize(tt.description, tt.verbose); got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain text",
			html: "just text",
			want: "just text",
		},
		{
			name: "line breaks",
			html: "line1<br>line2<br />line3",
			want: "line1\nline2\nline3",
		},
		{
			name: "links keep their target",
			html: `see <a href="https://example.com/a">here</a>`,
			want: "see here [https://example.com/a]",
		},
		{
			name: "bare links are not repeated",
			html: `<a href="https://example.com">https://example.com</a>`,
			want: "https://example.com",
		},
		{
			name: "entities are decoded",
			html: "a &amp; b",
			want: "a & b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := audiosource.HTMLToText(tt.html); got != tt.want {
				t.Errorf("HTMLToText() = %q, want %q", got, tt.want)
			}
		})
	}
}
