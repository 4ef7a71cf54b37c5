package audiosource

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/util"
)

// Summarize shortens a description for embeds.
// Non-verbose summaries longer than 350 characters are cut to 300 characters,
// verbose ones longer than 1000 characters are cut to 1000, and "..." is appended.
func Summarize(description string, verbose bool) string {
	limit, cut := 350, 300
	if verbose {
		limit, cut = 1000, 1000
	}
	if utf8.RuneCountInString(description) > limit {
		return util.Truncate(description, cut) + "..."
	}
	return description
}

// HTMLToText renders an HTML fragment as plain text.
// Line breaks and paragraphs become newlines and links keep their target in brackets.
func HTMLToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href != "" && strings.TrimSpace(a.Text()) != href {
			a.AppendHtml(" [" + html.EscapeString(href) + "]")
		}
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func fieldValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// uploaderFields is the layout shared by sources that know an uploader and a play count.
func uploaderFields(author string, views int, description string, verbose bool) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		{
			Name:   ":cinema: Uploader",
			Value:  fieldValue(author),
			Inline: false,
		},
		{
			Name:   ":eyes: Play count",
			Value:  fmt.Sprintf("%d plays", views),
			Inline: false,
		},
		{
			Name:   ":asterisk: Summary",
			Value:  fieldValue(Summarize(description, verbose)),
			Inline: false,
		},
	}
}
