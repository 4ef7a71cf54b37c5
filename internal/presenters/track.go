package presenters

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/queue"
	"github.com/glizzus/sound-on/internal/util"
)

// FormatLength renders seconds as m:ss or h:mm:ss. Unknown lengths render as "-".
func FormatLength(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TrackLink is the markdown link every track embed starts its description with.
func TrackLink(source audiosource.AudioSource) string {
	title := strings.NewReplacer("[", "［", "]", "］").Replace(source.Title())
	return fmt.Sprintf("[%s](%s)", util.Truncate(title, 200), source.URL())
}

func thumbnail(source audiosource.AudioSource) *discordgo.MessageEmbedThumbnail {
	if source.Thumbnail() == "" {
		return nil
	}
	return &discordgo.MessageEmbedThumbnail{URL: source.Thumbnail()}
}

// SongAdded announces that item was queued at position, counted from 0.
func SongAdded(item queue.Item, position int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       ":white_check_mark: Added to the queue",
		Description: TrackLink(item.Source),
		Color:       ColorSongAdded,
		Thumbnail:   thumbnail(item.Source),
		Fields: []*discordgo.MessageEmbedField{
			{Name: ":stopwatch: Length", Value: FormatLength(item.Source.LengthSeconds()), Inline: true},
			{Name: ":bust_in_silhouette: Requested by", Value: fallback(item.AddedBy), Inline: true},
			{Name: ":hash: Position", Value: positionLabel(position), Inline: true},
		},
	}
}

func positionLabel(position int) string {
	if position == 0 {
		return "Now"
	}
	return fmt.Sprintf("%d", position)
}

func fallback(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// NowPlaying describes the track being played. Automatic announcements use a
// separate color so they can be told apart from the nowplaying command.
func NowPlaying(item queue.Item, elapsed time.Duration, auto bool) *discordgo.MessageEmbed {
	source := item.Source
	color := ColorNowPlaying
	title := ":cd: Now playing"
	if auto {
		color = ColorAutoNowPlaying
	}

	description := TrackLink(source)
	if !auto {
		description += "\n" + progress(int(elapsed.Seconds()), source.LengthSeconds())
	}
	if extra := source.NowPlayingExtra(); extra != "" {
		description += "\n" + extra
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Thumbnail:   thumbnail(source),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Requested by " + fallback(item.AddedBy)},
	}
	if !auto {
		embed.Fields = source.Fields(true)
	}
	return embed
}

const progressWidth = 16

func progress(elapsed, length int) string {
	if length <= 0 {
		return FormatLength(elapsed) + " / -"
	}
	done := min(elapsed*progressWidth/length, progressWidth)
	bar := strings.Repeat("▬", done) + "🔘" + strings.Repeat("▬", progressWidth-done)
	return fmt.Sprintf("%s %s / %s", bar, FormatLength(max(elapsed, 0)), FormatLength(length))
}

const queuePageSize = 10

// QueueList renders one page of the queue, pages counted from 1.
func QueueList(items []queue.Item, page int, loop, queueLoop bool) *discordgo.MessageEmbed {
	pages := max((len(items)+queuePageSize-1)/queuePageSize, 1)
	page = min(max(page, 1), pages)

	var b strings.Builder
	if len(items) == 0 {
		b.WriteString("The queue is empty.")
	}
	start := (page - 1) * queuePageSize
	total := 0
	for i, item := range items {
		total += item.Source.LengthSeconds()
		if i < start || i >= start+queuePageSize {
			continue
		}
		label := fmt.Sprintf("%d.", i)
		if i == 0 {
			label = "Now:"
		}
		fmt.Fprintf(&b, "%s %s `%s` (%s)\n", label, TrackLink(item.Source), FormatLength(item.Source.LengthSeconds()), fallback(item.AddedBy))
	}

	return &discordgo.MessageEmbed{
		Title:       ":scroll: Queue",
		Description: strings.TrimSuffix(b.String(), "\n"),
		Color:       ColorQueue,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d | %d tracks | total %s | loop %s | queue loop %s",
				page, pages, len(items), FormatLength(total), onOff(loop), onOff(queueLoop)),
		},
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// RelatedOn explains the related-track autoplay that was just turned on.
func RelatedOn() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: ":o: Turned on related-song autoplay",
		Description: "When a track from YouTube finishes, a related track is added to the end of the queue.\r\n" +
			"*Nothing is added for tracks from other sources, or while a loop is on.",
		Color: ColorRelatedSetup,
	}
}
