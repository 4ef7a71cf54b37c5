package command

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/audiosource"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/util"
)

var embedTrackLinkPattern = regexp.MustCompile(`^\[.+\]\((https?.+)\)`)

func isURL(s string) bool {
	s = strings.TrimPrefix(s, "<")
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Play starts the queue, resumes it, or adds a track found by url, keyword,
// attachment or a replied-to message.
func Play(searcher audiosource.Searcher) *Command {
	return &Command{
		Name:        "play",
		Aliases:     []string{"p", "resume", "re"},
		Description: "Play the queue, or a track by url or keyword.",
		Category:    "player",
		Arguments: []Argument{
			{
				Name:        "keyword",
				Description: "A url or keywords. Played right away when the bot is not in a voice channel yet.",
				Type:        discordgo.ApplicationCommandOptionString,
			},
			{
				Name:        "file",
				Description: "An audio or video file to play.",
				Type:        discordgo.ApplicationCommandOptionAttachment,
			},
		},
		ShouldDefer: true,
		Run: func(ctx context.Context, msg chat.CommandMessage, args Args) error {
			return runPlay(ctx, msg, args, searcher)
		},
	}
}

func runPlay(ctx context.Context, msg chat.CommandMessage, args Args, searcher audiosource.Searcher) error {
	srv := args.Server
	srv.UpdateBoundChannel(msg)

	attachments := msg.Attachments()
	referenced := msg.ReferencedMessage()

	if srv.Queue().Len() == 0 && args.RawArgs == "" && len(attachments) == 0 && referenced == nil {
		return chat.ReplyText(msg, "There is no content to play.")
	}

	wasConnected := srv.Player().IsConnecting()
	if !srv.JoinVoiceChannel(ctx, msg, false, true) {
		return nil
	}
	first := !wasConnected

	if args.RawArgs == "" && srv.Player().IsPaused() {
		srv.Player().Resume()
		content := ":arrow_forward: Resuming playback."
		if args.IncludeMention {
			content = fmt.Sprintf("<@%s> %s", chat.UserID(msg), content)
		}
		_, err := msg.Reply(&discordgo.MessageSend{
			Content:         content,
			AllowedMentions: chat.NoMentions(),
		})
		return err
	}

	switch {
	case args.RawArgs != "":
		if isURL(args.RawArgs) {
			srv.PlayFromURL(ctx, msg, args.Args, first)
			return nil
		}
		return searchAndPlay(ctx, msg, args, searcher, first)

	case len(attachments) > 0:
		srv.PlayFromURL(ctx, msg, []string{attachments[0].URL}, first)
		return nil

	case referenced != nil:
		return playReferenced(ctx, msg, args, referenced, first)

	case srv.Queue().Len() >= 1:
		if !srv.Player().IsPlaying() && !srv.Player().Preparing() {
			if err := chat.ReplyText(msg, "Starting playback."); err != nil {
				slog.Warn("failed to reply", "error", err)
			}
			return srv.Play(ctx)
		}
		return chat.ReplyText(msg, "Already playing.")

	default:
		return chat.ReplyText(msg, ":heavy_multiplication_x: The queue is empty.")
	}
}

func searchAndPlay(ctx context.Context, msg chat.CommandMessage, args Args, searcher audiosource.Searcher, first bool) error {
	searching, err := msg.Send(&discordgo.MessageSend{Content: ":mag: Searching..."})
	if err != nil {
		return fmt.Errorf("failed to post search message: %w", err)
	}
	deleteSearching := func() {
		if err := msg.Delete(searching); err != nil {
			slog.Warn("failed to delete search message", "error", err)
		}
	}

	results, err := searcher.Search(ctx, args.RawArgs)
	if err != nil {
		slog.Error("search failed", "query", args.RawArgs, "error", err)
		if rerr := chat.ReplyText(msg, ":x: An internal error occurred."); rerr != nil {
			slog.Warn("failed to reply", "error", rerr)
		}
		deleteSearching()
		return nil
	}

	video, ok := util.FindFirst(results, func(r audiosource.SearchResult) bool { return r.Video })
	if !ok {
		err := chat.ReplyText(msg, ":face_with_monocle: No matching video was found.")
		deleteSearching()
		return err
	}

	args.Server.PlayFromURL(ctx, msg, []string{video.URL}, first)
	deleteSearching()
	return nil
}

const noPlayableContent = ":face_with_raised_eyebrow: There is no playable content in the replied message."

func playReferenced(ctx context.Context, msg chat.CommandMessage, args Args, ref *discordgo.Message, first bool) error {
	srv := args.Server
	content := ref.Content
	afterPrefix := ""
	if len(content) >= len(args.Prefix) {
		afterPrefix = content[len(args.Prefix):]
	}

	switch {
	case isURL(content):
		srv.PlayFromURL(ctx, msg, []string{content}, first)
	case isURL(afterPrefix):
		srv.PlayFromURL(ctx, msg, []string{afterPrefix}, first)
	case len(ref.Attachments) > 0:
		srv.PlayFromURL(ctx, msg, []string{ref.Attachments[0].URL}, first)
	case ref.Author != nil && ref.Author.ID == args.BotUserID:
		if len(ref.Embeds) == 0 || !presenters.IsTrackColor(ref.Embeds[0].Color) {
			return chat.ReplyText(msg, noPlayableContent)
		}
		m := embedTrackLinkPattern.FindStringSubmatch(ref.Embeds[0].Description)
		if m == nil {
			return chat.ReplyText(msg, noPlayableContent)
		}
		srv.PlayFromURL(ctx, msg, []string{m[1]}, first)
	default:
		return chat.ReplyText(msg, noPlayableContent)
	}
	return nil
}
