package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/chat"
	"github.com/glizzus/sound-on/internal/player"
	"github.com/glizzus/sound-on/internal/presenters"
	"github.com/glizzus/sound-on/internal/queue"
)

var controlPermissions = []Permission{PermissionAdmin, PermissionSameVC}

func Pause() *Command {
	return &Command{
		Name:        "pause",
		Aliases:     []string{"stop"},
		Description: "Pause playback.",
		Category:    "player",
		Permissions: controlPermissions,
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			p := args.Server.Player()
			if p.IsPaused() {
				return chat.ReplyText(msg, fmt.Sprintf(":warning: Already paused. Use `%splay` to resume.", args.Prefix))
			}
			if !p.Pause() {
				return chat.ReplyText(msg, ":warning: Nothing is playing.")
			}
			return chat.ReplyText(msg, ":pause_button: Paused.")
		},
	}
}

func Skip() *Command {
	return &Command{
		Name:        "skip",
		Aliases:     []string{"s", "next"},
		Description: "Skip the current track.",
		Category:    "player",
		Permissions: controlPermissions,
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			if err := args.Server.Skip(); err != nil {
				if errors.Is(err, player.ErrNotPlaying) {
					return chat.ReplyText(msg, ":warning: Nothing is playing.")
				}
				return err
			}
			return chat.ReplyText(msg, ":track_next: Skipped.")
		},
	}
}

func Queue() *Command {
	return &Command{
		Name:        "queue",
		Aliases:     []string{"q", "list"},
		Description: "Show the queue.",
		Category:    "playlist",
		Arguments: []Argument{
			{Name: "page", Description: "The page to show.", Type: discordgo.ApplicationCommandOptionString},
		},
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			page := 1
			if len(args.Args) > 0 {
				n, err := strconv.Atoi(args.Args[0])
				if err != nil || n < 1 {
					return chat.ReplyText(msg, ":warning: The page must be a positive number.")
				}
				page = n
			}
			q := args.Server.Queue()
			_, err := msg.Reply(&discordgo.MessageSend{
				Embeds: []*discordgo.MessageEmbed{presenters.QueueList(q.Items(), page, q.Loop(), q.QueueLoop())},
			})
			return err
		},
	}
}

func NowPlaying() *Command {
	return &Command{
		Name:        "nowplaying",
		Aliases:     []string{"np", "current"},
		Description: "Show the track being played.",
		Category:    "player",
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			p := args.Server.Player()
			head, err := args.Server.Queue().Current()
			if !p.IsPlaying() || err != nil {
				return chat.ReplyText(msg, ":warning: Nothing is playing.")
			}
			_, err = msg.Reply(&discordgo.MessageSend{
				Embeds: []*discordgo.MessageEmbed{presenters.NowPlaying(head, p.Elapsed(), false)},
			})
			return err
		},
	}
}

func Loop() *Command {
	return &Command{
		Name:        "loop",
		Aliases:     []string{"repeat", "lp"},
		Description: "Loop the current track or the whole queue.",
		Category:    "playlist",
		Arguments: []Argument{
			{Name: "mode", Description: "track, queue or off. Toggles track loop when empty.", Type: discordgo.ApplicationCommandOptionString},
		},
		Permissions: controlPermissions,
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			q := args.Server.Queue()
			mode := ""
			if len(args.Args) > 0 {
				mode = strings.ToLower(args.Args[0])
			}
			switch mode {
			case "":
				on := !q.Loop()
				q.SetLoop(on)
				if on {
					return chat.ReplyText(msg, ":repeat_one: Looping the current track.")
				}
				return chat.ReplyText(msg, ":arrow_right: Track loop turned off.")
			case "track", "one":
				q.SetLoop(true)
				q.SetQueueLoop(false)
				return chat.ReplyText(msg, ":repeat_one: Looping the current track.")
			case "queue", "all":
				q.SetLoop(false)
				q.SetQueueLoop(true)
				return chat.ReplyText(msg, ":repeat: Looping the queue.")
			case "off":
				q.SetLoop(false)
				q.SetQueueLoop(false)
				return chat.ReplyText(msg, ":arrow_right: Loop turned off.")
			default:
				return chat.ReplyText(msg, ":warning: The mode must be one of track, queue or off.")
			}
		},
	}
}

func Leave() *Command {
	return &Command{
		Name:        "leave",
		Aliases:     []string{"disconnect", "dc"},
		Description: "Leave the voice channel and clear the queue.",
		Category:    "voice",
		Permissions: controlPermissions,
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			if !args.Server.Player().IsConnecting() {
				return chat.ReplyText(msg, ":warning: Not connected to a voice channel.")
			}
			if err := args.Server.Leave(); err != nil && !errors.Is(err, player.ErrNotConnected) {
				return err
			}
			return chat.ReplyText(msg, ":dash: Disconnected.")
		},
	}
}

func Join() *Command {
	return &Command{
		Name:        "join",
		Aliases:     []string{"summon", "connect"},
		Description: "Join your voice channel.",
		Category:    "voice",
		ShouldDefer: true,
		Run: func(ctx context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			args.Server.JoinVoiceChannel(ctx, msg, true, true)
			return nil
		},
	}
}

// Remove drops a queued track. The track being played cannot be removed.
func Remove() *Command {
	return &Command{
		Name:        "remove",
		Aliases:     []string{"rm", "delete"},
		Description: "Remove a track from the queue.",
		Category:    "playlist",
		Arguments: []Argument{
			{Name: "position", Description: "Position of the track in the queue.", Type: discordgo.ApplicationCommandOptionString, Required: true},
		},
		Permissions: controlPermissions,
		Run: func(_ context.Context, msg chat.CommandMessage, args Args) error {
			args.Server.UpdateBoundChannel(msg)
			if len(args.Args) == 0 {
				return chat.ReplyText(msg, ":warning: Give the position of the track to remove.")
			}
			i, err := strconv.Atoi(args.Args[0])
			if err != nil || i < 1 {
				return chat.ReplyText(msg, ":warning: The position must be a positive number.")
			}
			item, err := args.Server.Queue().Remove(i)
			var indexErr *queue.IndexError
			if errors.As(err, &indexErr) {
				return chat.ReplyText(msg, fmt.Sprintf(":warning: There is no track at position %d.", i))
			}
			if err != nil {
				return err
			}
			return chat.ReplyText(msg, ":wastebasket: Removed "+presenters.TrackLink(item.Source)+".")
		},
	}
}
