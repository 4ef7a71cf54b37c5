// Package voice connects the bot to the voice channels of its users.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-on/internal/player"
)

var ErrNotInVoiceChannel = errors.New("member is not in a voice channel")

// Session is the part of a discordgo.Session the joiner needs.
type Session interface {
	ChannelVoiceJoin(guildID, channelID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// StateLookup finds which voice channel a user is in.
type StateLookup interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

// Joiner joins voice channels through a discordgo session.
type Joiner struct {
	session Session
	state   StateLookup
}

func NewJoiner(session Session, state StateLookup) *Joiner {
	return &Joiner{session: session, state: state}
}

// NewJoinerFromSession uses the session both to join and to look up voice states.
func NewJoinerFromSession(s *discordgo.Session) *Joiner {
	return NewJoiner(s, s.State)
}

// UserChannel returns the voice channel userID is connected to.
func (j *Joiner) UserChannel(guildID, userID string) (string, error) {
	vs, err := j.state.VoiceState(guildID, userID)
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return "", ErrNotInVoiceChannel
		}
		return "", fmt.Errorf("failed to look up voice state: %w", err)
	}
	if vs.ChannelID == "" {
		return "", ErrNotInVoiceChannel
	}
	return vs.ChannelID, nil
}

// Join connects to channelID deafened, so the bot never receives audio.
func (j *Joiner) Join(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	done := make(chan result, 1)
	go func() {
		vc, err := j.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- result{vc, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("unable to join the voice channel: %w", r.err)
		}
		slog.Info("joined voice channel", "guildID", guildID, "channelID", channelID)
		return player.FromVoiceConnection(r.vc), nil
	case <-ctx.Done():
		go func() {
			// Drop a connection that completes after the caller gave up.
			if r := <-done; r.err == nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Error("failed to disconnect", "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	}
}
