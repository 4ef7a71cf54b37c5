package opus

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrVoiceConnClosed = errors.New("voice connection send timeout")

// SendTimeout is how long a frame may wait for the voice connection.
var SendTimeout = time.Minute

// StreamToVoice reads Opus frames from source and sends them to send, usually
// the OpusSend channel of a discordgo.VoiceConnection. It blocks until all
// frames are sent, ctx is done or an error occurs. gate may be nil.
// Returns nil on clean EOF.
func StreamToVoice(ctx context.Context, source *FrameReader, send chan<- []byte, gate *Gate) error {
	for {
		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				return err
			}
		}

		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		timer := time.NewTimer(SendTimeout)
		select {
		case send <- frame:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			return ErrVoiceConnClosed
		}
	}
}
