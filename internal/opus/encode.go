package opus

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/jonas747/ogg"
)

// Input is the audio to encode. Exactly one of URL and Reader is used, URL first.
type Input struct {
	URL string
	// Cookie is sent as the Cookie header when URL is opened.
	Cookie string
	Reader io.Reader
}

type EncodeOptions struct {
	// FFmpegPath defaults to "ffmpeg" on the PATH.
	FFmpegPath string
	// Bitrate in bits per second, 64000 by default.
	Bitrate int
}

func ffmpegArgs(in Input, bitrate int) []string {
	var args []string
	if in.URL != "" {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
		if in.Cookie != "" {
			args = append(args, "-headers", "Cookie: "+in.Cookie+"\r\n")
		}
		args = append(args, "-i", in.URL)
	} else {
		args = append(args, "-i", "pipe:0")
	}

	return append(args,
		"-vn",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-vbr", "on",
		"-compression_level", "10",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", strconv.Itoa(bitrate),
		"-application", "audio",
		"-frame_duration", "20",
		"-packet_loss", "1",
		"-threads", "0",
		"-loglevel", "error",
		"pipe:1",
	)
}

// Encode runs FFmpeg to transcode the input to Opus, and returns an io.ReadCloser
// that produces length-prefixed Opus frames.
// The caller should read until EOF. The returned io.ReadCloser must be closed
// to clean up the FFmpeg process. Cancelling ctx kills FFmpeg.
func Encode(ctx context.Context, in Input, opts EncodeOptions) (io.ReadCloser, error) {
	if in.URL == "" && in.Reader == nil {
		return nil, errors.New("nothing to encode")
	}
	path := opts.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	bitrate := opts.Bitrate
	if bitrate <= 0 {
		bitrate = 64000
	}

	ffmpeg := exec.CommandContext(ctx, path, ffmpegArgs(in, bitrate)...)
	if in.URL == "" {
		ffmpeg.Stdin = in.Reader
	}

	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := ffmpeg.Start(); err != nil {
		return nil, err
	}
	slog.Debug("started ffmpeg", "pid", ffmpeg.Process.Pid, "url", in.URL)

	pr, pw := io.Pipe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer pw.Close()
		pw.CloseWithError(repackOgg(stdout, pw))
	}()

	return &encodeCloser{ReadCloser: pr, cmd: ffmpeg, done: done}, nil
}

// repackOgg copies the Opus packets of an ogg stream into w as length-prefixed frames.
func repackOgg(r io.Reader, w io.Writer) error {
	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(r))

	// Skip the first 2 OGG metadata packets.
	skip := 2
	for {
		packet, _, err := decoder.Decode()
		if skip > 0 {
			skip--
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		if err := WriteFrame(w, packet); err != nil {
			return err
		}
	}
}

// WriteFrame writes a single length-prefixed frame.
func WriteFrame(w io.Writer, frame []byte) error {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// encodeCloser wraps the pipe reader and ensures the FFmpeg process is cleaned up.
type encodeCloser struct {
	io.ReadCloser
	cmd  *exec.Cmd
	done chan struct{}
}

func (e *encodeCloser) Close() error {
	err := e.ReadCloser.Close()
	// Kill FFmpeg if still running (e.g. pipe closed early).
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	<-e.done
	_ = e.cmd.Wait()
	return err
}
