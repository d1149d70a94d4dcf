// Package encoder drives external MP3 encoders.
//
// Both backends read raw interleaved PCM on stdin and write MP3 frames to
// stdout, so the caller owns every file handle and can commit output
// atomically.
package encoder

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"wavconv/internal/audio"
	"wavconv/internal/config"
	"wavconv/internal/services"
)

// Source is the PCM stream handed to an encoder.
type Source struct {
	PCM    io.Reader
	Format audio.Format
}

// Encoder turns a PCM stream into MP3 at the given VBR quality (0 best, 9 worst).
type Encoder interface {
	Name() string
	Encode(ctx context.Context, src Source, quality int, dst io.Writer) error
}

// argBuilder renders the command line for one encode.
type argBuilder func(format audio.Format, quality int, extra []string) ([]string, error)

// CLI runs an encoder executable with PCM on stdin and MP3 on stdout.
type CLI struct {
	backend string
	binary  string
	extra   []string
	build   argBuilder
}

const (
	stderrTailBytes = 4096
	killGrace       = 3 * time.Second
)

// New selects the backend configured in cfg.
func New(cfg *config.Config) (*CLI, error) {
	if cfg == nil {
		return NewLame("lame", nil), nil
	}
	switch cfg.Encoder.Backend {
	case config.BackendLame:
		return NewLame(cfg.EncoderBinary(), cfg.Encoder.ExtraArgs), nil
	case config.BackendFFmpeg:
		return NewFFmpeg(cfg.EncoderBinary(), cfg.Encoder.ExtraArgs), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "encoder", "select", fmt.Sprintf("unknown backend %q", cfg.Encoder.Backend), nil)
	}
}

// NewLame returns an encoder backed by the lame CLI.
func NewLame(binary string, extra []string) *CLI {
	return &CLI{backend: config.BackendLame, binary: defaultString(binary, "lame"), extra: extra, build: lameArgs}
}

// NewFFmpeg returns an encoder backed by ffmpeg with libmp3lame.
func NewFFmpeg(binary string, extra []string) *CLI {
	return &CLI{backend: config.BackendFFmpeg, binary: defaultString(binary, "ffmpeg"), extra: extra, build: ffmpegArgs}
}

func (c *CLI) Name() string { return c.backend }

// Binary returns the executable that will be started.
func (c *CLI) Binary() string { return c.binary }

// Args returns the arguments used for the given stream format and quality.
func (c *CLI) Args(format audio.Format, quality int) ([]string, error) {
	if quality < 0 || quality > 9 {
		return nil, services.Wrap(services.ErrValidation, "encode", c.backend, fmt.Sprintf("quality %d outside 0-9", quality), nil)
	}
	return c.build(format, quality, c.extra)
}

func (c *CLI) Encode(ctx context.Context, src Source, quality int, dst io.Writer) error {
	args, err := c.Args(src.Format, quality)
	if err != nil {
		return err
	}

	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Stdin = src.PCM
	cmd.Stdout = dst
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrExternalTool, "encode", c.backend, stderr.String(), err)
	}
	return nil
}

func lameArgs(format audio.Format, quality int, extra []string) ([]string, error) {
	var mode string
	switch format.Channels {
	case 1:
		mode = "m"
	case 2:
		mode = "j"
	default:
		return nil, services.Wrap(services.ErrValidation, "encode", "lame", fmt.Sprintf("%d channels unsupported (mono or stereo only)", format.Channels), nil)
	}
	sign := "--signed"
	if format.BitDepth == 8 {
		sign = "--unsigned"
	}
	args := []string{
		"--quiet",
		"-r",
		"-s", strconv.FormatFloat(float64(format.SampleRate)/1000, 'f', -1, 64),
		"--bitwidth", strconv.Itoa(format.BitDepth),
		sign,
		"--little-endian",
		"-m", mode,
		"-V", strconv.Itoa(quality),
	}
	args = append(args, extra...)
	return append(args, "-", "-"), nil
}

func ffmpegArgs(format audio.Format, quality int, extra []string) ([]string, error) {
	var sampleFormat string
	switch format.BitDepth {
	case 8:
		sampleFormat = "u8"
	case 16:
		sampleFormat = "s16le"
	case 24:
		sampleFormat = "s24le"
	case 32:
		sampleFormat = "s32le"
	default:
		return nil, services.Wrap(services.ErrValidation, "encode", "ffmpeg", fmt.Sprintf("%d-bit samples unsupported", format.BitDepth), nil)
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", sampleFormat,
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"-i", "pipe:0",
		"-vn",
		"-codec:a", "libmp3lame",
		"-q:a", strconv.Itoa(quality),
	}
	args = append(args, extra...)
	return append(args, "-f", "mp3", "pipe:1"), nil
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
