package encoder_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavconv/internal/audio"
	"wavconv/internal/config"
	"wavconv/internal/encoder"
	"wavconv/internal/services"
	"wavconv/internal/testsupport"
)

var cdFormat = audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}

func TestLameArgs(t *testing.T) {
	enc := encoder.NewLame("", []string{"--noreplaygain"})
	args, err := enc.Args(cdFormat, 2)
	require.NoError(t, err)

	assert.Equal(t, "lame", enc.Binary())
	assert.Equal(t, []string{
		"--quiet", "-r", "-s", "44.1", "--bitwidth", "16", "--signed", "--little-endian",
		"-m", "j", "-V", "2", "--noreplaygain", "-", "-",
	}, args)
}

func TestLameArgsMono8Bit(t *testing.T) {
	args, err := encoder.NewLame("lame", nil).Args(audio.Format{SampleRate: 22050, Channels: 1, BitDepth: 8}, 7)
	require.NoError(t, err)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-s 22.05")
	assert.Contains(t, joined, "--unsigned")
	assert.Contains(t, joined, "-m m")
}

func TestLameRejectsSurround(t *testing.T) {
	_, err := encoder.NewLame("lame", nil).Args(audio.Format{SampleRate: 48000, Channels: 6, BitDepth: 24}, 2)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestFFmpegArgs(t *testing.T) {
	args, err := encoder.NewFFmpeg("/opt/ffmpeg", nil).Args(audio.Format{SampleRate: 48000, Channels: 6, BitDepth: 24}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s24le", "-ar", "48000", "-ac", "6", "-i", "pipe:0",
		"-vn", "-codec:a", "libmp3lame", "-q:a", "5",
		"-f", "mp3", "pipe:1",
	}, args)
}

func TestArgsRejectQualityOutOfRange(t *testing.T) {
	_, err := encoder.NewLame("lame", nil).Args(cdFormat, 10)
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	enc, err := encoder.New(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "lame", enc.Name())

	cfg.Encoder.Backend = config.BackendFFmpeg
	cfg.Encoder.Binary = "/usr/local/bin/ffmpeg"
	enc, err = encoder.New(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", enc.Name())
	assert.Equal(t, "/usr/local/bin/ffmpeg", enc.Binary())

	cfg.Encoder.Backend = "flac"
	_, err = encoder.New(&cfg)
	assert.ErrorIs(t, err, services.ErrConfiguration)
}

func TestEncodeStreamsThroughBinary(t *testing.T) {
	bin := testsupport.WriteStub(t, t.TempDir(), "lame", "exec cat")
	enc := encoder.NewLame(bin, nil)

	var out bytes.Buffer
	err := enc.Encode(context.Background(), encoder.Source{PCM: strings.NewReader("pcm-bytes"), Format: cdFormat}, 2, &out)
	require.NoError(t, err)
	assert.Equal(t, "pcm-bytes", out.String())
}

func TestEncodeReportsStderrOnFailure(t *testing.T) {
	bin := testsupport.WriteStub(t, t.TempDir(), "lame", "cat >/dev/null\necho 'Unsupported data format' >&2\nexit 3")
	enc := encoder.NewLame(bin, nil)

	err := enc.Encode(context.Background(), encoder.Source{PCM: strings.NewReader("x"), Format: cdFormat}, 2, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrExternalTool)
	assert.Contains(t, err.Error(), "Unsupported data format")
}

func TestEncodeHonoursCancellation(t *testing.T) {
	bin := testsupport.WriteStub(t, t.TempDir(), "lame", "exec sleep 10")
	enc := encoder.NewLame(bin, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := enc.Encode(ctx, encoder.Source{PCM: strings.NewReader(""), Format: cdFormat}, 2, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEncodeMissingBinary(t *testing.T) {
	enc := encoder.NewLame("wavconv-no-such-encoder", nil)
	err := enc.Encode(context.Background(), encoder.Source{PCM: strings.NewReader(""), Format: cdFormat}, 2, &bytes.Buffer{})
	assert.ErrorIs(t, err, services.ErrExternalTool)
}
