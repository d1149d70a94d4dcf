package audio_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavconv/internal/audio"
	"wavconv/internal/testsupport"
)

func TestProbeReadsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	testsupport.WriteWAV(t, path, testsupport.WAVSpec{SampleRate: 44100, Channels: 2, BitDepth: 16, Frames: 44100})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	info, err := audio.Probe(f)
	require.NoError(t, err)
	assert.Equal(t, audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16}, info.Format)
	assert.Equal(t, int64(44100*4), info.DataSize)
	assert.Equal(t, time.Second, info.Duration)
	assert.Equal(t, 4, info.Format.FrameSize())

	pcm, err := audio.PCM(f, info)
	require.NoError(t, err)
	n, err := io.Copy(io.Discard, pcm)
	require.NoError(t, err)
	assert.Equal(t, info.DataSize, n)
}

func TestProbeMono8Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	testsupport.WriteWAV(t, path, testsupport.WAVSpec{SampleRate: 8000, Channels: 1, BitDepth: 8, Frames: 4000})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	info, err := audio.Probe(f)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Format.Channels)
	assert.Equal(t, 8, info.Format.BitDepth)
	assert.Equal(t, 500*time.Millisecond, info.Duration)
}

func TestProbeRejectsNonWAV(t *testing.T) {
	_, err := audio.Probe(bytes.NewReader([]byte("ID3 definitely not a riff header at all")))
	assert.ErrorIs(t, err, audio.ErrNotWAV)
}
