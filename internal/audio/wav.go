// Package audio inspects WAV containers before they are handed to an encoder.
package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

var (
	ErrNotWAV      = errors.New("not a RIFF/WAVE file")
	ErrUnsupported = errors.New("unsupported WAV encoding")
)

// Format describes interleaved little-endian PCM samples.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// FrameSize returns the number of bytes per interleaved sample frame.
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %d bit", f.SampleRate, f.Channels, f.BitDepth)
}

// Info locates the PCM payload inside a WAV file.
type Info struct {
	Format     Format
	DataOffset int64
	DataSize   int64
	Duration   time.Duration
}

// Probe parses the RIFF headers of r and locates the data chunk. Use PCM to
// read the payload afterwards.
func Probe(r io.ReadSeeker) (Info, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Info{}, fmt.Errorf("rewind: %w", err)
	}
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return Info{}, fmt.Errorf("%w: audio format %d is not PCM", ErrUnsupported, dec.WavAudioFormat)
	}

	format := Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return Info{}, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, format.BitDepth)
	}

	if err := dec.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrNotWAV, err)
	}
	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return Info{}, fmt.Errorf("locate pcm data: %w", err)
	}
	size := int64(dec.PCMSize)

	// Streamed WAVs often carry a placeholder data size; trust the file length.
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return Info{}, fmt.Errorf("locate pcm data: %w", err)
	}
	if size <= 0 || offset+size > end {
		size = end - offset
	}

	info := Info{Format: format, DataOffset: offset, DataSize: size}
	if frame := format.FrameSize(); frame > 0 {
		frames := size / int64(frame)
		info.Duration = time.Duration(frames) * time.Second / time.Duration(format.SampleRate)
	}
	return info, nil
}

// PCM returns a reader over exactly the PCM payload described by info.
func PCM(r io.ReadSeeker, info Info) (io.Reader, error) {
	if _, err := r.Seek(info.DataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek pcm data: %w", err)
	}
	return io.LimitReader(r, info.DataSize), nil
}
