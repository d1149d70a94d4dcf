package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
)

const mp3Encoder = "libmp3lame"

// CheckFFmpegMP3 reports whether the ffmpeg binary can encode MP3.
//
// Distribution builds of ffmpeg do not always link libmp3lame, so finding the
// binary on PATH is not enough. The encoder list printed by
// "ffmpeg -hide_banner -encoders" is searched for the codec name.
func CheckFFmpegMP3(ctx context.Context, binary string) Status {
	status := Check(ctx, Requirement{
		Name:        "FFmpeg libmp3lame",
		Command:     binary,
		Description: "MP3 encoder compiled into ffmpeg",
	})
	if !status.Available {
		return status
	}

	out, err := probe(ctx, status.Path, "-hide_banner", "-encoders")
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("list encoders: %v", err)
		return status
	}
	if !listsEncoder(out, mp3Encoder) {
		status.Available = false
		status.Detail = fmt.Sprintf("%s not compiled in", mp3Encoder)
		return status
	}
	status.Version = mp3Encoder
	return status
}

// listsEncoder scans "-encoders" output, whose rows look like
// " A....D libmp3lame           libmp3lame MP3 (MPEG audio layer 3)".
func listsEncoder(out []byte, name string) bool {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
