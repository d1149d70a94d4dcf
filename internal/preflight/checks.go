package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"wavconv/internal/config"
	"wavconv/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	if path == "" {
		return Result{Name: name, Detail: "(error: not configured)"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckSystemDeps evaluates the encoder binaries. The configured backend is
// required; the other one is reported as optional.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	lame := deps.Requirement{
		Name:        "LAME",
		Command:     "lame",
		Description: "MP3 encoder (lame backend)",
		Optional:    true,
		VersionArgs: []string{"--version"},
	}
	ffmpeg := deps.Requirement{
		Name:        "FFmpeg",
		Command:     "ffmpeg",
		Description: "MP3 encoder via libmp3lame (ffmpeg backend)",
		Optional:    true,
		VersionArgs: []string{"-hide_banner", "-version"},
	}

	backend, binary := config.BackendLame, "lame"
	if cfg != nil {
		backend, binary = cfg.Encoder.Backend, cfg.EncoderBinary()
	}
	switch backend {
	case config.BackendLame:
		lame.Command = binary
		lame.Optional = false
	case config.BackendFFmpeg:
		ffmpeg.Command = binary
		ffmpeg.Optional = false
	}

	statuses := deps.CheckBinaries(ctx, []deps.Requirement{lame, ffmpeg})
	if backend == config.BackendFFmpeg && statuses[1].Available {
		statuses = append(statuses, deps.CheckFFmpegMP3(ctx, statuses[1].Path))
	}
	return statuses
}
