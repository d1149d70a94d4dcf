package batch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wavconv/internal/audio"
	"wavconv/internal/encoder"
	"wavconv/internal/fileutil"
	"wavconv/internal/history"
	"wavconv/internal/logging"
	"wavconv/internal/services"
)

const statusPending = "pending"

// Job converts one input file. The goroutine running it owns the result
// fields until the pool releases its slot.
type Job struct {
	InputPath  string
	OutputPath string
	Quality    int

	Status   string
	BytesIn  int64
	BytesOut int64
	Duration time.Duration
	Digest   string
	Err      error

	encoder encoder.Encoder
	logger  *slog.Logger
}

// Name returns the input file's base name.
func (j *Job) Name() string {
	return filepath.Base(j.InputPath)
}

// Run encodes the input into the output path. The output appears only when
// the encoder succeeds.
func (j *Job) Run(ctx context.Context) error {
	ctx = services.WithJob(ctx, j.Name())
	logger := logging.WithContext(ctx, j.logger)

	// A panic inside encode leaves the job failed.
	j.Status = history.StatusFailed
	start := time.Now()
	err := j.encode(ctx, logger)
	j.Duration = time.Since(start)
	j.Err = err

	switch {
	case err == nil:
		j.Status = history.StatusEncoded
		logger.Info("encoded",
			logging.String("output", j.OutputPath),
			logging.Int64("bytes_out", j.BytesOut),
			logging.Duration("elapsed", j.Duration),
		)
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		j.Status = history.StatusCanceled
		logger.Warn("encode canceled", logging.Error(err))
	default:
		logger.Error("encode failed", logging.Error(err))
	}
	return err
}

func (j *Job) encode(ctx context.Context, logger *slog.Logger) error {
	in, err := os.Open(j.InputPath)
	if err != nil {
		return services.Wrap(services.ErrTransient, "encode", "open input", j.InputPath, err)
	}
	defer in.Close()

	info, err := audio.Probe(in)
	if err != nil {
		return services.Wrap(services.ErrValidation, "encode", "probe", j.InputPath, err)
	}
	pcm, err := audio.PCM(in, info)
	if err != nil {
		return services.Wrap(services.ErrTransient, "encode", "seek pcm", j.InputPath, err)
	}
	j.BytesIn = info.DataSize

	out, err := fileutil.CreateAtomic(j.OutputPath, 0o644)
	if err != nil {
		return services.Wrap(services.ErrTransient, "encode", "create output", j.OutputPath, err)
	}
	defer out.Abort()
	logger.Debug("writing output", logging.String("temp", out.TempPath()), logging.String("format", info.Format.String()))

	src := encoder.Source{PCM: pcm, Format: info.Format}
	if err := j.encoder.Encode(ctx, src, j.Quality, out); err != nil {
		return err
	}
	if out.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "encode", j.encoder.Name(), "encoder produced no output", nil)
	}
	if err := out.Commit(); err != nil {
		return services.Wrap(services.ErrTransient, "encode", "commit output", j.OutputPath, err)
	}
	j.BytesOut = out.Size()
	j.Digest = out.Digest()
	return nil
}
