package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wavconv/internal/encoder"
	"wavconv/internal/history"
	"wavconv/internal/logging"
	"wavconv/internal/pathcat"
	"wavconv/internal/pool"
	"wavconv/internal/preflight"
	"wavconv/internal/runlock"
	"wavconv/internal/scan"
	"wavconv/internal/services"
)

// Options is the resolved configuration for one run. It is not modified
// once Run starts.
type Options struct {
	InputDir        string
	OutputDir       string
	Quality         int
	MaxConcurrency  int
	InputExtension  string
	OutputExtension string
	ExtensionCase   pathcat.Case
	SkipExisting    bool
}

// Recorder persists finished runs.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder records every run that gets past startup.
func WithRecorder(recorder Recorder) Option {
	return func(d *Driver) {
		d.recorder = recorder
	}
}

// WithLockDir enables the per-output-directory run lock.
func WithLockDir(dir string) Option {
	return func(d *Driver) {
		d.lockDir = strings.TrimSpace(dir)
	}
}

// Driver runs batches against one encoder.
type Driver struct {
	encoder  encoder.Encoder
	logger   *slog.Logger
	recorder Recorder
	lockDir  string
}

// NewDriver constructs a driver for enc.
func NewDriver(enc encoder.Encoder, opts ...Option) *Driver {
	d := &Driver{encoder: enc, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run converts every matching file in opts.InputDir. Startup failures
// (missing directories, lock held, unreadable input) return before any job
// is submitted. Job failures are reported through the Summary; the returned
// error is reserved for startup failures, scan failures and cancellation.
func (d *Driver) Run(ctx context.Context, opts Options) (Summary, error) {
	if d.encoder == nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "batch", "init", "no encoder configured", nil)
	}
	opts, err := d.prepare(opts)
	if err != nil {
		return Summary{}, err
	}

	if d.lockDir != "" {
		lock, err := runlock.Acquire(d.lockDir, opts.OutputDir)
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				d.logger.Warn("release run lock failed", logging.Error(err))
			}
		}()
	}

	scanner, err := scan.Open(opts.InputDir, opts.InputExtension)
	if err != nil {
		return Summary{}, err
	}
	defer scanner.Close()

	summary := Summary{
		RunID:       uuid.NewString(),
		InputDir:    opts.InputDir,
		OutputDir:   opts.OutputDir,
		Backend:     d.encoder.Name(),
		Quality:     opts.Quality,
		Concurrency: opts.MaxConcurrency,
		Started:     time.Now(),
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, d.logger)

	p, err := pool.New(opts.MaxConcurrency, pool.WithLogger(logger), pool.WithHooks(progressHooks(logger)))
	if err != nil {
		return Summary{}, services.Wrap(services.ErrConfiguration, "batch", "init", "", err)
	}

	logger.Info("batch started",
		logging.String("input", opts.InputDir),
		logging.String("output", opts.OutputDir),
		logging.String("backend", summary.Backend),
		logging.Int("quality", opts.Quality),
		logging.Int("concurrency", p.Capacity()),
	)

	jobs, submitErr := d.submitAll(ctx, p, scanner, opts, logger)
	p.Wait()

	summary.Finished = time.Now()
	summary.Failures = p.Failures()
	summary.tally(jobs)

	runErr := errors.Join(scanner.Err(), submitErr)
	d.record(ctx, summary, runErr, logger)

	logger.Info("batch finished",
		logging.Int("discovered", summary.Discovered),
		logging.Int("encoded", summary.Encoded),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Int("canceled", summary.Canceled),
		logging.Duration("elapsed", summary.Elapsed()),
	)
	return summary, runErr
}

// progressHooks logs each admitted file as it starts and a running count as
// files finish.
func progressHooks(logger *slog.Logger) pool.Hooks {
	var started, finished atomic.Int64
	return pool.Hooks{
		OnStart: func(job string) {
			logger.Info("encoding",
				logging.String(logging.FieldJob, job),
				logging.Int64("started", started.Add(1)),
			)
		},
		OnFinish: func(job string, err error) {
			logger.Debug("file finished",
				logging.String(logging.FieldJob, job),
				logging.Int64("finished", finished.Add(1)),
				logging.Bool("ok", err == nil),
			)
		},
	}
}

// submitAll feeds the pool from the scanner. It returns every matching job in
// scan order. Once a Submit fails the scan still runs to the end so the
// remaining files are counted; they stay pending and are never submitted.
func (d *Driver) submitAll(ctx context.Context, p *pool.Pool, scanner *scan.Scanner, opts Options, logger *slog.Logger) ([]*Job, error) {
	outExt := pathcat.ApplyCase(opts.OutputExtension, opts.ExtensionCase)

	var jobs []*Job
	var submitErr error
	for name := range scanner.Names() {
		job, err := d.newJob(name, outExt, opts, logger)
		if err != nil {
			logger.Warn("skipping file", logging.String(logging.FieldJob, name), logging.Error(err))
			continue
		}
		jobs = append(jobs, job)

		if opts.SkipExisting && exists(job.OutputPath) {
			job.Status = history.StatusSkipped
			logger.Info("output exists, skipping", logging.String(logging.FieldJob, name))
			continue
		}
		if submitErr != nil {
			continue
		}
		if err := p.Submit(ctx, job); err != nil {
			submitErr = err
		}
	}
	return jobs, submitErr
}

func (d *Driver) newJob(name, outExt string, opts Options, logger *slog.Logger) (*Job, error) {
	input, err := pathcat.Join(opts.InputDir, name)
	if err != nil {
		return nil, err
	}
	output, err := pathcat.Join(opts.OutputDir, pathcat.SwapExtension(name, outExt))
	if err != nil {
		return nil, err
	}
	return &Job{
		InputPath:  input,
		OutputPath: output,
		Quality:    opts.Quality,
		Status:     statusPending,
		encoder:    d.encoder,
		logger:     logger,
	}, nil
}

func (d *Driver) prepare(opts Options) (Options, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = opts.InputDir
	}
	if opts.InputExtension == "" {
		opts.InputExtension = "wav"
	}
	if opts.OutputExtension == "" {
		opts.OutputExtension = "mp3"
	}
	opts.InputExtension = strings.TrimPrefix(opts.InputExtension, ".")
	opts.OutputExtension = strings.TrimPrefix(opts.OutputExtension, ".")

	var err error
	if opts.InputDir, err = resolveDir("input", opts.InputDir); err != nil {
		return opts, err
	}
	if opts.OutputDir, err = resolveDir("output", opts.OutputDir); err != nil {
		return opts, err
	}
	if check := preflight.CheckDirectoryAccess("output directory", opts.OutputDir); !check.Passed {
		return opts, services.Wrap(services.ErrDirectoryUnreadable, "batch", "validate", check.Detail, nil)
	}

	switch {
	case opts.MaxConcurrency <= 0:
		return opts, services.Wrap(services.ErrConfiguration, "batch", "validate",
			fmt.Sprintf("max concurrency must be positive, got %d", opts.MaxConcurrency), nil)
	case opts.Quality < 0 || opts.Quality > 9:
		return opts, services.Wrap(services.ErrConfiguration, "batch", "validate",
			fmt.Sprintf("quality must be between 0 and 9, got %d", opts.Quality), nil)
	case strings.EqualFold(opts.InputExtension, opts.OutputExtension):
		return opts, services.Wrap(services.ErrConfiguration, "batch", "validate",
			fmt.Sprintf("input and output extension are both %q", opts.OutputExtension), nil)
	}
	return opts, nil
}

func resolveDir(role, dir string) (string, error) {
	resolved, err := pathcat.Resolve(dir)
	if err != nil {
		return "", services.Wrap(services.ErrDirectoryNotFound, "batch", "validate", role+" directory", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", services.Wrap(services.ErrDirectoryNotFound, "batch", "validate", role+" directory "+resolved, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrDirectoryNotFound, "batch", "validate", role+" directory "+resolved+" is not a directory", nil)
	}
	return resolved, nil
}

func (d *Driver) record(ctx context.Context, summary Summary, runErr error, logger *slog.Logger) {
	if d.recorder == nil {
		return
	}
	run := summary.HistoryRun()
	if runErr != nil {
		run.Error = runErr.Error()
	}
	// Canceled runs are still written to the ledger.
	if err := d.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("record run history failed", logging.Error(err))
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
