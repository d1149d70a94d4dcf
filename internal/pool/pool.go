package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"wavconv/internal/logging"
)

// ErrPanic marks failures produced by a job that panicked.
var ErrPanic = errors.New("job panicked")

// Job is one unit of work. Run must honour ctx cancellation.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type funcJob struct {
	name string
	fn   func(context.Context) error
}

func (j funcJob) Name() string { return j.name }

func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

// NewJob adapts a function to the Job interface.
func NewJob(name string, fn func(context.Context) error) Job {
	return funcJob{name: name, fn: fn}
}

// Failure records a job that returned an error or panicked.
type Failure struct {
	Job string
	Err error
}

// Stats summarizes pool activity. Completed counts every released slot, so
// it includes Failed and Canceled jobs.
type Stats struct {
	Submitted int
	Completed int
	Failed    int
	Canceled  int
}

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger sets the logger used for admission and completion events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Hooks observe jobs as they run. Both callbacks run on the worker goroutine
// outside the pool lock, and OnFinish returns before the job's slot is
// released, so every OnFinish has completed once Wait returns. A job canceled
// before it starts gets OnFinish without OnStart.
type Hooks struct {
	OnStart  func(job string)
	OnFinish func(job string, err error)
}

// WithHooks installs lifecycle observers.
func WithHooks(hooks Hooks) Option {
	return func(p *Pool) {
		p.hooks = hooks
	}
}

// Pool is a bounded admission gate. The zero value is not usable; call New.
type Pool struct {
	capacity int
	logger   *slog.Logger
	hooks    Hooks

	mu       sync.Mutex
	cond     *sync.Cond
	active   int
	stats    Stats
	failures []Failure
}

// New returns a pool admitting at most capacity concurrent jobs.
func New(capacity int, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", capacity)
	}
	p := &Pool{capacity: capacity, logger: logging.NewNop()}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Submit admits job, blocking while the pool is at capacity. It returns
// ctx.Err() without admitting when ctx is cancelled first. Submit and Wait
// must be called from a single producer goroutine.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if job == nil {
		return errors.New("submit: nil job")
	}

	// Wake blocked submitters when ctx ends; taking the lock orders the
	// broadcast after the waiter's ctx check.
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	for p.active >= p.capacity && ctx.Err() == nil {
		p.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		p.mu.Unlock()
		return err
	}
	p.active++
	p.stats.Submitted++
	active := p.active
	p.mu.Unlock()

	p.logger.Debug("job admitted",
		logging.String(logging.FieldJob, job.Name()),
		logging.Int("active", active),
		logging.Int("capacity", p.capacity),
	)

	go p.run(ctx, job)
	return nil
}

func (p *Pool) run(ctx context.Context, job Job) {
	var err error
	if ctx.Err() != nil {
		err = ctx.Err()
	} else {
		if p.hooks.OnStart != nil {
			p.hooks.OnStart(job.Name())
		}
		err = execute(ctx, job)
	}
	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish(job.Name(), err)
	}
	p.finish(ctx, job, err)
}

func execute(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return job.Run(ctx)
}

func (p *Pool) finish(ctx context.Context, job Job, err error) {
	canceled := err != nil && ctx.Err() != nil &&
		(errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))

	p.mu.Lock()
	p.active--
	p.stats.Completed++
	switch {
	case canceled:
		p.stats.Canceled++
	case err != nil:
		p.stats.Failed++
		p.failures = append(p.failures, Failure{Job: job.Name(), Err: err})
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	if err != nil && !canceled {
		p.logger.Debug("job failed", logging.String(logging.FieldJob, job.Name()), logging.Error(err))
	}
}

// Wait blocks until no admitted job is running. Call it after the last Submit.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.active > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Capacity returns the admission limit.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Active returns the number of admitted jobs that have not finished.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Failures returns a copy of the recorded job failures in completion order.
func (p *Pool) Failures() []Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Failure(nil), p.failures...)
}
