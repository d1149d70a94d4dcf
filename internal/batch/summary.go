package batch

import (
	"errors"
	"fmt"
	"time"

	"wavconv/internal/history"
	"wavconv/internal/pool"
)

// ErrJobsFailed reports that a run finished with at least one failed job.
var ErrJobsFailed = errors.New("one or more files failed to convert")

// JobResult is the outcome of one discovered file.
type JobResult struct {
	Input    string
	Output   string
	Status   string
	BytesIn  int64
	BytesOut int64
	Duration time.Duration
	Digest   string
	Err      error
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	InputDir    string
	OutputDir   string
	Backend     string
	Quality     int
	Concurrency int

	Discovered int
	Encoded    int
	Skipped    int
	Failed     int
	Canceled   int
	BytesIn    int64
	BytesOut   int64

	Started  time.Time
	Finished time.Time

	Failures []pool.Failure
	Results  []JobResult
}

// Elapsed returns the wall time of the run.
func (s Summary) Elapsed() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}

// Err returns an error wrapping ErrJobsFailed when any job failed.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d", ErrJobsFailed, s.Failed, s.Discovered)
}

// HistoryRun converts the summary into a ledger row.
func (s Summary) HistoryRun() history.Run {
	run := history.Run{
		ID:          s.RunID,
		StartedAt:   s.Started,
		FinishedAt:  s.Finished,
		InputDir:    s.InputDir,
		OutputDir:   s.OutputDir,
		Backend:     s.Backend,
		Quality:     s.Quality,
		Concurrency: s.Concurrency,
		Discovered:  s.Discovered,
		Encoded:     s.Encoded,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Canceled:    s.Canceled,
		Jobs:        make([]history.Job, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		job := history.Job{
			InputPath:  r.Input,
			OutputPath: r.Output,
			Status:     r.Status,
			BytesIn:    r.BytesIn,
			BytesOut:   r.BytesOut,
			Duration:   r.Duration,
			Digest:     r.Digest,
		}
		if r.Err != nil {
			job.Error = r.Err.Error()
		}
		run.Jobs = append(run.Jobs, job)
	}
	return run
}

func (s *Summary) tally(jobs []*Job) {
	// Panics are only visible through the pool's failure list.
	poolErrs := make(map[string]error, len(s.Failures))
	for _, f := range s.Failures {
		poolErrs[f.Job] = f.Err
	}

	s.Discovered = len(jobs)
	s.Results = make([]JobResult, 0, len(jobs))
	for _, j := range jobs {
		status := j.Status
		if status == statusPending {
			status = history.StatusCanceled
		}
		jobErr := j.Err
		if jobErr == nil {
			jobErr = poolErrs[j.Name()]
		}
		switch status {
		case history.StatusEncoded:
			s.Encoded++
		case history.StatusSkipped:
			s.Skipped++
		case history.StatusFailed:
			s.Failed++
		case history.StatusCanceled:
			s.Canceled++
		}
		s.BytesIn += j.BytesIn
		s.BytesOut += j.BytesOut
		s.Results = append(s.Results, JobResult{
			Input:    j.InputPath,
			Output:   j.OutputPath,
			Status:   status,
			BytesIn:  j.BytesIn,
			BytesOut: j.BytesOut,
			Duration: j.Duration,
			Digest:   j.Digest,
			Err:      jobErr,
		})
	}
}
