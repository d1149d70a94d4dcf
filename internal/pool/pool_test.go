package pool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavconv/internal/pool"
)

func newPool(t *testing.T, capacity int) *pool.Pool {
	t.Helper()
	p, err := pool.New(capacity)
	require.NoError(t, err)
	return p
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := pool.New(capacity)
		assert.Error(t, err, "capacity %d", capacity)
	}
}

func TestSubmitRejectsNilJob(t *testing.T) {
	p := newPool(t, 1)
	assert.Error(t, p.Submit(context.Background(), nil))
}

func TestCapacityInvariant(t *testing.T) {
	const capacity = 3
	p := newPool(t, capacity)

	var running, peak atomic.Int64
	var violations atomic.Int64

	stopSampler := make(chan struct{})
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		for {
			select {
			case <-stopSampler:
				return
			default:
				if a := p.Active(); a < 0 || a > capacity {
					violations.Add(1)
				}
			}
		}
	}()

	for i := range 40 {
		err := p.Submit(context.Background(), pool.NewJob(fmt.Sprintf("job-%d", i), func(context.Context) error {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return nil
		}))
		require.NoError(t, err)
		assert.LessOrEqual(t, p.Active(), capacity)
	}
	p.Wait()
	close(stopSampler)
	<-samplerDone

	assert.LessOrEqual(t, peak.Load(), int64(capacity))
	assert.Positive(t, peak.Load())
	assert.Zero(t, violations.Load())
	assert.Zero(t, p.Active())
}

func TestNoLostJobs(t *testing.T) {
	for _, capacity := range []int{1, 2, 4, 16} {
		for _, jobs := range []int{0, 1, 7, 100} {
			t.Run(fmt.Sprintf("cap%d_jobs%d", capacity, jobs), func(t *testing.T) {
				p := newPool(t, capacity)
				var ran atomic.Int64
				for i := range jobs {
					require.NoError(t, p.Submit(context.Background(), pool.NewJob(fmt.Sprint(i), func(context.Context) error {
						ran.Add(1)
						return nil
					})))
				}
				p.Wait()

				stats := p.Stats()
				assert.Equal(t, int64(jobs), ran.Load())
				assert.Equal(t, jobs, stats.Submitted)
				assert.Equal(t, jobs, stats.Completed)
				assert.Zero(t, stats.Failed)
				assert.Zero(t, p.Active())
			})
		}
	}
}

func TestBackpressureSerializesAtCapacityOne(t *testing.T) {
	type span struct{ start, end time.Time }
	var mu sync.Mutex
	spans := map[string]*span{}

	p, err := pool.New(1, pool.WithHooks(pool.Hooks{
		OnStart: func(job string) {
			mu.Lock()
			spans[job] = &span{start: time.Now()}
			mu.Unlock()
		},
		OnFinish: func(job string, err error) {
			mu.Lock()
			spans[job].end = time.Now()
			mu.Unlock()
		},
	}))
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, p.Submit(context.Background(), pool.NewJob(fmt.Sprint(i), func(context.Context) error {
			time.Sleep(5 * time.Millisecond)
			return nil
		})))
	}
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, spans, 3)
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[fmt.Sprint(i-1)], spans[fmt.Sprint(i)]
		assert.False(t, cur.start.Before(prev.end),
			"job %d started at %v before job %d ended at %v", i, cur.start, i-1, prev.end)
	}
}

func TestHooksSeeEveryJobBeforeWaitReturns(t *testing.T) {
	boom := errors.New("encode failed")
	var starts atomic.Int64
	var mu sync.Mutex
	finished := map[string]error{}

	p, err := pool.New(3, pool.WithHooks(pool.Hooks{
		OnStart: func(string) { starts.Add(1) },
		OnFinish: func(job string, err error) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			finished[job] = err
			mu.Unlock()
		},
	}))
	require.NoError(t, err)

	for i := range 10 {
		require.NoError(t, p.Submit(context.Background(), pool.NewJob(fmt.Sprintf("job-%d", i), func(context.Context) error {
			if i == 7 {
				return boom
			}
			return nil
		})))
	}
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(10), starts.Load())
	require.Len(t, finished, 10)
	assert.ErrorIs(t, finished["job-7"], boom)
	assert.NoError(t, finished["job-0"])
}

func TestSubmitBlocksUntilSlotFrees(t *testing.T) {
	p := newPool(t, 1)
	release := make(chan struct{})

	require.NoError(t, p.Submit(context.Background(), pool.NewJob("first", func(context.Context) error {
		<-release
		return nil
	})))

	admitted := make(chan error, 1)
	go func() {
		admitted <- p.Submit(context.Background(), pool.NewJob("second", func(context.Context) error { return nil }))
	}()

	select {
	case err := <-admitted:
		t.Fatalf("second submit returned early: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, p.Active())

	close(release)
	select {
	case err := <-admitted:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second submit never admitted")
	}
	p.Wait()
	assert.Equal(t, 2, p.Stats().Completed)
}

func TestWaitWithNoJobsReturnsImmediately(t *testing.T) {
	p := newPool(t, 4)
	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait blocked with no jobs")
	}
	assert.Zero(t, p.Active())
	assert.Equal(t, pool.Stats{}, p.Stats())
}

func TestFailuresAreCollectedNotPropagated(t *testing.T) {
	p := newPool(t, 2)
	boom := errors.New("encode failed")

	for i := range 6 {
		name := fmt.Sprintf("job-%d", i)
		require.NoError(t, p.Submit(context.Background(), pool.NewJob(name, func(context.Context) error {
			switch i {
			case 1:
				return boom
			case 4:
				panic("corrupt header")
			}
			return nil
		})))
	}
	p.Wait()

	stats := p.Stats()
	assert.Equal(t, 6, stats.Completed)
	assert.Equal(t, 2, stats.Failed)

	failures := p.Failures()
	require.Len(t, failures, 2)
	byJob := map[string]error{}
	for _, f := range failures {
		byJob[f.Job] = f.Err
	}
	assert.ErrorIs(t, byJob["job-1"], boom)
	assert.ErrorIs(t, byJob["job-4"], pool.ErrPanic)
	assert.Contains(t, byJob["job-4"].Error(), "corrupt header")
}

func TestSubmitReturnsWhenCancelledWhileBlocked(t *testing.T) {
	p := newPool(t, 1)
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), pool.NewJob("busy", func(context.Context) error {
		<-release
		return nil
	})))

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- p.Submit(ctx, pool.NewJob("blocked", func(context.Context) error {
			t.Error("cancelled job must not run")
			return nil
		}))
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked submit ignored cancellation")
	}

	close(release)
	p.Wait()
	assert.Equal(t, 1, p.Stats().Submitted)
}

func TestSubmitWithCancelledContextDoesNotAdmit(t *testing.T) {
	p := newPool(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Submit(ctx, pool.NewJob("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.Stats().Submitted)
}

func TestCancelledRunningJobsCountAsCanceled(t *testing.T) {
	p := newPool(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 2)

	for i := range 2 {
		require.NoError(t, p.Submit(ctx, pool.NewJob(fmt.Sprint(i), func(ctx context.Context) error {
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		})))
	}
	<-started
	<-started
	cancel()
	p.Wait()

	stats := p.Stats()
	assert.Equal(t, 2, stats.Canceled)
	assert.Zero(t, stats.Failed)
	assert.Empty(t, p.Failures())
}
