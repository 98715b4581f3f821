package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one recurring unit of work. Run processes a single tick and
// returns an error only for whole-tick failures; per-entity problems
// should be handled (and logged) inside the job so one bad entity does
// not fail the tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

type entry struct {
	job      Job
	interval time.Duration
	inFlight atomic.Bool
	failures int
	disabled bool
}

// Scheduler fires each registered job on its own interval. A tick that
// is still running when the next interval elapses causes that firing to
// be skipped: a given job is never re-entered. Jobs that keep failing
// are retried with exponential backoff and disabled after maxRetries
// consecutive failures.
type Scheduler struct {
	mu         sync.Mutex
	entries    []*entry
	maxRetries int
	log        *zap.Logger
}

func NewScheduler(maxRetries int, log *zap.Logger) *Scheduler {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Scheduler{maxRetries: maxRetries, log: log}
}

// Register adds a job. Must be called before Run.
func (s *Scheduler) Register(j Job, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{job: j, interval: interval})
}

// Run blocks until ctx is cancelled, driving every registered job.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	entries := s.entries
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e *entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.disabled {
				return
			}
			if !e.inFlight.CompareAndSwap(false, true) {
				s.log.Warn("tick overran interval, skipping firing",
					zap.String("job", e.job.Name()))
				continue
			}
			s.fire(ctx, e)
			e.inFlight.Store(false)
		}
	}
}

// fire runs one tick, retrying whole-tick failures with exponential
// backoff before giving up on the job entirely.
func (s *Scheduler) fire(ctx context.Context, e *entry) {
	err := s.runOnce(ctx, e.job)
	if err == nil {
		e.failures = 0
		return
	}
	e.failures++
	s.log.Error("tick failed",
		zap.String("job", e.job.Name()),
		zap.Int("consecutive", e.failures),
		zap.Error(err))
	if e.failures >= s.maxRetries {
		// Recorded for operator visibility; no further retries.
		e.disabled = true
		s.log.Error("job disabled after repeated failures",
			zap.String("job", e.job.Name()),
			zap.Int("failures", e.failures))
		return
	}
	backoff := e.interval
	for i := 1; i < e.failures; i++ {
		backoff *= 2
	}
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", j.Name(), r)
		}
	}()
	return j.Run(ctx)
}
