// Package scheduler runs named jobs either once at a point in time or on a
// fixed repeat interval. It drives the daily leaderboard publish and the
// hourly liveness sweep.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reputator-bot/reputator/pkg/logger"
	"github.com/reputator-bot/reputator/pkg/metrics"
)

const defaultResolution = time.Second

// JobFunc is the work a job performs. Errors are logged, never fatal.
type JobFunc func(ctx context.Context) error

// Job describes one scheduled entry.
type Job struct {
	ID     string
	Name   string
	NextAt time.Time
	Every  time.Duration // zero for one-shot jobs
}

type job struct {
	Job
	fn JobFunc
}

// Scheduler owns the timer loop and the job table.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	resolution time.Duration
	now        func() time.Time
	log        logger.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithResolution overrides the tick interval, mostly for tests.
func WithResolution(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.resolution = d
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a stopped Scheduler; call Start to begin ticking.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:       make(map[string]*job),
		resolution: defaultResolution,
		now:        time.Now,
		log:        logger.Named("scheduler"),
		stopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the timer loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Close stops the loop and waits for in-flight jobs to finish.
func (s *Scheduler) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// RunAt schedules fn to run once at the given time and returns the job id.
// A time in the past runs on the next tick.
func (s *Scheduler) RunAt(name string, at time.Time, fn JobFunc) string {
	return s.add(name, at, 0, fn)
}

// RunEvery schedules fn on a fixed interval, first firing one interval from
// now, and returns the job id.
func (s *Scheduler) RunEvery(name string, every time.Duration, fn JobFunc) string {
	return s.add(name, s.now().Add(every), every, fn)
}

func (s *Scheduler) add(name string, at time.Time, every time.Duration, fn JobFunc) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.jobs[id] = &job{
		Job: Job{ID: id, Name: name, NextAt: at, Every: every},
		fn:  fn,
	}
	s.mu.Unlock()
	return id
}

// Jobs lists the scheduled entries ordered by next run time.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Job)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].NextAt.Before(out[k].NextAt) })
	return out
}

// Cancel removes one job by id, reporting whether it existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// CancelByName removes every job with the given name, returning how many.
func (s *Scheduler) CancelByName(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, j := range s.jobs {
		if j.Name == name {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for id, j := range s.jobs {
		if j.NextAt.After(now) {
			continue
		}
		due = append(due, j)
		if j.Every > 0 {
			j.NextAt = now.Add(j.Every)
		} else {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			if err := j.fn(ctx); err != nil {
				s.log.Error(ctx, "scheduled job failed",
					logger.String("job", j.Name),
					logger.Error(err))
				metrics.RecordErrorByComponent("scheduler", j.Name)
			}
		}(j)
	}
}
