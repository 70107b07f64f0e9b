// Package scheduler is the time-driven dispatcher for the booking jobs.
// Cron supplies the cadences; execution is funneled through a single drain
// loop so jobs never run concurrently and always run in a fixed priority
// order within one tick.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job priorities. Lower runs first when several jobs are due in the same
// drain cycle: the confirmation sweep must settle expiries before the poll
// executor fires bookings, and the midnight executor must beat the poll so
// same-day bookings are not delayed by poll granularity.
const (
	PrioritySweep    = 10
	PriorityMidnight = 20
	PriorityPoll     = 30
	PriorityRollover = 40
)

type job struct {
	name     string
	priority int
	run      func(context.Context) error
}

// Scheduler owns the four fixed-cadence jobs. Explicit Start/Stop
// lifecycle; no package-level state.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu      sync.Mutex
	jobs    []job
	pending map[string]bool
	wake    chan struct{}

	runMu sync.Mutex
	wg    sync.WaitGroup
}

func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		logger:  logger,
		pending: make(map[string]bool),
		wake:    make(chan struct{}, 1),
	}
}

// Add registers a job under a cron spec. Jobs must be idempotent: a missed
// window is caught up by the next firing (or by the kick on Start).
func (s *Scheduler) Add(name, spec string, priority int, run func(context.Context) error) error {
	s.mu.Lock()
	s.jobs = append(s.jobs, job{name: name, priority: priority, run: run})
	sort.SliceStable(s.jobs, func(i, j int) bool { return s.jobs[i].priority < s.jobs[j].priority })
	s.mu.Unlock()

	_, err := s.cron.AddFunc(spec, func() { s.Trigger(name) })
	return err
}

// Trigger marks a job due. Duplicate triggers before the drain collapse
// into one run.
func (s *Scheduler) Trigger(name string) {
	s.mu.Lock()
	s.pending[name] = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start launches the cron timers and the drain loop, then kicks every job
// once so windows that elapsed while the process was down are processed
// immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler starting", zap.Int("jobs", len(s.jobs)))
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				s.RunPending(ctx)
			}
		}
	}()

	s.Kick()
}

// Kick marks every registered job due.
func (s *Scheduler) Kick() {
	s.mu.Lock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.name
	}
	s.mu.Unlock()
	for _, n := range names {
		s.Trigger(n)
	}
}

// RunPending drains all due jobs sequentially in priority order. Jobs
// never overlap: the drain itself is mutually exclusive.
func (s *Scheduler) RunPending(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	var due []job
	for _, j := range s.jobs {
		if s.pending[j.name] {
			due = append(due, j)
			delete(s.pending, j.name)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		if err := j.run(ctx); err != nil {
			s.logger.Error("job failed", zap.String("job", j.name), zap.Error(err))
			continue
		}
		s.logger.Debug("job done", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
	}
}

// Stop halts the cron timers and waits for the drain loop to exit. The
// caller cancels the context passed to Start before calling Stop.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
