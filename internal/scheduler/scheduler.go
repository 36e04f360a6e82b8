// Package scheduler runs background jobs on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// JobHandler executes a scheduled job.
type JobHandler interface {
	// Execute runs the job once.
	Execute(ctx context.Context) error

	// Name returns the job name for logging.
	Name() string
}

// Job describes a registered job and its last outcome.
type Job struct {
	LastRun  time.Time
	NextRun  time.Time
	LastErr  error
	Handler  JobHandler
	Name     string
	Warmup   time.Duration
	Interval time.Duration
	Runs     int
}

// Scheduler runs each job first after its warmup and then every interval.
// Runs of the same job never overlap; a run that outlasts the interval
// delays the next one.
type Scheduler struct {
	logger  *slog.Logger
	jobs    map[string]*Job
	cancel  context.CancelFunc
	done    chan struct{}
	order   []string
	mu      sync.Mutex
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
		jobs:   make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "scheduler"))
	return s
}

// Schedule registers a job. It must be called before Start or Run.
func (s *Scheduler) Schedule(handler JobHandler, warmup, interval time.Duration) error {
	if handler == nil {
		return fmt.Errorf("job handler cannot be nil")
	}
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", handler.Name())
	}
	if warmup < 0 {
		return fmt.Errorf("job %s: warmup cannot be negative", handler.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("cannot schedule %s while running", handler.Name())
	}
	name := handler.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}
	s.jobs[name] = &Job{
		Handler:  handler,
		Name:     name,
		Warmup:   warmup,
		Interval: interval,
	}
	s.order = append(s.order, name)
	return nil
}

// Jobs returns a snapshot of the registered jobs.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.jobs[name])
	}
	return out
}

// Run blocks until ctx is canceled and every job loop has returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Start launches the job loops in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	jobs := make([]*Job, 0, len(s.order))
	for _, name := range s.order {
		jobs = append(jobs, s.jobs[name])
	}

	go func() {
		var wg sync.WaitGroup
		for _, job := range jobs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.loop(runCtx, job)
			}()
		}
		wg.Wait()

		s.mu.Lock()
		s.running = false
		close(s.done)
		s.mu.Unlock()
	}()

	s.logger.InfoContext(ctx, "Scheduler started", slog.Int("jobs", len(jobs)))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether job loops are active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	logger := s.logger.With(slog.String("job", job.Name))

	s.setNext(job, time.Now().Add(job.Warmup))
	if !sleep(ctx, job.Warmup) {
		return
	}

	for {
		s.execute(ctx, logger, job)
		s.setNext(job, time.Now().Add(job.Interval))
		if !sleep(ctx, job.Interval) {
			logger.InfoContext(ctx, "Job loop stopping")
			return
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, logger *slog.Logger, job *Job) {
	start := time.Now()
	err := job.Handler.Execute(ctx)
	duration := time.Since(start)

	s.mu.Lock()
	job.LastRun = start
	job.LastErr = err
	job.Runs++
	s.mu.Unlock()

	result := "success"
	if err != nil {
		result = "error"
		logger.ErrorContext(ctx, "Job failed",
			slog.Duration("duration", duration),
			slog.Any("error", err))
	} else {
		logger.InfoContext(ctx, "Job finished", slog.Duration("duration", duration))
	}
	jobRuns.WithLabelValues(job.Name, result).Inc()
	jobDuration.WithLabelValues(job.Name).Observe(duration.Seconds())
}

func (s *Scheduler) setNext(job *Job, next time.Time) {
	s.mu.Lock()
	job.NextRun = next
	s.mu.Unlock()
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
