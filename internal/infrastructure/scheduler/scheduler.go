// Package scheduler runs background jobs of the taskmaster service on
// interval or cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Job is a unit of background work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// JobResult describes one run of a job.
type JobResult struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
	Manual    bool
}

// JobInfo is a point-in-time view of a registered job.
type JobInfo struct {
	Name      string
	Schedule  string
	NextRun   time.Time
	LastRun   time.Time
	RunCount  int64
	FailCount int64
	Running   bool
}

var (
	ErrNilJob           = errors.New("scheduler: job cannot be nil")
	ErrEmptySchedule    = errors.New("scheduler: schedule is empty")
	ErrJobAlreadyExists = errors.New("scheduler: job already exists")
	ErrJobNotFound      = errors.New("scheduler: job not found")
	ErrAlreadyRunning   = errors.New("scheduler: already running")
)

// Config contains configuration for the Scheduler.
type Config struct {
	Logger *slog.Logger

	// Location for schedule calculations (default: UTC).
	Location *time.Location

	// Tick is how often due jobs are checked (default: 1s).
	Tick time.Duration

	// OnResult, if set, is called after every run.
	OnResult func(JobResult)
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

type entry struct {
	job      Job
	schedule Schedule

	nextRun   time.Time
	lastRun   time.Time
	runCount  int64
	failCount int64
	running   bool
}

// Scheduler runs registered jobs when their schedules come due. A job never
// overlaps itself: a run that comes due while the previous one is still going
// is skipped.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	running bool
	wg      sync.WaitGroup

	logger   *slog.Logger
	location *time.Location
	tick     time.Duration
	onResult func(JobResult)
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}

	return &Scheduler{
		entries:  make(map[string]*entry),
		logger:   cfg.Logger.With("component", "scheduler"),
		location: cfg.Location,
		tick:     cfg.Tick,
		onResult: cfg.OnResult,
	}
}

// Register adds a job with the given schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrEmptySchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyExists, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.location)),
	}
	s.entries[name] = e

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"next_run", e.nextRun.Format(time.RFC3339),
	)
	return nil
}

// Run checks for due jobs until ctx is done, then waits for running jobs to
// return. It always returns nil after a clean stop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	count := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", count)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			s.logger.Info("scheduler stopped")
			return nil
		case now := <-ticker.C:
			s.runDue(ctx, now.In(s.location))
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, e := range s.entries {
		if e.nextRun.IsZero() || now.Before(e.nextRun) {
			continue
		}
		e.nextRun = e.schedule.Next(now)
		if e.running {
			s.logger.Warn("job still running, run skipped", "job", name)
			continue
		}
		e.running = true

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute(ctx, e, false)
		}()
	}
}

// RunNow runs a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (JobResult, error) {
	s.mu.Lock()
	e, exists := s.entries[name]
	s.mu.Unlock()

	if !exists {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	result := s.execute(ctx, e, true)
	return result, result.Err
}

func (s *Scheduler) execute(ctx context.Context, e *entry, manual bool) JobResult {
	name := e.job.Name()
	started := time.Now()

	err := e.job.Run(ctx)

	result := JobResult{
		Job:       name,
		StartedAt: started,
		Duration:  time.Since(started),
		Err:       err,
		Manual:    manual,
	}

	s.mu.Lock()
	e.lastRun = started
	e.runCount++
	if err != nil {
		e.failCount++
	}
	if !manual {
		e.running = false
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", name, "manual", manual, "duration", result.Duration, "error", err)
	} else {
		s.logger.Debug("job completed", "job", name, "manual", manual, "duration", result.Duration)
	}

	if s.onResult != nil {
		s.onResult(result)
	}
	return result
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, JobInfo{
			Name:      name,
			Schedule:  e.schedule.String(),
			NextRun:   e.nextRun,
			LastRun:   e.lastRun,
			RunCount:  e.runCount,
			FailCount: e.failCount,
			Running:   e.running,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
