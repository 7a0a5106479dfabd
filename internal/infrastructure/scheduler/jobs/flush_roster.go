// Package jobs contains the background jobs run by the scheduler.
package jobs

import (
	"context"
	"fmt"
	"time"
)

// Flusher persists the live roster.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushRosterJob writes the live roster to its repository. With autosave off
// it bounds how much work a crash can lose; with autosave on it retries a
// save that failed after a write.
type FlushRosterJob struct {
	roster  Flusher
	timeout time.Duration
}

// NewFlushRosterJob creates the job. A non-positive timeout means the run is
// bounded only by the scheduler's context.
func NewFlushRosterJob(roster Flusher, timeout time.Duration) *FlushRosterJob {
	return &FlushRosterJob{roster: roster, timeout: timeout}
}

// Name implements scheduler.Job.
func (j *FlushRosterJob) Name() string { return "flush_roster" }

// Run implements scheduler.Job.
func (j *FlushRosterJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	if err := j.roster.Flush(ctx); err != nil {
		return fmt.Errorf("flush roster: %w", err)
	}
	return nil
}
