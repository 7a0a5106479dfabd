// Package memory provides an in-process roster store. It is used when no
// database is configured and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// RosterRepository implements taskmaster.Repository in memory.
// Not durable: a restart loses everything.
type RosterRepository struct {
	mu    sync.RWMutex
	snap  *taskmaster.Snapshot
	saves int
}

var _ taskmaster.Repository = (*RosterRepository)(nil)

// NewRosterRepository creates an empty in-memory store.
func NewRosterRepository() *RosterRepository {
	return &RosterRepository{}
}

// Load returns a copy of the last saved roster.
func (r *RosterRepository) Load(ctx context.Context) (*taskmaster.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.snap == nil {
		return nil, shared.ErrRosterNotFound
	}
	return taskmaster.SnapshotOf(r.snap), nil
}

// Save stores a copy of src.
func (r *RosterRepository) Save(ctx context.Context, src taskmaster.ReadOnlyTaskmaster) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	snap := taskmaster.SnapshotOf(src)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	r.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (r *RosterRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
