// Package roster keeps the single live Taskmaster of the process and
// serialises every access to it.
//
// The aggregate itself is single-writer. Holder is the one place that turns it
// into something HTTP handlers can share: writers take an exclusive lock,
// readers a shared one, and a successful write is persisted before the lock is
// released.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// Reader is the read-only surface of the roster handed to queries.
// Views obtained from it are only valid inside the Read callback.
type Reader interface {
	taskmaster.ReadOnlyTaskmaster

	HasStudent(s student.Student) bool
	NameByNationalID(id student.NationalID) (student.Name, error)
	NamedAttendances() shared.List[attendance.NamedAttendance]
}

var _ Reader = (*taskmaster.Taskmaster)(nil)

// Holder owns the live roster.
type Holder struct {
	mu       sync.RWMutex
	tm       *taskmaster.Taskmaster
	repo     taskmaster.Repository
	autosave bool
}

// Option configures a Holder.
type Option func(*Holder)

// WithAutosave controls whether every successful write is persisted. When off,
// the roster is only written by Flush.
func WithAutosave(on bool) Option {
	return func(h *Holder) {
		h.autosave = on
	}
}

// NewHolder creates a holder with an empty roster. repo may be nil, in which
// case nothing is persisted. Autosave is on by default.
func NewHolder(repo taskmaster.Repository, opts ...Option) *Holder {
	h := &Holder{
		tm:       taskmaster.New(),
		repo:     repo,
		autosave: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Restore replaces the live roster with the stored one. A store that has never
// been written to leaves an empty roster.
//
// The restored roster is rebuilt from the stored registry, so it always
// starts in step: stored attendance is re-applied only for registered
// students, records left over from removed students are dropped, and
// students added since the last reset get a NO_RECORD record.
func (h *Holder) Restore(ctx context.Context) error {
	if h.repo == nil {
		return nil
	}

	snap, err := h.repo.Load(ctx)
	if errors.Is(err, shared.ErrRosterNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("roster: load: %w", err)
	}

	tm, err := Rebuild(snap)
	if err != nil {
		return fmt.Errorf("roster: rebuild: %w", err)
	}

	h.mu.Lock()
	h.tm = tm
	h.mu.Unlock()
	return nil
}

// Rebuild creates a Taskmaster from a stored snapshot, restoring attendance of
// registered students. Records with an unknown type are ignored.
func Rebuild(snap *taskmaster.Snapshot) (*taskmaster.Taskmaster, error) {
	tm, err := taskmaster.NewFrom(snap)
	if err != nil {
		return nil, err
	}

	records := make([]attendance.Attendance, 0, len(snap.AttendanceList))
	for _, r := range snap.AttendanceList {
		if !r.Type.IsValid() {
			continue
		}
		if _, err := tm.NameByNationalID(r.NationalID); err != nil {
			continue
		}
		records = append(records, r)
	}

	if err := tm.UpdateAttendances(records); err != nil {
		return nil, err
	}
	return tm, nil
}

// Read runs fn with shared access to the roster.
func (h *Holder) Read(fn func(r Reader) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.tm)
}

// Write runs fn with exclusive access to the roster and persists the result
// when fn succeeds. fn works on a copy that replaces the live roster only
// once it is saved: if fn or the save fails, the live roster is unchanged and
// the error is returned.
func (h *Holder) Write(ctx context.Context, fn func(tm *taskmaster.Taskmaster) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.tm.Clone()
	if err := fn(next); err != nil {
		return err
	}
	return h.commit(ctx, next)
}

// WriteBestEffort is Write for operations that may partially succeed: what
// fn applied is kept and persisted even when fn returns an error. A failed
// save still discards everything fn did.
func (h *Holder) WriteBestEffort(ctx context.Context, fn func(tm *taskmaster.Taskmaster) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.tm.Clone()
	opErr := fn(next)
	if err := h.commit(ctx, next); err != nil {
		return errors.Join(opErr, err)
	}
	return opErr
}

// commit saves next when autosave is on and makes it the live roster.
// Callers hold the write lock.
func (h *Holder) commit(ctx context.Context, next *taskmaster.Taskmaster) error {
	if h.autosave {
		if err := h.save(ctx, next); err != nil {
			return err
		}
	}
	h.tm = next
	return nil
}

// Snapshot returns a detached copy of the current roster.
func (h *Holder) Snapshot() *taskmaster.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return taskmaster.SnapshotOf(h.tm)
}

// Flush persists the current roster regardless of the autosave setting.
func (h *Holder) Flush(ctx context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.save(ctx, h.tm)
}

func (h *Holder) save(ctx context.Context, tm *taskmaster.Taskmaster) error {
	if h.repo == nil {
		return nil
	}
	if err := h.repo.Save(ctx, tm); err != nil {
		return fmt.Errorf("roster: save: %w", err)
	}
	return nil
}
