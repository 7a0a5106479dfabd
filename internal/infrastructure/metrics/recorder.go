package metrics

import (
	"context"
	"time"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ─────────────────────────────────────────────────────────────────────────────
// Event recorder
// ─────────────────────────────────────────────────────────────────────────────

// Register subscribes m to every roster event on bus.
func (m *Metrics) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(m.HandleEvent)
}

// HandleEvent counts one event. Implements shared.EventHandler.
func (m *Metrics) HandleEvent(event shared.Event) error {
	m.IncrementEvent(string(event.EventType()))
	if e, ok := event.(shared.AttendanceMarkedEvent); ok {
		m.AddSkipped(len(e.Skipped))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Instrumented repository
// ─────────────────────────────────────────────────────────────────────────────

// InstrumentedRepository times saves of the wrapped repository and keeps the
// roster size gauges current.
type InstrumentedRepository struct {
	inner   taskmaster.Repository
	metrics *Metrics
}

var _ taskmaster.Repository = (*InstrumentedRepository)(nil)

// NewInstrumentedRepository wraps inner. A nil m makes it a pass-through.
func NewInstrumentedRepository(inner taskmaster.Repository, m *Metrics) *InstrumentedRepository {
	return &InstrumentedRepository{inner: inner, metrics: m}
}

// Load implements taskmaster.Repository.
func (r *InstrumentedRepository) Load(ctx context.Context) (*taskmaster.Snapshot, error) {
	snap, err := r.inner.Load(ctx)
	if err == nil {
		r.metrics.SetRosterSize(len(snap.StudentList), len(snap.AttendanceList))
	}
	return snap, err
}

// Save implements taskmaster.Repository.
func (r *InstrumentedRepository) Save(ctx context.Context, src taskmaster.ReadOnlyTaskmaster) error {
	start := time.Now()
	err := r.inner.Save(ctx, src)
	r.metrics.ObserveSave(err, time.Since(start))
	if err == nil {
		r.metrics.SetRosterSize(src.Students().Len(), src.Attendances().Len())
	}
	return err
}
