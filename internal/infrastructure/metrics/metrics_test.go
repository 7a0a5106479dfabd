package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
	"github.com/alem-hub/taskmaster/internal/infrastructure/persistence/memory"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
		m.IncrementEvent("student.added")
		m.AddSkipped(3)
		m.ObserveSave(nil, time.Millisecond)
		m.SetRosterSize(1, 1)
		m.ObserveEventHandler("student.added", time.Millisecond, nil)
	})
	assert.Nil(t, m.Registry())
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()

	a.IncrementEvent("student.added")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Events.WithLabelValues("student.added")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Events.WithLabelValues("student.added")))
}

func TestObserveEventHandler(t *testing.T) {
	m := New()

	m.ObserveEventHandler("roster.reset", time.Millisecond, nil)
	m.ObserveEventHandler("roster.reset", time.Millisecond, errors.New("boom"))
	m.ObserveEventHandler("roster.reset", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerRuns.WithLabelValues("roster.reset", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HandlerRuns.WithLabelValues("roster.reset", "error")))
}

func TestHandleEvent_CountsSkipped(t *testing.T) {
	m := New()

	require.NoError(t, m.HandleEvent(shared.NewAttendanceMarkedEvent([]string{"A1"}, "PRESENT", []string{"Z9", "Z8"})))
	require.NoError(t, m.HandleEvent(shared.NewAttendanceClearedEvent(2)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("attendance.marked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("attendance.cleared")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SkippedIDs))
}

type failingRepo struct{}

func (failingRepo) Load(context.Context) (*taskmaster.Snapshot, error) {
	return nil, shared.ErrRosterNotFound
}

func (failingRepo) Save(context.Context, taskmaster.ReadOnlyTaskmaster) error {
	return errors.New("disk full")
}

func TestInstrumentedRepository(t *testing.T) {
	m := New()
	tm := taskmaster.New()
	for _, in := range [][2]string{{"Ada", "A1"}, {"Bob", "B2"}} {
		s, err := student.NewStudent(in[0], in[1])
		require.NoError(t, err)
		require.NoError(t, tm.AddStudent(s))
	}

	repo := NewInstrumentedRepository(memory.NewRosterRepository(), m)
	require.NoError(t, repo.Save(context.Background(), tm))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Students))

	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.StudentList, 2)

	bad := NewInstrumentedRepository(failingRepo{}, m)
	assert.Error(t, bad.Save(context.Background(), tm))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Saves.WithLabelValues("error")))

	_, err = bad.Load(context.Background())
	assert.ErrorIs(t, err, shared.ErrRosterNotFound)
}

func TestHandler_ServesExposition(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "GET /api/v1/students", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `taskmaster_http_requests_total{method="GET",route="GET /api/v1/students",status="200"} 1`)
}
