package roster

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
	"github.com/alem-hub/taskmaster/internal/infrastructure/persistence/memory"
)

var (
	alice = student.Student{Name: "Alice", NationalID: "A0001"}
	bob   = student.Student{Name: "Bob", NationalID: "A0002"}
)

type failingRepo struct {
	loadErr error
	saveErr error
}

func (r failingRepo) Load(context.Context) (*taskmaster.Snapshot, error) { return nil, r.loadErr }
func (r failingRepo) Save(context.Context, taskmaster.ReadOnlyTaskmaster) error {
	return r.saveErr
}

func reset(students ...student.Student) func(*taskmaster.Taskmaster) error {
	return func(tm *taskmaster.Taskmaster) error {
		return tm.ResetData(&taskmaster.Snapshot{StudentList: students})
	}
}

func TestHolder_WritePersists(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()
	h := NewHolder(repo)

	require.NoError(t, h.Write(ctx, reset(alice, bob)))
	assert.Equal(t, 1, repo.Saves())

	err := h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.AddStudent(alice)
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudent)
	assert.Equal(t, 1, repo.Saves(), "failed writes are not saved")
}

func TestHolder_WriteBestEffortPersistsPartialResult(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()
	h := NewHolder(repo)
	require.NoError(t, h.Write(ctx, reset(alice)))

	err := h.WriteBestEffort(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.MarkAllAttendance([]student.NationalID{"A0001", "A0009"}, attendance.TypePresent)
	})
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)
	assert.Equal(t, 2, repo.Saves())

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, attendance.TypePresent, snap.AttendanceList[0].Type)
}

// flakyRepo fails every save while down is set.
type flakyRepo struct {
	*memory.RosterRepository
	down error
}

func (r *flakyRepo) Save(ctx context.Context, src taskmaster.ReadOnlyTaskmaster) error {
	if r.down != nil {
		return r.down
	}
	return r.RosterRepository.Save(ctx, src)
}

func TestHolder_SaveFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	repo := &flakyRepo{RosterRepository: memory.NewRosterRepository()}
	h := NewHolder(repo)
	require.NoError(t, h.Write(ctx, reset(alice)))

	before := h.Snapshot()
	repo.down = boom

	err := h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		if err := tm.AddStudent(bob); err != nil {
			return err
		}
		return tm.MarkStudent(alice, attendance.TypePresent)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, h.Snapshot(), "a write that was not saved is not applied")

	err = h.WriteBestEffort(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.MarkAllAttendance([]student.NationalID{"A0001", "A0009"}, attendance.TypeAbsent)
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)
	assert.Equal(t, before, h.Snapshot())

	// Once the store is back the same write goes through instead of
	// reporting a duplicate.
	repo.down = nil
	require.NoError(t, h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.AddStudent(bob)
	}))
	assert.Equal(t, []student.Student{alice, bob}, h.Snapshot().StudentList)

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.StudentList, 2)
}

func TestHolder_FailedWriteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(nil)
	require.NoError(t, h.Write(ctx, reset(alice)))

	err := h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		if err := tm.MarkStudent(alice, attendance.TypeAbsent); err != nil {
			return err
		}
		return tm.AddStudent(alice)
	})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudent)
	assert.Equal(t, attendance.TypeNoRecord, h.Snapshot().AttendanceList[0].Type)
}

func TestHolder_Restore(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()

	stored := taskmaster.New()
	require.NoError(t, stored.ResetData(&taskmaster.Snapshot{StudentList: []student.Student{alice, bob}}))
	require.NoError(t, stored.MarkStudent(alice, attendance.TypePresent))
	require.NoError(t, stored.MarkStudent(bob, attendance.TypeAbsent))
	require.NoError(t, stored.RemoveStudent(bob))
	require.NoError(t, repo.Save(ctx, stored))

	h := NewHolder(repo)
	require.NoError(t, h.Restore(ctx))

	err := h.Read(func(r Reader) error {
		assert.Equal(t, []student.Student{alice}, r.Students().Slice())
		assert.Equal(t, []attendance.Attendance{
			attendance.New(alice.NationalID, attendance.TypePresent),
		}, r.Attendances().Slice())
		return nil
	})
	require.NoError(t, err)
}

func TestHolder_RestoreTracksStudentsAddedAfterReset(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()

	stored := taskmaster.New()
	require.NoError(t, stored.ResetData(&taskmaster.Snapshot{StudentList: []student.Student{alice}}))
	require.NoError(t, stored.MarkStudent(alice, attendance.TypeAbsent))
	require.NoError(t, stored.AddStudent(bob))
	require.ErrorIs(t, stored.MarkStudent(bob, attendance.TypePresent), shared.ErrAttendanceNotFound)
	require.NoError(t, repo.Save(ctx, stored))

	h := NewHolder(repo)
	require.NoError(t, h.Restore(ctx))

	assert.Equal(t, []attendance.Attendance{
		attendance.New(alice.NationalID, attendance.TypeAbsent),
		attendance.New(bob.NationalID, attendance.TypeNoRecord),
	}, h.Snapshot().AttendanceList)

	require.NoError(t, h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.MarkStudent(bob, attendance.TypePresent)
	}))
}

func TestHolder_RestoreEmptyStore(t *testing.T) {
	h := NewHolder(memory.NewRosterRepository())
	require.NoError(t, h.Restore(context.Background()))
	assert.Empty(t, h.Snapshot().StudentList)

	require.NoError(t, NewHolder(nil).Restore(context.Background()))
}

func TestHolder_RestoreLoadError(t *testing.T) {
	boom := errors.New("connection refused")
	h := NewHolder(failingRepo{loadErr: boom})
	assert.ErrorIs(t, h.Restore(context.Background()), boom)
}

func TestRebuild_SkipsInvalidTypes(t *testing.T) {
	tm, err := Rebuild(&taskmaster.Snapshot{
		StudentList: []student.Student{alice},
		AttendanceList: []attendance.Attendance{
			{NationalID: alice.NationalID, Type: "LATE"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, attendance.TypeNoRecord, tm.Attendances().At(0).Type)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	h := NewHolder(nil)
	require.NoError(t, h.Write(ctx, reset(alice, bob)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			at := attendance.TypePresent
			if i%2 == 0 {
				at = attendance.TypeAbsent
			}
			_ = h.Write(ctx, func(tm *taskmaster.Taskmaster) error {
				return tm.MarkStudent(alice, at)
			})
		}(i)
		go func() {
			defer wg.Done()
			_ = h.Read(func(r Reader) error {
				_ = r.NamedAttendances().Slice()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, h.Snapshot().AttendanceList, 2)
}

func TestHolder_AutosaveOff(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRosterRepository()
	h := NewHolder(repo, WithAutosave(false))

	require.NoError(t, h.Write(ctx, reset(alice, bob)))
	assert.Zero(t, repo.Saves())

	require.NoError(t, h.Flush(ctx))
	assert.Equal(t, 1, repo.Saves())

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.StudentList, 2)
}
