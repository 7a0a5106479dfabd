package taskmaster

import (
	"context"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot is a plain, detached copy of a roster. Persistence produces and
// consumes snapshots; the aggregate accepts one as a ResetData source.
type Snapshot struct {
	StudentList    []student.Student       `json:"students"`
	AttendanceList []attendance.Attendance `json:"attendances"`
}

var _ ReadOnlyTaskmaster = (*Snapshot)(nil)

// Students implements ReadOnlyTaskmaster.
func (s *Snapshot) Students() shared.List[student.Student] {
	return shared.NewList(&s.StudentList)
}

// Attendances implements ReadOnlyTaskmaster.
func (s *Snapshot) Attendances() shared.List[attendance.Attendance] {
	return shared.NewList(&s.AttendanceList)
}

// SnapshotOf copies the current state of src.
func SnapshotOf(src ReadOnlyTaskmaster) *Snapshot {
	return &Snapshot{
		StudentList:    src.Students().Slice(),
		AttendanceList: src.Attendances().Slice(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores the roster as a whole.
type Repository interface {
	// Load returns the last saved snapshot.
	// Returns ErrRosterNotFound if nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored roster with the state of src.
	Save(ctx context.Context, src ReadOnlyTaskmaster) error
}
