// Package taskmaster is the roster aggregate: it owns the student registry and
// the attendance ledger and keeps them consistent.
//
// The aggregate is single-writer. Callers that share it between goroutines must
// serialise access themselves (see application/roster.Holder).
package taskmaster

import (
	"fmt"
	"reflect"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// ReadOnlyTaskmaster is the read side of a roster. It is what ResetData accepts
// as its source and what persistence reads when saving.
type ReadOnlyTaskmaster interface {
	// Students returns the ordered, duplicate-free student sequence.
	Students() shared.List[student.Student]

	// Attendances returns the attendance records.
	Attendances() shared.List[attendance.Attendance]
}

// Taskmaster wraps all roster data. Duplicates are not allowed (by IsSameStudent).
type Taskmaster struct {
	students *student.Registry
	ledger   *attendance.Ledger
}

var _ ReadOnlyTaskmaster = (*Taskmaster)(nil)

// New creates an empty Taskmaster.
func New() *Taskmaster {
	reg := student.NewRegistry()
	return &Taskmaster{
		students: reg,
		ledger:   attendance.Of(reg.View()),
	}
}

// Clone returns a detached copy, registry and ledger included, so that the
// copy can be changed without touching t. Drift between the two is kept.
func (t *Taskmaster) Clone() *Taskmaster {
	return &Taskmaster{students: t.students.Clone(), ledger: t.ledger.Clone()}
}

// NewFrom creates a Taskmaster holding the students of src.
func NewFrom(src ReadOnlyTaskmaster) (*Taskmaster, error) {
	t := New()
	if err := t.ResetData(src); err != nil {
		return nil, err
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST OVERWRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// ResetData replaces the registry with the students of src and rebuilds the
// ledger from it, discarding all attendance state. It is the only point that
// brings the registry and the ledger back in step.
//
// Returns ErrNullRosterSource if src is nil and ErrDuplicateStudent if src holds
// identity-equal students; in both cases nothing changes.
func (t *Taskmaster) ResetData(src ReadOnlyTaskmaster) error {
	if isNil(src) {
		return shared.ErrNullRosterSource
	}

	if err := t.students.SetStudents(src.Students().Slice()); err != nil {
		return err
	}

	// Rebuilt in place so views handed out earlier keep following the ledger.
	*t.ledger = *attendance.Of(t.students.View())
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT-LEVEL OPERATIONS
// The ledger is not touched here: a student added after the last ResetData has
// no attendance record, and a removed student keeps one until the next reset.
// ══════════════════════════════════════════════════════════════════════════════

// HasStudent returns true if a student with the same identity exists.
func (t *Taskmaster) HasStudent(s student.Student) bool {
	return t.students.Contains(s)
}

// AddStudent adds a student. Returns ErrDuplicateStudent if one with the same
// identity already exists.
func (t *Taskmaster) AddStudent(s student.Student) error {
	return t.students.Add(s)
}

// SetStudent replaces target with edited. See student.Registry.SetStudent.
func (t *Taskmaster) SetStudent(target, edited student.Student) error {
	return t.students.SetStudent(target, edited)
}

// RemoveStudent removes s. Returns ErrStudentNotFound if s is not registered.
func (t *Taskmaster) RemoveStudent(s student.Student) error {
	return t.students.Remove(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// MarkStudent marks the attendance of target.
// Returns ErrAttendanceNotFound if the ledger has no record for target.
func (t *Taskmaster) MarkStudent(target student.Student, at attendance.Type) error {
	return t.ledger.MarkStudentAttendance(target.NationalID, at)
}

// MarkStudentByNationalID marks the attendance of the student with id.
func (t *Taskmaster) MarkStudentByNationalID(id student.NationalID, at attendance.Type) error {
	return t.ledger.MarkStudentAttendance(id, at)
}

// MarkAllAttendance marks every id with at, best-effort. Unknown ids are
// skipped and reported in an *attendance.MissingRecordsError.
func (t *Taskmaster) MarkAllAttendance(ids []student.NationalID, at attendance.Type) error {
	return t.ledger.MarkAllAttendance(ids, at)
}

// ClearAttendance sets every record to NO_RECORD. It never fails.
func (t *Taskmaster) ClearAttendance() {
	// ids come from the ledger itself, so none can be missing.
	_ = t.ledger.MarkAllAttendance(t.ledger.IDs(), attendance.TypeNoRecord)
}

// UpdateAttendances applies the type of each record to the matching ledger
// entry. It fails fast: the first record whose id has no ledger entry is
// reported with ErrAttendanceNotFound, the first with an unknown type with
// ErrInvalidAttendanceType, and in both cases no record is applied.
func (t *Taskmaster) UpdateAttendances(records []attendance.Attendance) error {
	for _, r := range records {
		if !r.Type.IsValid() {
			return shared.Wrap("taskmaster.UpdateAttendances", shared.ErrValidation,
				fmt.Sprintf("invalid attendance type %q for %s", r.Type, r.NationalID), shared.ErrInvalidAttendanceType)
		}
		if !t.ledger.Has(r.NationalID) {
			return shared.Wrap("taskmaster.UpdateAttendances", shared.ErrNotFound,
				fmt.Sprintf("no attendance record for %s", r.NationalID), shared.ErrAttendanceNotFound)
		}
	}

	for _, r := range records {
		if err := t.ledger.MarkStudentAttendance(r.NationalID, r.Type); err != nil {
			return err
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ SIDE
// ══════════════════════════════════════════════════════════════════════════════

// NameByNationalID returns the name of the student with id.
// Returns ErrStudentNotFound if no registered student has that id.
func (t *Taskmaster) NameByNationalID(id student.NationalID) (student.Name, error) {
	s, ok := t.students.Find(id)
	if !ok {
		return "", shared.ErrStudentNotFound
	}
	return s.Name, nil
}

// Students returns a live read-only view of the registry.
func (t *Taskmaster) Students() shared.List[student.Student] {
	return t.students.View()
}

// Attendances returns a live read-only view of the ledger. The records carry
// no names; see NamedAttendances.
func (t *Taskmaster) Attendances() shared.List[attendance.Attendance] {
	return t.ledger.View()
}

// NamedAttendances joins every ledger record with its student's name.
// It is rebuilt on every call.
func (t *Taskmaster) NamedAttendances() shared.List[attendance.NamedAttendance] {
	return BuildNamedAttendances(t.Students(), t.Attendances())
}

// Equal reports whether both rosters hold equal registries. The ledger is
// derived from the registry at reset time and is not compared.
func (t *Taskmaster) Equal(other *Taskmaster) bool {
	if t == other {
		return true
	}
	if other == nil {
		return false
	}
	return t.students.Equal(other.students)
}

// String returns a short summary for logging.
func (t *Taskmaster) String() string {
	return fmt.Sprintf("%d students", t.students.Len())
}

func isNil(src ReadOnlyTaskmaster) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
