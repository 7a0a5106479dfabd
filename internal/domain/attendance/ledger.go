package attendance

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger holds one attendance record per student that was registered when it
// was built. Records are addressed by NationalID; their order is for display only.
// Only the Type of a record ever changes.
type Ledger struct {
	records []Attendance
	index   map[student.NationalID]int
}

// Of builds a ledger with one NO_RECORD entry per student, in input order.
// It is the only way to obtain a Ledger, so a ledger always starts in step
// with a registry snapshot. Students are expected to be unique by identity,
// as a Registry guarantees.
func Of(students shared.List[student.Student]) *Ledger {
	l := &Ledger{
		records: make([]Attendance, 0, students.Len()),
		index:   make(map[student.NationalID]int, students.Len()),
	}

	for s := range students.Values() {
		if _, ok := l.index[s.NationalID]; ok {
			continue
		}
		l.index[s.NationalID] = len(l.records)
		l.records = append(l.records, New(s.NationalID, TypeNoRecord))
	}

	return l
}

// MarkStudentAttendance overwrites the type of the record for id.
// Returns ErrInvalidAttendanceType if t is not one of the known types and
// ErrAttendanceNotFound if the ledger has no record for id.
func (l *Ledger) MarkStudentAttendance(id student.NationalID, t Type) error {
	if !t.IsValid() {
		return shared.ErrInvalidAttendanceType
	}
	i, ok := l.index[id]
	if !ok {
		return shared.ErrAttendanceNotFound
	}
	l.records[i].Type = t
	return nil
}

// MarkAllAttendance marks every id in ids with t. It is best-effort: ids
// without a record are skipped, every other id is still marked, and the
// skipped ids are reported together in a *MissingRecordsError. An invalid t
// is rejected with ErrInvalidAttendanceType before any record is touched.
func (l *Ledger) MarkAllAttendance(ids []student.NationalID, t Type) error {
	if !t.IsValid() {
		return shared.ErrInvalidAttendanceType
	}
	var missing []student.NationalID
	for _, id := range ids {
		if err := l.MarkStudentAttendance(id, t); err != nil {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		return &MissingRecordsError{IDs: missing}
	}
	return nil
}

// Has reports whether the ledger holds a record for id.
func (l *Ledger) Has(id student.NationalID) bool {
	_, ok := l.index[id]
	return ok
}

// Find returns the record for id.
func (l *Ledger) Find(id student.NationalID) (Attendance, bool) {
	i, ok := l.index[id]
	if !ok {
		return Attendance{}, false
	}
	return l.records[i], true
}

// IDs returns the identifiers of all records, in ledger order.
func (l *Ledger) IDs() []student.NationalID {
	ids := make([]student.NationalID, len(l.records))
	for i, r := range l.records {
		ids[i] = r.NationalID
	}
	return ids
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{records: slices.Clone(l.records), index: maps.Clone(l.index)}
}

// View returns a live read-only view of the records.
func (l *Ledger) View() shared.List[Attendance] {
	return shared.NewList(&l.records)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// MissingRecordsError lists the ids a bulk mark could not find.
// It matches shared.ErrAttendanceNotFound and shared.ErrNotFound via errors.Is.
type MissingRecordsError struct {
	IDs []student.NationalID
}

// Error implements the error interface.
func (e *MissingRecordsError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("attendance.MarkAll: no attendance record for %s", strings.Join(ids, ", "))
}

// Is implements errors.Is() matching.
func (e *MissingRecordsError) Is(target error) bool {
	return errors.Is(shared.ErrAttendanceNotFound, target)
}
