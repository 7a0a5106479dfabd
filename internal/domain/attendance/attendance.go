package attendance

import (
	"fmt"

	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// Attendance is the attendance record of one student. NationalID is a foreign
// key into the student registry, not ownership.
type Attendance struct {
	NationalID student.NationalID `json:"national_id"`
	Type       Type               `json:"type"`
}

// New creates a record for the given student.
func New(id student.NationalID, t Type) Attendance {
	return Attendance{NationalID: id, Type: t}
}

// String returns the string representation for logging.
func (a Attendance) String() string {
	return fmt.Sprintf("Attendance{ID: %s, Type: %s}", a.NationalID, a.Type)
}

// NamedAttendance is a read-only join of a student's name with their record.
// It is derived on every read and never stored.
type NamedAttendance struct {
	Name       student.Name `json:"name"`
	Attendance Attendance   `json:"attendance"`
}

// IsResolved reports whether the record's student was found when the view was built.
func (n NamedAttendance) IsResolved() bool {
	return n.Name != student.StudentNotFoundName
}
