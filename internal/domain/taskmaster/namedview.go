package taskmaster

import (
	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// BuildNamedAttendances joins attendance records with student names.
//
// One entry is produced per record, in record order. A record whose id no
// longer resolves to a student gets student.StudentNotFoundName instead of
// failing the whole view. Neither input is modified.
func BuildNamedAttendances(
	students shared.List[student.Student],
	attendances shared.List[attendance.Attendance],
) shared.List[attendance.NamedAttendance] {
	names := make(map[student.NationalID]student.Name, students.Len())
	for s := range students.Values() {
		names[s.NationalID] = s.Name
	}

	named := make([]attendance.NamedAttendance, 0, attendances.Len())
	for a := range attendances.Values() {
		name, ok := names[a.NationalID]
		if !ok {
			name = student.StudentNotFoundName
		}
		named = append(named, attendance.NamedAttendance{Name: name, Attendance: a})
	}

	return shared.NewList(&named)
}
