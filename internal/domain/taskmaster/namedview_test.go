package taskmaster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

func TestBuildNamedAttendances(t *testing.T) {
	students := shared.ListOf(bob, alice)
	records := shared.ListOf(
		attendance.New(alice.NationalID, attendance.TypePresent),
		attendance.New("A0009", attendance.TypeAbsent),
		attendance.New(bob.NationalID, attendance.TypeNoRecord),
	)

	named := BuildNamedAttendances(students, records)

	// Record order, not registry order.
	assert.Equal(t, []attendance.NamedAttendance{
		{Name: "Alice", Attendance: records.At(0)},
		{Name: student.StudentNotFoundName, Attendance: records.At(1)},
		{Name: "Bob", Attendance: records.At(2)},
	}, named.Slice())

	assert.Equal(t, 2, students.Len())
	assert.Equal(t, 3, records.Len())
}

func TestBuildNamedAttendances_Empty(t *testing.T) {
	named := BuildNamedAttendances(shared.ListOf(alice), shared.ListOf[attendance.Attendance]())
	assert.True(t, named.IsEmpty())
}
