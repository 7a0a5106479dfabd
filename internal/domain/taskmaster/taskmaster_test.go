package taskmaster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

var (
	alice = student.Student{Name: "Alice", NationalID: "A0001"}
	bob   = student.Student{Name: "Bob", NationalID: "A0002"}
	carol = student.Student{Name: "Carol", NationalID: "A0003"}
)

func snapshotOf(students ...student.Student) *Snapshot {
	return &Snapshot{StudentList: students}
}

func typesByID(tm *Taskmaster) map[student.NationalID]attendance.Type {
	out := make(map[student.NationalID]attendance.Type)
	for a := range tm.Attendances().Values() {
		out[a.NationalID] = a.Type
	}
	return out
}

// TaskmasterSuite covers the roster aggregate.
type TaskmasterSuite struct {
	suite.Suite
	tm *Taskmaster
}

func TestTaskmasterSuite(t *testing.T) {
	suite.Run(t, new(TaskmasterSuite))
}

func (s *TaskmasterSuite) SetupTest() {
	tm, err := NewFrom(snapshotOf(alice, bob))
	s.Require().NoError(err)
	s.tm = tm
}

func (s *TaskmasterSuite) TestNew() {
	tm := New()
	s.True(tm.Students().IsEmpty())
	s.True(tm.Attendances().IsEmpty())
	s.True(tm.NamedAttendances().IsEmpty())
}

func (s *TaskmasterSuite) TestResetData() {
	s.Run("rebuilds ledger from registry", func() {
		s.Equal([]student.Student{alice, bob}, s.tm.Students().Slice())
		s.Equal([]attendance.Attendance{
			attendance.New(alice.NationalID, attendance.TypeNoRecord),
			attendance.New(bob.NationalID, attendance.TypeNoRecord),
		}, s.tm.Attendances().Slice())
	})

	s.Run("discards previous attendance", func() {
		s.Require().NoError(s.tm.MarkStudent(alice, attendance.TypePresent))
		s.Require().NoError(s.tm.ResetData(snapshotOf(alice, bob, carol)))

		s.Equal(map[student.NationalID]attendance.Type{
			alice.NationalID: attendance.TypeNoRecord,
			bob.NationalID:   attendance.TypeNoRecord,
			carol.NationalID: attendance.TypeNoRecord,
		}, typesByID(s.tm))
	})

	s.Run("ignores source attendance", func() {
		src := &Snapshot{
			StudentList:    []student.Student{alice},
			AttendanceList: []attendance.Attendance{attendance.New(alice.NationalID, attendance.TypePresent)},
		}
		s.Require().NoError(s.tm.ResetData(src))
		s.Equal(attendance.TypeNoRecord, s.tm.Attendances().At(0).Type)
	})

	s.Run("nil source", func() {
		before := s.tm.Students().Slice()

		err := s.tm.ResetData(nil)
		s.Require().ErrorIs(err, shared.ErrNullRosterSource)
		s.True(shared.IsNullSource(err))

		var typedNil *Snapshot
		s.Require().ErrorIs(s.tm.ResetData(typedNil), shared.ErrNullRosterSource)

		s.Equal(before, s.tm.Students().Slice())
	})

	s.Run("duplicate source changes nothing", func() {
		s.Require().NoError(s.tm.ResetData(snapshotOf(alice, bob)))
		s.Require().NoError(s.tm.MarkStudent(bob, attendance.TypeAbsent))

		err := s.tm.ResetData(snapshotOf(carol, student.Student{Name: "Carla", NationalID: carol.NationalID}))
		s.Require().ErrorIs(err, shared.ErrDuplicateStudent)

		s.Equal([]student.Student{alice, bob}, s.tm.Students().Slice())
		s.Equal(attendance.TypeAbsent, typesByID(s.tm)[bob.NationalID])
	})

	s.Run("from another taskmaster", func() {
		other := New()
		s.Require().NoError(other.AddStudent(carol))

		s.Require().NoError(s.tm.ResetData(other))
		s.True(s.tm.Equal(other))

		// The copy is independent of its source.
		s.Require().NoError(other.AddStudent(alice))
		s.Equal(1, s.tm.Students().Len())
	})

	s.Run("from itself", func() {
		s.Require().NoError(s.tm.ResetData(snapshotOf(alice, bob)))
		s.Require().NoError(s.tm.MarkStudent(alice, attendance.TypePresent))

		s.Require().NoError(s.tm.ResetData(s.tm))
		s.Equal([]student.Student{alice, bob}, s.tm.Students().Slice())
		s.Equal(attendance.TypeNoRecord, typesByID(s.tm)[alice.NationalID])
	})
}

func (s *TaskmasterSuite) TestViewsFollowReset() {
	students := s.tm.Students()
	records := s.tm.Attendances()

	s.Require().NoError(s.tm.ResetData(snapshotOf(carol)))

	s.Equal([]student.Student{carol}, students.Slice())
	s.Equal([]attendance.Attendance{attendance.New(carol.NationalID, attendance.TypeNoRecord)}, records.Slice())
}

func (s *TaskmasterSuite) TestAddStudent() {
	s.Require().NoError(s.tm.AddStudent(carol))
	s.True(s.tm.HasStudent(carol))

	err := s.tm.AddStudent(student.Student{Name: "Someone Else", NationalID: alice.NationalID})
	s.Require().ErrorIs(err, shared.ErrDuplicateStudent)
	s.Equal(3, s.tm.Students().Len())

	// The ledger lags behind the registry until the next reset.
	s.Equal(2, s.tm.Attendances().Len())
	s.ErrorIs(s.tm.MarkStudent(carol, attendance.TypePresent), shared.ErrAttendanceNotFound)
}

func (s *TaskmasterSuite) TestSetStudent() {
	renamed := student.Student{Name: "Alice Tan", NationalID: alice.NationalID}
	s.Require().NoError(s.tm.SetStudent(alice, renamed))
	s.Equal(renamed, s.tm.Students().At(0))

	s.ErrorIs(s.tm.SetStudent(carol, carol), shared.ErrStudentNotFound)
	s.ErrorIs(s.tm.SetStudent(renamed, bob), shared.ErrDuplicateStudent)
}

func (s *TaskmasterSuite) TestRemoveStudent() {
	s.Require().NoError(s.tm.RemoveStudent(bob))
	s.False(s.tm.HasStudent(bob))

	_, err := s.tm.NameByNationalID(bob.NationalID)
	s.ErrorIs(err, shared.ErrStudentNotFound)

	// The record survives until the next reset and is still markable.
	s.Equal(2, s.tm.Attendances().Len())
	s.NoError(s.tm.MarkStudentByNationalID(bob.NationalID, attendance.TypeAbsent))

	s.ErrorIs(s.tm.RemoveStudent(bob), shared.ErrStudentNotFound)
}

func (s *TaskmasterSuite) TestMarkStudent() {
	s.Require().NoError(s.tm.MarkStudent(bob, attendance.TypePresent))
	s.Require().NoError(s.tm.MarkStudent(bob, attendance.TypePresent))

	s.Equal(map[student.NationalID]attendance.Type{
		alice.NationalID: attendance.TypeNoRecord,
		bob.NationalID:   attendance.TypePresent,
	}, typesByID(s.tm))

	s.ErrorIs(s.tm.MarkStudentByNationalID("A0009", attendance.TypePresent), shared.ErrAttendanceNotFound)

	s.ErrorIs(s.tm.MarkStudentByNationalID(alice.NationalID, "LATE"), shared.ErrInvalidAttendanceType)
	s.ErrorIs(s.tm.MarkStudent(alice, ""), shared.ErrInvalidAttendanceType)
	s.Equal(attendance.TypeNoRecord, typesByID(s.tm)[alice.NationalID])
}

func (s *TaskmasterSuite) TestMarkAllAttendance() {
	err := s.tm.MarkAllAttendance([]student.NationalID{alice.NationalID, "A0009", bob.NationalID}, attendance.TypePresent)
	s.Require().ErrorIs(err, shared.ErrAttendanceNotFound)

	var missing *attendance.MissingRecordsError
	s.Require().True(errors.As(err, &missing))
	s.Equal([]student.NationalID{"A0009"}, missing.IDs)

	s.Equal(map[student.NationalID]attendance.Type{
		alice.NationalID: attendance.TypePresent,
		bob.NationalID:   attendance.TypePresent,
	}, typesByID(s.tm))
}

func (s *TaskmasterSuite) TestClearAttendance() {
	s.Require().NoError(s.tm.MarkStudent(alice, attendance.TypePresent))
	s.Require().NoError(s.tm.MarkStudent(bob, attendance.TypeAbsent))
	s.Require().NoError(s.tm.RemoveStudent(bob))

	s.tm.ClearAttendance()

	s.Equal(2, s.tm.Attendances().Len())
	for a := range s.tm.Attendances().Values() {
		s.Equal(attendance.TypeNoRecord, a.Type)
	}

	New().ClearAttendance()
}

func (s *TaskmasterSuite) TestUpdateAttendances() {
	s.Run("applies every record", func() {
		err := s.tm.UpdateAttendances([]attendance.Attendance{
			attendance.New(alice.NationalID, attendance.TypeAbsent),
			attendance.New(bob.NationalID, attendance.TypePresent),
		})
		s.Require().NoError(err)
		s.Equal(map[student.NationalID]attendance.Type{
			alice.NationalID: attendance.TypeAbsent,
			bob.NationalID:   attendance.TypePresent,
		}, typesByID(s.tm))
	})

	s.Run("unknown id leaves ledger unchanged", func() {
		s.tm.ClearAttendance()

		err := s.tm.UpdateAttendances([]attendance.Attendance{
			attendance.New(alice.NationalID, attendance.TypePresent),
			attendance.New("A0009", attendance.TypePresent),
		})
		s.Require().ErrorIs(err, shared.ErrAttendanceNotFound)
		s.True(shared.IsNotFound(err))
		s.Contains(err.Error(), "A0009")

		for a := range s.tm.Attendances().Values() {
			s.Equal(attendance.TypeNoRecord, a.Type)
		}
	})

	s.Run("unknown type leaves ledger unchanged", func() {
		s.tm.ClearAttendance()

		err := s.tm.UpdateAttendances([]attendance.Attendance{
			attendance.New(alice.NationalID, attendance.TypePresent),
			{NationalID: bob.NationalID, Type: ""},
		})
		s.Require().ErrorIs(err, shared.ErrInvalidAttendanceType)
		s.True(shared.IsValidation(err))
		s.Contains(err.Error(), "A0002")

		for a := range s.tm.Attendances().Values() {
			s.Equal(attendance.TypeNoRecord, a.Type)
		}
	})

	s.Run("empty input", func() {
		s.NoError(s.tm.UpdateAttendances(nil))
	})
}

func (s *TaskmasterSuite) TestClone() {
	s.Require().NoError(s.tm.RemoveStudent(bob))
	s.Require().NoError(s.tm.AddStudent(carol))

	c := s.tm.Clone()
	s.Require().NoError(c.MarkStudent(alice, attendance.TypePresent))
	s.Require().NoError(c.RemoveStudent(alice))

	s.Equal([]student.Student{alice, carol}, s.tm.Students().Slice())
	s.Equal(attendance.TypeNoRecord, typesByID(s.tm)[alice.NationalID])

	// Drift is copied as is: bob keeps his record, carol still has none.
	s.Equal([]student.Student{carol}, c.Students().Slice())
	s.Equal(map[student.NationalID]attendance.Type{
		alice.NationalID: attendance.TypePresent,
		bob.NationalID:   attendance.TypeNoRecord,
	}, typesByID(c))
}

func (s *TaskmasterSuite) TestNameByNationalID() {
	name, err := s.tm.NameByNationalID(bob.NationalID)
	s.Require().NoError(err)
	s.Equal(bob.Name, name)

	_, err = s.tm.NameByNationalID("A0009")
	s.ErrorIs(err, shared.ErrStudentNotFound)
}

func (s *TaskmasterSuite) TestNamedAttendances() {
	s.Require().NoError(s.tm.MarkStudent(alice, attendance.TypePresent))
	s.Require().NoError(s.tm.RemoveStudent(bob))

	named := s.tm.NamedAttendances().Slice()
	s.Equal([]attendance.NamedAttendance{
		{Name: alice.Name, Attendance: attendance.New(alice.NationalID, attendance.TypePresent)},
		{Name: student.StudentNotFoundName, Attendance: attendance.New(bob.NationalID, attendance.TypeNoRecord)},
	}, named)
}

func (s *TaskmasterSuite) TestEqual() {
	other, err := NewFrom(snapshotOf(alice, bob))
	s.Require().NoError(err)
	s.True(s.tm.Equal(other))

	// Attendance is not part of equality.
	s.Require().NoError(other.MarkStudent(alice, attendance.TypePresent))
	s.True(s.tm.Equal(other))

	s.Require().NoError(other.RemoveStudent(bob))
	s.False(s.tm.Equal(other))
	s.False(s.tm.Equal(nil))
	s.True(s.tm.Equal(s.tm))
}

func (s *TaskmasterSuite) TestSnapshotOf() {
	s.Require().NoError(s.tm.MarkStudent(bob, attendance.TypeAbsent))

	snap := SnapshotOf(s.tm)
	s.Equal([]student.Student{alice, bob}, snap.StudentList)
	s.Equal(attendance.TypeAbsent, snap.AttendanceList[1].Type)

	// Detached from the aggregate.
	s.Require().NoError(s.tm.AddStudent(carol))
	s.Len(snap.StudentList, 2)
}

func TestScenario_RegisterMarkClear(t *testing.T) {
	tm, err := NewFrom(snapshotOf(alice, bob))
	require.NoError(t, err)

	require.NoError(t, tm.MarkStudentByNationalID("A0001", attendance.TypePresent))
	assert.Equal(t, []attendance.NamedAttendance{
		{Name: "Alice", Attendance: attendance.New("A0001", attendance.TypePresent)},
		{Name: "Bob", Attendance: attendance.New("A0002", attendance.TypeNoRecord)},
	}, tm.NamedAttendances().Slice())

	tm.ClearAttendance()
	for a := range tm.Attendances().Values() {
		assert.Equal(t, attendance.TypeNoRecord, a.Type)
	}
}
