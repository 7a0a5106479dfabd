//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// RosterRepositorySuite runs against the database named by DATABASE_URL.
type RosterRepositorySuite struct {
	suite.Suite
	conn *Connection
	repo *RosterRepository
}

func TestRosterRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set")
	}
	suite.Run(t, new(RosterRepositorySuite))
}

func (s *RosterRepositorySuite) SetupSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Open(ctx, os.Getenv("DATABASE_URL"), DefaultPoolOptions())
	s.Require().NoError(err)
	s.conn = conn
	s.repo = NewRosterRepository(conn)
}

func (s *RosterRepositorySuite) TearDownSuite() {
	s.conn.Close()
}

func (s *RosterRepositorySuite) SetupTest() {
	ctx := context.Background()
	m := NewMigrator(s.conn)
	_ = m.Rollback(ctx)
	s.Require().NoError(m.Migrate(ctx))
}

func (s *RosterRepositorySuite) TestLoad_NothingSaved() {
	_, err := s.repo.Load(context.Background())
	s.Require().ErrorIs(err, shared.ErrRosterNotFound)
}

func (s *RosterRepositorySuite) TestSaveLoad_PreservesOrderAndTypes() {
	ctx := context.Background()

	tm := taskmaster.New()
	for _, in := range [][2]string{{"Zed", "Z1"}, {"Amy", "A1"}, {"Bob", "B1"}} {
		st, err := student.NewStudent(in[0], in[1])
		s.Require().NoError(err)
		s.Require().NoError(tm.AddStudent(st))
	}
	s.Require().NoError(tm.ResetData(taskmaster.SnapshotOf(tm)))
	s.Require().NoError(tm.MarkStudentByNationalID("A1", attendance.TypePresent))

	s.Require().NoError(s.repo.Save(ctx, tm))

	snap, err := s.repo.Load(ctx)
	s.Require().NoError(err)
	s.Equal(tm.Students().Slice(), snap.StudentList)
	s.Equal(tm.Attendances().Slice(), snap.AttendanceList)

	savedAt, err := s.repo.SavedAt(ctx)
	s.Require().NoError(err)
	s.WithinDuration(time.Now(), savedAt, time.Minute)
}

func (s *RosterRepositorySuite) TestSave_ReplacesPreviousRoster() {
	ctx := context.Background()

	first := taskmaster.New()
	st, _ := student.NewStudent("Amy", "A1")
	s.Require().NoError(first.AddStudent(st))
	s.Require().NoError(s.repo.Save(ctx, first))

	s.Require().NoError(s.repo.Save(ctx, taskmaster.New()))

	snap, err := s.repo.Load(ctx)
	s.Require().NoError(err)
	s.Empty(snap.StudentList)
	s.Empty(snap.AttendanceList)
}

func (s *RosterRepositorySuite) TestMigrator_Status() {
	status, err := NewMigrator(s.conn).Status(context.Background())
	s.Require().NoError(err)
	s.Require().Len(status, 1)
	s.True(status[0].Applied)
}
