//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// RedisSuite runs against the server named by REDIS_URL.
type RedisSuite struct {
	suite.Suite
	cache *Cache
}

func TestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("REDIS_URL") == "" {
		t.Skip("REDIS_URL not set")
	}
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	cfg := DefaultConfig()
	cfg.URL = os.Getenv("REDIS_URL")

	cache, err := NewCache(context.Background(), cfg)
	s.Require().NoError(err)
	s.cache = cache
}

func (s *RedisSuite) TearDownSuite() {
	_ = s.cache.Close()
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.cache.Client().Del(context.Background(), SnapshotKey).Err())
}

func (s *RedisSuite) TestRosterCache_RoundTrip() {
	ctx := context.Background()
	rc := NewRosterCache(s.cache, time.Minute)

	_, err := rc.GetRoster(ctx)
	s.Require().ErrorIs(err, ErrCacheMiss)

	st, err := student.NewStudent("Amy", "A1")
	s.Require().NoError(err)
	snap := &taskmaster.Snapshot{
		StudentList:    []student.Student{st},
		AttendanceList: []attendance.Attendance{attendance.New("A1", attendance.TypeAbsent)},
	}
	s.Require().NoError(rc.SetRoster(ctx, snap))

	got, err := rc.GetRoster(ctx)
	s.Require().NoError(err)
	s.Equal(snap, got)

	ttl, err := s.cache.Client().TTL(ctx, SnapshotKey).Result()
	s.Require().NoError(err)
	s.LessOrEqual(ttl, time.Minute)

	s.Require().NoError(rc.InvalidateRoster(ctx))
	_, err = rc.GetRoster(ctx)
	s.Require().ErrorIs(err, ErrCacheMiss)
}

func (s *RedisSuite) TestPubSub_Delivers() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := NewPubSub(s.cache.Client())
	defer ps.Close()

	msgs, err := ps.Subscribe(ctx, "taskmaster:test")
	s.Require().NoError(err)
	s.Require().NoError(ps.Publish(ctx, "taskmaster:test", "hello"))

	select {
	case msg := <-msgs:
		s.Equal("taskmaster:test", msg.Channel)
		s.Equal("hello", msg.Payload)
	case <-ctx.Done():
		s.Fail("no message received")
	}
}
