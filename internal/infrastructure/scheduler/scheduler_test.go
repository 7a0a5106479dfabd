package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		from    string
		want    string
		wantErr bool
	}{
		{spec: "@every 2m", from: "2026-03-02 10:00", want: "2026-03-02 10:02"},
		{spec: "@hourly", from: "2026-03-02 10:15", want: "2026-03-02 11:00"},
		{spec: "@daily", from: "2026-03-02 10:15", want: "2026-03-03 00:00"},
		{spec: "*/15 * * * *", from: "2026-03-02 10:15", want: "2026-03-02 10:30"},
		{spec: "30 9-17/4 * * *", from: "2026-03-02 10:00", want: "2026-03-02 13:30"},
		{spec: "0 0 1 * *", from: "2026-12-15 08:00", want: "2027-01-01 00:00"},
		// 2026-03-02 is a Monday.
		{spec: "0 8 * * 7", from: "2026-03-02 10:00", want: "2026-03-08 08:00"},
		{spec: "0 8 * * 1-5", from: "2026-03-06 09:00", want: "2026-03-09 08:00"},
		// Restricted day fields match either.
		{spec: "0 0 15 * 3", from: "2026-03-02 10:00", want: "2026-03-04 00:00"},

		{spec: "", wantErr: true},
		{spec: "@every 10ms", wantErr: true},
		{spec: "@every soon", wantErr: true},
		{spec: "* * * *", wantErr: true},
		{spec: "60 * * * *", wantErr: true},
		{spec: "*/0 * * * *", wantErr: true},
		{spec: "5-1 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			s, err := ParseSchedule(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			next := s.Next(at(tt.from))
			assert.Equal(t, at(tt.want), next, "next run of %q", s.String())
		})
	}
}

func TestCronSchedule_Impossible(t *testing.T) {
	s, err := ParseCron("0 0 30 2 *")
	require.NoError(t, err)
	assert.True(t, s.Next(at("2026-01-01 00:00")).IsZero())
}

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return j.err
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	var mu sync.Mutex
	var results []JobResult

	s := New(Config{
		Tick: 5 * time.Millisecond,
		OnResult: func(r JobResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})

	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.Register(ok, &IntervalSchedule{Interval: 10 * time.Millisecond}))
	require.NoError(t, s.Register(failing, &IntervalSchedule{Interval: 10 * time.Millisecond}))
	assert.ErrorIs(t, s.Register(ok, &IntervalSchedule{Interval: time.Second}), ErrJobAlreadyExists)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return ok.runs.Load() >= 2 && failing.runs.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	infos := s.Jobs()
	require.Len(t, infos, 2)
	assert.Equal(t, "failing", infos[0].Name)
	assert.Equal(t, infos[0].RunCount, infos[0].FailCount)
	assert.Zero(t, infos[1].FailCount)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, results)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := New(Config{Tick: 2 * time.Millisecond})
	slow := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.Register(slow, &IntervalSchedule{Interval: 2 * time.Millisecond}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return slow.runs.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), slow.runs.Load())

	close(slow.block)
	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	job := &countingJob{name: "manual", err: errors.New("boom")}
	require.NoError(t, s.Register(job, &IntervalSchedule{Interval: time.Hour}))

	result, err := s.RunNow(context.Background(), "manual")
	assert.EqualError(t, err, "boom")
	assert.True(t, result.Manual)
	assert.Equal(t, int32(1), job.runs.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
