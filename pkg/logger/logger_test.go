package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Options{Output: buf, Level: level}), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newBuffered(LevelWarn)

	l.Info("dropped")
	l.Warn("kept", NationalID("S1"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "kept", entries[0]["msg"])
	assert.Equal(t, "S1", entries[0]["national_id"])
	assert.False(t, l.Enabled(LevelInfo))
}

func TestLogger_WithMergesFields(t *testing.T) {
	l, buf := newBuffered(LevelDebug)
	child := l.With(Component("http")).WithRequestID("req-1")

	child.Error("boom", Err(errors.New("bad")), StudentCount(3), Latency(1500*time.Millisecond))
	l.Debug("parent untouched")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "http", entries[0]["component"])
	assert.Equal(t, "req-1", entries[0][RequestIDKey])
	assert.Equal(t, "bad", entries[0]["error"])
	assert.EqualValues(t, 3, entries[0]["student_count"])
	assert.Equal(t, "1.5s", entries[0]["latency"])
	assert.NotContains(t, entries[1], "component")
}

func TestLogger_Caller(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(Options{Output: buf, Level: LevelInfo, AddCaller: true})

	l.Info("here")
	l.Slog().Info("via slog")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	for _, e := range entries {
		src, _ := e["source"].(string)
		assert.True(t, strings.HasPrefix(src, "logger_test.go:"), src)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestContext(t *testing.T) {
	l, _ := newBuffered(LevelInfo)
	ctx := WithContext(context.Background(), l)

	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()).Slog())
}

func TestSlog_SharesOutput(t *testing.T) {
	l, buf := newBuffered(LevelInfo)
	sl := l.With(Component("audit")).Slog().WithGroup("event")

	sl.Debug("dropped")
	sl.Warn("roster changed", "type", "student.added")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "audit", entries[0]["component"])
	assert.Equal(t, map[string]any{"type": "student.added"}, entries[0]["event"])
}
