package eventhandler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestAuditLogger_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewAuditLogger(newTestLogger(&buf))

	event := shared.NewStudentEditedEvent("A0002", "B0002", "Robert")
	event.Correlate("req-42")
	require.NoError(t, h.Handle(event))

	entry := decode(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "roster changed", entry["msg"])
	assert.Equal(t, "audit", entry["handler"])
	assert.Equal(t, "student.edited", entry["event_type"])
	assert.Equal(t, "roster", entry["aggregate_id"])
	assert.Equal(t, "req-42", entry["correlation_id"])
	assert.Equal(t, "A0002", entry["previous_id"])
	assert.Equal(t, "B0002", entry["national_id"])
}

func TestAuditLogger_SkippedIDsAreWarnings(t *testing.T) {
	var buf bytes.Buffer
	h := NewAuditLogger(newTestLogger(&buf))

	require.NoError(t, h.Handle(shared.NewAttendanceMarkedEvent([]string{"A0001"}, "PRESENT", []string{"A0009"})))

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Nil(t, entry["correlation_id"])
}

type subscriberFunc func(shared.EventHandler) error

func (f subscriberFunc) Subscribe(shared.EventType, shared.EventHandler) error { return nil }
func (f subscriberFunc) SubscribeAll(h shared.EventHandler) error             { return f(h) }

func TestAuditLogger_Register(t *testing.T) {
	var registered shared.EventHandler
	h := NewAuditLogger(nil)

	require.NoError(t, h.Register(subscriberFunc(func(handler shared.EventHandler) error {
		registered = handler
		return nil
	})))
	assert.NotNil(t, registered)
}
