package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ClearAttendanceCommand resets every ledger record to NO_RECORD.
type ClearAttendanceCommand struct {
	CorrelationID string
}

// ClearAttendanceResult reports how many records were cleared.
type ClearAttendanceResult struct {
	RecordCount int
	Events      []shared.Event
}

// ClearAttendanceHandler handles the ClearAttendanceCommand.
type ClearAttendanceHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewClearAttendanceHandler creates a new ClearAttendanceHandler.
func NewClearAttendanceHandler(roster RosterWriter, publisher shared.EventPublisher) *ClearAttendanceHandler {
	return &ClearAttendanceHandler{roster: roster, publisher: publisher}
}

// Handle executes the clear attendance command.
func (h *ClearAttendanceHandler) Handle(ctx context.Context, cmd ClearAttendanceCommand) (*ClearAttendanceResult, error) {
	var count int
	err := h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		tm.ClearAttendance()
		count = tm.Attendances().Len()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("clear_attendance: %w", err)
	}

	event := shared.NewAttendanceClearedEvent(count)
	event.Correlate(cmd.CorrelationID)

	result := &ClearAttendanceResult{
		RecordCount: count,
		Events:      []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
