package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE ATTENDANCES COMMAND
// Imports a batch of attendance records. All or nothing: one unknown id fails
// the whole batch and the ledger is left as it was.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateAttendancesCommand carries the records to apply.
type UpdateAttendancesCommand struct {
	Records       []AttendanceInput
	CorrelationID string
}

// UpdateAttendancesResult reports the applied records.
type UpdateAttendancesResult struct {
	Records []attendance.Attendance
	Events  []shared.Event
}

// UpdateAttendancesHandler handles the UpdateAttendancesCommand.
type UpdateAttendancesHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewUpdateAttendancesHandler creates a new UpdateAttendancesHandler.
func NewUpdateAttendancesHandler(roster RosterWriter, publisher shared.EventPublisher) *UpdateAttendancesHandler {
	return &UpdateAttendancesHandler{roster: roster, publisher: publisher}
}

// Handle executes the update attendances command.
func (h *UpdateAttendancesHandler) Handle(ctx context.Context, cmd UpdateAttendancesCommand) (*UpdateAttendancesResult, error) {
	records := make([]attendance.Attendance, 0, len(cmd.Records))
	for i, in := range cmd.Records {
		id, err := student.NewNationalID(in.NationalID)
		if err != nil {
			return nil, fmt.Errorf("update_attendances: record %d: %w", i, err)
		}
		at, err := attendance.ParseType(in.Type)
		if err != nil {
			return nil, fmt.Errorf("update_attendances: record %d: %w", i, err)
		}
		records = append(records, attendance.New(id, at))
	}

	err := h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.UpdateAttendances(records)
	})
	if err != nil {
		return nil, fmt.Errorf("update_attendances: %w", err)
	}

	event := shared.NewAttendanceUpdatedEvent(len(records))
	event.Correlate(cmd.CorrelationID)

	result := &UpdateAttendancesResult{
		Records: records,
		Events:  []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
