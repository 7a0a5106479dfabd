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
// MARK ATTENDANCE COMMANDS
// MarkAttendance is strict and touches one record. MarkAllAttendance is
// best-effort: ids without a ledger record are skipped and reported, every
// other id is still marked.
// ══════════════════════════════════════════════════════════════════════════════

// MarkAttendanceCommand marks one student.
type MarkAttendanceCommand struct {
	NationalID    string
	Type          string
	CorrelationID string
}

// MarkAttendanceResult contains the applied record.
type MarkAttendanceResult struct {
	Attendance attendance.Attendance
	Events     []shared.Event
}

// MarkAttendanceHandler handles the MarkAttendanceCommand.
type MarkAttendanceHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewMarkAttendanceHandler creates a new MarkAttendanceHandler.
func NewMarkAttendanceHandler(roster RosterWriter, publisher shared.EventPublisher) *MarkAttendanceHandler {
	return &MarkAttendanceHandler{roster: roster, publisher: publisher}
}

// Handle executes the mark attendance command.
func (h *MarkAttendanceHandler) Handle(ctx context.Context, cmd MarkAttendanceCommand) (*MarkAttendanceResult, error) {
	id, err := student.NewNationalID(cmd.NationalID)
	if err != nil {
		return nil, fmt.Errorf("mark_attendance: %w", err)
	}
	at, err := attendance.ParseType(cmd.Type)
	if err != nil {
		return nil, fmt.Errorf("mark_attendance: %w", err)
	}

	err = h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.MarkStudentByNationalID(id, at)
	})
	if err != nil {
		return nil, fmt.Errorf("mark_attendance: %w", err)
	}

	event := shared.NewAttendanceMarkedEvent([]string{id.String()}, at.String(), nil)
	event.Correlate(cmd.CorrelationID)

	result := &MarkAttendanceResult{
		Attendance: attendance.New(id, at),
		Events:     []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}

// MarkAllAttendanceCommand marks many students with the same type.
type MarkAllAttendanceCommand struct {
	NationalIDs   []string
	Type          string
	CorrelationID string
}

// Validate validates the command.
func (c MarkAllAttendanceCommand) Validate() error {
	if len(c.NationalIDs) == 0 {
		return fmt.Errorf("%w: national_ids must not be empty", shared.ErrValidation)
	}
	return nil
}

// MarkAllAttendanceResult reports which ids were marked and which were skipped.
type MarkAllAttendanceResult struct {
	Type    attendance.Type
	Marked  []student.NationalID
	Skipped []student.NationalID
	Events  []shared.Event
}

// MarkAllAttendanceHandler handles the MarkAllAttendanceCommand.
type MarkAllAttendanceHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewMarkAllAttendanceHandler creates a new MarkAllAttendanceHandler.
func NewMarkAllAttendanceHandler(roster RosterWriter, publisher shared.EventPublisher) *MarkAllAttendanceHandler {
	return &MarkAllAttendanceHandler{roster: roster, publisher: publisher}
}

// Handle executes the bulk mark. Unknown ids do not fail the command; they are
// returned in Skipped.
func (h *MarkAllAttendanceHandler) Handle(ctx context.Context, cmd MarkAllAttendanceCommand) (*MarkAllAttendanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("mark_all_attendance: validation failed: %w", err)
	}

	at, err := attendance.ParseType(cmd.Type)
	if err != nil {
		return nil, fmt.Errorf("mark_all_attendance: %w", err)
	}

	ids := make([]student.NationalID, 0, len(cmd.NationalIDs))
	for _, raw := range cmd.NationalIDs {
		id, err := student.NewNationalID(raw)
		if err != nil {
			return nil, fmt.Errorf("mark_all_attendance: %q: %w", raw, err)
		}
		ids = append(ids, id)
	}

	err = h.roster.WriteBestEffort(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.MarkAllAttendance(ids, at)
	})

	result := &MarkAllAttendanceResult{Type: at}

	// A bare MissingRecordsError means the rest was applied and saved. Anything
	// else, including a joined save failure, fails the command.
	if missing, ok := err.(*attendance.MissingRecordsError); ok {
		result.Skipped = missing.IDs
	} else if err != nil {
		return nil, fmt.Errorf("mark_all_attendance: %w", err)
	}

	skipped := make(map[student.NationalID]struct{}, len(result.Skipped))
	for _, id := range result.Skipped {
		skipped[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := skipped[id]; !ok {
			result.Marked = append(result.Marked, id)
		}
	}

	event := shared.NewAttendanceMarkedEvent(idStrings(result.Marked), at.String(), idStrings(result.Skipped))
	event.Correlate(cmd.CorrelationID)
	result.Events = []shared.Event{event}
	publish(h.publisher, result.Events)

	return result, nil
}

func idStrings(ids []student.NationalID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
