package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET ROSTER COMMAND
// Replaces the whole registry and rebuilds the ledger from it. All previous
// attendance is discarded.
// ══════════════════════════════════════════════════════════════════════════════

// ResetRosterCommand carries the new student list, in display order.
type ResetRosterCommand struct {
	Students      []StudentInput
	CorrelationID string
}

// ResetRosterResult contains the new registry.
type ResetRosterResult struct {
	Students []student.Student
	Events   []shared.Event
}

// ResetRosterHandler handles the ResetRosterCommand.
type ResetRosterHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewResetRosterHandler creates a new ResetRosterHandler.
func NewResetRosterHandler(roster RosterWriter, publisher shared.EventPublisher) *ResetRosterHandler {
	return &ResetRosterHandler{roster: roster, publisher: publisher}
}

// Handle executes the reset roster command. An empty list is allowed and
// empties the roster.
func (h *ResetRosterHandler) Handle(ctx context.Context, cmd ResetRosterCommand) (*ResetRosterResult, error) {
	students := make([]student.Student, 0, len(cmd.Students))
	for i, in := range cmd.Students {
		s, err := student.NewStudent(in.Name, in.NationalID)
		if err != nil {
			return nil, fmt.Errorf("reset_roster: student %d: %w", i, err)
		}
		students = append(students, s)
	}

	err := h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.ResetData(&taskmaster.Snapshot{StudentList: students})
	})
	if err != nil {
		return nil, fmt.Errorf("reset_roster: %w", err)
	}

	event := shared.NewRosterResetEvent(len(students))
	event.Correlate(cmd.CorrelationID)

	result := &ResetRosterResult{
		Students: students,
		Events:   []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
