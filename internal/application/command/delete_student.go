package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// Removes a student from the registry. The attendance record stays in the
// ledger until the next roster reset and shows up as "student not found".
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand identifies the student to remove.
type DeleteStudentCommand struct {
	NationalID    string
	CorrelationID string
}

// DeleteStudentResult contains the removed student.
type DeleteStudentResult struct {
	Student student.Student
	Events  []shared.Event
}

// DeleteStudentHandler handles the DeleteStudentCommand.
type DeleteStudentHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewDeleteStudentHandler creates a new DeleteStudentHandler.
func NewDeleteStudentHandler(roster RosterWriter, publisher shared.EventPublisher) *DeleteStudentHandler {
	return &DeleteStudentHandler{roster: roster, publisher: publisher}
}

// Handle executes the delete student command.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand) (*DeleteStudentResult, error) {
	id, err := student.NewNationalID(cmd.NationalID)
	if err != nil {
		return nil, fmt.Errorf("delete_student: %w", err)
	}

	var removed student.Student
	err = h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		name, err := tm.NameByNationalID(id)
		if err != nil {
			return err
		}
		removed = student.Student{Name: name, NationalID: id}
		return tm.RemoveStudent(removed)
	})
	if err != nil {
		return nil, fmt.Errorf("delete_student: %w", err)
	}

	event := shared.NewStudentRemovedEvent(removed.NationalID.String(), removed.Name.String())
	event.Correlate(cmd.CorrelationID)

	result := &DeleteStudentResult{
		Student: removed,
		Events:  []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
