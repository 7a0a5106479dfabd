package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT STUDENT COMMAND
// Replaces a registered student in place. Changing the NationalID does not
// move the student's attendance record.
// ══════════════════════════════════════════════════════════════════════════════

// EditStudentCommand contains the edit to apply.
type EditStudentCommand struct {
	// NationalID identifies the student to edit.
	NationalID string

	// Name is the new full name.
	Name string

	// NewNationalID is the new identifier. Empty keeps the current one.
	NewNationalID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EditStudentCommand) Validate() error {
	if strings.TrimSpace(c.NationalID) == "" {
		return fmt.Errorf("%w: national_id is required", shared.ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	return nil
}

// EditStudentResult contains the result of an edit.
type EditStudentResult struct {
	// PreviousID is the identifier the student had before the edit.
	PreviousID student.NationalID

	// Student is the student after the edit.
	Student student.Student

	// Events contains domain events generated.
	Events []shared.Event
}

// EditStudentHandler handles the EditStudentCommand.
type EditStudentHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewEditStudentHandler creates a new EditStudentHandler.
func NewEditStudentHandler(roster RosterWriter, publisher shared.EventPublisher) *EditStudentHandler {
	return &EditStudentHandler{roster: roster, publisher: publisher}
}

// Handle executes the edit student command.
func (h *EditStudentHandler) Handle(ctx context.Context, cmd EditStudentCommand) (*EditStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("edit_student: validation failed: %w", err)
	}

	currentID, err := student.NewNationalID(cmd.NationalID)
	if err != nil {
		return nil, fmt.Errorf("edit_student: %w", err)
	}

	newID := cmd.NewNationalID
	if strings.TrimSpace(newID) == "" {
		newID = currentID.String()
	}

	edited, err := student.NewStudent(cmd.Name, newID)
	if err != nil {
		return nil, fmt.Errorf("edit_student: %w", err)
	}

	// Identity is the NationalID alone, so the target needs no name.
	target := student.Student{NationalID: currentID}
	err = h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.SetStudent(target, edited)
	})
	if err != nil {
		return nil, fmt.Errorf("edit_student: %w", err)
	}

	event := shared.NewStudentEditedEvent(currentID.String(), edited.NationalID.String(), edited.Name.String())
	event.Correlate(cmd.CorrelationID)

	result := &EditStudentResult{
		PreviousID: currentID,
		Student:    edited,
		Events:     []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
