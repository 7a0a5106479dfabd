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
// ADD STUDENT COMMAND
// Registers a new student. The attendance ledger is left alone: the student
// gets a record at the next roster reset.
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand contains the data of the student to add.
type AddStudentCommand struct {
	// Name is the full name.
	Name string

	// NationalID is the student's identifier.
	NationalID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AddStudentCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if strings.TrimSpace(c.NationalID) == "" {
		return fmt.Errorf("%w: national_id is required", shared.ErrValidation)
	}
	return nil
}

// AddStudentResult contains the result of adding a student.
type AddStudentResult struct {
	// Student is the registered student, normalised.
	Student student.Student

	// Events contains domain events generated.
	Events []shared.Event
}

// AddStudentHandler handles the AddStudentCommand.
type AddStudentHandler struct {
	roster    RosterWriter
	publisher shared.EventPublisher
}

// NewAddStudentHandler creates a new AddStudentHandler.
func NewAddStudentHandler(roster RosterWriter, publisher shared.EventPublisher) *AddStudentHandler {
	return &AddStudentHandler{roster: roster, publisher: publisher}
}

// Handle executes the add student command.
func (h *AddStudentHandler) Handle(ctx context.Context, cmd AddStudentCommand) (*AddStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_student: validation failed: %w", err)
	}

	s, err := student.NewStudent(cmd.Name, cmd.NationalID)
	if err != nil {
		return nil, fmt.Errorf("add_student: %w", err)
	}

	err = h.roster.Write(ctx, func(tm *taskmaster.Taskmaster) error {
		return tm.AddStudent(s)
	})
	if err != nil {
		return nil, fmt.Errorf("add_student: %w", err)
	}

	event := shared.NewStudentAddedEvent(s.NationalID.String(), s.Name.String())
	event.Correlate(cmd.CorrelationID)

	result := &AddStudentResult{
		Student: s,
		Events:  []shared.Event{event},
	}
	publish(h.publisher, result.Events)

	return result, nil
}
