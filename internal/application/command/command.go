// Package command contains write operations (CQRS - Commands).
//
// Every handler validates its command, applies it to the live roster under the
// roster's write lock and publishes the resulting domain events.
package command

import (
	"context"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
)

// RosterWriter is the write side of the live roster (see roster.Holder).
type RosterWriter interface {
	// Write applies fn and persists the roster if fn succeeds.
	Write(ctx context.Context, fn func(tm *taskmaster.Taskmaster) error) error

	// WriteBestEffort applies fn and persists the roster regardless of its error.
	WriteBestEffort(ctx context.Context, fn func(tm *taskmaster.Taskmaster) error) error
}

// StudentInput is the raw form of a student as it arrives from a client.
type StudentInput struct {
	Name       string
	NationalID string
}

// AttendanceInput is the raw form of an attendance record.
type AttendanceInput struct {
	NationalID string
	Type       string
}

// publish sends events; delivery failures do not fail the command.
func publish(p shared.EventPublisher, events []shared.Event) {
	if p == nil {
		return
	}
	for _, e := range events {
		_ = p.Publish(e)
	}
}
