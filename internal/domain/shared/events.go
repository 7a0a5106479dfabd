package shared

import "time"

// EventType names a roster change.
type EventType string

// The aggregate never publishes these itself. Command handlers emit one after
// each successful mutation, so observers stay off the mutation path.
const (
	EventRosterReset EventType = "roster.reset"

	EventStudentAdded   EventType = "student.added"
	EventStudentEdited  EventType = "student.edited"
	EventStudentRemoved EventType = "student.removed"

	EventAttendanceMarked  EventType = "attendance.marked"
	EventAttendanceCleared EventType = "attendance.cleared"
	EventAttendanceUpdated EventType = "attendance.updated"
)

// RosterAggregateID is the aggregate id of the single roster every event refers to.
const RosterAggregateID = "roster"

// Event is something that happened to the roster.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string

	// Payload is the event-specific data, flat enough to survive JSON.
	Payload() map[string]any
}

// BaseEvent carries the fields every event has. Concrete events embed it
// and add Payload.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	Aggregate     string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{Type: t, Timestamp: time.Now(), Aggregate: RosterAggregateID}
}

func (e BaseEvent) EventType() EventType  { return e.Type }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }

// Correlation returns the id of the request that caused the event.
func (e BaseEvent) Correlation() string { return e.CorrelationID }

// Correlate ties the event to the request that caused it.
func (e *BaseEvent) Correlate(id string) { e.CorrelationID = id }

// RosterResetEvent: the registry was replaced wholesale and the ledger
// rebuilt from it.
type RosterResetEvent struct {
	BaseEvent
	StudentCount int `json:"student_count"`
}

func NewRosterResetEvent(studentCount int) RosterResetEvent {
	return RosterResetEvent{BaseEvent: newBase(EventRosterReset), StudentCount: studentCount}
}

func (e RosterResetEvent) Payload() map[string]any {
	return map[string]any{"student_count": e.StudentCount}
}

// StudentChangedEvent covers add, edit and remove. PreviousID is only set
// by an edit.
type StudentChangedEvent struct {
	BaseEvent
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	PreviousID string `json:"previous_id,omitempty"`
}

func NewStudentAddedEvent(nationalID, name string) StudentChangedEvent {
	return StudentChangedEvent{BaseEvent: newBase(EventStudentAdded), NationalID: nationalID, Name: name}
}

func NewStudentEditedEvent(previousID, nationalID, name string) StudentChangedEvent {
	return StudentChangedEvent{
		BaseEvent:  newBase(EventStudentEdited),
		NationalID: nationalID,
		Name:       name,
		PreviousID: previousID,
	}
}

func NewStudentRemovedEvent(nationalID, name string) StudentChangedEvent {
	return StudentChangedEvent{BaseEvent: newBase(EventStudentRemoved), NationalID: nationalID, Name: name}
}

func (e StudentChangedEvent) Payload() map[string]any {
	p := map[string]any{"national_id": e.NationalID, "name": e.Name}
	if e.PreviousID != "" {
		p["previous_id"] = e.PreviousID
	}
	return p
}

// AttendanceMarkedEvent: one or more records changed type. Skipped lists ids
// a best-effort bulk mark could not resolve.
type AttendanceMarkedEvent struct {
	BaseEvent
	NationalIDs    []string `json:"national_ids"`
	AttendanceType string   `json:"attendance_type"`
	Skipped        []string `json:"skipped,omitempty"`
}

func NewAttendanceMarkedEvent(ids []string, attendanceType string, skipped []string) AttendanceMarkedEvent {
	return AttendanceMarkedEvent{
		BaseEvent:      newBase(EventAttendanceMarked),
		NationalIDs:    ids,
		AttendanceType: attendanceType,
		Skipped:        skipped,
	}
}

func (e AttendanceMarkedEvent) Payload() map[string]any {
	return map[string]any{
		"national_ids":    e.NationalIDs,
		"attendance_type": e.AttendanceType,
		"skipped":         e.Skipped,
	}
}

// AttendanceBulkEvent follows a ledger-wide clear or a bulk update.
type AttendanceBulkEvent struct {
	BaseEvent
	RecordCount int `json:"record_count"`
}

func NewAttendanceClearedEvent(recordCount int) AttendanceBulkEvent {
	return AttendanceBulkEvent{BaseEvent: newBase(EventAttendanceCleared), RecordCount: recordCount}
}

func NewAttendanceUpdatedEvent(recordCount int) AttendanceBulkEvent {
	return AttendanceBulkEvent{BaseEvent: newBase(EventAttendanceUpdated), RecordCount: recordCount}
}

func (e AttendanceBulkEvent) Payload() map[string]any {
	return map[string]any{"record_count": e.RecordCount}
}

// EventHandler reacts to one event. Its error is logged by the bus, never
// returned to the publisher.
type EventHandler func(event Event) error

type EventPublisher interface {
	Publish(event Event) error
}

type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus is both ends.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
