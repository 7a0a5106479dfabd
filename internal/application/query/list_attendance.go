package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/application/roster"
	"github.com/alem-hub/taskmaster/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ATTENDANCE QUERIES
// ListAttendance отдаёт записи журнала как есть, ListNamedAttendance - с
// именами студентов. Обе поддерживают фильтр по типу посещаемости.
// ══════════════════════════════════════════════════════════════════════════════

// ListAttendanceQuery - параметры запроса журнала.
type ListAttendanceQuery struct {
	// Type - фильтр по типу (пустой = все записи).
	Type string
}

func (q ListAttendanceQuery) filter() (func(attendance.Type) bool, error) {
	if q.Type == "" {
		return func(attendance.Type) bool { return true }, nil
	}
	want, err := attendance.ParseType(q.Type)
	if err != nil {
		return nil, err
	}
	return func(t attendance.Type) bool { return t == want }, nil
}

// ListAttendanceResult - записи журнала в порядке журнала.
type ListAttendanceResult struct {
	Records []AttendanceDTO `json:"records"`
	Total   int             `json:"total"`
}

// ListAttendanceHandler обрабатывает ListAttendanceQuery.
type ListAttendanceHandler struct {
	roster RosterReader
}

// NewListAttendanceHandler создаёт обработчик.
func NewListAttendanceHandler(r RosterReader) *ListAttendanceHandler {
	return &ListAttendanceHandler{roster: r}
}

// Handle выполняет запрос.
func (h *ListAttendanceHandler) Handle(ctx context.Context, q ListAttendanceQuery) (*ListAttendanceResult, error) {
	keep, err := q.filter()
	if err != nil {
		return nil, fmt.Errorf("list_attendance: %w", err)
	}

	result := &ListAttendanceResult{Records: []AttendanceDTO{}}
	err = h.roster.Read(func(r roster.Reader) error {
		for a := range r.Attendances().Values() {
			if keep(a.Type) {
				result.Records = append(result.Records, toAttendanceDTO(a))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Total = len(result.Records)
	return result, nil
}

// ListNamedAttendanceResult - записи журнала с именами.
type ListNamedAttendanceResult struct {
	Records []NamedAttendanceDTO `json:"records"`
	Total   int                  `json:"total"`

	// Unresolved - сколько записей ссылаются на удалённых студентов.
	Unresolved int `json:"unresolved"`
}

// ListNamedAttendanceHandler обрабатывает ListAttendanceQuery, добавляя имена.
type ListNamedAttendanceHandler struct {
	roster RosterReader
}

// NewListNamedAttendanceHandler создаёт обработчик.
func NewListNamedAttendanceHandler(r RosterReader) *ListNamedAttendanceHandler {
	return &ListNamedAttendanceHandler{roster: r}
}

// Handle выполняет запрос.
func (h *ListNamedAttendanceHandler) Handle(ctx context.Context, q ListAttendanceQuery) (*ListNamedAttendanceResult, error) {
	keep, err := q.filter()
	if err != nil {
		return nil, fmt.Errorf("list_named_attendance: %w", err)
	}

	result := &ListNamedAttendanceResult{Records: []NamedAttendanceDTO{}}
	err = h.roster.Read(func(r roster.Reader) error {
		for n := range r.NamedAttendances().Values() {
			if !keep(n.Attendance.Type) {
				continue
			}
			dto := toNamedAttendanceDTO(n)
			if !dto.Resolved {
				result.Unresolved++
			}
			result.Records = append(result.Records, dto)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Total = len(result.Records)
	return result, nil
}
