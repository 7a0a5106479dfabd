package query

import (
	"context"

	"github.com/alem-hub/taskmaster/internal/application/roster"
	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ROSTER SUMMARY QUERY
// Сводка по группе: сколько студентов, сколько отмечено каждым типом и
// насколько журнал разошёлся с реестром после последнего сброса.
// ══════════════════════════════════════════════════════════════════════════════

// GetRosterSummaryQuery не имеет параметров.
type GetRosterSummaryQuery struct{}

// RosterSummaryDTO - сводка по реестру и журналу.
type RosterSummaryDTO struct {
	Students int `json:"students"`
	Records  int `json:"records"`

	Present  int `json:"present"`
	Absent   int `json:"absent"`
	NoRecord int `json:"no_record"`

	// Unregistered - записи журнала, чьих студентов уже нет в реестре.
	Unregistered int `json:"unregistered"`

	// Untracked - студенты, добавленные после сброса и не имеющие записи.
	Untracked int `json:"untracked"`

	Fingerprint string `json:"fingerprint"`
}

// GetRosterSummaryHandler обрабатывает GetRosterSummaryQuery.
type GetRosterSummaryHandler struct {
	roster RosterReader
}

// NewGetRosterSummaryHandler создаёт обработчик.
func NewGetRosterSummaryHandler(r RosterReader) *GetRosterSummaryHandler {
	return &GetRosterSummaryHandler{roster: r}
}

// Handle выполняет запрос.
func (h *GetRosterSummaryHandler) Handle(ctx context.Context, q GetRosterSummaryQuery) (*RosterSummaryDTO, error) {
	var dto RosterSummaryDTO

	err := h.roster.Read(func(r roster.Reader) error {
		students := r.Students()
		records := r.Attendances()

		dto.Students = students.Len()
		dto.Records = records.Len()
		dto.Fingerprint = Fingerprint(students)

		registered := make(map[student.NationalID]struct{}, students.Len())
		for s := range students.Values() {
			registered[s.NationalID] = struct{}{}
		}

		tracked := make(map[student.NationalID]struct{}, records.Len())
		for a := range records.Values() {
			tracked[a.NationalID] = struct{}{}

			switch a.Type {
			case attendance.TypePresent:
				dto.Present++
			case attendance.TypeAbsent:
				dto.Absent++
			default:
				dto.NoRecord++
			}

			if _, ok := registered[a.NationalID]; !ok {
				dto.Unregistered++
			}
		}

		for id := range registered {
			if _, ok := tracked[id]; !ok {
				dto.Untracked++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto, nil
}
