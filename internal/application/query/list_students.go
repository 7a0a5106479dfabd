package query

import (
	"context"

	"github.com/alem-hub/taskmaster/internal/application/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// Возвращает реестр в порядке отображения вместе с отпечатком для ETag.
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery - параметры запроса списка студентов.
type ListStudentsQuery struct{}

// ListStudentsResult - результат запроса.
type ListStudentsResult struct {
	Students    []StudentDTO `json:"students"`
	Total       int          `json:"total"`
	Fingerprint string       `json:"fingerprint"`
}

// ListStudentsHandler обрабатывает ListStudentsQuery.
type ListStudentsHandler struct {
	roster RosterReader
}

// NewListStudentsHandler создаёт обработчик.
func NewListStudentsHandler(r RosterReader) *ListStudentsHandler {
	return &ListStudentsHandler{roster: r}
}

// Handle выполняет запрос.
func (h *ListStudentsHandler) Handle(ctx context.Context, q ListStudentsQuery) (*ListStudentsResult, error) {
	result := &ListStudentsResult{Students: []StudentDTO{}}

	err := h.roster.Read(func(r roster.Reader) error {
		students := r.Students()
		for s := range students.Values() {
			result.Students = append(result.Students, toStudentDTO(s))
		}
		result.Fingerprint = Fingerprint(students)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Total = len(result.Students)
	return result, nil
}
