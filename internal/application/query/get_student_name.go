package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/taskmaster/internal/application/roster"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// GetStudentNameQuery - поиск имени по идентификатору.
type GetStudentNameQuery struct {
	NationalID string
}

// GetStudentNameResult - найденное имя.
type GetStudentNameResult struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
}

// GetStudentNameHandler обрабатывает GetStudentNameQuery.
type GetStudentNameHandler struct {
	roster RosterReader
}

// NewGetStudentNameHandler создаёт обработчик.
func NewGetStudentNameHandler(r RosterReader) *GetStudentNameHandler {
	return &GetStudentNameHandler{roster: r}
}

// Handle выполняет запрос. Возвращает ErrStudentNotFound, если студента нет в реестре.
func (h *GetStudentNameHandler) Handle(ctx context.Context, q GetStudentNameQuery) (*GetStudentNameResult, error) {
	id, err := student.NewNationalID(q.NationalID)
	if err != nil {
		return nil, fmt.Errorf("get_student_name: %w", err)
	}

	var name student.Name
	err = h.roster.Read(func(r roster.Reader) error {
		name, err = r.NameByNationalID(id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get_student_name: %w", err)
	}

	return &GetStudentNameResult{NationalID: id.String(), Name: name.String()}, nil
}
