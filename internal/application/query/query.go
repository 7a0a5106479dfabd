// Package query contains read operations (CQRS - Queries).
//
// Запросы работают с живым реестром под разделяемой блокировкой и
// возвращают отсоединённые DTO: после выхода из обработчика результат
// больше не меняется вместе с реестром.
package query

import (
	"github.com/alem-hub/taskmaster/internal/application/roster"
	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// RosterReader - сторона чтения живого реестра (см. roster.Holder).
type RosterReader interface {
	Read(fn func(r roster.Reader) error) error
}

// StudentDTO - студент в ответе API.
type StudentDTO struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
}

func toStudentDTO(s student.Student) StudentDTO {
	return StudentDTO{NationalID: s.NationalID.String(), Name: s.Name.String()}
}

// AttendanceDTO - запись посещаемости в ответе API.
type AttendanceDTO struct {
	NationalID string `json:"national_id"`
	Type       string `json:"type"`
}

func toAttendanceDTO(a attendance.Attendance) AttendanceDTO {
	return AttendanceDTO{NationalID: a.NationalID.String(), Type: a.Type.String()}
}

// NamedAttendanceDTO - запись посещаемости с именем студента.
type NamedAttendanceDTO struct {
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`

	// Resolved - false, если студента с этим идентификатором уже нет в реестре.
	Resolved bool `json:"resolved"`
}

func toNamedAttendanceDTO(n attendance.NamedAttendance) NamedAttendanceDTO {
	return NamedAttendanceDTO{
		NationalID: n.Attendance.NationalID.String(),
		Name:       n.Name.String(),
		Type:       n.Attendance.Type.String(),
		Resolved:   n.IsResolved(),
	}
}
