package student

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Name представляет полное имя студента.
type Name string

// MaxNameLength - максимальная длина имени в символах.
const MaxNameLength = 100

// StudentNotFoundName - имя-заглушка для записи посещаемости, чей студент
// больше не найден в реестре.
const StudentNotFoundName Name = "student not found"

// Имя: буквы, цифры и пробелы, первый символ не пробел.
var nameRegex = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ]*$`)

// IsValid проверяет корректность имени.
func (n Name) IsValid() bool {
	s := string(n)
	return utf8.RuneCountInString(s) <= MaxNameLength && nameRegex.MatchString(s)
}

// String возвращает строковое представление имени.
func (n Name) String() string {
	return string(n)
}

// NewName создаёт имя с валидацией. Пробелы по краям обрезаются.
func NewName(value string) (Name, error) {
	n := Name(strings.TrimSpace(value))
	if !n.IsValid() {
		return "", shared.ErrInvalidName
	}
	return n, nil
}

// NationalID - стабильный идентификатор студента, уникальный в пределах реестра.
// Никогда не переназначается другому студенту.
type NationalID string

var nationalIDRegex = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// IsValid проверяет формат идентификатора.
func (id NationalID) IsValid() bool {
	return nationalIDRegex.MatchString(string(id))
}

// String возвращает строковое представление идентификатора.
func (id NationalID) String() string {
	return string(id)
}

// Normalize приводит идентификатор к каноническому виду (верхний регистр, без пробелов).
func (id NationalID) Normalize() NationalID {
	return NationalID(strings.ToUpper(strings.TrimSpace(string(id))))
}

// NewNationalID создаёт идентификатор с валидацией.
func NewNationalID(value string) (NationalID, error) {
	id := NationalID(value).Normalize()
	if !id.IsValid() {
		return "", shared.ErrInvalidNationalID
	}
	return id, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student - студент в реестре группы. Значение неизменяемо: редактирование
// происходит заменой всей записи.
type Student struct {
	// Name - полное имя.
	Name Name `json:"name"`

	// NationalID - идентификатор, по которому определяется личность студента.
	NationalID NationalID `json:"national_id"`
}

// NewStudent создаёт студента с валидацией всех полей.
func NewStudent(name, nationalID string) (Student, error) {
	n, err := NewName(name)
	if err != nil {
		return Student{}, err
	}

	id, err := NewNationalID(nationalID)
	if err != nil {
		return Student{}, err
	}

	return Student{Name: n, NationalID: id}, nil
}

// IsSameStudent возвращает true, если оба значения описывают одного и того же
// студента. Личность определяется только идентификатором.
func (s Student) IsSameStudent(other Student) bool {
	return s.NationalID == other.NationalID
}

// Equal возвращает true, если совпадают все поля.
func (s Student) Equal(other Student) bool {
	return s == other
}

// String возвращает строковое представление студента для логирования.
func (s Student) String() string {
	return fmt.Sprintf("Student{ID: %s, Name: %s}", s.NationalID, s.Name)
}
