package student

import (
	"slices"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// Упорядоченный список студентов без дубликатов (по IsSameStudent).
// ══════════════════════════════════════════════════════════════════════════════

// Registry хранит студентов в порядке добавления и гарантирует, что в нём
// нет двух студентов с одинаковой личностью. Нулевое значение готово к работе.
type Registry struct {
	students []Student
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{}
}

// Contains возвращает true, если в реестре есть студент с той же личностью.
func (r *Registry) Contains(s Student) bool {
	return r.indexOf(s) >= 0
}

// Add добавляет студента в конец списка.
// Возвращает ErrDuplicateStudent, если такой студент уже есть.
func (r *Registry) Add(s Student) error {
	if r.Contains(s) {
		return shared.ErrDuplicateStudent
	}
	r.students = append(r.students, s)
	return nil
}

// SetStudent заменяет target на replacement, сохраняя позицию.
// Возвращает ErrStudentNotFound, если target нет в реестре, и
// ErrDuplicateStudent, если replacement совпадает с другим студентом.
func (r *Registry) SetStudent(target, replacement Student) error {
	idx := r.indexOf(target)
	if idx < 0 {
		return shared.ErrStudentNotFound
	}

	if !target.IsSameStudent(replacement) && r.Contains(replacement) {
		return shared.ErrDuplicateStudent
	}

	r.students[idx] = replacement
	return nil
}

// Remove удаляет студента.
// Возвращает ErrStudentNotFound, если студента нет в реестре.
func (r *Registry) Remove(s Student) error {
	idx := r.indexOf(s)
	if idx < 0 {
		return shared.ErrStudentNotFound
	}
	r.students = append(r.students[:idx], r.students[idx+1:]...)
	return nil
}

// SetStudents полностью заменяет содержимое реестра.
// Возвращает ErrDuplicateStudent, если во входном списке есть дубликаты;
// в этом случае реестр не меняется.
func (r *Registry) SetStudents(students []Student) error {
	if !AreUnique(students) {
		return shared.ErrDuplicateStudent
	}

	replacement := make([]Student, len(students))
	copy(replacement, students)
	r.students = replacement
	return nil
}

// Find возвращает студента с указанным идентификатором.
func (r *Registry) Find(id NationalID) (Student, bool) {
	for _, s := range r.students {
		if s.NationalID == id {
			return s, true
		}
	}
	return Student{}, false
}

// Clone возвращает независимую копию реестра.
func (r *Registry) Clone() *Registry {
	return &Registry{students: slices.Clone(r.students)}
}

// View возвращает живое представление только для чтения.
// Последующие изменения реестра видны через уже выданное представление.
func (r *Registry) View() shared.List[Student] {
	return shared.NewList(&r.students)
}

// Len возвращает количество студентов.
func (r *Registry) Len() int {
	return len(r.students)
}

// Equal сравнивает реестры поэлементно с учётом порядка.
func (r *Registry) Equal(other *Registry) bool {
	if r == other {
		return true
	}
	if other == nil || len(r.students) != len(other.students) {
		return false
	}
	for i := range r.students {
		if !r.students[i].Equal(other.students[i]) {
			return false
		}
	}
	return true
}

func (r *Registry) indexOf(s Student) int {
	for i := range r.students {
		if r.students[i].IsSameStudent(s) {
			return i
		}
	}
	return -1
}

// AreUnique возвращает true, если в списке нет двух студентов с одинаковой личностью.
func AreUnique(students []Student) bool {
	seen := make(map[NationalID]struct{}, len(students))
	for _, s := range students {
		if _, ok := seen[s.NationalID]; ok {
			return false
		}
		seen[s.NationalID] = struct{}{}
	}
	return true
}
