// Package student содержит доменную модель студента учебной группы.
//
// Пакет определяет:
//
//   - Value Objects: Name, NationalID
//   - Сущность Student (неизменяемое значение, идентичность по NationalID)
//   - Registry - упорядоченный реестр студентов без дубликатов
//
// # Архитектурные принципы
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Ошибки - доменные ошибки из пакета shared, проверяются через errors.Is
//  3. Однопоточная модель - сериализацию вызовов обеспечивает прикладной слой
//
// # Пример использования
//
//	reg := NewRegistry()
//	alice, err := NewStudent("Alice", "A0001")
//	if err != nil {
//	    return err
//	}
//	if err := reg.Add(alice); err != nil {
//	    // shared.ErrDuplicateStudent
//	}
//
//	students := reg.View() // живое представление только для чтения
package student
