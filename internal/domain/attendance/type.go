// Package attendance models the per-student attendance record of the current session.
package attendance

import (
	"strings"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

// Type is the attendance status of a student. The set is closed.
type Type string

const (
	// TypePresent - the student attended.
	TypePresent Type = "PRESENT"
	// TypeAbsent - the student did not attend.
	TypeAbsent Type = "ABSENT"
	// TypeNoRecord - nothing has been recorded yet.
	TypeNoRecord Type = "NO_RECORD"
)

// Types returns every attendance type, in display order.
func Types() []Type {
	return []Type{TypePresent, TypeAbsent, TypeNoRecord}
}

// IsValid checks that the type belongs to the closed set.
func (t Type) IsValid() bool {
	switch t {
	case TypePresent, TypeAbsent, TypeNoRecord:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// ParseType parses a type case-insensitively. "no record" and "no-record" are
// accepted as spellings of NO_RECORD.
func ParseType(value string) (Type, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	t := Type(normalized)
	if !t.IsValid() {
		return "", shared.ErrInvalidAttendanceType
	}
	return t, nil
}
