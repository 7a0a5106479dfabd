// Package shared holds what every roster domain package needs: error kinds,
// events and the read-only List view. It imports nothing outside the
// standard library.
package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error matches exactly one of them through
// errors.Is, which is how outer layers pick a response.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate")
	ErrNullSource = errors.New("source is absent")
	ErrValidation = errors.New("validation failed")
)

// Error is a broken roster rule. Msg is safe to show to a user.
type Error struct {
	Op   string // "student.Validate"
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Msg
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap reports a rule broken at op because of cause.
func Wrap(op string, kind error, msg string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: cause}
}

func rule(op string, kind error, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

var (
	ErrStudentNotFound   = rule("student.Find", ErrNotFound, "student not found")
	ErrDuplicateStudent  = rule("student.Add", ErrDuplicate, "operation would result in duplicate students")
	ErrInvalidName       = rule("student.Validate", ErrValidation, "names should only contain alphanumeric characters and spaces, and it should not be blank")
	ErrInvalidNationalID = rule("student.Validate", ErrValidation, "national ID should only contain letters and digits, 1-20 characters")

	ErrAttendanceNotFound    = rule("attendance.Find", ErrNotFound, "no attendance record for student")
	ErrInvalidAttendanceType = rule("attendance.Validate", ErrValidation, "attendance type must be one of PRESENT, ABSENT, NO_RECORD")

	ErrNullRosterSource = rule("taskmaster.ResetData", ErrNullSource, "roster source must not be nil")
	ErrRosterNotFound   = rule("taskmaster.Load", ErrNotFound, "no stored roster")
)

// UserMessage returns the Msg of the first Error in err's chain, or err's
// text when there is none.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool  { return errors.Is(err, ErrDuplicate) }
func IsNullSource(err error) bool { return errors.Is(err, ErrNullSource) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
