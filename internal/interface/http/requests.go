package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/taskmaster/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST BODIES
// ══════════════════════════════════════════════════════════════════════════════

// Field-level checks here only reject malformed requests; the domain still
// owns the rules for names, ids and attendance types.

// StudentRequest is the body of POST /api/v1/students and one entry of a reset.
type StudentRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	NationalID string `json:"national_id" validate:"required,max=64"`
}

func (r StudentRequest) input() command.StudentInput {
	return command.StudentInput{Name: r.Name, NationalID: r.NationalID}
}

// EditStudentRequest is the body of PUT /api/v1/students/{id}.
type EditStudentRequest struct {
	Name string `json:"name" validate:"required,max=200"`

	// Empty keeps the current id.
	NationalID string `json:"national_id,omitempty" validate:"omitempty,max=64"`
}

// MarkAttendanceRequest is the body of PUT /api/v1/attendance/{id}.
type MarkAttendanceRequest struct {
	Type string `json:"type" validate:"required"`
}

// MarkAllRequest is the body of POST /api/v1/attendance/mark-all.
type MarkAllRequest struct {
	NationalIDs []string `json:"national_ids" validate:"required,min=1,dive,required,max=64"`
	Type        string   `json:"type" validate:"required"`
}

// AttendanceRecordRequest is one record of an attendance import.
type AttendanceRecordRequest struct {
	NationalID string `json:"national_id" validate:"required,max=64"`
	Type       string `json:"type" validate:"required"`
}

// ImportAttendanceRequest is the body of POST /api/v1/attendance/import.
type ImportAttendanceRequest struct {
	Records []AttendanceRecordRequest `json:"records" validate:"required,dive"`
}

func (r ImportAttendanceRequest) inputs() []command.AttendanceInput {
	out := make([]command.AttendanceInput, len(r.Records))
	for i, rec := range r.Records {
		out[i] = command.AttendanceInput{NationalID: rec.NationalID, Type: rec.Type}
	}
	return out
}

// ResetRosterRequest is the body of POST /api/v1/roster/reset. An empty list
// empties the roster; a missing one is rejected.
type ResetRosterRequest struct {
	Students []StudentRequest `json:"students" validate:"required,dive"`
}

func (r ResetRosterRequest) inputs() []command.StudentInput {
	out := make([]command.StudentInput, len(r.Students))
	for i, s := range r.Students {
		out[i] = s.input()
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// DECODING
// ══════════════════════════════════════════════════════════════════════════════

var errEmptyBody = errors.New("request body is empty")

// requestError is a malformed request body.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so errors match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON value into dst and validates it.
func (s *Server) decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return err
		case errors.Is(err, io.EOF):
			return &requestError{errEmptyBody}
		default:
			return &requestError{fmt.Errorf("invalid JSON: %w", err)}
		}
	}
	if dec.More() {
		return &requestError{errors.New("request body must hold a single JSON value")}
	}

	return s.validate.Struct(dst)
}

// validationDetails maps each failing field to the rule it broke.
func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		// Namespace is "ResetRosterRequest.students[0].name"; drop the type.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[field] = rule
	}
	return details
}
