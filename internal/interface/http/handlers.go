package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/taskmaster/internal/application/command"
	"github.com/alem-hub/taskmaster/internal/application/query"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Taskmaster API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":     "/health",
			"students":   "/api/v1/students",
			"attendance": "/api/v1/attendance",
			"summary":    "/api/v1/attendance/summary",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"uptime":  s.Uptime().String(),
			"version": s.config.Version,
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSONErrorWithDetails(w, r, http.StatusServiceUnavailable, "not_ready", status.Message, status.Checks)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListStudents handles GET /api/v1/students.
// The registry fingerprint doubles as a strong ETag.
func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListStudents.Handle(r.Context(), query.ListStudentsQuery{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	etag := `"` + result.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleGetStudentName handles GET /api/v1/students/{id}/name.
func (s *Server) handleGetStudentName(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetStudentName.Handle(r.Context(), query.GetStudentNameQuery{
		NationalID: r.PathValue("id"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleAddStudent handles POST /api/v1/students.
func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.AddStudent.Handle(r.Context(), command.AddStudentCommand{
		Name:          req.Name,
		NationalID:    req.NationalID,
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dto := query.StudentDTO{NationalID: result.Student.NationalID.String(), Name: result.Student.Name.String()}
	w.Header().Set("Location", "/api/v1/students/"+url.PathEscape(dto.NationalID))
	writeJSON(w, r, http.StatusCreated, dto)
}

// handleEditStudent handles PUT /api/v1/students/{id}.
func (s *Server) handleEditStudent(w http.ResponseWriter, r *http.Request) {
	var req EditStudentRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.EditStudent.Handle(r.Context(), command.EditStudentCommand{
		NationalID:    r.PathValue("id"),
		Name:          req.Name,
		NewNationalID: req.NationalID,
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"previous_id": result.PreviousID.String(),
		"student": query.StudentDTO{
			NationalID: result.Student.NationalID.String(),
			Name:       result.Student.Name.String(),
		},
	})
}

// handleDeleteStudent handles DELETE /api/v1/students/{id}.
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.DeleteStudent.Handle(r.Context(), command.DeleteStudentCommand{
		NationalID:    r.PathValue("id"),
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, query.StudentDTO{
		NationalID: result.Student.NationalID.String(),
		Name:       result.Student.Name.String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListAttendance handles GET /api/v1/attendance[?type=PRESENT].
func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListAttendance.Handle(r.Context(), query.ListAttendanceQuery{
		Type: r.URL.Query().Get("type"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleListNamedAttendance handles GET /api/v1/attendance/named[?type=...].
func (s *Server) handleListNamedAttendance(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListNamedAttendance.Handle(r.Context(), query.ListAttendanceQuery{
		Type: r.URL.Query().Get("type"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: result.Total})
}

// handleRosterSummary handles GET /api/v1/attendance/summary.
func (s *Server) handleRosterSummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetRosterSummary.Handle(r.Context(), query.GetRosterSummaryQuery{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleMarkAttendance handles PUT /api/v1/attendance/{id}.
func (s *Server) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	var req MarkAttendanceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.MarkAttendance.Handle(r.Context(), command.MarkAttendanceCommand{
		NationalID:    r.PathValue("id"),
		Type:          req.Type,
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, query.AttendanceDTO{
		NationalID: result.Attendance.NationalID.String(),
		Type:       result.Attendance.Type.String(),
	})
}

// handleMarkAll handles POST /api/v1/attendance/mark-all.
// Ids without a ledger record are skipped and reported, not rejected.
func (s *Server) handleMarkAll(w http.ResponseWriter, r *http.Request) {
	var req MarkAllRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.MarkAllAttendance.Handle(r.Context(), command.MarkAllAttendanceCommand{
		NationalIDs:   req.NationalIDs,
		Type:          req.Type,
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	marked := make([]string, len(result.Marked))
	for i, id := range result.Marked {
		marked[i] = id.String()
	}
	skipped := make([]string, len(result.Skipped))
	for i, id := range result.Skipped {
		skipped[i] = id.String()
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"type":    result.Type.String(),
		"marked":  marked,
		"skipped": skipped,
	})
}

// handleClearAttendance handles POST /api/v1/attendance/clear.
func (s *Server) handleClearAttendance(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ClearAttendance.Handle(r.Context(), command.ClearAttendanceCommand{
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"record_count": result.RecordCount})
}

// handleImportAttendance handles POST /api/v1/attendance/import.
// The import is all or nothing.
func (s *Server) handleImportAttendance(w http.ResponseWriter, r *http.Request) {
	var req ImportAttendanceRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.UpdateAttendances.Handle(r.Context(), command.UpdateAttendancesCommand{
		Records:       req.inputs(),
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records := make([]query.AttendanceDTO, len(result.Records))
	for i, a := range result.Records {
		records[i] = query.AttendanceDTO{NationalID: a.NationalID.String(), Type: a.Type.String()}
	}
	writeJSONWithMeta(w, r, http.StatusOK, map[string]any{"records": records}, &ResponseMeta{TotalCount: len(records)})
}

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleResetRoster handles POST /api/v1/roster/reset.
func (s *Server) handleResetRoster(w http.ResponseWriter, r *http.Request) {
	var req ResetRosterRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.ResetRoster.Handle(r.Context(), command.ResetRosterCommand{
		Students:      req.inputs(),
		CorrelationID: requestIDFrom(r.Context()),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	students := make([]query.StudentDTO, len(result.Students))
	for i, st := range result.Students {
		students[i] = query.StudentDTO{NationalID: st.NationalID.String(), Name: st.Name.String()}
	}
	writeJSONWithMeta(w, r, http.StatusOK, map[string]any{"students": students}, &ResponseMeta{TotalCount: len(students)})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeError maps an error to a status code. Domain errors keep their
// message; anything unexpected is logged and reported as 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs  validator.ValidationErrors
		reqErr *requestError
		maxErr *http.MaxBytesError
	)

	switch {
	case errors.As(err, &verrs):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_failed", "Request validation failed", validationDetails(verrs))
	case errors.As(err, &reqErr):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request", reqErr.Error(), nil)
	case errors.As(err, &maxErr):
		writeJSONErrorWithDetails(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
	case shared.IsNotFound(err):
		writeJSONErrorWithDetails(w, r, http.StatusNotFound, "not_found", shared.UserMessage(err), nil)
	case shared.IsDuplicate(err):
		writeJSONErrorWithDetails(w, r, http.StatusConflict, "duplicate", shared.UserMessage(err), nil)
	case shared.IsValidation(err), shared.IsNullSource(err):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_input", shared.UserMessage(err), nil)
	default:
		logger.FromContext(r.Context()).Error("request failed",
			logger.String("path", r.URL.Path),
			logger.Err(err),
		)
		writeJSONErrorWithDetails(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
	}
}

// etagMatches implements the If-None-Match comparison for a strong tag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
