package http

import (
	"net/http"
	"time"
)

func (s *Server) routes() {
	// Probes
	s.handle("GET /{$}", s.handleRoot)
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /ready", s.handleReady)
	s.handle("GET /live", s.handleLive)

	// Registry
	s.handle("GET /api/v1/students", s.handleListStudents)
	s.handle("POST /api/v1/students", s.handleAddStudent)
	s.handle("GET /api/v1/students/{id}/name", s.handleGetStudentName)
	s.handle("PUT /api/v1/students/{id}", s.handleEditStudent)
	s.handle("DELETE /api/v1/students/{id}", s.handleDeleteStudent)

	// Ledger
	s.handle("GET /api/v1/attendance", s.handleListAttendance)
	s.handle("GET /api/v1/attendance/named", s.handleListNamedAttendance)
	s.handle("GET /api/v1/attendance/summary", s.handleRosterSummary)
	s.handle("PUT /api/v1/attendance/{id}", s.handleMarkAttendance)
	s.handle("POST /api/v1/attendance/mark-all", s.handleMarkAll)
	s.handle("POST /api/v1/attendance/clear", s.handleClearAttendance)
	s.handle("POST /api/v1/attendance/import", s.handleImportAttendance)

	s.handle("POST /api/v1/roster/reset", s.handleResetRoster)

	if s.config.EnableMetrics && s.deps.Metrics != nil {
		s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}
}

// handle registers fn and, with metrics on, times it under its pattern so
// path parameters do not explode label cardinality.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	m := s.deps.Metrics
	if m == nil {
		s.mux.Handle(pattern, fn)
		return
	}
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := recordStatus(w)
		fn(rec, r)
		m.ObserveHTTPRequest(r.Method, pattern, rec.status, time.Since(start))
	})
}
