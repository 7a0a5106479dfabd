package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// JSONResponse is the envelope of every API response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      any           `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError is a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

const apiVersion = "v1"

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func send(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSONWithMeta(w, r, status, data, nil)
}

// writeJSONWithMeta fills in the timestamp and version of meta.
func writeJSONWithMeta(w http.ResponseWriter, r *http.Request, status int, data any, meta *ResponseMeta) {
	if meta == nil {
		meta = new(ResponseMeta)
	}
	meta.Timestamp, meta.Version = time.Now().UTC(), apiVersion

	send(w, status, JSONResponse{
		Success:   status < http.StatusBadRequest,
		Data:      data,
		Meta:      meta,
		RequestID: requestIDFrom(r.Context()),
	})
}

// writeJSONError has the shape of handlers.RejectFunc, for middleware that
// rejects a request before a handler runs.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	send(w, status, JSONResponse{
		Error: &APIError{Code: code, Message: message},
		Meta:  &ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

func writeJSONErrorWithDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	send(w, status, JSONResponse{
		Error:     &APIError{Code: code, Message: message, Details: details},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: requestIDFrom(r.Context()),
	})
}
