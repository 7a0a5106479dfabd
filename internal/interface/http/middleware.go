package http

import (
	"context"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/taskmaster/pkg/logger"
)

const headerRequestID = "X-Request-ID"

// recoverPanics turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so the server can abort the connection.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			s.logger.Error("panic recovered",
				logger.Any("panic", v),
				logger.String("path", r.URL.Path),
				logger.String("stack", string(debug.Stack())),
			)
			writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID keeps a caller-supplied X-Request-ID of sane length or mints
// one, echoes it, and puts it and a logger carrying it into the context.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = logger.WithContext(ctx, s.logger.WithRequestID(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog writes one entry per request; server errors are logged at warn.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := recordStatus(w)
		next.ServeHTTP(rec, r)

		log := logger.FromContext(r.Context())
		emit := log.Info
		if rec.status >= http.StatusInternalServerError {
			emit = log.Warn
		}
		emit("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.StatusCode(rec.status),
			logger.Latency(time.Since(start)),
			logger.String("ip", clientIP(r)),
		)
	})
}

// cors answers preflights itself and decorates allowed cross-origin
// responses.
func (s *Server) cors(next http.Handler) http.Handler {
	anyOrigin := slices.Contains(s.config.AllowedOrigins, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (anyOrigin || slices.Contains(s.config.AllowedOrigins, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match, "+headerRequestID)
			h.Set("Access-Control-Expose-Headers", "ETag, "+headerRequestID)
			h.Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the proxy headers, then the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// statusRecorder remembers the first status written.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.written {
		rec.status, rec.written = code, true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.written = true
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }
