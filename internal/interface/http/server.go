// Package http implements the REST API of the roster service: students,
// attendance, bulk roster operations, health probes and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/taskmaster/internal/application/command"
	"github.com/alem-hub/taskmaster/internal/application/query"
	"github.com/alem-hub/taskmaster/internal/infrastructure/metrics"
	"github.com/alem-hub/taskmaster/internal/interface/http/handlers"
	"github.com/alem-hub/taskmaster/pkg/logger"
)

// Config contains HTTP server configuration.
type Config struct {
	Host string
	Port int

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// AllowedOrigins for CORS; "*" allows any.
	AllowedOrigins []string

	// EnableMetrics exposes GET /metrics.
	EnableMetrics bool

	// Version is reported by / and the health endpoints.
	Version string
}

func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    time.Minute,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
		EnableMetrics:  true,
		Version:        "dev",
	}
}

// Address is Host:Port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Dependencies are the handlers and services the routes call into.
type Dependencies struct {
	// Writes
	AddStudent        *command.AddStudentHandler
	EditStudent       *command.EditStudentHandler
	DeleteStudent     *command.DeleteStudentHandler
	MarkAttendance    *command.MarkAttendanceHandler
	MarkAllAttendance *command.MarkAllAttendanceHandler
	ClearAttendance   *command.ClearAttendanceHandler
	UpdateAttendances *command.UpdateAttendancesHandler
	ResetRoster       *command.ResetRosterHandler

	// Reads
	ListStudents        *query.ListStudentsHandler
	GetStudentName      *query.GetStudentNameHandler
	ListAttendance      *query.ListAttendanceHandler
	ListNamedAttendance *query.ListNamedAttendanceHandler
	GetRosterSummary    *query.GetRosterSummaryHandler

	Logger        *logger.Logger
	HealthChecker handlers.HealthChecker

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Server serves the roster API.
type Server struct {
	config   Config
	deps     Dependencies
	logger   *logger.Logger
	validate *validator.Validate

	mux     *http.ServeMux
	handler http.Handler
	srv     *http.Server

	// startedAt is zero while the server is not listening.
	startedAt atomic.Pointer[time.Time]
}

// NewServer registers the routes and wraps them in the middleware stack.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	s := &Server{
		config:   config,
		deps:     deps,
		logger:   log.With(logger.Component("http")),
		validate: newValidator(),
		mux:      http.NewServeMux(),
	}
	s.routes()

	s.handler = handlers.Wrap(s.mux,
		s.recoverPanics,
		s.requestID,
		s.accessLog,
		s.cors,
		handlers.SecureHeaders,
		handlers.CacheControl,
		handlers.LimitBody(config.MaxBodyBytes, writeJSONError),
	)

	s.srv = &http.Server{
		Addr:           config.Address(),
		Handler:        s.handler,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}
	return s
}

// Handler returns the wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	now := time.Now()
	if !s.startedAt.CompareAndSwap(nil, &now) {
		return errors.New("http: server already started")
	}

	s.logger.Info("starting HTTP server", logger.String("address", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http: listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.startedAt.Swap(nil) == nil {
		return nil
	}
	s.logger.Info("shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}

// Uptime is zero when the server is not running.
func (s *Server) Uptime() time.Duration {
	if t := s.startedAt.Load(); t != nil {
		return time.Since(*t)
	}
	return 0
}
