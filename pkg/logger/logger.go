// Package logger is a thin layer over log/slog that writes one JSON object
// per line. It adds typed field helpers for the roster domain and carries a
// request-scoped logger in the context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel maps a config value to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// Field is a structured key/value pair.
type Field = slog.Attr

func String(key, value string) Field                 { return slog.String(key, value) }
func Int(key string, value int) Field                { return slog.Int(key, value) }
func Int64(key string, value int64) Field            { return slog.Int64(key, value) }
func Bool(key string, value bool) Field              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }
func Time(key string, value time.Time) Field         { return slog.Time(key, value) }
func Any(key string, value any) Field                { return slog.Any(key, value) }

// Err puts err under the "error" key.
func Err(err error) Field { return slog.Any("error", err) }

// Roster fields.
func NationalID(id string) Field    { return String("national_id", id) }
func AttendanceType(t string) Field { return String("attendance_type", t) }
func StudentCount(n int) Field      { return Int("student_count", n) }
func EventType(t string) Field      { return String("event_type", t) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
func StatusCode(code int) Field     { return Int("status", code) }

// RequestIDKey is the field every request-scoped entry carries.
const RequestIDKey = "request_id"

// Options configures New.
type Options struct {
	Output    io.Writer
	Level     Level
	AddCaller bool
}

// Logger writes entries through a slog.Handler.
type Logger struct {
	s      *slog.Logger
	caller bool
}

// New creates a JSON logger. Durations are written as strings such as
// "1.5s" and the caller as "file.go:42".
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	h := slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddCaller,
		ReplaceAttr: replaceAttr,
	})
	return &Logger{s: slog.New(h), caller: opts.AddCaller}
}

// Default logs info and above to stdout.
func Default() *Logger {
	return New(Options{Level: LevelInfo})
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch v := a.Value; {
	case a.Key == slog.SourceKey:
		if src, ok := v.Any().(*slog.Source); ok {
			return slog.String(slog.SourceKey, filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
		}
	case v.Kind() == slog.KindDuration:
		return slog.String(a.Key, v.Duration().String())
	}
	return a
}

// With returns a Logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{s: slog.New(l.s.Handler().WithAttrs(fields)), caller: l.caller}
}

// WithRequestID is With(String(RequestIDKey, id)).
func (l *Logger) WithRequestID(id string) *Logger {
	return l.With(String(RequestIDKey, id))
}

// Slog exposes the underlying logger for packages written against log/slog.
func (l *Logger) Slog() *slog.Logger { return l.s }

// Enabled reports whether level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.s.Enabled(context.Background(), level)
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

// log must be called directly by the exported level methods so the caller
// frame is right.
func (l *Logger) log(level Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.s.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	if l.caller {
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(fields...)
	_ = l.s.Handler().Handle(ctx, r)
}

type ctxKey struct{}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or one writing through
// slog.Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return &Logger{s: slog.Default()}
}
