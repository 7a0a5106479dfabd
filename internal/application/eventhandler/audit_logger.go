// Package eventhandler содержит обработчики доменных событий.
//
// Обработчики - реактивная часть системы: они не меняют реестр, а только
// реагируют на уже применённые изменения.
package eventhandler

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT LOGGER
// Пишет каждое изменение реестра в структурированный лог, чтобы по логам
// можно было восстановить, кто и когда менял группу и посещаемость.
// ═══════════════════════════════════════════════════════════════════════════

// AuditLogger записывает доменные события в журнал аудита.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger создаёт обработчик аудита.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger.With("handler", "audit")}
}

// Register подписывает обработчик на все события шины.
func (h *AuditLogger) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}

// Handle обрабатывает событие. Реализует сигнатуру shared.EventHandler.
func (h *AuditLogger) Handle(event shared.Event) error {
	attrs := []any{
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	}

	if c, ok := event.(interface{ Correlation() string }); ok && c.Correlation() != "" {
		attrs = append(attrs, "correlation_id", c.Correlation())
	}

	// Ключи сортируются, чтобы строки лога были стабильными.
	payload := event.Payload()
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, payload[k])
	}

	level := slog.LevelInfo
	if e, ok := event.(shared.AttendanceMarkedEvent); ok && len(e.Skipped) > 0 {
		level = slog.LevelWarn
	}

	h.logger.Log(context.Background(), level, "roster changed", attrs...)
	return nil
}
