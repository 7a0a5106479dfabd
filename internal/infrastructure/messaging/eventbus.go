// Package messaging delivers roster events to their subscribers, either
// within the process or, through Redis Pub/Sub, to every running instance.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

var (
	ErrEventBusClosed = errors.New("event bus is closed")
	ErrHandlerPanic   = errors.New("event handler panicked")
	ErrNilHandler     = errors.New("event handler is nil")
	ErrNilEvent       = errors.New("event is nil")
)

// InMemoryEventBusConfig configures NewInMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs each handler on its own goroutine, at most
	// WorkerPoolSize (default 4) at a time. Otherwise Publish runs them
	// in order before returning.
	AsyncMode      bool
	WorkerPoolSize int

	Logger *slog.Logger

	// OnHandled, if set, is told about every handler run.
	OnHandled func(eventType shared.EventType, took time.Duration, err error)
}

// InMemoryEventBus delivers events to handlers in this process. A failing
// or panicking handler is logged and never affects the publisher or the
// other handlers.
type InMemoryEventBus struct {
	async     bool
	slots     chan struct{}
	done      chan struct{}
	logger    *slog.Logger
	onHandled func(shared.EventType, time.Duration, error)

	mu       sync.RWMutex
	byType   map[shared.EventType][]shared.EventHandler
	wildcard []shared.EventHandler
	closed   bool
	inflight sync.WaitGroup
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(cfg InMemoryEventBusConfig) *InMemoryEventBus {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &InMemoryEventBus{
		async:     cfg.AsyncMode,
		slots:     make(chan struct{}, cfg.WorkerPoolSize),
		done:      make(chan struct{}),
		logger:    cfg.Logger.With("component", "event_bus"),
		onHandled: cfg.OnHandled,
		byType:    make(map[shared.EventType][]shared.EventHandler),
	}
}

// Subscribe adds handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.add(handler, func() { b.byType[eventType] = append(b.byType[eventType], handler) })
}

// SubscribeAll adds handler for every event type.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.add(handler, func() { b.wildcard = append(b.wildcard, handler) })
}

func (b *InMemoryEventBus) add(handler shared.EventHandler, register func()) error {
	if handler == nil {
		return ErrNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	register()
	return nil
}

// Publish hands event to the type's handlers, then to the catch-all ones.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	targets, err := b.targets(event.EventType())
	if err != nil {
		return err
	}

	for _, h := range targets {
		if b.async {
			go b.runQueued(event, h)
		} else {
			b.run(event, h)
		}
	}
	return nil
}

// targets snapshots the handlers for t. In async mode it also reserves an
// inflight slot per handler while still holding the lock, so Close cannot
// miss them.
func (b *InMemoryEventBus) targets(t shared.EventType) ([]shared.EventHandler, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrEventBusClosed
	}
	out := slices.Concat(b.byType[t], b.wildcard)
	if b.async {
		b.inflight.Add(len(out))
	}
	return out, nil
}

func (b *InMemoryEventBus) runQueued(event shared.Event, h shared.EventHandler) {
	defer b.inflight.Done()
	select {
	case b.slots <- struct{}{}:
	case <-b.done:
		return
	}
	defer func() { <-b.slots }()
	b.run(event, h)
}

func (b *InMemoryEventBus) run(event shared.Event, h shared.EventHandler) {
	start := time.Now()
	err := invoke(event, h)
	if err != nil {
		b.logger.Error("event handler failed", "event_type", event.EventType(), "error", err)
	}
	if b.onHandled != nil {
		b.onHandled(event.EventType(), time.Since(start), err)
	}
}

func invoke(event shared.Event, h shared.EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(event)
}

// Close refuses further events and waits for handlers already running.
// Handlers still queued for a worker are dropped.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.inflight.Wait()
	b.logger.Debug("event bus closed")
	return nil
}
