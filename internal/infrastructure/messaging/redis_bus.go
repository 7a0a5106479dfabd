package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

// DefaultChannelName is the Pub/Sub channel used when none is configured.
const DefaultChannelName = "taskmaster:events"

// RedisClient is the part of Pub/Sub the bus uses. The go-redis adapter
// lives in persistence/redis.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one message read from a channel.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig configures NewRedisEventBus.
type RedisEventBusConfig struct {
	Client      RedisClient
	ChannelName string

	// InstanceID tells this process's messages apart from the others'.
	// Defaults to a random UUID.
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig
	Logger         *slog.Logger
}

// RedisEventBus delivers events locally and republishes them on a Redis
// channel; events other instances publish there are replayed through the
// local bus as *RemoteEvent.
type RedisEventBus struct {
	local    *InMemoryEventBus
	client   RedisClient
	channel  string
	instance string
	logger   *slog.Logger

	stop    context.CancelFunc
	ctx     context.Context
	reader  sync.WaitGroup
	closing atomic.Bool
}

var _ shared.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus subscribes to the channel before returning.
func NewRedisEventBus(cfg RedisEventBusConfig) (*RedisEventBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("messaging: redis client is required")
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = DefaultChannelName
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LocalBusConfig.Logger == nil {
		cfg.LocalBusConfig.Logger = cfg.Logger
	}

	ctx, stop := context.WithCancel(context.Background())
	b := &RedisEventBus{
		local:    NewInMemoryEventBus(cfg.LocalBusConfig),
		client:   cfg.Client,
		channel:  cfg.ChannelName,
		instance: cfg.InstanceID,
		logger:   cfg.Logger.With("component", "redis_event_bus", "instance_id", cfg.InstanceID),
		ctx:      ctx,
		stop:     stop,
	}

	messages, err := cfg.Client.Subscribe(ctx, b.channel)
	if err != nil {
		stop()
		return nil, err
	}
	b.reader.Add(1)
	go b.read(messages)

	return b, nil
}

func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers locally even when Redis is unreachable; the Redis error
// is only logged.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}
	if b.closing.Load() {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(wireMessage{Instance: b.instance, Event: envelopeOf(event)})
	if err == nil {
		err = b.client.Publish(b.ctx, b.channel, string(data))
	}
	if err != nil {
		b.logger.Error("event not shared over redis", "event_type", event.EventType(), "error", err)
	}

	return b.local.Publish(event)
}

func (b *RedisEventBus) read(messages <-chan RedisMessage) {
	defer b.reader.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.deliverRemote(msg.Payload)
		}
	}
}

func (b *RedisEventBus) deliverRemote(payload string) {
	var wire wireMessage
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		b.logger.Warn("dropping malformed event message", "error", err)
		return
	}
	// Our own events were delivered locally by Publish.
	if wire.Instance == b.instance {
		return
	}
	if err := b.local.Publish(wire.Event.remote()); err != nil {
		b.logger.Error("remote event not delivered", "event_id", wire.Event.ID, "error", err)
	}
}

// Close stops reading the channel, drains the local bus and closes the
// client.
func (b *RedisEventBus) Close() error {
	if !b.closing.CompareAndSwap(false, true) {
		return nil
	}
	b.stop()
	b.reader.Wait()

	_ = b.local.Close()
	return b.client.Close()
}

// wireMessage is what travels over the channel.
type wireMessage struct {
	Instance string   `json:"instance_id"`
	Event    envelope `json:"envelope"`
}

type envelope struct {
	ID            string           `json:"id"`
	Type          shared.EventType `json:"type"`
	AggregateID   string           `json:"aggregate_id"`
	Timestamp     time.Time        `json:"timestamp"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Payload       map[string]any   `json:"payload"`
}

func envelopeOf(e shared.Event) envelope {
	env := envelope{
		ID:          uuid.NewString(),
		Type:        e.EventType(),
		AggregateID: e.AggregateID(),
		Timestamp:   e.OccurredAt(),
		Payload:     e.Payload(),
	}
	if c, ok := e.(interface{ Correlation() string }); ok {
		env.CorrelationID = c.Correlation()
	}
	return env
}

func (env envelope) remote() *RemoteEvent {
	data := env.Payload
	if data == nil {
		data = map[string]any{}
	}
	return &RemoteEvent{
		ID:            env.ID,
		Type:          env.Type,
		Aggregate:     env.AggregateID,
		Timestamp:     env.Timestamp,
		CorrelationID: env.CorrelationID,
		Data:          data,
	}
}

// RemoteEvent is an event published by another instance. Its payload went
// through JSON, so numbers are float64 and lists are []any.
type RemoteEvent struct {
	ID            string
	Type          shared.EventType
	Aggregate     string
	Timestamp     time.Time
	CorrelationID string
	Data          map[string]any
}

func (e *RemoteEvent) EventType() shared.EventType { return e.Type }
func (e *RemoteEvent) OccurredAt() time.Time       { return e.Timestamp }
func (e *RemoteEvent) AggregateID() string         { return e.Aggregate }
func (e *RemoteEvent) Payload() map[string]any     { return e.Data }
func (e *RemoteEvent) Correlation() string         { return e.CorrelationID }
