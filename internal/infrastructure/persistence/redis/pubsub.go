package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/taskmaster/internal/infrastructure/messaging"
)

// ══════════════════════════════════════════════════════════════════════════════
// PUB/SUB ADAPTER
// ══════════════════════════════════════════════════════════════════════════════

// ErrEmptyChannel is returned by Publish when no channel is given.
var ErrEmptyChannel = errors.New("pubsub: channel name is empty")

// PubSub adapts a go-redis client to messaging.RedisClient.
// Close ends the subscriptions it opened; the client itself belongs to the
// Cache and is closed there.
type PubSub struct {
	client redis.UniversalClient

	mu     sync.Mutex
	subs   []*redis.PubSub
	closed bool
}

var _ messaging.RedisClient = (*PubSub)(nil)

// NewPubSub creates a PubSub over client.
func NewPubSub(client redis.UniversalClient) *PubSub {
	return &PubSub{client: client}
}

// Publish implements messaging.RedisClient. Strings and byte slices are sent
// as is, anything else is JSON encoded.
func (p *PubSub) Publish(ctx context.Context, channel string, message any) error {
	if channel == "" {
		return ErrEmptyChannel
	}

	var payload any
	switch m := message.(type) {
	case string, []byte:
		payload = m
	default:
		data, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		payload = data
	}

	return p.client.Publish(ctx, channel, payload).Err()
}

// Subscribe implements messaging.RedisClient. The subscription is confirmed
// before it returns; the returned channel closes when the subscription ends.
func (p *PubSub) Subscribe(ctx context.Context, channels ...string) (<-chan messaging.RedisMessage, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, redis.ErrClosed
	}
	p.mu.Unlock()

	sub := p.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: subscribe: %v", ErrCacheConnection, err)
	}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	out := make(chan messaging.RedisMessage)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- messaging.RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close implements messaging.RedisClient.
func (p *PubSub) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for _, sub := range p.subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.subs = nil
	return firstErr
}
