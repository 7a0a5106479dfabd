// Package retry runs an operation again with capped exponential backoff.
//
// Roster persistence (Postgres) and the roster cache (Redis) use it through
// the DatabaseRetrier and CacheRetrier presets.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type policy struct {
	attempts int
	base     time.Duration
	ceiling  time.Duration
	factor   float64
	jitter   float64
	retryIf  func(error) bool
	onRetry  func(attempt int, err error, wait time.Duration)
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option adjusts a Retrier.
type Option func(*policy)

// WithMaxAttempts caps the number of calls, the first one included.
func WithMaxAttempts(n int) Option {
	return func(p *policy) {
		if n > 0 {
			p.attempts = n
		}
	}
}

// WithBackoff sets the first wait, the longest wait and the growth factor.
// Non-positive values leave the current setting alone.
func WithBackoff(base, ceiling time.Duration, factor float64) Option {
	return func(p *policy) {
		if base > 0 {
			p.base = base
		}
		if ceiling > 0 {
			p.ceiling = ceiling
		}
		if factor >= 1 {
			p.factor = factor
		}
	}
}

// WithJitter spreads each wait by up to ±j of its length.
func WithJitter(j float64) Option {
	return func(p *policy) {
		if j >= 0 && j <= 1 {
			p.jitter = j
		}
	}
}

// WithRetryIf limits retries to errors fn accepts. Without it every error
// except a cancelled or expired context is retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(p *policy) { p.retryIf = fn }
}

// WithOnRetry is called before each wait.
func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(p *policy) { p.onRetry = fn }
}

// Retrier calls an operation until it succeeds or the policy gives up.
type Retrier struct {
	p policy
}

// New returns a Retrier with 3 attempts, 100ms doubling up to 5s and 10% jitter.
func New(opts ...Option) *Retrier {
	p := policy{
		attempts: 3,
		base:     100 * time.Millisecond,
		ceiling:  5 * time.Second,
		factor:   2,
		jitter:   0.1,
		sleep:    sleep,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{p: p}
}

// Attempts returns the attempt limit.
func (r *Retrier) Attempts() int { return r.p.attempts }

// Do runs op. The error of the last attempt is returned unchanged; if ctx
// ends while waiting, that attempt's error is returned instead of ctx.Err().
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil || attempt >= r.p.attempts || !r.retryable(err) {
			return err
		}

		wait := r.wait(attempt)
		if r.p.onRetry != nil {
			r.p.onRetry(attempt, err, wait)
		}
		if r.p.sleep(ctx, wait) != nil {
			return err
		}
	}
}

func (r *Retrier) retryable(err error) bool {
	if r.p.retryIf != nil {
		return r.p.retryIf(err)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// wait returns the pause after the given failed attempt.
func (r *Retrier) wait(attempt int) time.Duration {
	d := float64(r.p.base)
	for i := 1; i < attempt && d < float64(r.p.ceiling); i++ {
		d *= r.p.factor
	}
	d = min(d, float64(r.p.ceiling))
	if r.p.jitter > 0 {
		d += d * r.p.jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(max(d, 0))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DatabaseRetrier is used around Postgres calls. Extra options apply after
// the preset, typically WithRetryIf(postgres.IsTransient).
func DatabaseRetrier(opts ...Option) *Retrier {
	return New(append([]Option{
		WithMaxAttempts(3),
		WithBackoff(50*time.Millisecond, time.Second, 2),
		WithJitter(0.05),
	}, opts...)...)
}

// CacheRetrier gives up quickly; a cache failure falls through to the store.
func CacheRetrier(opts ...Option) *Retrier {
	return New(append([]Option{
		WithMaxAttempts(2),
		WithBackoff(10*time.Millisecond, 100*time.Millisecond, 2),
	}, opts...)...)
}
