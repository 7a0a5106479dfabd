// Package postgres stores the roster in PostgreSQL through a pgx pool.
//
// The roster is written as a whole: one table for the registry, one for the
// attendance ledger and a single-row meta table that marks a saved roster.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConnectionClosed is returned after Close.
var ErrConnectionClosed = errors.New("postgres: pool is closed")

// PoolOptions override the pool limits parsed from the database URL.
// Zero fields keep whatever the URL (or pgx) decided.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// DefaultPoolOptions suits a single roster writer: a handful of connections
// is plenty.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          4,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
	}
}

func (o PoolOptions) applyTo(pc *pgxpool.Config) {
	if o.MaxConns > 0 {
		pc.MaxConns = o.MaxConns
	}
	if o.MinConns > 0 {
		pc.MinConns = min(o.MinConns, pc.MaxConns)
	}
	if o.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = o.MaxConnLifetime
	}
	if o.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = o.MaxConnIdleTime
	}
	if o.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = o.HealthCheckPeriod
	}
}

// Connection owns the pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// ParsePoolConfig parses databaseURL and applies opts on top.
func ParsePoolConfig(databaseURL string, opts PoolOptions) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse database URL: %w", err)
	}
	opts.applyTo(pc)
	return pc, nil
}

// Open creates the pool and pings the server once.
func Open(ctx context.Context, databaseURL string, opts PoolOptions) (*Connection, error) {
	pc, err := ParsePoolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Connection{pool: pool}, nil
}

// Close releases every connection. Calling it twice is harmless.
func (c *Connection) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.pool.Close()
	}
}

// Ping is used by the readiness check.
func (c *Connection) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.pool.Ping(ctx)
}

var (
	readWrite = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	readOnly  = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
)

// inTx runs fn in a transaction that commits when fn returns nil.
func (c *Connection) inTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return pgx.BeginTxFunc(ctx, c.pool, opts, fn)
}
