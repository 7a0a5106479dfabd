package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePoolConfig(t *testing.T) {
	pc, err := ParsePoolConfig("postgres://roster:secret@db:5432/taskmaster?pool_max_conns=10", DefaultPoolOptions())
	require.NoError(t, err)

	assert.Equal(t, "db", pc.ConnConfig.Host)
	assert.Equal(t, "taskmaster", pc.ConnConfig.Database)
	assert.Equal(t, int32(4), pc.MaxConns, "options win over the URL")
	assert.Equal(t, int32(1), pc.MinConns)
	assert.Equal(t, time.Hour, pc.MaxConnLifetime)
}

func TestParsePoolConfig_ZeroOptionsKeepURL(t *testing.T) {
	pc, err := ParsePoolConfig("postgres://db/taskmaster?pool_max_conns=7", PoolOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
}

func TestParsePoolConfig_MinCappedByMax(t *testing.T) {
	pc, err := ParsePoolConfig("postgres://db/taskmaster", PoolOptions{MaxConns: 2, MinConns: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(2), pc.MinConns)
}

func TestParsePoolConfig_BadURL(t *testing.T) {
	_, err := ParsePoolConfig("postgres://db/taskmaster?pool_max_conns=many", PoolOptions{})
	assert.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection failure", fmt.Errorf("save: %w", &pgconn.PgError{Code: "08006"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"closed pool", ErrConnectionClosed, false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(fmt.Errorf("meta: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("boom")))
}

func TestMigrations(t *testing.T) {
	migs := Migrations()
	require.NotEmpty(t, migs)
	for i, mig := range migs {
		assert.Equal(t, i+1, mig.Version, "versions are consecutive")
		assert.NotEmpty(t, mig.Up)
		assert.NotEmpty(t, mig.Down)
	}
	assert.Contains(t, migs[0].Up, "roster_students")
	assert.Contains(t, migs[0].Down, "DROP TABLE IF EXISTS roster_meta")
}

func TestConnection_ClosedRejectsWork(t *testing.T) {
	c := &Connection{}
	c.closed.Store(true)

	assert.ErrorIs(t, c.Ping(context.Background()), ErrConnectionClosed)
	err := c.inTx(context.Background(), readOnly, func(pgx.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrConnectionClosed)
	c.Close()
}
