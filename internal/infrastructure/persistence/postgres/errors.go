package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlState returns the SQLSTATE carried by err, or "".
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsTransient reports whether err is worth retrying: a serialization failure,
// a deadlock, a connection exception (class 08), or a connection that failed
// before anything reached the server.
func IsTransient(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrConnectionClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}

	if code := sqlState(err); code != "" {
		return code == "40001" || code == "40P01" || code[:2] == "08"
	}
	return pgconn.SafeToRetry(err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
