package postgres

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrMigrationFailed wraps any failure while changing the schema.
var ErrMigrationFailed = errors.New("postgres: migration failed")

// Migration is one schema step. Versions increase by one.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationStatus is a Migration together with when it was applied.
type MigrationStatus struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// migrationLockKey serializes migrators started by several processes.
const migrationLockKey = 0x7a5c_0001

// Migrations returns the schema history, oldest first.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_roster", Up: createRosterUp, Down: createRosterDown},
	}
}

// Migrator applies Migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a Migrator over the built-in migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn, migrations: Migrations()}
}

func (m *Migrator) applied(ctx context.Context, tx pgx.Tx) (map[int]time.Time, error) {
	if _, err := tx.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	rows, err := tx.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	done := map[int]time.Time{}
	var (
		version int
		at      time.Time
	)
	_, err = pgx.ForEachRow(rows, []any{&version, &at}, func() error {
		done[version] = at
		return nil
	})
	return done, err
}

// Migrate applies every pending migration in one transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	err := m.conn.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return err
		}
		done, err := m.applied(ctx, tx)
		if err != nil {
			return err
		}

		for _, mig := range m.migrations {
			if _, ok := done[mig.Version]; ok {
				continue
			}
			if _, err := tx.Exec(ctx, mig.Up); err != nil {
				return fmt.Errorf("version %d (%s): %w", mig.Version, mig.Name, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				mig.Version, mig.Name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// Rollback reverts the newest applied migration. It does nothing when none
// is applied.
func (m *Migrator) Rollback(ctx context.Context) error {
	err := m.conn.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
			return err
		}
		done, err := m.applied(ctx, tx)
		if err != nil || len(done) == 0 {
			return err
		}

		latest := slices.Max(slices.Collect(maps.Keys(done)))
		i := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == latest })
		if i < 0 || m.migrations[i].Down == "" {
			return fmt.Errorf("no down migration for version %d", latest)
		}

		if _, err := tx.Exec(ctx, m.migrations[i].Down); err != nil {
			return fmt.Errorf("version %d: %w", latest, err)
		}
		_, err = tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, latest)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}
	return nil
}

// Status lists every known migration and whether it has been applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	var done map[int]time.Time
	err := m.conn.inTx(ctx, readWrite, func(tx pgx.Tx) error {
		var err error
		done, err = m.applied(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, len(m.migrations))
	for i, mig := range m.migrations {
		at, ok := done[mig.Version]
		out[i] = MigrationStatus{Migration: mig, Applied: ok, AppliedAt: at}
	}
	return out, nil
}

const createRosterUp = `
-- Registry: one row per student, position keeps registration order.
CREATE TABLE IF NOT EXISTS roster_students (
    national_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    position INTEGER NOT NULL,

    CONSTRAINT roster_students_name_not_blank CHECK (btrim(name) <> ''),
    CONSTRAINT roster_students_id_not_blank CHECK (btrim(national_id) <> '')
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_roster_students_position ON roster_students(position);

-- Ledger: one row per record. No foreign key: a removed student keeps its
-- record until the next reset.
CREATE TABLE IF NOT EXISTS roster_attendance (
    national_id TEXT PRIMARY KEY,
    type VARCHAR(16) NOT NULL DEFAULT 'NO_RECORD',
    position INTEGER NOT NULL,

    CONSTRAINT roster_attendance_valid_type CHECK (type IN ('PRESENT', 'ABSENT', 'NO_RECORD'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_roster_attendance_position ON roster_attendance(position);

-- A row here means a roster has been saved at least once.
CREATE TABLE IF NOT EXISTS roster_meta (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    student_count INTEGER NOT NULL,
    record_count INTEGER NOT NULL,
    saved_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT roster_meta_single_row CHECK (id = 1)
);
`

const createRosterDown = `
DROP TABLE IF EXISTS roster_meta;
DROP TABLE IF EXISTS roster_attendance;
DROP TABLE IF EXISTS roster_students;
`
