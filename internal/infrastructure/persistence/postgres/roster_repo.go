package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/taskmaster/internal/domain/attendance"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
	"github.com/alem-hub/taskmaster/pkg/retry"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RosterRepository implements taskmaster.Repository for PostgreSQL.
type RosterRepository struct {
	conn    *Connection
	retrier *retry.Retrier
}

var _ taskmaster.Repository = (*RosterRepository)(nil)

// NewRosterRepository creates a new RosterRepository. Transient failures are
// retried with retry.DatabaseRetrier.
func NewRosterRepository(conn *Connection) *RosterRepository {
	return &RosterRepository{
		conn:    conn,
		retrier: retry.DatabaseRetrier(retry.WithRetryIf(IsTransient)),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Load
// ─────────────────────────────────────────────────────────────────────────────

// Load reads the saved roster. Returns ErrRosterNotFound if no roster has
// been saved yet.
func (r *RosterRepository) Load(ctx context.Context) (*taskmaster.Snapshot, error) {
	var snap *taskmaster.Snapshot
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		snap, err = r.load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *RosterRepository) load(ctx context.Context) (*taskmaster.Snapshot, error) {
	snap := &taskmaster.Snapshot{}

	err := r.conn.inTx(ctx, readOnly, func(tx pgx.Tx) error {
		var studentCount int
		err := tx.QueryRow(ctx, `SELECT student_count FROM roster_meta WHERE id = 1`).Scan(&studentCount)
		if isNoRows(err) {
			return shared.ErrRosterNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read roster meta: %w", err)
		}

		students, err := loadStudents(ctx, tx, studentCount)
		if err != nil {
			return err
		}
		records, err := loadAttendance(ctx, tx)
		if err != nil {
			return err
		}

		snap.StudentList = students
		snap.AttendanceList = records
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func loadStudents(ctx context.Context, q pgx.Tx, sizeHint int) ([]student.Student, error) {
	rows, err := q.Query(ctx, `SELECT national_id, name FROM roster_students ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := make([]student.Student, 0, sizeHint)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student.Student{
			Name:       student.Name(name),
			NationalID: student.NationalID(id),
		})
	}

	return students, rows.Err()
}

func loadAttendance(ctx context.Context, q pgx.Tx) ([]attendance.Attendance, error) {
	rows, err := q.Query(ctx, `SELECT national_id, type FROM roster_attendance ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []attendance.Attendance
	for rows.Next() {
		var id, typ string
		if err := rows.Scan(&id, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, attendance.New(student.NationalID(id), attendance.Type(typ)))
	}

	return records, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

// Save replaces the stored roster with src in a single transaction.
func (r *RosterRepository) Save(ctx context.Context, src taskmaster.ReadOnlyTaskmaster) error {
	snap := taskmaster.SnapshotOf(src)

	return r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.conn.inTx(ctx, readWrite, func(tx pgx.Tx) error {
			return saveSnapshot(ctx, tx, snap)
		})
	})
}

func saveSnapshot(ctx context.Context, q pgx.Tx, snap *taskmaster.Snapshot) error {
	if _, err := q.Exec(ctx, `DELETE FROM roster_attendance`); err != nil {
		return fmt.Errorf("failed to clear attendance: %w", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM roster_students`); err != nil {
		return fmt.Errorf("failed to clear students: %w", err)
	}

	_, err := q.CopyFrom(ctx,
		pgx.Identifier{"roster_students"},
		[]string{"national_id", "name", "position"},
		pgx.CopyFromSlice(len(snap.StudentList), func(i int) ([]any, error) {
			s := snap.StudentList[i]
			return []any{s.NationalID.String(), s.Name.String(), i}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy students: %w", err)
	}

	_, err = q.CopyFrom(ctx,
		pgx.Identifier{"roster_attendance"},
		[]string{"national_id", "type", "position"},
		pgx.CopyFromSlice(len(snap.AttendanceList), func(i int) ([]any, error) {
			a := snap.AttendanceList[i]
			return []any{a.NationalID.String(), a.Type.String(), i}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy attendance: %w", err)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO roster_meta (id, student_count, record_count, saved_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			student_count = EXCLUDED.student_count,
			record_count = EXCLUDED.record_count,
			saved_at = EXCLUDED.saved_at
	`, len(snap.StudentList), len(snap.AttendanceList), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write roster meta: %w", err)
	}

	return nil
}

// SavedAt returns when the roster was last saved.
// Returns ErrRosterNotFound if no roster has been saved yet.
func (r *RosterRepository) SavedAt(ctx context.Context) (time.Time, error) {
	var savedAt time.Time
	err := r.conn.inTx(ctx, readOnly, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `SELECT saved_at FROM roster_meta WHERE id = 1`).Scan(&savedAt)
	})
	if isNoRows(err) {
		return time.Time{}, shared.ErrRosterNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read roster meta: %w", err)
	}
	return savedAt, nil
}
