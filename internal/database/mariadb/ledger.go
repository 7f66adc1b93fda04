package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// errDeadlock is ER_LOCK_DEADLOCK. InnoDB may pick a concurrent mark as the
// victim on the unique key; the transaction is safe to retry.
const errDeadlock = 1213

const maxMarkAttempts = 3

// Mark records attendance for req.Roll on req.Date.
func (s *Store) Mark(ctx context.Context, req database.MarkRequest) (database.MarkOutcome, error) {
	req, err := req.Normalize()
	if err != nil {
		return 0, err
	}

	for attempt := 1; ; attempt++ {
		outcome, err := s.mark(ctx, req)
		var myErr *mysql.MySQLError
		if err != nil && attempt < maxMarkAttempts && errors.As(err, &myErr) && myErr.Number == errDeadlock {
			continue
		}
		return outcome, err
	}
}

// mark inserts through the unique key and classifies the outcome inside the
// same transaction. An unchanged ON DUPLICATE KEY row reports zero affected rows.
func (s *Store) mark(ctx context.Context, req database.MarkRequest) (database.MarkOutcome, error) {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO attendance (student_id, date, time, status)
		SELECT s.id, ?, ?, ? FROM students s WHERE s.roll = ?
		ON DUPLICATE KEY UPDATE attendance.id = attendance.id
	`, req.Date, req.Time, req.Status, req.Roll)
	if err != nil {
		return 0, fmt.Errorf("mark attendance for %s: %w", req.Roll, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	outcome := database.Inserted
	if affected != 1 {
		var known bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE roll = ?)`, req.Roll).Scan(&known); err != nil {
			return 0, fmt.Errorf("lookup student %s: %w", req.Roll, err)
		}
		outcome = database.DuplicateSkipped
		if !known {
			outcome = database.UnknownIdentity
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mark: %w", err)
	}
	return outcome, nil
}

// AttendanceView returns the join view, newest first.
func (s *Store) AttendanceView(ctx context.Context) ([]database.AttendanceRow, error) {
	rows, err := s.pool.db.QueryContext(ctx, `
		SELECT DATE_FORMAT(a.date, '%Y-%m-%d'), TIME_FORMAT(a.time, '%H:%i:%s'),
		       s.roll, s.name, s.phone, s.email, a.status
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		ORDER BY a.date DESC, a.time DESC, a.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attendance view: %w", err)
	}
	defer rows.Close()

	var out []database.AttendanceRow
	for rows.Next() {
		var row database.AttendanceRow
		if err := rows.Scan(&row.Date, &row.Time, &row.Roll, &row.Name, &row.Phone, &row.Email, &row.Status); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return out, nil
}

// CountForRoll returns the number of entries recorded for roll.
func (s *Store) CountForRoll(ctx context.Context, roll string) (int, error) {
	var n int
	err := s.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.roll = ?
	`, roll).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendance for %s: %w", roll, err)
	}
	return n, nil
}

// ListIdentities returns all identities ordered by roll.
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.pool.db.QueryContext(ctx, `SELECT id, roll, name, phone, email FROM students ORDER BY roll`)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []database.Identity
	for rows.Next() {
		var id database.Identity
		if err := rows.Scan(&id.ID, &id.Roll, &id.Name, &id.Phone, &id.Email); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return out, nil
}

// GetIdentity returns the identity with roll, or nil if none exists.
func (s *Store) GetIdentity(ctx context.Context, roll string) (*database.Identity, error) {
	var id database.Identity
	err := s.pool.db.QueryRowContext(ctx, `SELECT id, roll, name, phone, email FROM students WHERE roll = ?`, roll).
		Scan(&id.ID, &id.Roll, &id.Name, &id.Phone, &id.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", roll, err)
	}
	return &id, nil
}

// SaveIdentity inserts or updates the identity keyed by roll.
func (s *Store) SaveIdentity(ctx context.Context, id database.Identity) (int64, error) {
	if id.Roll == "" {
		return 0, errors.New("identity roll is required")
	}
	res, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO students (roll, name, phone, email) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			name = VALUES(name),
			phone = VALUES(phone),
			email = VALUES(email)
	`, id.Roll, id.Name, id.Phone, id.Email)
	if err != nil {
		return 0, fmt.Errorf("save student %s: %w", id.Roll, err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return newID, nil
}
