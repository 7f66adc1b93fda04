package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// markQuery resolves the roll and inserts in one statement. The unique key on
// (student_id, date) decides duplicates, so concurrent marks are safe.
const markQuery = `
	WITH s AS (
		SELECT id FROM students WHERE roll = $1
	), ins AS (
		INSERT INTO attendance (student_id, date, time, status)
		SELECT id, $2::date, $3::time, $4::text FROM s
		ON CONFLICT (student_id, date) DO NOTHING
		RETURNING id
	)
	SELECT EXISTS (SELECT 1 FROM s), EXISTS (SELECT 1 FROM ins)
`

// LedgerRepository provides PostgreSQL storage for attendance entries.
type LedgerRepository struct {
	pool *Pool
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Mark records attendance for req.Roll on req.Date.
func (r *LedgerRepository) Mark(ctx context.Context, req database.MarkRequest) (database.MarkOutcome, error) {
	req, err := req.Normalize()
	if err != nil {
		return 0, err
	}

	var known, inserted bool
	if err := r.pool.QueryRow(ctx, markQuery, req.Roll, req.Date, req.Time, req.Status).Scan(&known, &inserted); err != nil {
		return 0, fmt.Errorf("mark attendance for %s: %w", req.Roll, err)
	}

	switch {
	case !known:
		return database.UnknownIdentity, nil
	case inserted:
		return database.Inserted, nil
	default:
		return database.DuplicateSkipped, nil
	}
}

// AttendanceView returns the join view, newest first.
func (r *LedgerRepository) AttendanceView(ctx context.Context) ([]database.AttendanceRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(a.date, 'YYYY-MM-DD'), to_char(a.time, 'HH24:MI:SS'),
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
func (r *LedgerRepository) CountForRoll(ctx context.Context, roll string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.roll = $1
	`, roll).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count attendance for %s: %w", roll, err)
	}
	return n, nil
}
