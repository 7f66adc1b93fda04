package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

// undefinedTable is the PostgreSQL error code for a missing relation.
const undefinedTable = "42P01"

// EnrollmentRepository stores enrollment samples in a pgvector column.
type EnrollmentRepository struct {
	pool *Pool
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// LoadIndex reads every sample in insertion order. A missing table, an empty
// vector or inconsistent dimensions yield enrollment.ErrIndexNotBuilt.
func (r *EnrollmentRepository) LoadIndex(ctx context.Context) (*enrollment.Index, error) {
	rows, err := r.pool.Query(ctx, `SELECT roll, embedding FROM face_embeddings ORDER BY id`)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == undefinedTable {
			return nil, fmt.Errorf("%w: face_embeddings table missing", enrollment.ErrIndexNotBuilt)
		}
		return nil, fmt.Errorf("query face embeddings: %w", err)
	}
	defer rows.Close()

	var records []enrollment.Record
	for rows.Next() {
		var (
			roll string
			vec  pgvector.Vector
		)
		if err := rows.Scan(&roll, &vec); err != nil {
			return nil, fmt.Errorf("scan face embedding: %w", err)
		}
		records = append(records, enrollment.Record{Label: roll, Embedding: toFloat64(vec.Slice())})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face embeddings: %w", err)
	}

	return enrollment.NewIndex(records)
}

// ReplaceAll swaps the stored samples for records in one transaction.
// progress, if non-nil, is called after each inserted record.
// The vector column is float32, so LoadIndex returns each component rounded to
// the nearest float32. Distances shift by less than 1e-6 for unit-scale
// embeddings, far below any match threshold.
func (r *EnrollmentRepository) ReplaceAll(ctx context.Context, records []enrollment.Record, progress func()) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM face_embeddings`); err != nil {
		return fmt.Errorf("clear face embeddings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO face_embeddings (roll, embedding) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Label, pgvector.NewVector(toFloat32(rec.Embedding))); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", rec.Label, err)
		}
		if progress != nil {
			progress()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit face embeddings: %w", err)
	}
	return nil
}

// Count returns the number of stored samples.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM face_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count face embeddings: %w", err)
	}
	return n, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
