package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityRepository provides PostgreSQL access to the students table.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// ListIdentities returns all identities ordered by roll.
func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, roll, name, phone, email FROM students ORDER BY roll`)
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
func (r *IdentityRepository) GetIdentity(ctx context.Context, roll string) (*database.Identity, error) {
	var id database.Identity
	err := r.pool.QueryRow(ctx, `SELECT id, roll, name, phone, email FROM students WHERE roll = $1`, roll).
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
func (r *IdentityRepository) SaveIdentity(ctx context.Context, id database.Identity) (int64, error) {
	if id.Roll == "" {
		return 0, errors.New("identity roll is required")
	}
	var newID int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO students (roll, name, phone, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (roll) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email
		RETURNING id
	`, id.Roll, id.Name, id.Phone, id.Email).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("save student %s: %w", id.Roll, err)
	}
	return newID, nil
}
