package mariadb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationLockName    = "face_attendance_migrate"
	migrationLockTimeout = 30 // seconds
)

// statements splits a migration file on semicolons that end a line.
// The driver runs single statements unless multiStatements is enabled.
func statements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";\n") {
		if stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), ";")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Migrate applies pending migrations under a named lock. MariaDB commits DDL
// implicitly, so statements run one by one and the version is recorded last.
func (p *Pool) Migrate(ctx context.Context) error {
	all, err := database.LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	var locked sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", migrationLockName, migrationLockTimeout).Scan(&locked); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	if !locked.Valid || locked.Int64 != 1 {
		return errors.New("acquire migration lock: timed out")
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT RELEASE_LOCK(?)", migrationLockName)
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	for _, m := range database.Pending(all, applied) {
		for _, stmt := range statements(m.SQL) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute migration %s: %w", m.Version, err)
			}
		}
		if _, err := conn.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Version, err)
		}
		slog.Info("applied migration", "backend", "mariadb", "version", m.Version)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migration versions: %w", err)
	}
	return versions, nil
}
