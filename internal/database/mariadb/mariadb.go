package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

func init() {
	database.RegisterBackend("mariadb", Open)
}

// Pool wraps the go-sql-driver/mysql connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool opens and pings a pool for the DSN in cfg.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	dsn, err := parseDSN(cfg.URL)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// parseDSN parses url and turns clientFoundRows off. Mark tells an insert from
// a duplicate by affected rows, which clientFoundRows would report as 1 for both.
func parseDSN(url string) (*mysql.Config, error) {
	dsn, err := mysql.ParseDSN(url)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	dsn.ClientFoundRows = false
	return dsn, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing MariaDB connection: %w", err)
	}
	return nil
}

// Store is the MariaDB implementation of database.Store.
type Store struct {
	pool *Pool
}

// Open connects, applies pending migrations and returns a ready store.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (database.Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return NewStore(pool), nil
}

// NewStore wraps an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

var _ database.Store = (*Store)(nil)
