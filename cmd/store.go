package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	_ "github.com/kozaktomas/face-attendance/internal/database/mariadb"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
	"github.com/kozaktomas/face-attendance/internal/matcher"
)

// openStore connects to the configured backend and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	store, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Database.Backend, err)
	}
	return store, nil
}

// postgresStore returns the PostgreSQL store behind store, for features that
// need pgvector.
func postgresStore(store database.Store) (*postgres.Store, error) {
	pg, ok := store.(*postgres.Store)
	if !ok {
		return nil, errors.New("enrollment table requires DATABASE_BACKEND=postgres")
	}
	return pg, nil
}

// loadIndex loads the enrollment index from the configured source. store is
// only consulted for the postgres source.
func loadIndex(ctx context.Context, cfg *config.EnrollmentConfig, store database.Store) (*enrollment.Index, error) {
	switch cfg.Source {
	case "", "file":
		return enrollment.LoadFile(cfg.Path)
	case "postgres":
		pg, err := postgresStore(store)
		if err != nil {
			return nil, err
		}
		return postgres.NewEnrollmentRepository(pg.Pool()).LoadIndex(ctx)
	default:
		return nil, fmt.Errorf("unknown enrollment source %q (want file or postgres)", cfg.Source)
	}
}

// newMatcher builds the configured matcher over index.
func newMatcher(cfg *config.MatcherConfig, index *enrollment.Index) (matcher.Matcher, error) {
	switch cfg.Index {
	case "", "linear":
		return matcher.NewLinear(index, cfg.Threshold), nil
	case "hnsw":
		return matcher.NewHNSW(index, cfg.Threshold, cfg.HNSWCandidates), nil
	default:
		return nil, fmt.Errorf("unknown matcher index %q (want linear or hnsw)", cfg.Index)
	}
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
