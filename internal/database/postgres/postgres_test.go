//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/ledgertest"
	"github.com/kozaktomas/face-attendance/internal/enrollment"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

// resetTables empties all tables so each subtest starts from a clean ledger.
func resetTables(t *testing.T, pool *Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), `TRUNCATE attendance, students, face_embeddings RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

func TestLedger(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ledgertest.Run(t, func(t *testing.T) database.Store {
		resetTables(t, pool)
		return NewStore(pool)
	})
}

func TestMigrationsApplied(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	versions, err := pool.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("MigrationsApplied failed: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("Expected 2 migrations, got %v", versions)
	}

	// Running again is a no-op.
	if err := pool.Migrate(context.Background()); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
}

func TestEnrollmentRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewEnrollmentRepository(pool)

	t.Run("EmptyTable", func(t *testing.T) {
		resetTables(t, pool)
		idx, err := repo.LoadIndex(ctx)
		if err != nil {
			t.Fatalf("LoadIndex failed: %v", err)
		}
		if idx.Len() != 0 {
			t.Errorf("Expected empty index, got %d records", idx.Len())
		}
	})

	t.Run("ReplaceAndLoad", func(t *testing.T) {
		resetTables(t, pool)
		records := []enrollment.Record{
			{Label: "S02", Embedding: []float64{0.5, 0.25, 0}},
			{Label: "S01", Embedding: []float64{1, 0, 0.125}},
			{Label: "S02", Embedding: []float64{0, 1, 0}},
		}

		calls := 0
		if err := repo.ReplaceAll(ctx, records, func() { calls++ }); err != nil {
			t.Fatalf("ReplaceAll failed: %v", err)
		}
		if calls != len(records) {
			t.Errorf("Expected %d progress calls, got %d", len(records), calls)
		}

		idx, err := repo.LoadIndex(ctx)
		if err != nil {
			t.Fatalf("LoadIndex failed: %v", err)
		}
		if idx.Len() != len(records) {
			t.Fatalf("Expected %d records, got %d", len(records), idx.Len())
		}
		for i, want := range records {
			got := idx.At(i)
			if got.Label != want.Label {
				t.Errorf("Record %d: expected label %s, got %s", i, want.Label, got.Label)
			}
			for j := range want.Embedding {
				if got.Embedding[j] != want.Embedding[j] {
					t.Errorf("Record %d[%d]: expected %v, got %v", i, j, want.Embedding[j], got.Embedding[j])
				}
			}
		}

		n, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != len(records) {
			t.Errorf("Expected count %d, got %d", len(records), n)
		}
	})

	t.Run("LoadRoundsToFloat32", func(t *testing.T) {
		resetTables(t, pool)
		want := []float64{0.1, 0.3, 1.0 / 3}
		if err := repo.ReplaceAll(ctx, []enrollment.Record{{Label: "S01", Embedding: want}}, nil); err != nil {
			t.Fatalf("ReplaceAll failed: %v", err)
		}

		idx, err := repo.LoadIndex(ctx)
		if err != nil {
			t.Fatalf("LoadIndex failed: %v", err)
		}
		got := idx.At(0).Embedding
		for j, x := range want {
			if got[j] != float64(float32(x)) {
				t.Errorf("component %d: expected float32 rounding of %v, got %v", j, x, got[j])
			}
		}
	})

	t.Run("MixedDimensions", func(t *testing.T) {
		resetTables(t, pool)
		for _, q := range []string{
			`INSERT INTO face_embeddings (roll, embedding) VALUES ('S01', '[1,2,3]')`,
			`INSERT INTO face_embeddings (roll, embedding) VALUES ('S02', '[1,2]')`,
		} {
			if _, err := pool.Exec(ctx, q); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
		if _, err := repo.LoadIndex(ctx); !errors.Is(err, enrollment.ErrIndexNotBuilt) {
			t.Errorf("Expected ErrIndexNotBuilt, got %v", err)
		}
	})

	t.Run("MissingTable", func(t *testing.T) {
		if _, err := pool.Exec(ctx, `DROP TABLE face_embeddings`); err != nil {
			t.Fatalf("Drop failed: %v", err)
		}
		if _, err := repo.LoadIndex(ctx); !errors.Is(err, enrollment.ErrIndexNotBuilt) {
			t.Errorf("Expected ErrIndexNotBuilt, got %v", err)
		}
	})
}
