package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Connect to the configured backend and apply any embedded SQL migrations
that have not run yet. Every other command that opens the database does the
same, so this is only needed to prepare a schema ahead of time.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("%s schema is up to date\n", cfg.Database.Backend)
	if pg, ok := store.(*postgres.Store); ok {
		applied, err := pg.Pool().MigrationsApplied(ctx)
		if err != nil {
			return fmt.Errorf("failed to list migrations: %w", err)
		}
		for _, v := range applied {
			fmt.Printf("  %s\n", v)
		}
	}
	return nil
}
