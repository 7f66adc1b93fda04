package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reporting API",
	Long: `Start a read-only HTTP API over the attendance ledger.

Endpoints:
  GET /api/v1/health
  GET /api/v1/attendance[?date=YYYY-MM-DD&roll=ROLL]
  GET /api/v1/students
  GET /api/v1/students/{roll}`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST)")
	serveCmd.Flags().StringSlice("allowed-origin", nil, "Extra CORS origin (repeatable, adds to WEB_ALLOWED_ORIGINS)")
}

// resolveServeHostPort applies host, port and origin flags on top of cfg.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Host = host
	}
	cfg.AllowedOrigins = append(cfg.AllowedOrigins, mustGetStringSlice(cmd, "allowed-origin")...)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	resolveServeHostPort(cmd, &cfg.Web)

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := web.NewServer(&cfg.Web, web.Deps{Ledger: store, Identities: store})
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Serving attendance reports on http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
