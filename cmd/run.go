package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/alert"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/faceservice"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start taking attendance from the camera",
	Long: `Open the camera, detect and recognize faces and mark each recognized
student present once per day. Press q in the preview window or Ctrl+C to stop.

Examples:
  # Webcam 0 with a preview window (requires a gocv build)
  face-attendance run

  # Replay a directory of frames without a window, saving annotated output
  face-attendance run --dir ./frames --save-dir ./annotated

  # Also serve the reporting API with live pipeline counters
  face-attendance run --headless --serve`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("camera", -1, "Camera device index (default from CAMERA_DEVICE)")
	runCmd.Flags().String("dir", "", "Replay JPEG/PNG frames from a directory instead of the camera")
	runCmd.Flags().Bool("loop", false, "Loop the --dir frames until stopped")
	runCmd.Flags().Bool("headless", false, "Do not open a preview window")
	runCmd.Flags().String("save-dir", "", "Write annotated frames to this directory")
	runCmd.Flags().Int("save-every", 1, "Keep one annotated frame in every N")
	runCmd.Flags().Float64("threshold", 0, "Match threshold (default from MATCH_THRESHOLD)")
	runCmd.Flags().Float64("scale", 0, "Detection downscale factor (default from DETECT_SCALE)")
	runCmd.Flags().Int("every", 0, "Process one frame in every N (default from PROCESS_EVERY)")
	runCmd.Flags().Bool("serve", false, "Serve the reporting API while running")
}

// applyRunFlags overrides config values with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("camera") {
		cfg.Pipeline.Camera = mustGetInt(cmd, "camera")
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Matcher.Threshold = mustGetFloat64(cmd, "threshold")
	}
	if cmd.Flags().Changed("scale") {
		cfg.Pipeline.Scale = mustGetFloat64(cmd, "scale")
	}
	if cmd.Flags().Changed("every") {
		cfg.Pipeline.ProcessEvery = mustGetInt(cmd, "every")
	}
}

// resolveSource picks the frame source from flags.
func resolveSource(cmd *cobra.Command, cfg *config.Config) capture.Source {
	if dir := mustGetString(cmd, "dir"); dir != "" {
		return capture.DirSource{Dir: dir, Loop: mustGetBool(cmd, "loop")}
	}
	return capture.Webcam{Device: cfg.Pipeline.Camera}
}

// resolveDisplay picks the display from flags. The returned cleanup is never nil.
func resolveDisplay(cmd *cobra.Command) (pipeline.Display, func(), error) {
	if dir := mustGetString(cmd, "save-dir"); dir != "" {
		saver, err := capture.NewFrameSaver(dir, 85, mustGetInt(cmd, "save-every"))
		if err != nil {
			return nil, nil, err
		}
		return saver, func() {
			saved, dropped := saver.Stats()
			fmt.Printf("Annotated frames: %d saved, %d dropped (%s)\n", saved, dropped, dir)
		}, nil
	}
	if mustGetBool(cmd, "headless") {
		return pipeline.Discard{}, func() {}, nil
	}
	win, err := capture.NewWindow("Attendance")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open preview window (use --headless or --save-dir): %w", err)
	}
	return win, func() { _ = win.Close() }, nil
}

// newAlertSink always logs and publishes to MQTT when a broker is configured.
func newAlertSink(cfg *config.AlertConfig) (*alert.Async, func()) {
	notifiers := alert.Multi{alert.LogNotifier{Log: slog.Default()}}
	disconnect := func() {}

	if cfg.MQTTBroker != "" {
		client, err := alert.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
		if err != nil {
			slog.Warn("mqtt alerts disabled", "broker", cfg.MQTTBroker, "error", err)
		} else {
			notifiers = append(notifiers, alert.NewMQTTNotifier(client, cfg.MQTTTopic))
			disconnect = func() { client.Disconnect(250) }
		}
	}

	sink := alert.NewAsync(notifiers, cfg.Buffer, slog.Default())
	return sink, func() {
		sink.Close()
		disconnect()
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyRunFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := loadIndex(ctx, &cfg.Enrollment, store)
	if err != nil {
		return fmt.Errorf("cannot start attendance: %w", err)
	}
	if index.Len() == 0 {
		slog.Warn("enrollment index is empty, every face will be unknown")
	}
	m, err := newMatcher(&cfg.Matcher, index)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d embeddings for %d students (dim %d, %s matcher)\n",
		index.Len(), len(index.Labels()), index.Dim(), cfg.Matcher.Index)

	display, closeDisplay, err := resolveDisplay(cmd)
	if err != nil {
		return err
	}
	defer closeDisplay()

	alerts, closeAlerts := newAlertSink(&cfg.Alert)
	defer closeAlerts()

	faces := faceservice.NewClient(cfg.FaceService.URL)
	sched, err := pipeline.New(pipeline.Deps{
		Source:   resolveSource(cmd, cfg),
		Detector: faces,
		Embedder: faces,
		Matcher:  m,
		Ledger:   store,
		Alerts:   alerts,
		Display:  display,
		Observer: func(from, to pipeline.State) {
			slog.Debug("pipeline state", "from", from.String(), "to", to.String())
		},
	}, pipeline.Config{
		Scale:          cfg.Pipeline.Scale,
		ProcessEvery:   cfg.Pipeline.ProcessEvery,
		MaxReadRetries: cfg.Pipeline.MaxReadRetries,
	})
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "serve") {
		server, err := web.NewServer(&cfg.Web, web.Deps{Ledger: store, Identities: store, Pipeline: sched})
		if err != nil {
			return err
		}
		go func() {
			if err := server.Start(); err != nil {
				slog.Error("web server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("web server shutdown", "error", err)
			}
		}()
		fmt.Printf("Reporting API on http://%s/api/v1/attendance\n", server.Addr())
	}

	fmt.Println("Taking attendance, press q or Ctrl+C to stop")
	runErr := sched.Run(ctx)
	printRunSummary(sched.RunID(), sched.Stats())
	if sent, dropped, failed := alerts.Stats(); dropped+failed > 0 {
		slog.Warn("alerts not delivered", "sent", sent, "dropped", dropped, "failed", failed)
	}

	if errors.Is(runErr, pipeline.ErrDeviceUnavailable) {
		return fmt.Errorf("camera unavailable: %w", runErr)
	}
	return runErr
}

func printRunSummary(runID string, st pipeline.Stats) {
	fmt.Printf("\nRun %s finished\n", runID)
	fmt.Printf("  Frames:      %d (%d processed)\n", st.Iterations, st.Processed)
	fmt.Printf("  Faces:       %d (%d recognized, %d unknown)\n", st.Faces, st.Recognized, st.Unknown)
	fmt.Printf("  Marked:      %d new, %d already present today\n", st.Inserted, st.Duplicates)
	if st.Unenrolled > 0 {
		fmt.Printf("  Unenrolled:  %d matches without a student record\n", st.Unenrolled)
	}
	if errs := st.DetectErrors + st.LedgerErrors + st.RenderErrors; errs > 0 {
		fmt.Printf("  Errors:      %d detect, %d ledger, %d render\n", st.DetectErrors, st.LedgerErrors, st.RenderErrors)
	}
}
