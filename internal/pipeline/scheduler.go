// Package pipeline drives the capture, identify, mark and render loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/alert"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/matcher"
)

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrCaptureFailed is returned when a frame read fails mid-run.
	ErrCaptureFailed = errors.New("frame capture failed")
)

// Detector finds face regions in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// Embedder computes one embedding per region, in region order.
type Embedder interface {
	Embed(ctx context.Context, img image.Image, boxes []image.Rectangle) ([][]float64, error)
}

// Display shows an annotated frame. quit asks the scheduler to stop.
type Display interface {
	Show(img image.Image) (quit bool, err error)
}

// Discard is a Display that drops frames.
type Discard struct{}

func (Discard) Show(image.Image) (bool, error) { return false, nil }

// Config tunes the loop.
type Config struct {
	Scale          float64 // detection downscale factor, 0 or >= 1 disables
	ProcessEvery   int     // run detection on one iteration in ProcessEvery
	MaxReadRetries int     // extra read attempts before a capture failure
}

// Deps are the collaborators of a Scheduler. Source, Detector, Embedder,
// Matcher and Ledger are required.
type Deps struct {
	Source   capture.Source
	Detector Detector
	Embedder Embedder
	Matcher  matcher.Matcher
	Ledger   database.Ledger
	Alerts   alert.Sink
	Display  Display
	Clock    func() time.Time
	Observer func(from, to State)
	Logger   *slog.Logger
}

// Stats counts what the scheduler has done during Run.
type Stats struct {
	Iterations   int
	Processed    int
	Faces        int
	Recognized   int
	Unknown      int
	Inserted     int
	Duplicates   int
	Unenrolled   int // matched labels without an identity row
	DetectErrors int
	LedgerErrors int
	RenderErrors int
	ReadRetries  int
}

// Scheduler owns the capture device for one run.
type Scheduler struct {
	deps     Deps
	cfg      Config
	throttle *Throttle
	log      *slog.Logger

	// overlay is only touched by the Run goroutine.
	overlay []Annotation

	mu    sync.Mutex
	state State
	stats Stats
	runID string
}

// New validates deps and returns an idle scheduler.
func New(deps Deps, cfg Config) (*Scheduler, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: capture source is required")
	case deps.Detector == nil || deps.Embedder == nil:
		return nil, errors.New("pipeline: detector and embedder are required")
	case deps.Matcher == nil:
		return nil, errors.New("pipeline: matcher is required")
	case deps.Ledger == nil:
		return nil, errors.New("pipeline: ledger is required")
	}
	if deps.Alerts == nil {
		deps.Alerts = alert.Nop{}
	}
	if deps.Display == nil {
		deps.Display = Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Scheduler{
		deps:     deps,
		cfg:      cfg,
		throttle: NewThrottle(cfg.ProcessEvery),
		log:      log.With("component", "scheduler"),
		state:    Idle,
	}, nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// RunID identifies the current or last run.
func (s *Scheduler) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Scheduler) setState(to State) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from != to && s.deps.Observer != nil {
		s.deps.Observer(from, to)
	}
}

func (s *Scheduler) count(f func(*Stats)) {
	s.mu.Lock()
	f(&s.stats)
	s.mu.Unlock()
}

// Run opens the device and loops until ctx is cancelled, the display asks to
// quit, the source ends, or a read fails. A scheduler runs once.
func (s *Scheduler) Run(ctx context.Context) error {
	if st := s.State(); st != Idle {
		return fmt.Errorf("pipeline: cannot run from state %s", st)
	}

	runID := uuid.NewString()
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()
	log := s.log.With("run_id", runID)

	dev, err := s.deps.Source.Open()
	if err != nil {
		s.setState(Stopped)
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("failed to close capture device", "error", err)
		}
	}()

	s.setState(Capturing)
	log.Info("pipeline started",
		"scale", s.cfg.Scale,
		"process_every", max(s.cfg.ProcessEvery, 1),
	)

	for {
		if ctx.Err() != nil {
			s.stop(log, "cancelled")
			return nil
		}

		frame, err := s.read(ctx, dev, log)
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				s.stop(log, "end of stream")
				return nil
			}
			if ctx.Err() != nil {
				s.stop(log, "cancelled")
				return nil
			}
			s.stop(log, "capture failed")
			return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
		}
		s.count(func(st *Stats) { st.Iterations++ })

		if s.throttle.Next() {
			s.setState(Detecting)
			// An accepted frame is finished even if ctx is cancelled meanwhile.
			s.overlay = s.process(context.WithoutCancel(ctx), frame, runID, log)
		}

		s.setState(Rendering)
		DrawOverlay(frame.Image, s.overlay)
		quit, err := s.deps.Display.Show(frame.Image)
		if err != nil {
			s.count(func(st *Stats) { st.RenderErrors++ })
			log.Warn("display failed", "seq", frame.Seq, "error", err)
		}
		if quit {
			s.stop(log, "quit requested")
			return nil
		}

		s.setState(Capturing)
	}
}

func (s *Scheduler) stop(log *slog.Logger, reason string) {
	s.setState(Stopped)
	st := s.Stats()
	log.Info("pipeline stopped",
		"reason", reason,
		"iterations", st.Iterations,
		"processed", st.Processed,
		"inserted", st.Inserted,
		"duplicates", st.Duplicates,
		"unknown", st.Unknown,
	)
}

// read pulls one frame, retrying up to MaxReadRetries times.
func (s *Scheduler) read(ctx context.Context, dev capture.Device, log *slog.Logger) (capture.Frame, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxReadRetries; attempt++ {
		if attempt > 0 {
			s.count(func(st *Stats) { st.ReadRetries++ })
			log.Warn("retrying frame read", "attempt", attempt, "error", lastErr)
		}
		frame, err := dev.Read(ctx)
		if err == nil {
			return frame, nil
		}
		if errors.Is(err, capture.ErrEndOfStream) || ctx.Err() != nil {
			return capture.Frame{}, err
		}
		lastErr = err
	}
	return capture.Frame{}, lastErr
}

// process runs detection on a downscaled copy and resolves every face.
// It returns the new overlay, empty when detection fails.
func (s *Scheduler) process(ctx context.Context, frame capture.Frame, runID string, log *slog.Logger) []Annotation {
	s.count(func(st *Stats) { st.Processed++ })

	small := Downscale(frame.Image, s.cfg.Scale)
	boxes, err := s.deps.Detector.Detect(ctx, small)
	if err != nil {
		s.count(func(st *Stats) { st.DetectErrors++ })
		log.Warn("face detection failed", "seq", frame.Seq, "error", err)
		return nil
	}
	if len(boxes) == 0 {
		return nil
	}

	embeddings, err := s.deps.Embedder.Embed(ctx, small, boxes)
	if err == nil && len(embeddings) != len(boxes) {
		err = fmt.Errorf("embedder returned %d embeddings for %d faces", len(embeddings), len(boxes))
	}
	if err != nil {
		s.count(func(st *Stats) { st.DetectErrors++ })
		log.Warn("face embedding failed", "seq", frame.Seq, "error", err)
		return nil
	}

	factor := 1.0
	if small != frame.Image {
		factor = 1 / s.cfg.Scale
	}
	origin := frame.Image.Bounds().Min
	now := s.deps.Clock()

	anns := make([]Annotation, 0, len(boxes))
	for i, box := range facematch.ScaleBoxes(boxes, factor) {
		res := s.deps.Matcher.Match(embeddings[i])
		full := box.Add(origin)
		anns = append(anns, Annotation{Box: full, Label: res.Label, Distance: res.Distance})

		ev := alert.Event{RunID: runID, Roll: res.Label, Distance: res.Distance, Box: full, At: now}
		s.count(func(st *Stats) { st.Faces++ })
		if !res.Known() {
			s.count(func(st *Stats) { st.Unknown++ })
			s.deps.Alerts.Unknown(ev)
			continue
		}
		s.count(func(st *Stats) { st.Recognized++ })
		s.mark(ctx, res, ev, now, log)
	}
	return anns
}

func (s *Scheduler) mark(ctx context.Context, res matcher.Result, ev alert.Event, now time.Time, log *slog.Logger) {
	outcome, err := s.deps.Ledger.Mark(ctx, database.NewMarkRequest(res.Label, now))
	if err != nil {
		s.count(func(st *Stats) { st.LedgerErrors++ })
		log.Error("failed to mark attendance", "roll", res.Label, "error", err)
		return
	}

	switch outcome {
	case database.Inserted:
		s.count(func(st *Stats) { st.Inserted++ })
		log.Debug("attendance marked", "roll", res.Label, "distance", res.Distance)
		s.deps.Alerts.Recognized(ev)
	case database.DuplicateSkipped:
		s.count(func(st *Stats) { st.Duplicates++ })
		log.Debug("already marked today", "roll", res.Label)
	case database.UnknownIdentity:
		s.count(func(st *Stats) { st.Unenrolled++ })
		log.Warn("matched label has no identity record", "roll", res.Label)
	}
}
