package alert

import (
	"context"
	"errors"
	"log/slog"
)

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, e Event) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	switch e.Kind {
	case KindUnknown:
		log.Warn("unknown face detected",
			"run_id", e.RunID,
			"distance", e.Distance,
			"box", e.Box.String(),
		)
	default:
		log.Info("attendance marked",
			"run_id", e.RunID,
			"roll", e.Roll,
			"distance", e.Distance,
		)
	}
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
