package alert

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a Notifier that stores events and can block or fail.
type recorder struct {
	mu      sync.Mutex
	events  []Event
	release chan struct{}
	err     error
	panicOn Kind
}

func (r *recorder) Notify(ctx context.Context, e Event) error {
	if r.release != nil {
		<-r.release
	}
	if r.panicOn != "" && e.Kind == r.panicOn {
		panic("notifier exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestAsync_DeliversInOrder(t *testing.T) {
	rec := &recorder{}
	a := NewAsync(rec, 8, quietLogger())

	a.Unknown(Event{RunID: "r1"})
	a.Recognized(Event{RunID: "r1", Roll: "S01"})
	a.Close()

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != KindUnknown || events[1].Kind != KindRecognized || events[1].Roll != "S01" {
		t.Errorf("unexpected events %+v", events)
	}
	if sent, dropped, failed := a.Stats(); sent != 2 || dropped != 0 || failed != 0 {
		t.Errorf("Stats() = %d, %d, %d; want 2, 0, 0", sent, dropped, failed)
	}
}

func TestAsync_FullQueueDoesNotBlock(t *testing.T) {
	rec := &recorder{release: make(chan struct{})}
	a := NewAsync(rec, 2, quietLogger())

	done := make(chan struct{})
	go func() {
		for range 20 {
			a.Unknown(Event{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emitting blocked on a stalled notifier")
	}

	close(rec.release)
	a.Close()

	sent, dropped, _ := a.Stats()
	if sent+dropped != 20 {
		t.Errorf("sent %d + dropped %d, want 20 total", sent, dropped)
	}
	// One event may be in flight in the worker plus two buffered.
	if sent > 3 {
		t.Errorf("expected at most 3 delivered, got %d", sent)
	}
	if dropped < 17 {
		t.Errorf("expected at least 17 dropped, got %d", dropped)
	}
}

func TestAsync_NotifierFailuresAreSwallowed(t *testing.T) {
	rec := &recorder{panicOn: KindUnknown}
	a := NewAsync(rec, 4, quietLogger())

	a.Unknown(Event{})
	a.Recognized(Event{Roll: "S01"})
	a.Close()

	sent, _, failed := a.Stats()
	if failed != 1 || sent != 1 {
		t.Errorf("Stats() sent=%d failed=%d; want 1, 1", sent, failed)
	}

	rec2 := &recorder{err: errors.New("down")}
	a2 := NewAsync(rec2, 4, quietLogger())
	a2.Recognized(Event{Roll: "S01"})
	a2.Close()
	if _, _, failed := a2.Stats(); failed != 1 {
		t.Errorf("expected 1 failed delivery, got %d", failed)
	}
}

func TestAsync_EmitAfterClose(t *testing.T) {
	a := NewAsync(&recorder{}, 1, quietLogger())
	a.Close()
	a.Close()

	a.Unknown(Event{})
	if _, dropped, _ := a.Stats(); dropped != 1 {
		t.Errorf("expected event after close to be dropped, got %d", dropped)
	}
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("bad")}

	err := Multi{ok, bad, LogNotifier{Log: quietLogger()}}.Notify(context.Background(), Event{Kind: KindRecognized})
	if err == nil || err.Error() != "bad" {
		t.Errorf("expected joined error, got %v", err)
	}
	if len(ok.Events()) != 1 || len(bad.Events()) != 1 {
		t.Error("expected every notifier to be called")
	}
}

func TestEvent_MarshalJSON(t *testing.T) {
	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "recognized",
			event: Event{Kind: KindRecognized, RunID: "r1", Roll: "S01", Distance: 0.25, Box: image.Rect(0, 0, 4, 4), At: at},
			want:  `{"kind":"recognized","run_id":"r1","roll":"S01","at":"2025-01-01T09:00:00Z","distance":0.25}`,
		},
		{
			name:  "infinite distance",
			event: Event{Kind: KindUnknown, RunID: "r1", Distance: math.Inf(1), At: at},
			want:  `{"kind":"unknown","run_id":"r1","at":"2025-01-01T09:00:00Z","distance":null}`,
		},
		{
			name:  "nan distance",
			event: Event{Kind: KindUnknown, RunID: "r1", Distance: math.NaN(), At: at},
			want:  `{"kind":"unknown","run_id":"r1","at":"2025-01-01T09:00:00Z","distance":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}
