// Package alert delivers recognition events off the frame loop.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Kind distinguishes event types.
type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindRecognized Kind = "recognized"
)

// Event describes one face outcome. Roll is empty for unknown faces.
type Event struct {
	Kind     Kind            `json:"kind"`
	RunID    string          `json:"run_id"`
	Roll     string          `json:"roll,omitempty"`
	Distance float64         `json:"distance"`
	Box      image.Rectangle `json:"-"`
	At       time.Time       `json:"at"`
}

// MarshalJSON encodes a Distance that is not finite, such as the +Inf of an
// empty index, as null.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	out := struct {
		plain
		Distance *float64 `json:"distance"`
	}{plain: plain(e)}
	if !math.IsInf(e.Distance, 0) && !math.IsNaN(e.Distance) {
		out.Distance = &e.Distance
	}
	return json.Marshal(out)
}

// Sink receives events from the pipeline. Implementations must not block.
type Sink interface {
	Unknown(Event)
	Recognized(Event)
}

// Notifier delivers a single event. It may block.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Unknown(Event)    {}
func (Nop) Recognized(Event) {}

const defaultBuffer = 64

// Async queues events for a single worker goroutine. When the queue is full
// events are dropped and counted.
type Async struct {
	notifier Notifier
	events   chan Event
	done     chan struct{}
	log      *slog.Logger

	mu      sync.RWMutex
	closed  bool
	sent    atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewAsync starts the worker. buffer <= 0 uses the default size.
func NewAsync(n Notifier, buffer int, log *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Async{
		notifier: n,
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
		log:      log,
	}
	go a.run()
	return a
}

// Unknown queues an unknown-face event.
func (a *Async) Unknown(e Event) {
	e.Kind = KindUnknown
	a.enqueue(e)
}

// Recognized queues a newly-marked identity event.
func (a *Async) Recognized(e Event) {
	e.Kind = KindRecognized
	a.enqueue(e)
}

func (a *Async) enqueue(e Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return
	}
	select {
	case a.events <- e:
	default:
		if n := a.dropped.Add(1); n == 1 || n%100 == 0 {
			a.log.Warn("alert queue full, dropping event", "kind", e.Kind, "dropped_total", n)
		}
	}
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		a.deliver(e)
	}
}

func (a *Async) deliver(e Event) {
	defer func() {
		if r := recover(); r != nil {
			a.failed.Add(1)
			a.log.Error("alert notifier panicked", "kind", e.Kind, "panic", fmt.Sprint(r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.notifier.Notify(ctx, e); err != nil {
		a.failed.Add(1)
		a.log.Warn("alert delivery failed", "kind", e.Kind, "roll", e.Roll, "error", err)
		return
	}
	a.sent.Add(1)
}

// Close stops accepting events and waits for queued ones to be delivered.
// Events emitted after Close are counted as dropped.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	<-a.done
}

// Stats returns delivered, dropped and failed counts.
func (a *Async) Stats() (sent, dropped, failed uint64) {
	return a.sent.Load(), a.dropped.Load(), a.failed.Load()
}
