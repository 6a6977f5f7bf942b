package energy

import (
	"context"
	"sync"
	"time"
)

// Checker runs one overload check. *Monitor satisfies it.
type Checker interface {
	CheckForOverload(ctx context.Context) (Reading, error)
}

// Sink receives every reading the Watcher takes.
type Sink interface {
	Observe(ctx context.Context, reading Reading) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, reading Reading) error

// Observe calls f(ctx, reading).
func (f SinkFunc) Observe(ctx context.Context, reading Reading) error {
	return f(ctx, reading)
}

// Watcher runs overload checks on a fixed interval from a single goroutine.
// Failed checks and sink errors are logged and never stop the loop.
type Watcher struct {
	checker  Checker
	interval time.Duration
	logger   Logger

	mu    sync.RWMutex
	sinks []Sink
	last  *Reading
}

// NewWatcher creates a watcher that checks every interval.
// A non-positive interval disables the periodic loop.
func NewWatcher(checker Checker, interval time.Duration) *Watcher {
	return &Watcher{
		checker:  checker,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// AddSink registers a sink for subsequent readings.
func (w *Watcher) AddSink(sink Sink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sinks = append(w.sinks, sink)
}

// LastReading returns the most recent successful reading, if any.
func (w *Watcher) LastReading() (Reading, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return Reading{}, false
	}
	return *w.last, true
}

// Run checks once immediately and then on every tick until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("energy watcher disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("energy watcher started", "interval", w.interval.String())
	w.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("energy watcher stopped")
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}

// Check runs a single check and hands the reading to every sink.
// A reading is delivered even when only the alert failed.
func (w *Watcher) Check(ctx context.Context) {
	reading, err := w.checker.CheckForOverload(ctx)
	if err != nil {
		w.logger.Error("energy check failed", "error", err)
		if reading.CheckedAt.IsZero() {
			return
		}
	}

	w.mu.Lock()
	w.last = &reading
	sinks := make([]Sink, len(w.sinks))
	copy(sinks, w.sinks)
	w.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Observe(ctx, reading); err != nil {
			w.logger.Warn("energy reading sink failed", "error", err)
		}
	}
}
