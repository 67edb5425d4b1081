// Package persist coalesces preference writes.
package persist

import (
	"context"
	"sync"
	"time"

	"github.com/chromalens/platform/internal/prefs"
	"github.com/chromalens/platform/internal/trace"
)

// DefaultFlushDelay is how long a change waits for further changes before it is written.
const DefaultFlushDelay = 250 * time.Millisecond

// Saver stores preferences.
type Saver interface {
	Save(ctx context.Context, p prefs.Prefs) error
}

// Writer keeps the latest preferences and saves them once changes settle.
type Writer struct {
	store      Saver
	flushDelay time.Duration

	saveMu  sync.Mutex // serialises saves so a newer value is never overwritten by an older one
	mu      sync.Mutex
	pending *prefs.Prefs
	timer   *time.Timer
	stopped bool
}

// NewWriter creates a writer.
func NewWriter(store Saver, flushDelay time.Duration) *Writer {
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Writer{store: store, flushDelay: flushDelay}
}

// Set queues p, replacing anything not yet written.
func (w *Writer) Set(p prefs.Prefs) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.pending = &p

	if w.timer == nil {
		w.timer = time.AfterFunc(w.flushDelay, w.Flush)
	} else {
		w.timer.Reset(w.flushDelay)
	}
}

// Flush writes the pending value now.
func (w *Writer) Flush() {
	w.saveMu.Lock()
	defer w.saveMu.Unlock()

	w.mu.Lock()
	p := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	if p == nil {
		return
	}

	ctx, span := trace.StartSpan(context.Background(), "prefs_flush")
	defer span.End()
	if err := w.store.Save(ctx, *p); err != nil {
		span.Fail(err)
		trace.Logger(ctx).Warn("saving preferences failed", "error", err)
		return
	}
	trace.Logger(ctx).Debug("preferences saved", "active", p.MagnifierActive, "filter", p.CurrentFilter.String())
}

// Stop flushes and rejects further writes.
func (w *Writer) Stop() {
	w.Flush()
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}
