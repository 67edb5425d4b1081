// Package scheduler provides "next frame" callbacks: one-shot, cancellable
// callbacks that fire on the next display refresh.
package scheduler

import (
	"sync"
	"time"
)

// ID identifies a pending callback. The zero ID is never issued.
type ID uint64

// Scheduler runs a callback once on the next frame unless cancelled first.
type Scheduler interface {
	Request(fn func()) ID
	Cancel(id ID)
}

// Ticker fires callbacks one frame interval after they are requested.
type Ticker struct {
	interval time.Duration

	mu      sync.Mutex
	next    ID
	pending map[ID]*time.Timer
}

// NewTicker creates a scheduler with the given frame interval.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Ticker{interval: interval, pending: make(map[ID]*time.Timer)}
}

// Interval reports the frame interval.
func (t *Ticker) Interval() time.Duration { return t.interval }

func (t *Ticker) Request(fn func()) ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := t.next
	t.pending[id] = time.AfterFunc(t.interval, func() {
		t.mu.Lock()
		_, ok := t.pending[id]
		delete(t.pending, id)
		t.mu.Unlock()
		if ok {
			fn()
		}
	})
	return id
}

func (t *Ticker) Cancel(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.pending[id]; ok {
		timer.Stop()
		delete(t.pending, id)
	}
}

// Pending reports how many callbacks are waiting to fire.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
