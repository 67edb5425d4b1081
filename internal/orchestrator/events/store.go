// Package events records UI-facing lens events and fans them out to a channel.
package events

import (
	"sync"
	"time"
)

// Type names an event.
type Type string

const (
	MagnifierStarted Type = "magnifier_started"
	MagnifierStopped Type = "magnifier_stopped"
	FilterChanged    Type = "filter_changed"
	RegionApplied    Type = "region_applied"
	RegionCleared    Type = "region_cleared"
	Error            Type = "error"
)

// Rect is a viewport rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Event is a single UI notification.
type Event struct {
	Type      Type       `json:"type"`
	Time      time.Time  `json:"time"`
	Filter    string     `json:"filter,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Code      string     `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	Rect      *Rect      `json:"rect,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Store keeps the most recent events and offers them on a channel.
type Store struct {
	mu       sync.RWMutex
	entries  []Event
	maxSize  int
	eventsCh chan Event
}

// NewStore creates a store that remembers maxEntries events and buffers
// eventBuffer undelivered ones.
func NewStore(maxEntries, eventBuffer int) *Store {
	return &Store{
		entries:  make([]Event, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan Event, eventBuffer),
	}
}

// Emit timestamps e, records it and sends it (non-blocking).
func (s *Store) Emit(e Event) Event {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	s.mu.Lock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
	s.mu.Unlock()

	select {
	case s.eventsCh <- e:
	default:
	}
	return e
}

// Events returns the channel for emitted events.
func (s *Store) Events() <-chan Event {
	return s.eventsCh
}

// Recent returns events emitted within the last window, oldest first.
func (s *Store) Recent(window time.Duration) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var out []Event
	for _, e := range s.entries {
		if !e.Time.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of all remembered events.
func (s *Store) Entries() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Event, len(s.entries))
	copy(result, s.entries)
	return result
}
