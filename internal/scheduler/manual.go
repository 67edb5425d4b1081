package scheduler

import (
	"sort"
	"sync"
)

// Manual is a scheduler driven by explicit Step calls, for tests and
// single-stepping tools.
type Manual struct {
	mu      sync.Mutex
	next    ID
	pending map[ID]func()
}

// NewManual creates an empty manual scheduler.
func NewManual() *Manual {
	return &Manual{pending: make(map[ID]func())}
}

func (m *Manual) Request(fn func()) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending[m.next] = fn
	return m.next
}

func (m *Manual) Cancel(id ID) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

// Pending reports how many callbacks are waiting.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Step runs every callback pending at the time of the call, in request order,
// and returns how many ran. Callbacks requested during Step wait for the next Step.
func (m *Manual) Step() int {
	m.mu.Lock()
	ids := make([]ID, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	m.mu.Unlock()

	ran := 0
	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.pending[id]
		delete(m.pending, id)
		m.mu.Unlock()
		if ok {
			fn()
			ran++
		}
	}
	return ran
}
