// Package surface provides render targets for the magnifier lens and region
// overlays: an in-memory image surface whose paints fan out to subscribers,
// and a terminal surface drawn with tcell.
package surface

import (
	"image"
	"sync"
)

// Frame is one painted image.
type Frame struct {
	Image *image.RGBA
	Seq   uint64
}

// Publisher fans painted frames out to subscribers. Slow subscribers miss
// frames rather than stall the painter.
type Publisher struct {
	mu     sync.RWMutex
	subs   map[int]chan Frame
	nextID int
	seq    uint64
	last   *Frame
}

// NewPublisher creates a publisher with no subscribers.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[int]chan Frame)}
}

// Subscribe registers a subscriber. The returned func unsubscribes and closes the channel.
func (p *Publisher) Subscribe(buffer int) (<-chan Frame, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	ch := make(chan Frame, buffer)
	p.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Publish records img as the latest frame and notifies subscribers. img must
// not be mutated afterwards.
func (p *Publisher) Publish(img *image.RGBA) Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	f := Frame{Image: img, Seq: p.seq}
	p.last = &f
	for _, ch := range p.subs {
		select {
		case ch <- f:
		default:
		}
	}
	return f
}

// Latest returns the most recent frame, if any.
func (p *Publisher) Latest() (Frame, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return Frame{}, false
	}
	return *p.last, true
}

// Clear forgets the latest frame.
func (p *Publisher) Clear() {
	p.mu.Lock()
	p.last = nil
	p.mu.Unlock()
}
