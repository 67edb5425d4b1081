package orchestrator

import (
	"time"

	"github.com/chromalens/platform/internal/orchestrator/events"
)

// State is the UI-facing view of the manager.
type State struct {
	Magnifier   string      `json:"magnifier"`
	Filter      string      `json:"filter"`
	FilterLabel string      `json:"filter_label"`
	Lens        *LensState  `json:"lens,omitempty"`
	Cycles      uint64      `json:"cycles"`
	Failures    int         `json:"failures"`
	Region      RegionState `json:"region"`
}

// LensState is the lens rectangle in viewport pixels.
type LensState struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Dragging bool    `json:"dragging"`
}

// RegionState describes region selection.
type RegionState struct {
	Selecting bool          `json:"selecting"`
	Overlay   *OverlayState `json:"overlay,omitempty"`
}

// OverlayState describes the live region overlay.
type OverlayState struct {
	Rect      events.Rect `json:"rect"`
	Filter    string      `json:"filter"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// State returns a snapshot for the transports.
func (m *Manager) State() State {
	snap := m.loop.Snapshot()
	f := m.Filter()
	s := State{
		Magnifier:   snap.State.String(),
		Filter:      f.String(),
		FilterLabel: f.Label(),
		Cycles:      snap.Cycles,
		Failures:    snap.Failures,
		Region:      RegionState{Selecting: m.region.Active()},
	}
	if snap.Lens != nil {
		s.Lens = &LensState{
			X: snap.Lens.X, Y: snap.Lens.Y,
			Width: snap.Lens.Width, Height: snap.Lens.Height,
			Dragging: snap.Lens.Dragging,
		}
	}
	if o, ok := m.region.Current(); ok {
		s.Region.Overlay = &OverlayState{
			Rect: events.Rect{
				X: o.Rect.Min.X, Y: o.Rect.Min.Y,
				Width: o.Rect.Dx(), Height: o.Rect.Dy(),
			},
			Filter:    o.Filter.String(),
			ExpiresAt: o.Expires,
		}
	}
	return s
}
