package magnifier

import (
	"image"

	"github.com/chromalens/platform/internal/dichromacy"
)

// State is the loop lifecycle state.
type State int

const (
	Inactive State = iota
	Requesting
	Active
)

func (s State) String() string {
	switch s {
	case Requesting:
		return "requesting"
	case Active:
		return "active"
	default:
		return "inactive"
	}
}

// StopReason tells why an active loop returned to Inactive.
type StopReason string

const (
	ReasonUser         StopReason = "user"
	ReasonReplaced     StopReason = "replaced"
	ReasonCaptureEnded StopReason = "capture_ended"
	ReasonFailures     StopReason = "capture_failures"
)

// Lens is the on-screen presentation of the magnifier.
type Lens struct {
	X, Y          float64 // top-left, viewport coordinates
	Width, Height int
	Dragging      bool
	OffsetX       float64 // pointer position inside the lens when the drag started
	OffsetY       float64
}

// Contains reports whether the viewport point lies inside the lens.
func (l Lens) Contains(x, y float64) bool {
	return x >= l.X && x < l.X+float64(l.Width) && y >= l.Y && y < l.Y+float64(l.Height)
}

// SourceRect returns the screen region a cycle magnifies, in device pixels:
// centred on the lens, 1/Magnification of its size, scaled by dpr.
func (l Lens) SourceRect(dpr float64) image.Rectangle {
	if dpr <= 0 {
		dpr = 1
	}
	w := float64(l.Width) / Magnification
	h := float64(l.Height) / Magnification
	x := l.X + float64(l.Width)/2 - w/2
	y := l.Y + float64(l.Height)/2 - h/2
	return image.Rect(
		roundInt(x*dpr), roundInt(y*dpr),
		roundInt((x+w)*dpr), roundInt((y+h)*dpr),
	)
}

// Snapshot is a point-in-time view of the loop.
type Snapshot struct {
	State    State
	Filter   dichromacy.Filter
	Lens     *Lens // nil while inactive
	Cycles   uint64
	Failures int
}

func roundInt(v float64) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}
