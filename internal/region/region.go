// Package region applies a dichromacy simulation to a drag-selected screen
// rectangle and keeps the result on screen for a limited time.
package region

import (
	"context"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/nfnt/resize"

	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/trace"
)

// Region filter constants
const (
	// Selections must be strictly larger than this on both axes
	MinSelection = 10

	DefaultOverlayTTL = 10 * time.Second
)

// Overlay is a simulated copy of a screen rectangle, sized in viewport pixels.
type Overlay struct {
	Seq     uint64
	Rect    image.Rectangle // viewport coordinates
	Filter  dichromacy.Filter
	Image   *image.RGBA
	Expires time.Time
}

// ChangeFunc is called with the new overlay, or nil when it is cleared.
type ChangeFunc func(o *Overlay)

// Options configure a Selector.
type Options struct {
	Provider         screen.Provider
	DevicePixelRatio float64
	TTL              time.Duration
	OnChange         ChangeFunc
}

// Selector tracks the selection rectangle and the active overlay.
type Selector struct {
	opts Options

	mu        sync.Mutex
	active    bool
	filter    dichromacy.Filter
	selecting bool
	start     [2]float64
	end       [2]float64
	overlay   *Overlay
	timer     *time.Timer
	seq       uint64
}

// New creates an idle selector.
func New(opts Options) *Selector {
	if opts.DevicePixelRatio <= 0 {
		opts.DevicePixelRatio = 1
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOverlayTTL
	}
	return &Selector{opts: opts}
}

// Start enters selecting mode with filter, resetting any previous session.
func (s *Selector) Start(filter dichromacy.Filter) {
	s.Stop()
	s.mu.Lock()
	s.active = true
	s.filter = filter
	s.mu.Unlock()
}

// Stop leaves selecting mode and removes the overlay.
func (s *Selector) Stop() {
	s.mu.Lock()
	s.active = false
	s.selecting = false
	cleared := s.clearLocked()
	s.mu.Unlock()
	if cleared {
		s.notify(nil)
	}
}

// Active reports whether selecting mode is on.
func (s *Selector) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Down begins a selection at (x, y).
func (s *Selector) Down(x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return false
	}
	s.selecting = true
	s.start = [2]float64{x, y}
	s.end = s.start
	return true
}

// Move extends the selection.
func (s *Selector) Move(x, y float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selecting {
		return false
	}
	s.end = [2]float64{x, y}
	return true
}

// Selection returns the normalised rectangle being dragged.
func (s *Selector) Selection() (image.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.selecting {
		return image.Rectangle{}, false
	}
	return s.rectLocked(), true
}

func (s *Selector) rectLocked() image.Rectangle {
	x0, x1 := math.Min(s.start[0], s.end[0]), math.Max(s.start[0], s.end[0])
	y0, y1 := math.Min(s.start[1], s.end[1]), math.Max(s.start[1], s.end[1])
	return image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
}

// Up finishes the selection at (x, y). Selections larger than MinSelection on
// both axes are captured and applied; the new overlay is returned. A small
// selection returns nil and no error.
func (s *Selector) Up(ctx context.Context, x, y float64) (*Overlay, error) {
	s.mu.Lock()
	if !s.selecting {
		s.mu.Unlock()
		return nil, nil
	}
	s.selecting = false
	s.end = [2]float64{x, y}
	rect := s.rectLocked()
	filter := s.filter
	s.mu.Unlock()

	if rect.Dx() <= MinSelection || rect.Dy() <= MinSelection {
		return nil, nil
	}
	return s.apply(ctx, rect, filter)
}

func (s *Selector) apply(ctx context.Context, rect image.Rectangle, filter dichromacy.Filter) (*Overlay, error) {
	ctx, span := trace.StartSpan(ctx, "region.apply")
	defer span.End()
	span.SetAttr("rect", rect.String())

	img, err := s.capture(ctx, rect, filter)
	if err != nil {
		span.Fail(err)
		trace.Logger(ctx).Warn("region filter failed", "rect", rect.String(), "error", err)
		return nil, err
	}

	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil, apperrors.New(apperrors.CodeCancelled, "region filter stopped")
	}
	s.clearLocked()
	s.seq++
	o := &Overlay{
		Seq:     s.seq,
		Rect:    rect,
		Filter:  filter,
		Image:   img,
		Expires: time.Now().Add(s.opts.TTL),
	}
	s.overlay = o
	seq := s.seq
	s.timer = time.AfterFunc(s.opts.TTL, func() { s.expire(seq) })
	s.mu.Unlock()

	trace.Logger(ctx).Info("region filter applied", "rect", rect.String(), "filter", filter.String(), "ttl", s.opts.TTL)
	s.notify(o)
	return o, nil
}

// capture grabs one frame, crops rect (scaled to device pixels), converts it
// to viewport size and simulates filter over it.
func (s *Selector) capture(ctx context.Context, rect image.Rectangle, filter dichromacy.Filter) (*image.RGBA, error) {
	session, err := s.opts.Provider.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Stop()

	frame, err := session.Grab(ctx)
	if err != nil {
		return nil, err
	}

	dpr := s.opts.DevicePixelRatio
	src := image.Rect(
		int(math.Round(float64(rect.Min.X)*dpr)), int(math.Round(float64(rect.Min.Y)*dpr)),
		int(math.Round(float64(rect.Max.X)*dpr)), int(math.Round(float64(rect.Max.Y)*dpr)),
	).Intersect(frame.Bounds())
	if src.Empty() {
		return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "selection %v is outside the screen", rect)
	}

	img := screen.ToRGBA(frame.SubImage(src))
	if dpr != 1 {
		w := int(math.Round(float64(src.Dx()) / dpr))
		h := int(math.Round(float64(src.Dy()) / dpr))
		img = screen.ToRGBA(resize.Resize(uint(max(w, 1)), uint(max(h, 1)), img, resize.Bilinear))
	}
	if err := dichromacy.Apply(img, filter); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *Selector) expire(seq uint64) {
	s.mu.Lock()
	if s.overlay == nil || s.overlay.Seq != seq {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	s.mu.Unlock()
	slog.Debug("region overlay expired", "seq", seq)
	s.notify(nil)
}

// Remove drops the current overlay, if any.
func (s *Selector) Remove() bool {
	s.mu.Lock()
	cleared := s.clearLocked()
	s.mu.Unlock()
	if cleared {
		s.notify(nil)
	}
	return cleared
}

// Current returns the live overlay.
func (s *Selector) Current() (*Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay, s.overlay != nil
}

func (s *Selector) clearLocked() bool {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.overlay == nil {
		return false
	}
	s.overlay = nil
	return true
}

func (s *Selector) notify(o *Overlay) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(o)
	}
}
