package magnifier

import (
	"context"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/nfnt/resize"

	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/resilience"
	"github.com/chromalens/platform/internal/scheduler"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/surface"
	"github.com/chromalens/platform/internal/trace"
)

// SurfaceFactory creates the paint target for a new lens.
type SurfaceFactory func(width, height int) (surface.Target, error)

// StopFunc is told when an active loop returns to Inactive. err is nil for
// user and replacement stops.
type StopFunc func(reason StopReason, err error)

// Options configure a Loop.
type Options struct {
	Provider         screen.Provider
	Scheduler        scheduler.Scheduler
	NewSurface       SurfaceFactory
	LensSize         int
	DevicePixelRatio float64
	Origin           image.Point // initial lens position
	Retry            resilience.RetryConfig
	Breaker          resilience.Config
	OnStop           StopFunc
}

func (o Options) withDefaults() Options {
	if o.LensSize <= 0 {
		o.LensSize = DefaultLensSize
	}
	if o.DevicePixelRatio <= 0 {
		o.DevicePixelRatio = 1
	}
	if o.Origin == (image.Point{}) {
		o.Origin = image.Pt(DefaultOriginX, DefaultOriginY)
	}
	if o.Retry.MaxRetries == 0 {
		o.Retry = resilience.CaptureRetryConfig()
	}
	if o.Breaker.Threshold == 0 {
		o.Breaker = resilience.CaptureConfig(DefaultFailureThreshold)
	}
	return o
}

// Loop owns one capture session, one surface and at most one pending cycle.
type Loop struct {
	opts Options

	mu       sync.Mutex
	state    State
	filter   dichromacy.Filter
	gen      uint64 // bumped on every activation and deactivation
	session  screen.Session
	surface  surface.Target
	lens     *Lens
	pending  scheduler.ID
	inflight chan struct{} // closed when the running cycle returns
	ctx      context.Context
	cancel   context.CancelFunc
	breaker  *resilience.Breaker
	cycles   uint64
}

// New creates an inactive loop.
func New(opts Options) *Loop {
	opts = opts.withDefaults()
	return &Loop{
		opts:    opts,
		breaker: resilience.New(opts.Breaker),
	}
}

// teardown holds resources detached from the loop that still need releasing.
type teardown struct {
	session  screen.Session
	surface  surface.Target
	inflight chan struct{}
}

func (t teardown) release() {
	if t.session != nil {
		t.session.Stop()
	}
	if t.surface != nil {
		t.surface.Remove()
	}
}

// detachLocked moves the loop to Inactive and hands back what it held.
// Any cycle still running will see the generation change and bail out.
func (l *Loop) detachLocked() teardown {
	td := teardown{session: l.session, surface: l.surface, inflight: l.inflight}
	l.gen++
	l.state = Inactive
	if l.pending != 0 {
		l.opts.Scheduler.Cancel(l.pending)
		l.pending = 0
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.session = nil
	l.surface = nil
	l.lens = nil
	return td
}

// Activate requests a capture session and starts the cycle. An already
// active lens is torn down first so at most one session is ever live.
func (l *Loop) Activate(ctx context.Context, filter dichromacy.Filter) error {
	ctx, span := trace.StartSpan(ctx, "magnifier.activate")
	defer span.End()
	span.SetAttr("filter", filter.String())

	l.deactivate(ReasonReplaced, nil)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.state = Requesting
	l.filter = filter
	l.mu.Unlock()

	var session screen.Session
	err := resilience.Retry(ctx, l.opts.Retry, func() error {
		s, err := l.opts.Provider.Open(ctx)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		span.Fail(err)
		if !l.abandon(gen) {
			return superseded(err)
		}
		if _, ok := apperrors.As(err); !ok {
			if ctx.Err() != nil {
				err = apperrors.Wrap(err, apperrors.CodeCancelled, "capture request cancelled")
			} else {
				err = apperrors.Wrap(err, apperrors.CodeDeviceUnavailable, "open capture session")
			}
		}
		trace.Logger(ctx).Warn("magnifier activation failed", "error", err)
		return err
	}

	target, err := l.opts.NewSurface(l.opts.LensSize, l.opts.LensSize)
	if err != nil {
		session.Stop()
		l.abandon(gen)
		span.Fail(err)
		return apperrors.Wrap(err, apperrors.CodeInternal, "create lens surface")
	}

	l.mu.Lock()
	if l.gen != gen {
		// Deactivated or re-activated while the request was outstanding.
		l.mu.Unlock()
		session.Stop()
		target.Remove()
		return superseded(nil)
	}
	cycleCtx, cancel := context.WithCancel(trace.WithContext(context.Background(), span.Ctx))
	l.ctx, l.cancel = cycleCtx, cancel
	l.session = session
	l.surface = target
	l.lens = &Lens{
		X:      float64(l.opts.Origin.X),
		Y:      float64(l.opts.Origin.Y),
		Width:  l.opts.LensSize,
		Height: l.opts.LensSize,
	}
	l.state = Active
	l.cycles = 0
	l.breaker.Reset()
	l.scheduleLocked(gen)
	l.mu.Unlock()

	trace.Logger(ctx).Info("magnifier active", "filter", filter.String(), "lens_size", l.opts.LensSize)
	return nil
}

// abandon returns a still-requesting loop to Inactive. It reports false when
// a later Activate or Deactivate already owns the loop.
func (l *Loop) abandon(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return false
	}
	l.state = Inactive
	return true
}

const supersededReason = "superseded"

func superseded(cause error) error {
	var err *apperrors.AppError
	if cause != nil {
		err = apperrors.Wrap(cause, apperrors.CodeCancelled, "activation superseded")
	} else {
		err = apperrors.New(apperrors.CodeCancelled, "activation superseded")
	}
	return err.WithMetadata("reason", supersededReason)
}

// IsSuperseded reports whether err came from an Activate call that lost to a
// later Activate or Deactivate. The loop state then belongs to that call.
func IsSuperseded(err error) bool {
	appErr, ok := apperrors.As(err)
	return ok && appErr.Code == apperrors.CodeCancelled && appErr.Metadata["reason"] == supersededReason
}

// Deactivate stops the loop. It waits for a cycle already in progress, so no
// transform or paint happens after it returns. It is a no-op when inactive.
func (l *Loop) Deactivate() {
	l.deactivate(ReasonUser, nil)
}

func (l *Loop) deactivate(reason StopReason, cause error) {
	l.mu.Lock()
	if l.state == Inactive {
		l.mu.Unlock()
		return
	}
	wasActive := l.state == Active
	td := l.detachLocked()
	l.mu.Unlock()

	if td.inflight != nil {
		<-td.inflight
	}
	td.release()
	if wasActive {
		l.notifyStop(reason, cause)
	}
}

func (l *Loop) notifyStop(reason StopReason, cause error) {
	slog.Info("magnifier stopped", "reason", string(reason), "error", cause)
	if l.opts.OnStop != nil {
		l.opts.OnStop(reason, cause)
	}
}

// SetFilter changes the filter used from the next cycle on.
func (l *Loop) SetFilter(f dichromacy.Filter) {
	l.mu.Lock()
	l.filter = f
	l.mu.Unlock()
}

// Filter returns the current filter.
func (l *Loop) Filter() dichromacy.Filter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// MoveTo places the lens top-left corner at (x, y).
func (l *Loop) MoveTo(x, y float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lens == nil {
		return false
	}
	l.lens.X, l.lens.Y = x, y
	return true
}

// PointerDown starts a drag when the pointer lands on the lens.
func (l *Loop) PointerDown(x, y float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lens == nil || !l.lens.Contains(x, y) {
		return false
	}
	l.lens.Dragging = true
	l.lens.OffsetX = x - l.lens.X
	l.lens.OffsetY = y - l.lens.Y
	return true
}

// PointerMove follows the pointer while dragging.
func (l *Loop) PointerMove(x, y float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lens == nil || !l.lens.Dragging {
		return false
	}
	l.lens.X = x - l.lens.OffsetX
	l.lens.Y = y - l.lens.OffsetY
	return true
}

// PointerUp ends a drag.
func (l *Loop) PointerUp() {
	l.mu.Lock()
	if l.lens != nil {
		l.lens.Dragging = false
	}
	l.mu.Unlock()
}

// Snapshot returns the current state.
func (l *Loop) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Snapshot{
		State:    l.state,
		Filter:   l.filter,
		Cycles:   l.cycles,
		Failures: l.breaker.Failures(),
	}
	if l.lens != nil {
		lens := *l.lens
		s.Lens = &lens
	}
	return s
}

func (l *Loop) scheduleLocked(gen uint64) {
	l.pending = l.opts.Scheduler.Request(func() { l.cycle(gen) })
}

// cycle runs one hide, grab, show, crop, transform, paint pass and
// schedules the next.
func (l *Loop) cycle(gen uint64) {
	l.mu.Lock()
	if l.gen != gen || l.state != Active {
		l.mu.Unlock()
		return
	}
	l.pending = 0
	done := make(chan struct{})
	l.inflight = done
	lens := *l.lens
	filter := l.filter
	session, target, ctx := l.session, l.surface, l.ctx
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.inflight == done {
			l.inflight = nil
		}
		l.mu.Unlock()
		close(done)
	}()

	// Keep the lens out of its own capture.
	target.SetVisible(false)
	frame, err := session.Grab(ctx)
	target.SetVisible(true)

	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return
	}

	if err != nil {
		l.grabFailedLocked(ctx, gen, session, err)
		return
	}
	l.breaker.Success()

	out := l.render(frame, lens)
	if err := dichromacy.Apply(out, filter); err != nil {
		trace.Logger(ctx).Error("transform failed", "error", err)
	} else {
		target.Paint(out)
		l.cycles++
	}
	l.scheduleLocked(gen)
	l.mu.Unlock()
}

// grabFailedLocked is called with l.mu held and releases it.
func (l *Loop) grabFailedLocked(ctx context.Context, gen uint64, session screen.Session, err error) {
	log := trace.Logger(ctx)
	if apperrors.IsCode(err, apperrors.CodeCaptureEnded) || !session.Active() {
		td := l.detachLocked()
		l.mu.Unlock()
		td.release()
		l.notifyStop(ReasonCaptureEnded, err)
		return
	}

	l.breaker.Failure()
	log.Warn("frame grab failed", "error", err, "failures", l.breaker.Failures())
	if l.breaker.State() == resilience.Open {
		td := l.detachLocked()
		l.mu.Unlock()
		td.release()
		l.notifyStop(ReasonFailures, err)
		return
	}
	l.scheduleLocked(gen)
	l.mu.Unlock()
}

// render crops the source rect from frame and scales it onto a lens-sized
// buffer. The crop is clamped to the frame; parts of the lens over
// off-screen area stay transparent.
func (l *Loop) render(frame *image.RGBA, lens Lens) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, lens.Width, lens.Height))
	src := lens.SourceRect(l.opts.DevicePixelRatio)
	visible := src.Intersect(frame.Bounds())
	if visible.Empty() || src.Dx() == 0 || src.Dy() == 0 {
		return out
	}

	// Map the visible part of the source onto the matching part of the lens.
	dst := image.Rect(
		(visible.Min.X-src.Min.X)*lens.Width/src.Dx(),
		(visible.Min.Y-src.Min.Y)*lens.Height/src.Dy(),
		(visible.Max.X-src.Min.X)*lens.Width/src.Dx(),
		(visible.Max.Y-src.Min.Y)*lens.Height/src.Dy(),
	)
	if dst.Empty() {
		return out
	}

	crop := screen.ToRGBA(frame.SubImage(visible))
	scaled := resize.Resize(uint(dst.Dx()), uint(dst.Dy()), crop, resize.Bilinear)
	draw.Draw(out, dst, scaled, scaled.Bounds().Min, draw.Src)
	return out
}
