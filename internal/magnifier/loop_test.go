package magnifier

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/resilience"
	"github.com/chromalens/platform/internal/scheduler"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/surface"
)

// callLog records hide/grab/show/paint ordering across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *callLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeSurface struct {
	log     *callLog
	mu      sync.Mutex
	paints  []*image.RGBA
	removed bool
	visible bool
}

func (f *fakeSurface) Size() (int, int) { return 0, 0 }

func (f *fakeSurface) SetVisible(v bool) {
	f.mu.Lock()
	f.visible = v
	f.mu.Unlock()
	if v {
		f.log.add("show")
	} else {
		f.log.add("hide")
	}
}

func (f *fakeSurface) Paint(img *image.RGBA) {
	f.mu.Lock()
	cp := image.NewRGBA(img.Rect)
	copy(cp.Pix, img.Pix)
	f.paints = append(f.paints, cp)
	f.mu.Unlock()
	f.log.add("paint")
}

func (f *fakeSurface) Remove() {
	f.mu.Lock()
	f.removed = true
	f.mu.Unlock()
	f.log.add("remove")
}

func (f *fakeSurface) paintCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.paints)
}

func (f *fakeSurface) last() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.paints) == 0 {
		return nil
	}
	return f.paints[len(f.paints)-1]
}

func (f *fakeSurface) isRemoved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removed
}

// fakeProvider wraps an ImageProvider with scripted open and grab failures.
type fakeProvider struct {
	*screen.ImageProvider
	log *callLog

	mu       sync.Mutex
	openErrs []error
	grabErr  func(ctx context.Context) error
	opens    int
}

func (p *fakeProvider) Open(ctx context.Context) (screen.Session, error) {
	p.mu.Lock()
	p.opens++
	if len(p.openErrs) > 0 {
		err := p.openErrs[0]
		p.openErrs = p.openErrs[1:]
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()
	s, err := p.ImageProvider.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &fakeSession{Session: s, provider: p}, nil
}

type fakeSession struct {
	screen.Session
	provider *fakeProvider
}

func (s *fakeSession) Grab(ctx context.Context) (*image.RGBA, error) {
	s.provider.log.add("grab")
	s.provider.mu.Lock()
	grabErr := s.provider.grabErr
	s.provider.mu.Unlock()
	if grabErr != nil {
		if err := grabErr(ctx); err != nil {
			return nil, err
		}
	}
	return s.Session.Grab(ctx)
}

type harness struct {
	loop     *Loop
	sched    *scheduler.Manual
	provider *fakeProvider
	log      *callLog
	surfaces []*fakeSurface
	stops    []StopReason
	mu       sync.Mutex
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func newHarness(t *testing.T, frame image.Image, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{sched: scheduler.NewManual(), log: &callLog{}}
	h.provider = &fakeProvider{ImageProvider: screen.NewImageProvider(frame), log: h.log}
	opts := Options{
		Provider:  h.provider,
		Scheduler: h.sched,
		NewSurface: func(w, hgt int) (surface.Target, error) {
			s := &fakeSurface{log: h.log, visible: true}
			h.mu.Lock()
			h.surfaces = append(h.surfaces, s)
			h.mu.Unlock()
			return s, nil
		},
		LensSize: 100,
		Origin:   image.Pt(10, 10),
		Retry: resilience.RetryConfig{
			MaxRetries:  3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			IsRetryable: apperrors.IsRetryable,
		},
		Breaker: resilience.CaptureConfig(3),
		OnStop: func(reason StopReason, _ error) {
			h.mu.Lock()
			h.stops = append(h.stops, reason)
			h.mu.Unlock()
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.loop = New(opts)
	return h
}

func (h *harness) surface(i int) *fakeSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaces[i]
}

func (h *harness) stopReasons() []StopReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]StopReason(nil), h.stops...)
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func nearRGBA(a, b color.RGBA) bool {
	return near(a.R, b.R) && near(a.G, b.G) && near(a.B, b.B) && near(a.A, b.A)
}

func TestActivateSchedulesOneCycle(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{R: 255, A: 255}), nil)

	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	snap := h.loop.Snapshot()
	if snap.State != Active {
		t.Fatalf("State = %v, want active", snap.State)
	}
	if snap.Lens == nil || snap.Lens.X != 10 || snap.Lens.Y != 10 || snap.Lens.Width != 100 {
		t.Fatalf("Lens = %+v", snap.Lens)
	}

	for i := 0; i < 3; i++ {
		if p := h.sched.Pending(); p != 1 {
			t.Fatalf("cycle %d: pending = %d, want 1", i, p)
		}
		if ran := h.sched.Step(); ran != 1 {
			t.Fatalf("cycle %d: ran %d callbacks", i, ran)
		}
	}
	if got := h.surface(0).paintCount(); got != 3 {
		t.Errorf("paints = %d, want 3", got)
	}
	if got := h.loop.Snapshot().Cycles; got != 3 {
		t.Errorf("Cycles = %d, want 3", got)
	}

	px := h.surface(0).last().RGBAAt(50, 50)
	if !nearRGBA(px, color.RGBA{R: 145, G: 142, B: 0, A: 255}) {
		t.Errorf("painted pixel = %v, want protanopia red", px)
	}
}

func TestCycleHidesLensAroundGrab(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{G: 255, A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Deuteranopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.sched.Step()

	want := []string{"hide", "grab", "show", "paint"}
	got := h.log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("calls = %v, want %v", got, want)
		}
	}
}

func TestFilterChangeAppliesNextCycle(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{R: 255, A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.sched.Step()
	first := h.surface(0).last().RGBAAt(50, 50)

	h.loop.SetFilter(dichromacy.Tritanopia)
	if h.surface(0).last().RGBAAt(50, 50) != first {
		t.Fatal("filter change repainted retroactively")
	}
	h.sched.Step()

	want := dichromacy.TransformPixel(color.RGBA{R: 255, A: 255}, dichromacy.Tritanopia)
	if got := h.surface(0).last().RGBAAt(50, 50); !nearRGBA(got, want) {
		t.Errorf("after SetFilter pixel = %v, want %v", got, want)
	}
}

func TestSetFilterTwiceMatchesOnce(t *testing.T) {
	frame := frameWithSquare(300, 300, image.Rect(30, 30, 70, 70))
	paintAfter := func(filters ...dichromacy.Filter) []byte {
		h := newHarness(t, frame, nil)
		if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
			t.Fatalf("Activate: %v", err)
		}
		for _, f := range filters {
			h.loop.SetFilter(f)
		}
		h.sched.Step()
		return h.surface(0).last().Pix
	}

	once := paintAfter(dichromacy.Deuteranopia)
	twice := paintAfter(dichromacy.Deuteranopia, dichromacy.Deuteranopia)
	if !bytes.Equal(once, twice) {
		t.Error("setting the same filter twice changed the next paint")
	}
}

func TestDragMovesLens(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	if !h.loop.PointerDown(50, 50) {
		t.Fatal("PointerDown inside lens should start a drag")
	}
	lens := h.loop.Snapshot().Lens
	if !lens.Dragging || lens.OffsetX != 40 || lens.OffsetY != 40 {
		t.Fatalf("after down: %+v", lens)
	}

	h.loop.PointerMove(120, 80)
	lens = h.loop.Snapshot().Lens
	if lens.X != 80 || lens.Y != 40 {
		t.Fatalf("after move: lens at (%v,%v), want (80,40)", lens.X, lens.Y)
	}

	h.loop.PointerUp()
	if h.loop.PointerMove(300, 300) {
		t.Error("move after up should be ignored")
	}
	lens = h.loop.Snapshot().Lens
	if lens.X != 80 || lens.Y != 40 || lens.Dragging {
		t.Errorf("after up: %+v", lens)
	}
}

func TestPointerDownOutsideLens(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	if h.loop.PointerDown(50, 50) {
		t.Error("PointerDown while inactive should be ignored")
	}
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if h.loop.PointerDown(250, 250) {
		t.Error("PointerDown outside the lens should not drag")
	}
}

func TestActivateTwiceKeepsOneSession(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	ctx := context.Background()

	if err := h.loop.Activate(ctx, dichromacy.Protanopia); err != nil {
		t.Fatalf("first Activate: %v", err)
	}
	if err := h.loop.Activate(ctx, dichromacy.Tritanopia); err != nil {
		t.Fatalf("second Activate: %v", err)
	}

	if live := h.provider.Live(); live != 1 {
		t.Errorf("live sessions = %d, want 1", live)
	}
	if !h.surface(0).isRemoved() {
		t.Error("first surface should be removed")
	}
	if h.surface(1).isRemoved() {
		t.Error("second surface should be live")
	}
	if p := h.sched.Pending(); p != 1 {
		t.Errorf("pending = %d, want 1", p)
	}
	if got := h.stopReasons(); len(got) != 1 || got[0] != ReasonReplaced {
		t.Errorf("stops = %v, want [replaced]", got)
	}
}

func TestDeactivateStopsEverything(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.sched.Step()

	h.loop.Deactivate()

	if h.loop.Snapshot().State != Inactive {
		t.Error("state should be inactive")
	}
	if h.provider.Live() != 0 {
		t.Error("session not stopped")
	}
	if !h.surface(0).isRemoved() {
		t.Error("surface not removed")
	}
	if p := h.sched.Pending(); p != 0 {
		t.Errorf("pending = %d after deactivate", p)
	}
	if ran := h.sched.Step(); ran != 0 {
		t.Errorf("%d cycles ran after deactivate", ran)
	}
	if got := h.surface(0).paintCount(); got != 1 {
		t.Errorf("paints = %d, want 1", got)
	}
	if got := h.stopReasons(); len(got) != 1 || got[0] != ReasonUser {
		t.Errorf("stops = %v", got)
	}
}

func TestDeactivateWhenInactiveIsNoop(t *testing.T) {
	h := newHarness(t, solidFrame(10, 10, color.RGBA{A: 255}), nil)
	h.loop.Deactivate()
	h.loop.Deactivate()
	if len(h.stopReasons()) != 0 {
		t.Error("OnStop should not fire for an inactive loop")
	}
	if h.loop.Snapshot().State != Inactive {
		t.Error("state changed")
	}
}

func TestDeactivateWaitsForInflightGrab(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	entered := make(chan struct{})
	var returned atomic.Bool
	h.provider.grabErr = func(ctx context.Context) error {
		close(entered)
		<-ctx.Done()
		returned.Store(true)
		return apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "grab cancelled")
	}
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	stepped := make(chan struct{})
	go func() {
		h.sched.Step()
		close(stepped)
	}()
	<-entered

	h.loop.Deactivate()
	if !returned.Load() {
		t.Fatal("Deactivate returned before the in-flight grab finished")
	}
	<-stepped
	if h.surface(0).paintCount() != 0 {
		t.Error("cycle painted after deactivate")
	}
	if h.provider.Live() != 0 {
		t.Error("session not stopped")
	}
	if got := h.stopReasons(); len(got) != 1 || got[0] != ReasonUser {
		t.Errorf("stops = %v, want [user]", got)
	}
}

func TestCaptureEndedDeactivates(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.sched.Step()

	// The user ends sharing from the system UI.
	h.provider.mu.Lock()
	h.provider.grabErr = func(context.Context) error {
		return apperrors.New(apperrors.CodeCaptureEnded, "track ended")
	}
	h.provider.mu.Unlock()
	h.sched.Step()

	if h.loop.Snapshot().State != Inactive {
		t.Error("loop should deactivate when capture ends")
	}
	if !h.surface(0).isRemoved() {
		t.Error("surface not removed")
	}
	if h.provider.Live() != 0 {
		t.Error("session not stopped")
	}
	if h.sched.Pending() != 0 {
		t.Error("cycle still scheduled")
	}
	if got := h.stopReasons(); len(got) != 1 || got[0] != ReasonCaptureEnded {
		t.Errorf("stops = %v, want [capture_ended]", got)
	}
}

func TestRepeatedGrabFailuresOpenBreaker(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	h.provider.grabErr = func(context.Context) error {
		return apperrors.New(apperrors.CodeUnavailable, "compositor hiccup")
	}
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	h.sched.Step()
	h.sched.Step()
	snap := h.loop.Snapshot()
	if snap.State != Active || snap.Failures != 2 {
		t.Fatalf("after 2 failures: state=%v failures=%d", snap.State, snap.Failures)
	}
	h.sched.Step()

	if h.loop.Snapshot().State != Inactive {
		t.Error("loop should stop once the breaker opens")
	}
	if got := h.stopReasons(); len(got) != 1 || got[0] != ReasonFailures {
		t.Errorf("stops = %v, want [capture_failures]", got)
	}
	if h.surface(0).paintCount() != 0 {
		t.Error("failed cycles should not paint")
	}
}

func TestTransientFailureRecovers(t *testing.T) {
	h := newHarness(t, solidFrame(300, 300, color.RGBA{A: 255}), nil)
	fail := true
	h.provider.grabErr = func(context.Context) error {
		if fail {
			fail = false
			return apperrors.New(apperrors.CodeUnavailable, "blip")
		}
		return nil
	}
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	h.sched.Step()
	h.sched.Step()

	snap := h.loop.Snapshot()
	if snap.State != Active || snap.Failures != 0 || snap.Cycles != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestPermissionDeniedLeavesNothingBehind(t *testing.T) {
	h := newHarness(t, solidFrame(10, 10, color.RGBA{A: 255}), nil)
	h.provider.openErrs = []error{apperrors.New(apperrors.CodePermissionDenied, "user declined")}

	err := h.loop.Activate(context.Background(), dichromacy.Protanopia)
	if !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
		t.Fatalf("Activate = %v, want PERMISSION_DENIED", err)
	}
	if h.provider.opens != 1 {
		t.Errorf("opens = %d; permission errors must not be retried", h.provider.opens)
	}
	if h.loop.Snapshot().State != Inactive {
		t.Error("state should be inactive")
	}
	if len(h.surfaces) != 0 {
		t.Error("no surface should be created")
	}
	if h.sched.Pending() != 0 || h.provider.Live() != 0 {
		t.Error("orphaned cycle or session")
	}
}

func TestDeviceBusyIsRetried(t *testing.T) {
	h := newHarness(t, solidFrame(10, 10, color.RGBA{A: 255}), nil)
	busy := apperrors.New(apperrors.CodeDeviceBusy, "capture in use")
	h.provider.openErrs = []error{busy, busy}

	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if h.provider.opens != 3 {
		t.Errorf("opens = %d, want 3", h.provider.opens)
	}
	if h.loop.Snapshot().State != Active {
		t.Error("loop should be active")
	}
}

func TestDeviceUnavailableNotRetried(t *testing.T) {
	h := newHarness(t, solidFrame(10, 10, color.RGBA{A: 255}), nil)
	h.provider.openErrs = []error{apperrors.New(apperrors.CodeDeviceUnavailable, "no capture tool")}

	err := h.loop.Activate(context.Background(), dichromacy.Protanopia)
	if !apperrors.IsCode(err, apperrors.CodeDeviceUnavailable) {
		t.Fatalf("Activate = %v", err)
	}
	if h.provider.opens != 1 {
		t.Errorf("opens = %d, want 1", h.provider.opens)
	}
}

func TestSourceRectCentredAndScaled(t *testing.T) {
	lens := Lens{X: 100, Y: 40, Width: 200, Height: 200}
	if got, want := lens.SourceRect(1), image.Rect(150, 90, 250, 190); got != want {
		t.Errorf("SourceRect(1) = %v, want %v", got, want)
	}
	if got, want := lens.SourceRect(2), image.Rect(300, 180, 500, 380); got != want {
		t.Errorf("SourceRect(2) = %v, want %v", got, want)
	}
}

// frameWithSquare is black with a blue square covering r.
func frameWithSquare(w, h int, r image.Rectangle) *image.RGBA {
	img := solidFrame(w, h, color.RGBA{A: 255})
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	return img
}

func TestRenderMagnifiesCentre(t *testing.T) {
	tests := []struct {
		name  string
		dpr   float64
		frame *image.RGBA
	}{
		// Lens at (0,0) size 100 reads (25,25)-(75,75) in CSS pixels.
		{"dpr1", 1, frameWithSquare(200, 200, image.Rect(25, 25, 75, 75))},
		{"dpr2", 2, frameWithSquare(400, 400, image.Rect(50, 50, 150, 150))},
	}
	blue := dichromacy.TransformPixel(color.RGBA{B: 255, A: 255}, dichromacy.Protanopia)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.frame, func(o *Options) {
				o.DevicePixelRatio = tt.dpr
				o.Origin = image.Pt(1, 1)
			})
			if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
				t.Fatalf("Activate: %v", err)
			}
			h.loop.MoveTo(0, 0)
			h.sched.Step()

			out := h.surface(0).last()
			if out.Bounds() != image.Rect(0, 0, 100, 100) {
				t.Fatalf("painted bounds = %v", out.Bounds())
			}
			for _, p := range []image.Point{{2, 2}, {50, 50}, {97, 97}} {
				if got := out.RGBAAt(p.X, p.Y); !nearRGBA(got, blue) {
					t.Errorf("pixel %v = %v, want %v", p, got, blue)
				}
			}
		})
	}
}

func TestRenderClampsToFrame(t *testing.T) {
	h := newHarness(t, solidFrame(200, 200, color.RGBA{R: 255, G: 255, B: 255, A: 255}), nil)
	if err := h.loop.Activate(context.Background(), dichromacy.Protanopia); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// Source rect is (-25,-25)-(25,25); only its lower-right quarter is on screen.
	h.loop.MoveTo(-50, -50)
	h.sched.Step()
	out := h.surface(0).last()
	if got := out.RGBAAt(10, 10); got.A != 0 {
		t.Errorf("off-screen area = %v, want transparent", got)
	}
	if got := out.RGBAAt(75, 75); !nearRGBA(got, color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("on-screen area = %v, want white", got)
	}

	// Entirely off-screen still paints, just blank.
	h.loop.MoveTo(-500, -500)
	h.sched.Step()
	out = h.surface(0).last()
	if got := out.RGBAAt(50, 50); got.A != 0 {
		t.Errorf("pixel = %v, want transparent", got)
	}
	if h.loop.Snapshot().State != Active {
		t.Error("off-screen lens should keep running")
	}
}
