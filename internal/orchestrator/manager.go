package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chromalens/platform/internal/config"
	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/inspector"
	"github.com/chromalens/platform/internal/magnifier"
	"github.com/chromalens/platform/internal/orchestrator/events"
	"github.com/chromalens/platform/internal/orchestrator/persist"
	"github.com/chromalens/platform/internal/prefs"
	"github.com/chromalens/platform/internal/region"
	"github.com/chromalens/platform/internal/resilience"
	"github.com/chromalens/platform/internal/scheduler"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/surface"
	"github.com/chromalens/platform/internal/syncx"
	"github.com/chromalens/platform/internal/trace"
)

// Event re-exported for transports
type Event = events.Event

// PrefsStore loads and saves user preferences.
type PrefsStore interface {
	Load(ctx context.Context) (prefs.Prefs, error)
	persist.Saver
}

// Deps are the collaborators a Manager drives.
type Deps struct {
	Provider  screen.Provider
	Scheduler scheduler.Scheduler
	Prefs     PrefsStore

	// ExtraSurface, when set, receives every lens paint alongside the
	// in-memory surface (e.g. a terminal lens).
	ExtraSurface func(width, height int) surface.Target
}

// Manager coordinates the lens, inspector, region filter and preferences.
type Manager struct {
	cfg       *config.Config
	prefs     PrefsStore
	loop      *magnifier.Loop
	inspector *inspector.Inspector
	region    *region.Selector
	writer    *persist.Writer
	events    *events.Store
	frames    *surface.Publisher

	filter  *syncx.RWGuard[dichromacy.Filter]
	closing atomic.Bool
}

// New creates a manager. Nothing is captured until a magnifier or region
// operation asks for it.
func New(cfg *config.Config, deps Deps) *Manager {
	m := &Manager{
		cfg:    cfg,
		prefs:  deps.Prefs,
		writer: persist.NewWriter(deps.Prefs, PrefsFlushDelay),
		events: events.NewStore(EventMaxEntries, EventChannelSize),
		frames: surface.NewPublisher(),
		filter: syncx.NewGuard(dichromacy.ParseFilter(cfg.DefaultFilter)),
	}

	m.loop = magnifier.New(magnifier.Options{
		Provider:         deps.Provider,
		Scheduler:        deps.Scheduler,
		NewSurface:       m.surfaceFactory(deps.ExtraSurface),
		LensSize:         cfg.LensSize,
		DevicePixelRatio: cfg.DevicePixelRatio,
		Breaker:          resilience.CaptureConfig(cfg.BreakerThreshold),
		OnStop:           m.handleStop,
	})
	// One-shot captures share a breaker so a broken capture source fails fast.
	snapshots := screen.Guard(deps.Provider, resilience.New(resilience.SnapshotConfig(cfg.BreakerThreshold)))
	m.inspector = inspector.New(snapshots, cfg.DevicePixelRatio)
	m.region = region.New(region.Options{
		Provider:         snapshots,
		DevicePixelRatio: cfg.DevicePixelRatio,
		TTL:              cfg.RegionOverlayTTL,
		OnChange:         m.handleRegion,
	})
	return m
}

func (m *Manager) surfaceFactory(extra func(w, h int) surface.Target) magnifier.SurfaceFactory {
	return func(w, h int) (surface.Target, error) {
		img := surface.NewImage(w, h, m.frames)
		if extra == nil {
			return img, nil
		}
		return surface.Multi{img, extra(w, h)}, nil
	}
}

// Start restores persisted preferences, reactivating the magnifier if it was
// left on.
func (m *Manager) Start(ctx context.Context) error {
	log := trace.Logger(ctx)
	p, err := m.prefs.Load(ctx)
	if err != nil {
		log.Warn("loading preferences failed, using defaults", "error", err)
		p = prefs.Defaults()
	}

	m.filter.Set(p.CurrentFilter)
	m.loop.SetFilter(p.CurrentFilter)

	if p.MagnifierActive {
		ctx, cancel := context.WithTimeout(ctx, RestoreTimeout)
		defer cancel()
		if err := m.ActivateMagnifier(ctx, p.CurrentFilter.String()); err != nil {
			log.Warn("restoring magnifier failed", "error", err)
		}
	}
	return nil
}

// Stop tears everything down. The persisted active flag is left as is so
// the next start can restore it.
func (m *Manager) Stop() {
	m.closing.Store(true)

	m.loop.Deactivate()
	m.region.Stop()
	m.writer.Stop()
}

// Events returns the channel of UI events.
func (m *Manager) Events() <-chan Event {
	return m.events.Events()
}

// RecentEvents returns events from the last window.
func (m *Manager) RecentEvents(window time.Duration) []Event {
	return m.events.Recent(window)
}

// Frames publishes every lens paint.
func (m *Manager) Frames() *surface.Publisher {
	return m.frames
}

// Filter returns the current filter.
func (m *Manager) Filter() dichromacy.Filter {
	return m.filter.Get()
}

// resolveFilter maps "" to the current filter and anything else through ParseFilter.
func (m *Manager) resolveFilter(name string) dichromacy.Filter {
	if name == "" {
		return m.Filter()
	}
	return dichromacy.ParseFilter(name)
}

// ActivateMagnifier starts the lens with filter ("" keeps the current one).
func (m *Manager) ActivateMagnifier(ctx context.Context, filter string) error {
	f := m.resolveFilter(filter)
	m.filter.Set(f)
	replacing := m.loop.Snapshot().State == magnifier.Active

	if err := m.loop.Activate(ctx, f); err != nil {
		lensOff := m.loop.Snapshot().State == magnifier.Inactive
		if replacing && lensOff {
			m.events.Emit(Event{Type: events.MagnifierStopped, Reason: string(magnifier.ReasonReplaced)})
		}
		if magnifier.IsSuperseded(err) {
			// A later Activate or Deactivate took over; only an idle lens is persisted here.
			if lensOff {
				m.save(false, m.filter.Get())
			}
			return err
		}
		m.emitError(err)
		m.save(false, f)
		return err
	}
	m.events.Emit(Event{Type: events.MagnifierStarted, Filter: f.String()})
	m.save(true, f)
	return nil
}

// DeactivateMagnifier stops the lens. A no-op when it is not running.
func (m *Manager) DeactivateMagnifier() {
	m.loop.Deactivate()
}

// SetFilter changes the filter for the lens and later region selections.
func (m *Manager) SetFilter(filter string) dichromacy.Filter {
	f := dichromacy.ParseFilter(filter)
	prev := m.filter.Swap(f)
	slog.Debug("filter changed", "from", prev.String(), "to", f.String())

	m.loop.SetFilter(f)
	m.events.Emit(Event{Type: events.FilterChanged, Filter: f.String()})
	m.save(m.loop.Snapshot().State == magnifier.Active, f)
	return f
}

// PointerDown forwards a press to the lens.
func (m *Manager) PointerDown(x, y float64) bool { return m.loop.PointerDown(x, y) }

// PointerMove forwards pointer motion to the lens.
func (m *Manager) PointerMove(x, y float64) bool { return m.loop.PointerMove(x, y) }

// PointerUp ends a lens drag.
func (m *Manager) PointerUp() { m.loop.PointerUp() }

// MoveLens places the lens at (x, y).
func (m *Manager) MoveLens(x, y float64) bool { return m.loop.MoveTo(x, y) }

// Inspect samples the pixel under (x, y).
func (m *Manager) Inspect(ctx context.Context, x, y float64, filter string) (inspector.Result, error) {
	return m.inspector.Inspect(ctx, inspector.Request{X: x, Y: y, Filter: filter})
}

// LookupColor names a hex colour.
func (m *Manager) LookupColor(hex string) (inspector.ColorInfo, error) {
	return m.inspector.Lookup(hex)
}

// RegionStart enters region selection with filter ("" uses the current one).
func (m *Manager) RegionStart(filter string) dichromacy.Filter {
	f := m.resolveFilter(filter)
	m.region.Start(f)
	return f
}

// RegionStop leaves region selection and drops any overlay.
func (m *Manager) RegionStop() { m.region.Stop() }

// RegionDown begins a selection.
func (m *Manager) RegionDown(x, y float64) bool { return m.region.Down(x, y) }

// RegionMove extends a selection.
func (m *Manager) RegionMove(x, y float64) bool { return m.region.Move(x, y) }

// RegionUp finishes a selection, applying the filter when it is large enough.
func (m *Manager) RegionUp(ctx context.Context, x, y float64) (*region.Overlay, error) {
	o, err := m.region.Up(ctx, x, y)
	if err != nil {
		m.emitError(err)
	}
	return o, err
}

// RegionRemove drops the current overlay.
func (m *Manager) RegionRemove() bool { return m.region.Remove() }

// RegionOverlay returns the live overlay.
func (m *Manager) RegionOverlay() (*region.Overlay, bool) { return m.region.Current() }

func (m *Manager) handleStop(reason magnifier.StopReason, err error) {
	if reason == magnifier.ReasonReplaced {
		return
	}
	m.events.Emit(Event{Type: events.MagnifierStopped, Reason: string(reason)})
	if err != nil {
		m.emitError(err)
	}

	if !m.closing.Load() {
		m.save(false, m.filter.Get())
	}
}

func (m *Manager) handleRegion(o *region.Overlay) {
	if o == nil {
		m.events.Emit(Event{Type: events.RegionCleared})
		return
	}
	expires := o.Expires
	m.events.Emit(Event{
		Type:   events.RegionApplied,
		Filter: o.Filter.String(),
		Rect: &events.Rect{
			X: o.Rect.Min.X, Y: o.Rect.Min.Y,
			Width: o.Rect.Dx(), Height: o.Rect.Dy(),
		},
		ExpiresAt: &expires,
	})
}

func (m *Manager) emitError(err error) {
	e := Event{Type: events.Error, Code: apperrors.CodeOf(err).String(), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		e.Message = appErr.Message
	}
	m.events.Emit(e)
}

func (m *Manager) save(active bool, f dichromacy.Filter) {
	m.writer.Set(prefs.Prefs{MagnifierActive: active, CurrentFilter: f})
}

// FlushPrefs writes pending preference changes immediately.
func (m *Manager) FlushPrefs() {
	m.writer.Flush()
}
