package screen

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/resilience"
)

// switchProvider fails every Open with err until err is cleared.
type switchProvider struct {
	*ImageProvider
	opens atomic.Int32
	err   atomic.Pointer[apperrors.AppError]
}

func (p *switchProvider) Open(ctx context.Context) (Session, error) {
	p.opens.Add(1)
	if err := p.err.Load(); err != nil {
		return nil, err
	}
	return p.ImageProvider.Open(ctx)
}

func newSwitchProvider(err *apperrors.AppError) *switchProvider {
	p := &switchProvider{ImageProvider: NewImageProvider(checkerboard(16, 16))}
	p.err.Store(err)
	return p
}

func grabOnce(ctx context.Context, p Provider) error {
	s, err := p.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Stop()
	_, err = s.Grab(ctx)
	return err
}

func TestGuardFailsFastAndRecovers(t *testing.T) {
	inner := newSwitchProvider(apperrors.New(apperrors.CodeDeviceUnavailable, "no capture tool"))
	b := resilience.New(resilience.Config{Threshold: 2, ResetTimeout: 20 * time.Millisecond, HalfOpenSuccesses: 1})
	p := Guard(inner, b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := grabOnce(ctx, p); !apperrors.IsCode(err, apperrors.CodeDeviceUnavailable) {
			t.Fatalf("attempt %d = %v", i, err)
		}
	}
	if b.State() != resilience.Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	err := grabOnce(ctx, p)
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) || !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("open breaker = %v, want UNAVAILABLE wrapping ErrOpen", err)
	}
	if n := inner.opens.Load(); n != 2 {
		t.Errorf("provider opened %d times, want 2", n)
	}

	inner.err.Store(nil)
	time.Sleep(40 * time.Millisecond)

	if err := grabOnce(ctx, p); err != nil {
		t.Fatalf("trial capture: %v", err)
	}
	if b.State() != resilience.Closed {
		t.Errorf("state = %v, want closed after a good capture", b.State())
	}
	if inner.Live() != 0 {
		t.Errorf("%d sessions still live", inner.Live())
	}
}

func TestGuardReopensOnFailedTrial(t *testing.T) {
	inner := newSwitchProvider(apperrors.New(apperrors.CodeDeviceUnavailable, "no capture tool"))
	b := resilience.New(resilience.Config{Threshold: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenSuccesses: 1})
	p := Guard(inner, b)

	_ = grabOnce(context.Background(), p)
	time.Sleep(20 * time.Millisecond)
	_ = grabOnce(context.Background(), p)

	if b.State() != resilience.Open {
		t.Errorf("state = %v, want open after failed trial", b.State())
	}
}

func TestGuardIgnoresDeclinedPrompt(t *testing.T) {
	inner := newSwitchProvider(apperrors.New(apperrors.CodePermissionDenied, "declined"))
	b := resilience.New(resilience.Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	p := Guard(inner, b)

	for i := 0; i < 3; i++ {
		if err := grabOnce(context.Background(), p); !apperrors.IsCode(err, apperrors.CodePermissionDenied) {
			t.Fatalf("attempt %d = %v", i, err)
		}
	}
	if b.State() != resilience.Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestGuardCountsGrabFailures(t *testing.T) {
	inner := NewImageProvider(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	b := resilience.New(resilience.Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	p := Guard(inner, b)

	s, err := p.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Stop()
	if _, err := s.Grab(context.Background()); !apperrors.IsCode(err, apperrors.CodeCaptureEnded) {
		t.Fatalf("Grab after Stop = %v", err)
	}
	if b.State() != resilience.Open {
		t.Errorf("state = %v, want open", b.State())
	}
}
