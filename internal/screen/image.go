package screen

import (
	"context"
	"image"
	"os"
	"sync"
	"sync/atomic"

	apperrors "github.com/chromalens/platform/internal/errors"
)

// ImageProvider serves a fixed image as if it were the screen. Used for demos
// (CAPTURE_SOURCE=file) and tests.
type ImageProvider struct {
	mu    sync.RWMutex
	frame *image.RGBA
	live  atomic.Int32
}

// NewImageProvider creates a provider that always captures img.
func NewImageProvider(img image.Image) *ImageProvider {
	return &ImageProvider{frame: ToRGBA(img)}
}

// LoadImageFile reads a PNG or JPEG file into an ImageProvider.
func LoadImageFile(path string) (*ImageProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeDeviceUnavailable, "read capture file %s", path)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &ImageProvider{frame: img}, nil
}

// SetFrame replaces the image returned by later grabs.
func (p *ImageProvider) SetFrame(img image.Image) {
	rgba := ToRGBA(img)
	p.mu.Lock()
	p.frame = rgba
	p.mu.Unlock()
}

// Live reports how many sessions are open and not yet stopped.
func (p *ImageProvider) Live() int {
	return int(p.live.Load())
}

func (p *ImageProvider) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture request cancelled")
	}
	p.live.Add(1)
	return &imageSession{provider: p, active: true}, nil
}

type imageSession struct {
	provider *ImageProvider

	mu     sync.Mutex
	active bool
}

func (s *imageSession) Grab(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "grab cancelled")
	}
	if !s.Active() {
		return nil, apperrors.New(apperrors.CodeCaptureEnded, "capture session stopped")
	}
	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()
	frame := image.NewRGBA(s.provider.frame.Rect)
	copy(frame.Pix, s.provider.frame.Pix)
	return frame, nil
}

func (s *imageSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.active = false
		s.provider.live.Add(-1)
	}
}

func (s *imageSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
