// Package screen provides platform-agnostic screen capture sessions
package screen

import (
	"bytes"
	"context"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"sync"

	apperrors "github.com/chromalens/platform/internal/errors"
)

// Provider hands out capture sessions. Opening a session may prompt the user
// for permission on platforms that require it.
type Provider interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a live handle to a capture source. It must be stopped
// explicitly; Grab after Stop fails with CodeCaptureEnded.
type Session interface {
	Grab(ctx context.Context) (*image.RGBA, error)
	Stop()
	Active() bool
}

// backend implements platform-specific raw capture
type backend interface {
	probe() error
	captureRaw(ctx context.Context, dir string) ([]byte, error)
}

type osProvider struct {
	backend backend
}

// Open checks the capture tool is present and prepares a scratch directory.
func (p *osProvider) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "capture request cancelled")
	}
	if err := p.backend.probe(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "chromalens-screen-*")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDeviceUnavailable, "create capture scratch dir")
	}
	return &osSession{backend: p.backend, tempDir: dir, active: true}, nil
}

type osSession struct {
	backend backend
	tempDir string

	mu     sync.Mutex
	active bool
}

func (s *osSession) Grab(ctx context.Context) (*image.RGBA, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return nil, apperrors.New(apperrors.CodeCaptureEnded, "capture session stopped")
	}

	data, err := s.backend.captureRaw(ctx, s.tempDir)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (s *osSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *osSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Decode turns encoded PNG/JPEG bytes into an RGBA buffer anchored at (0,0).
func Decode(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnavailable, "decode captured frame")
	}
	return ToRGBA(img), nil
}

// ToRGBA copies img into a fresh RGBA buffer whose bounds start at (0,0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
