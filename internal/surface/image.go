package surface

import (
	"bytes"
	"image"
	"image/png"
	"sync"
)

// Image is an in-memory surface. Each paint is copied and, if a publisher is
// attached, published.
type Image struct {
	width, height int
	pub           *Publisher

	mu      sync.RWMutex
	visible bool
	removed bool
	frame   *image.RGBA
	paints  int
}

// NewImage creates a visible surface of the given size.
func NewImage(width, height int, pub *Publisher) *Image {
	return &Image{width: width, height: height, pub: pub, visible: true}
}

func (s *Image) Size() (int, int) { return s.width, s.height }

func (s *Image) SetVisible(v bool) {
	s.mu.Lock()
	s.visible = v
	s.mu.Unlock()
}

// Visible reports whether the surface is currently shown.
func (s *Image) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible
}

func (s *Image) Paint(img *image.RGBA) {
	cp := image.NewRGBA(image.Rect(0, 0, img.Rect.Dx(), img.Rect.Dy()))
	for y := 0; y < cp.Rect.Dy(); y++ {
		src := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(cp.Pix[y*cp.Stride:(y+1)*cp.Stride], img.Pix[src:src+4*cp.Rect.Dx()])
	}

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.frame = cp
	s.paints++
	s.mu.Unlock()

	if s.pub != nil {
		s.pub.Publish(cp)
	}
}

func (s *Image) Remove() {
	s.mu.Lock()
	s.removed = true
	s.frame = nil
	s.mu.Unlock()
	if s.pub != nil {
		s.pub.Clear()
	}
}

// Removed reports whether Remove has been called.
func (s *Image) Removed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.removed
}

// Paints reports how many frames were painted.
func (s *Image) Paints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paints
}

// Frame returns the last painted frame or nil.
func (s *Image) Frame() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
