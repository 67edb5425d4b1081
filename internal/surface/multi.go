package surface

import "image"

// Target is the render-surface contract shared by every surface in this package.
type Target interface {
	Size() (int, int)
	SetVisible(bool)
	Paint(*image.RGBA)
	Remove()
}

// Multi forwards every call to several surfaces. Size comes from the first.
type Multi []Target

func (m Multi) Size() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return m[0].Size()
}

func (m Multi) SetVisible(v bool) {
	for _, t := range m {
		t.SetVisible(v)
	}
}

func (m Multi) Paint(img *image.RGBA) {
	for _, t := range m {
		t.Paint(img)
	}
}

func (m Multi) Remove() {
	for _, t := range m {
		t.Remove()
	}
}
