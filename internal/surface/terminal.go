package surface

import (
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// upperHalf draws two vertical pixels per cell: foreground on top, background below.
const upperHalf = '▀'

// Terminal paints frames onto a tcell screen, downsampling to fit. The screen
// is owned by the caller; Remove clears it but does not finalise it.
type Terminal struct {
	screen        tcell.Screen
	width, height int

	mu      sync.Mutex
	visible bool
	removed bool
}

// NewTerminal creates a terminal surface reporting the given logical size.
func NewTerminal(screen tcell.Screen, width, height int) *Terminal {
	return &Terminal{screen: screen, width: width, height: height, visible: true}
}

func (t *Terminal) Size() (int, int) { return t.width, t.height }

func (t *Terminal) SetVisible(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.visible = v
}

func (t *Terminal) Paint(img *image.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.visible || t.removed {
		return
	}

	b := img.Bounds()
	cols, rows := t.screen.Size()
	if cols > b.Dx() {
		cols = b.Dx()
	}
	if rows > (b.Dy()+1)/2 {
		rows = (b.Dy() + 1) / 2
	}
	if cols <= 0 || rows <= 0 {
		return
	}

	for cy := 0; cy < rows; cy++ {
		top := b.Min.Y + (2*cy)*b.Dy()/(2*rows)
		bottom := b.Min.Y + (2*cy+1)*b.Dy()/(2*rows)
		for cx := 0; cx < cols; cx++ {
			x := b.Min.X + cx*b.Dx()/cols
			style := tcell.StyleDefault.
				Foreground(rgb(img, x, top)).
				Background(rgb(img, x, bottom))
			t.screen.SetContent(cx, cy, upperHalf, nil, style)
		}
	}
	t.screen.Show()
}

func (t *Terminal) Remove() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed {
		return
	}
	t.removed = true
	t.screen.Clear()
	t.screen.Show()
}

func rgb(img *image.RGBA, x, y int) tcell.Color {
	c := img.RGBAAt(x, y)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}
