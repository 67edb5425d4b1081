package dichromacy

import (
	"image"
	"image/color"
	"testing"

	apperrors "github.com/chromalens/platform/internal/errors"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
		ok   bool
	}{
		{"protanopia", Protanopia, true},
		{"deuteranopia", Deuteranopia, true},
		{"tritanopia", Tritanopia, true},
		{" Tritanopia ", Tritanopia, true},
		{"bogus", Protanopia, false},
		{"", Protanopia, false},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ParseFilter(tt.in) != tt.want {
			t.Errorf("ParseFilter(%q) = %v, want %v", tt.in, ParseFilter(tt.in), tt.want)
		}
	}
}

func TestFilterStringOutOfRange(t *testing.T) {
	f := Filter(42)
	if f.String() != "protanopia" {
		t.Errorf("String() = %q, want protanopia", f.String())
	}
	if f.Label() != "Protanopia (Red-blind)" {
		t.Errorf("Label() = %q", f.Label())
	}
	px := color.RGBA{R: 12, G: 200, B: 99, A: 255}
	if TransformPixel(px, f) != TransformPixel(px, Protanopia) {
		t.Error("out-of-range filter should transform like protanopia")
	}
}

func TestProtanopiaPrimaries(t *testing.T) {
	tests := []struct {
		name string
		in   color.RGBA
		want color.RGBA
	}{
		// Channels round to nearest: 0.567*255 = 144.585 gives 145 and 0.242*255 = 61.71 gives 62, not the truncated 144 and 61.
		{"red", color.RGBA{R: 255, A: 255}, color.RGBA{R: 145, G: 142, B: 0, A: 255}},
		{"green", color.RGBA{G: 255, A: 255}, color.RGBA{R: 110, G: 113, B: 62, A: 255}},
		{"blue", color.RGBA{B: 255, A: 255}, color.RGBA{R: 0, G: 0, B: 193, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformPixel(tt.in, Protanopia); got != tt.want {
				t.Errorf("TransformPixel(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestUnknownFilterMatchesProtanopia(t *testing.T) {
	px := color.RGBA{R: 200, G: 80, B: 30, A: 128}
	if TransformPixel(px, ParseFilter("bogus")) != TransformPixel(px, Protanopia) {
		t.Error("bogus filter should fall back to protanopia")
	}
}

func TestChannelsStayInRange(t *testing.T) {
	extremes := []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
		{R: 255, G: 0, B: 255, A: 0},
		{R: 0, G: 255, B: 255, A: 255},
	}
	for _, f := range Filters {
		for _, px := range extremes {
			got := TransformPixel(px, f)
			if got.A != px.A {
				t.Errorf("%v: alpha changed %d -> %d", f, px.A, got.A)
			}
		}
		white := TransformPixel(color.RGBA{R: 255, G: 255, B: 255, A: 255}, f)
		if white != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
			t.Errorf("%v: white = %v, want white (rows sum to 1)", f, white)
		}
		black := TransformPixel(color.RGBA{A: 255}, f)
		if black != (color.RGBA{A: 255}) {
			t.Errorf("%v: black = %v, want black", f, black)
		}
	}
}

func TestApplyMatchesTransformPixel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 28), B: uint8(x*y + 7), A: uint8(200 + x)})
		}
	}
	orig := image.NewRGBA(img.Rect)
	copy(orig.Pix, img.Pix)

	for _, f := range Filters {
		work := image.NewRGBA(img.Rect)
		copy(work.Pix, orig.Pix)
		if err := Apply(work, f); err != nil {
			t.Fatalf("Apply(%v): %v", f, err)
		}
		for y := 0; y < 9; y++ {
			for x := 0; x < 16; x++ {
				want := TransformPixel(orig.RGBAAt(x, y), f)
				if got := work.RGBAAt(x, y); got != want {
					t.Fatalf("%v at (%d,%d): Apply = %v, TransformPixel = %v", f, x, y, got, want)
				}
			}
		}
	}
}

func TestApplySubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 0; y < 8; y++ {
		img.SetRGBA(0, y, color.RGBA{R: 255, A: 255})
		img.SetRGBA(4, y, color.RGBA{R: 255, A: 255})
	}

	sub := img.SubImage(image.Rect(4, 0, 8, 8)).(*image.RGBA)
	if err := Apply(sub, Protanopia); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := img.RGBAAt(0, 3); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel outside sub-image changed: %v", got)
	}
	if got := img.RGBAAt(4, 3); got != (color.RGBA{R: 145, G: 142, B: 0, A: 255}) {
		t.Errorf("pixel inside sub-image = %v", got)
	}
}

func TestApplyRectClipsToBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, color.RGBA{B: 255, A: 255})
		}
	}
	if err := ApplyRect(img, image.Rect(2, 2, 50, 50), Protanopia); err != nil {
		t.Fatalf("ApplyRect: %v", err)
	}
	if got := img.RGBAAt(1, 1); got.B != 255 {
		t.Errorf("pixel outside rect changed: %v", got)
	}
	if got := img.RGBAAt(3, 3); got.B != 193 {
		t.Errorf("pixel inside rect = %v, want B=193", got)
	}
}

func TestApplyRejectsMalformedBuffers(t *testing.T) {
	tests := []struct {
		name string
		img  *image.RGBA
	}{
		{"nil", nil},
		{"short stride", &image.RGBA{Pix: make([]uint8, 64), Stride: 4, Rect: image.Rect(0, 0, 4, 4)}},
		{"short pix", &image.RGBA{Pix: make([]uint8, 10), Stride: 16, Rect: image.Rect(0, 0, 4, 4)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Apply(tt.img, Deuteranopia)
			if !apperrors.IsCode(err, apperrors.CodeTransformInputInvalid) {
				t.Errorf("Apply = %v, want TRANSFORM_INPUT_INVALID", err)
			}
		})
	}
}

func TestApplyEmptyBuffer(t *testing.T) {
	if err := Apply(image.NewRGBA(image.Rectangle{}), Tritanopia); err != nil {
		t.Errorf("Apply on empty buffer = %v, want nil", err)
	}
}
