package dichromacy

import (
	"image"
	"image/color"
	"math"

	apperrors "github.com/chromalens/platform/internal/errors"
)

// matrix is row-major: out[i] = m[i][0]*R + m[i][1]*G + m[i][2]*B.
type matrix [3][3]float64

var matrices = [...]matrix{
	Protanopia: {
		{0.567, 0.433, 0},
		{0.558, 0.442, 0},
		{0, 0.242, 0.758},
	},
	Deuteranopia: {
		{0.625, 0.375, 0},
		{0.700, 0.300, 0},
		{0, 0.300, 0.700},
	},
	Tritanopia: {
		{0.950, 0.050, 0},
		{0, 0.433, 0.567},
		{0, 0.475, 0.525},
	},
}

func (f Filter) matrix() *matrix {
	if int(f) < len(matrices) {
		return &matrices[f]
	}
	return &matrices[Protanopia]
}

// toByte rounds half to even, matching how a canvas clamps pixel writes.
func toByte(v float64) uint8 {
	v = math.RoundToEven(v)
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func (m *matrix) apply(r, g, b uint8) (uint8, uint8, uint8) {
	fr, fg, fb := float64(r), float64(g), float64(b)
	return toByte(m[0][0]*fr + m[0][1]*fg + m[0][2]*fb),
		toByte(m[1][0]*fr + m[1][1]*fg + m[1][2]*fb),
		toByte(m[2][0]*fr + m[2][1]*fg + m[2][2]*fb)
}

// TransformPixel returns the simulated colour of c. Alpha is kept as is.
func TransformPixel(c color.RGBA, f Filter) color.RGBA {
	r, g, b := f.matrix().apply(c.R, c.G, c.B)
	return color.RGBA{R: r, G: g, B: b, A: c.A}
}

// Apply transforms every pixel of img in place.
func Apply(img *image.RGBA, f Filter) error {
	if err := validate(img); err != nil {
		return err
	}
	applyRect(img, img.Rect, f.matrix())
	return nil
}

// ApplyRect transforms only the pixels of img inside r. Parts of r outside
// the image are ignored.
func ApplyRect(img *image.RGBA, r image.Rectangle, f Filter) error {
	if err := validate(img); err != nil {
		return err
	}
	applyRect(img, r.Intersect(img.Rect), f.matrix())
	return nil
}

func applyRect(img *image.RGBA, r image.Rectangle, m *matrix) {
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		start := img.PixOffset(r.Min.X, y)
		row := img.Pix[start : start+4*r.Dx()]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2] = m.apply(row[i], row[i+1], row[i+2])
		}
	}
}

func validate(img *image.RGBA) error {
	if img == nil {
		return apperrors.New(apperrors.CodeTransformInputInvalid, "nil pixel buffer")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	if img.Stride < 4*w {
		return apperrors.Newf(apperrors.CodeTransformInputInvalid, "stride %d shorter than row of %d pixels", img.Stride, w)
	}
	if need := (h-1)*img.Stride + 4*w; len(img.Pix) < need {
		return apperrors.Newf(apperrors.CodeTransformInputInvalid, "pixel data has %d bytes, need %d", len(img.Pix), need)
	}
	return nil
}
