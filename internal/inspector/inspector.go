// Package inspector samples single screen pixels and names their colour.
package inspector

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/chromalens/platform/internal/dichromacy"
	apperrors "github.com/chromalens/platform/internal/errors"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/syncx"
	"github.com/chromalens/platform/internal/trace"
)

// DefaultCacheSize bounds the colour-name cache.
const DefaultCacheSize = 512

// ColorInfo names a colour.
type ColorInfo struct {
	Hex      string  `json:"hex"`
	Name     string  `json:"name"`
	Exact    bool    `json:"exact"`
	Distance float64 `json:"distance"` // CIEDE2000 to the named colour
}

// Request is a single eyedropper sample. Filter is optional; when set the
// result includes the simulated pixel.
type Request struct {
	X, Y   float64
	Filter string
}

// Result is what the eyedropper saw.
type Result struct {
	X, Y      float64    `json:"-"`
	Color     ColorInfo  `json:"color"`
	Filter    string     `json:"filter,omitempty"`
	Simulated *ColorInfo `json:"simulated,omitempty"`
}

type namedColor struct {
	name string
	c    colorful.Color
}

// Inspector samples frames from a capture provider.
type Inspector struct {
	provider screen.Provider
	dpr      float64
	palette  []namedColor
	cache    *syncx.Cache[string, ColorInfo]
}

// New creates an inspector. dpr converts viewport coordinates to device pixels.
func New(provider screen.Provider, dpr float64) *Inspector {
	if dpr <= 0 {
		dpr = 1
	}
	palette := make([]namedColor, 0, len(cssColors))
	for _, nc := range cssColors {
		c, err := colorful.Hex(nc.hex)
		if err != nil {
			continue
		}
		palette = append(palette, namedColor{name: nc.name, c: c})
	}
	return &Inspector{
		provider: provider,
		dpr:      dpr,
		palette:  palette,
		cache:    syncx.NewCache[string, ColorInfo](DefaultCacheSize),
	}
}

// Inspect opens a short-lived capture session, grabs one frame and samples
// the pixel under the viewport point.
func (i *Inspector) Inspect(ctx context.Context, req Request) (Result, error) {
	ctx, span := trace.StartSpan(ctx, "inspector.inspect")
	defer span.End()

	session, err := i.provider.Open(ctx)
	if err != nil {
		span.Fail(err)
		return Result{}, err
	}
	defer session.Stop()

	frame, err := session.Grab(ctx)
	if err != nil {
		span.Fail(err)
		return Result{}, err
	}

	px, err := i.sample(frame, req.X, req.Y)
	if err != nil {
		return Result{}, err
	}

	res := Result{X: req.X, Y: req.Y, Color: i.describe(px)}
	if req.Filter != "" {
		f := dichromacy.ParseFilter(req.Filter)
		sim := i.describe(dichromacy.TransformPixel(px, f))
		res.Filter = f.String()
		res.Simulated = &sim
	}
	trace.Logger(ctx).Debug("inspected pixel", "x", req.X, "y", req.Y, "hex", res.Color.Hex, "name", res.Color.Name)
	return res, nil
}

func (i *Inspector) sample(frame *image.RGBA, x, y float64) (color.RGBA, error) {
	pt := image.Pt(int(math.Floor(x*i.dpr)), int(math.Floor(y*i.dpr)))
	if !pt.In(frame.Bounds()) {
		return color.RGBA{}, apperrors.Newf(apperrors.CodeInvalidArgument, "point (%g,%g) is outside the screen", x, y)
	}
	return frame.RGBAAt(pt.X, pt.Y), nil
}

func (i *Inspector) describe(px color.RGBA) ColorInfo {
	c := colorful.Color{R: float64(px.R) / 255, G: float64(px.G) / 255, B: float64(px.B) / 255}
	hex := c.Hex()
	return i.cache.GetOrCompute(hex, func() ColorInfo { return i.nearest(c) })
}

// Lookup names a colour given as #rrggbb, rrggbb or #rgb.
func (i *Inspector) Lookup(hex string) (ColorInfo, error) {
	c, err := parseHex(hex)
	if err != nil {
		return ColorInfo{}, err
	}
	key := c.Hex()
	return i.cache.GetOrCompute(key, func() ColorInfo { return i.nearest(c) }), nil
}

func (i *Inspector) nearest(c colorful.Color) ColorInfo {
	info := ColorInfo{Hex: c.Hex(), Distance: math.Inf(1)}
	for _, nc := range i.palette {
		d := c.DistanceCIEDE2000(nc.c)
		if d < info.Distance {
			info.Distance = d
			info.Name = nc.name
		}
	}
	info.Exact = info.Distance < 1e-9
	return info
}

func parseHex(s string) (colorful.Color, error) {
	h := strings.ToLower(strings.TrimSpace(s))
	h = strings.TrimPrefix(h, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 || strings.Trim(h, "0123456789abcdef") != "" {
		return colorful.Color{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid hex colour %q", s)
	}
	c, err := colorful.Hex("#" + h)
	if err != nil {
		return colorful.Color{}, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid hex colour %q", s)
	}
	return c, nil
}
