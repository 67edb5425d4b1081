package server

import (
	"encoding/base64"
	"image"
	"log/slog"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/chromalens/platform/internal/surface"
)

// frameFilter drops lens paints that look the same as the last one sent.
// pHash only sees luminance, so the mean colour is compared too; a filter
// switch over a static scene changes colour but barely moves the hash.
type frameFilter struct {
	maxDistance int
	keyframe    time.Duration
	now         func() time.Time

	lastHash *goimagehash.ImageHash
	lastMean [3]float64
	lastSent time.Time
}

func newFrameFilter(maxDistance int) *frameFilter {
	return &frameFilter{maxDistance: maxDistance, keyframe: KeyframeInterval, now: time.Now}
}

// skip reports whether img can be dropped. When it returns false img becomes
// the new reference.
func (f *frameFilter) skip(img image.Image) bool {
	if f.maxDistance < 0 {
		return false
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}
	mean := meanColor(img)
	now := f.now()

	if f.lastHash != nil && now.Sub(f.lastSent) < f.keyframe && meanClose(mean, f.lastMean) {
		dist, err := f.lastHash.Distance(hash)
		if err == nil && dist <= f.maxDistance {
			slog.Debug("skipping similar frame", "distance", dist)
			return true
		}
	}

	f.lastHash = hash
	f.lastMean = mean
	f.lastSent = now
	return false
}

func meanColor(img image.Image) [3]float64 {
	var sum [3]float64
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return sum
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum[0] += float64(r >> 8)
			sum[1] += float64(g >> 8)
			sum[2] += float64(bl >> 8)
		}
	}
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
}

func meanClose(a, b [3]float64) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < -MaxMeanColorDrift || d > MaxMeanColorDrift {
			return false
		}
	}
	return true
}

// frameMessage encodes a painted frame for the wire.
func frameMessage(fr surface.Frame) (FrameMessage, error) {
	data, err := surface.EncodePNG(fr.Image)
	if err != nil {
		return FrameMessage{}, err
	}
	b := fr.Image.Bounds()
	return FrameMessage{
		Type:   "frame",
		Seq:    fr.Seq,
		Width:  b.Dx(),
		Height: b.Dy(),
		PNG:    base64.StdEncoding.EncodeToString(data),
	}, nil
}
