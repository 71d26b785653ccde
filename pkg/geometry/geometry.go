// Package geometry converts percentage boxes reported by the model into
// pixel rectangles that are safe to draw.
package geometry

import (
	"fmt"
	"math"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// ToPixelRect scales p to an image of the given size. The result is
// clamped to the image and never inverted.
func ToPixelRect(p types.PercentRect, width, height int) (types.PixelRect, error) {
	if width <= 0 || height <= 0 {
		return types.PixelRect{}, fmt.Errorf("invalid image size %dx%d", width, height)
	}

	fw, fh := float64(width), float64(height)
	r := types.PixelRect{
		X1: scale(p.Left, fw),
		Y1: scale(p.Top, fh),
		X2: scale(p.Left+p.Width, fw),
		Y2: scale(p.Top+p.Height, fh),
	}
	return r.Clamp(width, height), nil
}

// scale maps a percentage onto a dimension, rounding half away from zero.
// Values far outside the image saturate instead of overflowing int.
func scale(pct, dim float64) int {
	v := math.Round(pct * dim / 100)
	switch {
	case math.IsNaN(v):
		return 0
	case v > 2*dim:
		return int(2 * dim)
	case v < -dim:
		return int(-dim)
	}
	return int(v)
}

// Normalize converts every component's location for an image of the given
// size, preserving order.
func Normalize(components []types.Component, width, height int) ([]types.PixelRect, error) {
	out := make([]types.PixelRect, len(components))
	for i, c := range components {
		r, err := ToPixelRect(c.Location, width, height)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
