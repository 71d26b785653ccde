package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

func TestToPixelRect(t *testing.T) {
	tests := []struct {
		name string
		p    types.PercentRect
		want types.PixelRect
	}{
		{"sample button", types.PercentRect{Top: 10, Left: 20, Width: 15, Height: 5}, types.PixelRect{X1: 200, Y1: 80, X2: 350, Y2: 120}},
		{"full image", types.PercentRect{Top: 0, Left: 0, Width: 100, Height: 100}, types.PixelRect{X1: 0, Y1: 0, X2: 1000, Y2: 800}},
		{"rounds half up", types.PercentRect{Top: 0.0625, Left: 0.05, Width: 0, Height: 0}, types.PixelRect{X1: 1, Y1: 1, X2: 1, Y2: 1}},
		{"overflows bottom", types.PercentRect{Top: 100, Left: 10, Width: 10, Height: 50}, types.PixelRect{X1: 100, Y1: 800, X2: 200, Y2: 800}},
		{"overflows right", types.PercentRect{Top: 10, Left: 90, Width: 30, Height: 10}, types.PixelRect{X1: 900, Y1: 80, X2: 1000, Y2: 160}},
		{"negative origin", types.PercentRect{Top: -5, Left: -10, Width: 20, Height: 10}, types.PixelRect{X1: 0, Y1: 0, X2: 100, Y2: 40}},
		{"negative size", types.PercentRect{Top: 50, Left: 50, Width: -10, Height: -10}, types.PixelRect{X1: 400, Y1: 320, X2: 500, Y2: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPixelRect(tt.p, 1000, 800)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToPixelRectInvalidSize(t *testing.T) {
	_, err := ToPixelRect(types.PercentRect{Width: 10, Height: 10}, 0, 100)
	assert.Error(t, err)
	_, err = ToPixelRect(types.PercentRect{Width: 10, Height: 10}, 100, -1)
	assert.Error(t, err)
}

func TestToPixelRectNeverInverted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pick := func() float64 {
		switch rng.Intn(8) {
		case 0:
			return 0
		case 1:
			return 100
		case 2:
			return -rng.Float64() * 500
		case 3:
			return 100 + rng.Float64()*1e6
		case 4:
			return math.MaxFloat64
		default:
			return rng.Float64() * 100
		}
	}

	for i := 0; i < 5000; i++ {
		w, h := 1+rng.Intn(4000), 1+rng.Intn(4000)
		p := types.PercentRect{Top: pick(), Left: pick(), Width: pick(), Height: pick()}
		r, err := ToPixelRect(p, w, h)
		require.NoError(t, err)

		if r.X1 < 0 || r.X1 > r.X2 || r.X2 > w || r.Y1 < 0 || r.Y1 > r.Y2 || r.Y2 > h {
			t.Fatalf("bad rect %+v for %+v on %dx%d", r, p, w, h)
		}
		assert.Equal(t, r, r.Clamp(w, h), "re-clamping must not change the rect")
	}
}

func TestNormalizeKeepsOrder(t *testing.T) {
	comps := []types.Component{
		{Type: "a", Location: types.PercentRect{Top: 0, Left: 0, Width: 50, Height: 50}},
		{Type: "b", Location: types.PercentRect{Top: 50, Left: 50, Width: 50, Height: 50}},
	}
	rects, err := Normalize(comps, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, []types.PixelRect{
		{X1: 0, Y1: 0, X2: 100, Y2: 50},
		{X1: 100, Y1: 50, X2: 200, Y2: 100},
	}, rects)
}
