// Package annotate draws detected components onto a copy of an image.
package annotate

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

const (
	// DefaultStroke is the outline width in pixels
	DefaultStroke = 2
	// LabelOffset is how far above the box the label is anchored
	LabelOffset = 10
)

// Red is the default outline and label colour
var Red = color.NRGBA{R: 255, A: 255}

// Item pairs a component with its normalized rectangle. A zero Color
// uses the annotator's colour.
type Item struct {
	Component types.Component
	Rect      types.PixelRect
	Color     color.NRGBA
}

// Options controls the look of the overlay
type Options struct {
	Color  color.NRGBA
	Stroke int
	Face   font.Face
}

// DefaultOptions returns the fixed red, 2px, 7x13 style
func DefaultOptions() Options {
	return Options{
		Color:  Red,
		Stroke: DefaultStroke,
		Face:   basicfont.Face7x13,
	}
}

// Annotator draws boxes and type labels
type Annotator struct {
	opts Options
}

// New creates an annotator with default options
func New() *Annotator {
	return &Annotator{opts: DefaultOptions()}
}

// NewWithOptions creates an annotator with custom options. Zero fields fall
// back to defaults.
func NewWithOptions(opts Options) *Annotator {
	def := DefaultOptions()
	if opts.Color == (color.NRGBA{}) {
		opts.Color = def.Color
	}
	if opts.Stroke <= 0 {
		opts.Stroke = def.Stroke
	}
	if opts.Face == nil {
		opts.Face = def.Face
	}
	return &Annotator{opts: opts}
}

// Annotate returns a copy of img with every item drawn in order, so later
// items end up on top where they overlap. img is not modified.
func (a *Annotator) Annotate(img image.Image, items []Item) *image.NRGBA {
	out := imaging.Clone(img)
	for _, it := range items {
		c := it.Color
		if c == (color.NRGBA{}) {
			c = a.opts.Color
		}
		DrawRect(out, it.Rect, c, a.opts.Stroke)
		a.drawLabel(out, it.Component.Type, it.Rect, c)
	}
	return out
}

// LabelAnchor returns the top-left point of a label for r. Labels sit
// LabelOffset pixels above the box unless that would leave the image.
func LabelAnchor(r types.PixelRect) image.Point {
	y := r.Y1 - LabelOffset
	if y < 0 {
		y = r.Y1
	}
	return image.Pt(r.X1, y)
}

func (a *Annotator) drawLabel(img *image.NRGBA, label string, r types.PixelRect, c color.NRGBA) {
	if label == "" {
		return
	}
	anchor := LabelAnchor(r)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: a.opts.Face,
		Dot:  fixed.P(anchor.X, anchor.Y+a.opts.Face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(label)
}

// DrawRect strokes r with inclusive corners, growing the stroke inward.
// Pixels outside img are skipped.
func DrawRect(img *image.NRGBA, r types.PixelRect, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		x1, y1, x2, y2 := r.X1+s, r.Y1+s, r.X2-s, r.Y2-s
		if x1 > x2 || y1 > y2 {
			break
		}
		drawHLine(img, y1, x1, x2+1, c)
		drawHLine(img, y2, x1, x2+1, c)
		drawVLine(img, x1, y1, y2+1, c)
		drawVLine(img, x2, y1, y2+1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x0 < b.Min.X {
		x0 = b.Min.X
	}
	if x1 > b.Max.X {
		x1 = b.Max.X
	}
	for x := x0; x < x1; x++ {
		i := img.PixOffset(x, y)
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y0 < b.Min.Y {
		y0 = b.Min.Y
	}
	if y1 > b.Max.Y {
		y1 = b.Max.Y
	}
	for y := y0; y < y1; y++ {
		i := img.PixOffset(x, y)
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}
