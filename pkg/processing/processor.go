package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Processor handles image codec operations
type Processor struct {
	minSide int
}

// NewProcessor creates a new image processor. Images with a side shorter
// than minSide are rejected by ValidateImage; 0 disables the check.
func NewProcessor(minSide int) *Processor {
	return &Processor{minSide: minSide}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := p.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// DecodeImage decodes an image from bytes. EXIF orientation is applied so
// that percentages match what the model saw.
func (p *Processor) DecodeImage(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true)); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode for variants x/image does not handle
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// ValidateImage checks that an image is large enough to analyze
func (p *Processor) ValidateImage(img image.Image) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("image is empty")
	}
	if b.Dx() < p.minSide || b.Dy() < p.minSide {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)", b.Dx(), b.Dy(), p.minSide)
	}
	return nil
}

// PrepareImageForModel re-encodes an image for upload to a vision model,
// shrinking its long side to maxDim when it is larger. Percent-based boxes
// are unaffected by the resize.
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) ([]byte, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// FormatFromPath returns the output format implied by a file extension
func FormatFromPath(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpeg":
		return "jpg"
	case "tiff":
		return "tif"
	case "":
		return "png"
	}
	return ext
}

// Encode writes img to w in the given format
func (p *Processor) Encode(w io.Writer, img image.Image, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(w, img, opts)
	case "jpg", "jpeg":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case "png":
		return imaging.Encode(w, img, imaging.PNG)
	case "gif":
		return imaging.Encode(w, img, imaging.GIF)
	case "tif", "tiff":
		return imaging.Encode(w, img, imaging.TIFF)
	case "bmp":
		return imaging.Encode(w, img, imaging.BMP)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// EncodeToBytes encodes img fully in memory
func (p *Processor) EncodeToBytes(img image.Image, format string, quality int, lossless bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img, format, quality, lossless); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
