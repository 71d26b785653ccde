package types

// PercentRect is a bounding box expressed as percentages (0-100) of the
// image dimensions. Values come from the model and are not trusted.
type PercentRect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PixelRect is an absolute rectangle in image pixels. Both corners are
// inclusive, matching how the annotator strokes it.
type PixelRect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Dx returns the horizontal extent of the rectangle
func (r PixelRect) Dx() int { return r.X2 - r.X1 }

// Dy returns the vertical extent of the rectangle
func (r PixelRect) Dy() int { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle has zero area
func (r PixelRect) Empty() bool { return r.Dx() <= 0 || r.Dy() <= 0 }

// Clamp limits the rectangle to [0,width]x[0,height] and swaps inverted
// axes so that X1 <= X2 and Y1 <= Y2. Clamp is idempotent.
func (r PixelRect) Clamp(width, height int) PixelRect {
	r.X1 = clampInt(r.X1, 0, width)
	r.X2 = clampInt(r.X2, 0, width)
	r.Y1 = clampInt(r.Y1, 0, height)
	r.Y2 = clampInt(r.Y2, 0, height)
	if r.X2 < r.X1 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y2 < r.Y1 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Component is a UI element detected by the vision model
type Component struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Location    PercentRect `json:"location"`
}

// AnalysisResult is the outcome of one successful analysis run
type AnalysisResult struct {
	ProcessedImagePath string      `json:"processed_image"`
	Components         []Component `json:"components"`
	Warnings           []string    `json:"warnings,omitempty"`
}

// Segment is one answer part returned by a vision client.
//
// Text is set (and HasText is true) when the client could read the part's
// text through its typed API. Repr holds the client's generic string
// rendering of the part and is only consulted when HasText is false.
type Segment struct {
	Text    string
	HasText bool
	Repr    string
}

// RawResponse is the opaque model answer handed to the extractor
type RawResponse struct {
	Model    string
	Segments []Segment
}

// TextResponse builds a single-segment response from typed text
func TextResponse(model, text string) *RawResponse {
	return &RawResponse{
		Model:    model,
		Segments: []Segment{{Text: text, HasText: true}},
	}
}

// GenerationOptions controls sampling on the model side
type GenerationOptions struct {
	MaxOutputTokens int     `json:"max_output_tokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"top_p"`
	TopK            int     `json:"top_k"`
}

// DefaultGenerationOptions returns the sampling settings the layout prompt
// was tuned with
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{
		MaxOutputTokens: 2048,
		Temperature:     0.4,
		TopP:            1,
		TopK:            32,
	}
}

// ImageOptions controls how images are sent to the model
type ImageOptions struct {
	SendFormat  string
	SendMaxDim  int
	SendQuality int
}
