package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/menta2k/layout-analyzer/pkg/client"
	"github.com/menta2k/layout-analyzer/pkg/types"
)

// LayoutPrompt asks the model for a fenced JSON array of components. The
// extractor depends on the ```json fence convention it requests.
const LayoutPrompt = `Analyze this image of a web page design. Identify and locate the following components:
- Buttons
- Input fields
- Links
- Images
- Text blocks
- Navigation menus

For each component, provide:
1. The type of component
2. A brief description
3. The approximate location in the image (top-left coordinates, width, and height as percentages of the image dimensions)

Format the response as a JSON array of components, each containing 'type', 'description', and 'location' fields.
The 'location' field must be an object with numeric 'top', 'left', 'width' and 'height' values between 0 and 100.
Put the array in a single fenced code block that starts with ` + "```json" + ` and ends with ` + "```" + `.`

// DefaultTimeout bounds a single model call when none is configured
const DefaultTimeout = 2 * time.Minute

// Detector invokes a vision model with the layout prompt
type Detector struct {
	client  client.VisionClient
	prompt  string
	options types.GenerationOptions
	timeout time.Duration
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, options types.GenerationOptions, timeout time.Duration) *Detector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Detector{
		client:  client,
		prompt:  LayoutPrompt,
		options: options,
		timeout: timeout,
	}
}

// WithPrompt returns a copy of the detector using a different prompt
func (d *Detector) WithPrompt(prompt string) *Detector {
	cp := *d
	cp.prompt = prompt
	return &cp
}

// Detect sends the image to the model and returns its raw answer. Failures
// are reported as ErrModelTimeout when the deadline expired and as
// ErrModelUnavailable otherwise.
func (d *Detector) Detect(ctx context.Context, image []byte) (*types.RawResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.Invoke(ctx, image, d.prompt, d.options)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s after %s: %w", d.client.Model(), time.Since(start).Round(time.Millisecond), err)
			return nil, types.NewStageError(types.StageModel, types.ErrModelTimeout, "", err)
		}
		return nil, types.NewStageError(types.StageModel, types.ErrModelUnavailable, "", err)
	}
	if resp == nil {
		resp = &types.RawResponse{Model: d.client.Model()}
	}
	return resp, nil
}
