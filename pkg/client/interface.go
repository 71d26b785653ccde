package client

import (
	"context"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// VisionClient sends one image and a prompt to a vision-language model and
// returns its answer untouched.
type VisionClient interface {
	Invoke(ctx context.Context, image []byte, prompt string, opts types.GenerationOptions) (*types.RawResponse, error)
	Model() string
}
