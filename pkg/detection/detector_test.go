package detection

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

type stubClient struct {
	prompt string
	opts   types.GenerationOptions
	resp   *types.RawResponse
	err    error
	delay  time.Duration
}

func (s *stubClient) Model() string { return "stub" }

func (s *stubClient) Invoke(ctx context.Context, image []byte, prompt string, opts types.GenerationOptions) (*types.RawResponse, error) {
	s.prompt, s.opts = prompt, opts
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.resp, s.err
}

func TestLayoutPromptContract(t *testing.T) {
	for _, want := range []string{"Buttons", "Input fields", "Links", "Images", "Text blocks", "Navigation menus", "'type'", "'description'", "'location'", "percentages", "```json"} {
		assert.Contains(t, LayoutPrompt, want)
	}
}

func TestDetectPassesPromptAndOptions(t *testing.T) {
	stub := &stubClient{resp: types.TextResponse("stub", "hi")}
	opts := types.DefaultGenerationOptions()
	d := NewDetector(stub, opts, time.Second)

	resp, err := d.Detect(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Segments[0].Text)
	assert.Equal(t, LayoutPrompt, stub.prompt)
	assert.Equal(t, opts, stub.opts)

	_, err = d.WithPrompt("custom").Detect(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", stub.prompt)
}

func TestDetectTimeout(t *testing.T) {
	stub := &stubClient{delay: time.Second}
	d := NewDetector(stub, types.DefaultGenerationOptions(), 20*time.Millisecond)

	start := time.Now()
	_, err := d.Detect(context.Background(), nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, types.ErrModelTimeout)
	assert.True(t, types.IsRetryable(err))
}

func TestDetectTransportFailure(t *testing.T) {
	stub := &stubClient{err: errors.New("connection refused")}
	d := NewDetector(stub, types.DefaultGenerationOptions(), time.Second)

	_, err := d.Detect(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrModelUnavailable)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

func TestDetectNilResponse(t *testing.T) {
	d := NewDetector(&stubClient{}, types.DefaultGenerationOptions(), 0)
	resp, err := d.Detect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Segments)
	assert.Equal(t, DefaultTimeout, d.timeout)
}
