package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a new Ollama client for the given model
func NewClient(ollamaURL, model string) (*Client, error) {
	return NewClientWithHTTP(ollamaURL, model, http.DefaultClient)
}

// NewClientWithHTTP is NewClient with a caller-supplied HTTP client
func NewClientWithHTTP(ollamaURL, model string, httpClient *http.Client) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", ollamaURL)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	// Create base URL from the provided URL (removing path like /api/chat)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, httpClient), model: model}, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Invoke sends the image and prompt and returns the assistant message as a
// single typed text segment. The caller owns the deadline.
func (c *Client) Invoke(ctx context.Context, image []byte, prompt string, opts types.GenerationOptions) (*types.RawResponse, error) {
	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: prompt,
				Images:  []api.ImageData{api.ImageData(image)},
			},
		},
		Stream:  &streamFalse,
		Options: chatOptions(opts),
		// No Format field - the prompt asks for a fenced block inside prose
	}

	var (
		content string
		done    bool
	)
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		done = done || resp.Done
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if !done && content == "" {
		return &types.RawResponse{Model: c.model}, nil
	}

	return types.TextResponse(c.model, content), nil
}

func chatOptions(opts types.GenerationOptions) map[string]any {
	options := map[string]any{}
	if opts.MaxOutputTokens > 0 {
		options["num_predict"] = opts.MaxOutputTokens
	}
	options["temperature"] = opts.Temperature
	if opts.TopP > 0 {
		options["top_p"] = opts.TopP
	}
	if opts.TopK > 0 {
		options["top_k"] = opts.TopK
	}
	return options
}
