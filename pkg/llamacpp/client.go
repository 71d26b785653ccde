package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request. top_k is a llama.cpp extension.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	TopK        int       `json:"top_k,omitempty"`
	Stream      bool      `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewClient(serverURL, model string) (*Client, error) {
	return NewClientWithHTTP(serverURL, model, &http.Client{})
}

// NewClientWithHTTP is NewClient with a caller-supplied HTTP client
func NewClientWithHTTP(serverURL, model string, httpClient *http.Client) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return nil, fmt.Errorf("invalid URL: %q", serverURL)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		model:      model,
		httpClient: httpClient,
	}, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Invoke sends the image and prompt to /v1/chat/completions. Each choice
// becomes one segment.
func (c *Client) Invoke(ctx context.Context, image []byte, prompt string, opts types.GenerationOptions) (*types.RawResponse, error) {
	content := []ContentPart{
		{
			Type: "text",
			Text: prompt,
		},
	}

	if len(image) > 0 {
		content = append(content, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image),
			},
		})
	}

	req := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxOutputTokens,
		TopP:        opts.TopP,
		TopK:        opts.TopK,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &types.RawResponse{Model: resp.Model}
	if out.Model == "" {
		out.Model = c.model
	}
	for _, choice := range resp.Choices {
		if seg, ok := segmentFor(choice); ok {
			out.Segments = append(out.Segments, seg)
		}
	}
	return out, nil
}

// segmentFor reads the message text through the known content shapes
// (string, or parts with a "text" field). Other non-empty shapes are kept
// as their JSON rendering for the extractor's fallback path. Choices with
// no content at all report false.
func segmentFor(choice Choice) (types.Segment, bool) {
	switch content := choice.Message.Content.(type) {
	case nil:
		return types.Segment{}, false
	case string:
		if content == "" {
			return types.Segment{}, false
		}
		return types.Segment{Text: content, HasText: true}, true
	case []interface{}:
		empty := true
		for _, item := range content {
			partMap, ok := item.(map[string]interface{})
			if !ok {
				empty = false
				continue
			}
			text, isText := partMap["text"].(string)
			if isText && text != "" {
				return types.Segment{Text: text, HasText: true}, true
			}
			if !isText {
				empty = false
			}
		}
		if empty {
			return types.Segment{}, false
		}
	case map[string]interface{}:
		if len(content) == 0 {
			return types.Segment{}, false
		}
	}

	repr, err := json.Marshal(choice.Message)
	if err != nil {
		return types.Segment{Repr: fmt.Sprintf("%+v", choice.Message)}, true
	}
	return types.Segment{Repr: string(repr)}, true
}

func (c *Client) sendRequest(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, types.Truncate(string(body), types.MaxSnippet))
	}

	return body, nil
}
