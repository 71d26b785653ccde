package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelRectClamp(t *testing.T) {
	tests := []struct {
		name string
		in   PixelRect
		want PixelRect
	}{
		{"in range", PixelRect{10, 20, 30, 40}, PixelRect{10, 20, 30, 40}},
		{"negative", PixelRect{-5, -1, 30, 40}, PixelRect{0, 0, 30, 40}},
		{"past edges", PixelRect{90, 70, 150, 120}, PixelRect{90, 70, 100, 80}},
		{"inverted", PixelRect{60, 50, 10, 5}, PixelRect{10, 5, 60, 50}},
		{"fully outside", PixelRect{200, 200, 300, 300}, PixelRect{100, 80, 100, 80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp(100, 80)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, got.Clamp(100, 80), "clamp must be idempotent")
		})
	}
}

func TestPixelRectExtent(t *testing.T) {
	r := PixelRect{X1: 10, Y1: 20, X2: 15, Y2: 20}
	assert.Equal(t, 5, r.Dx())
	assert.Equal(t, 0, r.Dy())
	assert.True(t, r.Empty())
	assert.False(t, PixelRect{0, 0, 1, 1}.Empty())
}

func TestStageErrorMatching(t *testing.T) {
	cause := &json.SyntaxError{Offset: 3}
	err := fmt.Errorf("analyze: %w", NewStageError(StageDecode, ErrJSONDecode, "[1,,]", cause))

	assert.True(t, errors.Is(err, ErrJSONDecode))
	assert.False(t, errors.Is(err, ErrSchema))

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageDecode, se.Stage)
	assert.Equal(t, "[1,,]", se.Snippet)

	var syn *json.SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Equal(t, int64(3), syn.Offset)

	assert.Contains(t, err.Error(), "decode")
	assert.Contains(t, err.Error(), "[1,,]")
}

func TestStageErrorSnippetBounded(t *testing.T) {
	err := NewStageError(StageFence, ErrNoJSONBlock, strings.Repeat("x", 1000), nil)
	assert.LessOrEqual(t, len(err.Snippet), MaxSnippet+3)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewStageError(StageModel, ErrModelTimeout, "", nil)))
	assert.True(t, IsRetryable(NewStageError(StageModel, ErrModelUnavailable, "", errors.New("refused"))))
	assert.False(t, IsRetryable(NewStageError(StageFence, ErrNoJSONBlock, "", nil)))
	assert.False(t, IsRetryable(NewStageError(StageValidate, ErrNoValidComponents, "", nil)))
	assert.False(t, IsRetryable(errors.New("other")))
}

func TestTruncateKeepsUTF8(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes each
	got := Truncate(s, 5)
	assert.Equal(t, "éé...", got)
	assert.Equal(t, "short", Truncate("short", 10))
}

func TestDefaultGenerationOptions(t *testing.T) {
	opts := DefaultGenerationOptions()
	assert.Equal(t, 2048, opts.MaxOutputTokens)
	assert.Equal(t, 0.4, opts.Temperature)
	assert.Equal(t, 1.0, opts.TopP)
	assert.Equal(t, 32, opts.TopK)
}
