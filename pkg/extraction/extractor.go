// Package extraction recovers the fenced JSON component list from the free
// form text a vision model returns.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/menta2k/layout-analyzer/pkg/schema"
	"github.com/menta2k/layout-analyzer/pkg/types"
)

var (
	// reprText finds the text field in a stringified answer part, either
	// `text: "..."` or `"text": "..."`, honouring escaped quotes.
	reprText = regexp.MustCompile(`(?s)"?\btext"?\s*:\s*"((?:[^"\\]|\\.)*)"`)

	// jsonFence matches the first ```json block. The label is
	// case-insensitive and may be followed by blanks before the newline.
	jsonFence = regexp.MustCompile("(?s)```(?i:json)[ \\t]*\\r?\\n(.*?)```")
)

// Extract returns the raw component objects embedded in the model answer.
// Only the first segment is used; further segments are ignored.
func Extract(raw *types.RawResponse) ([]map[string]any, error) {
	text, err := SegmentText(raw)
	if err != nil {
		return nil, err
	}

	block, err := FencedJSON(text)
	if err != nil {
		return nil, err
	}

	return decodeArray(block)
}

// ExtractComponents runs Extract and validates the result
func ExtractComponents(raw *types.RawResponse) (schema.Result, error) {
	objs, err := Extract(raw)
	if err != nil {
		return schema.Result{}, err
	}
	return schema.Validate(objs)
}

// SegmentText returns the plain text of the first answer segment, going
// through the typed accessor when the client provided one and falling back
// to scraping the part's string representation otherwise.
func SegmentText(raw *types.RawResponse) (string, error) {
	if raw == nil || len(raw.Segments) == 0 {
		return "", types.NewStageError(types.StageEnvelope, types.ErrEmptyResponse, "", nil)
	}

	seg := raw.Segments[0]
	if seg.HasText {
		return seg.Text, nil
	}

	m := reprText.FindStringSubmatch(seg.Repr)
	if m == nil {
		return "", types.NewStageError(types.StageEnvelope, types.ErrMalformedEnvelope, seg.Repr, nil)
	}
	return Unescape(m[1]), nil
}

// FencedJSON returns the interior of the first ```json block in text.
// Bare braces in prose are deliberately not considered.
func FencedJSON(text string) (string, error) {
	m := jsonFence.FindStringSubmatch(text)
	if m == nil {
		return "", types.NewStageError(types.StageFence, types.ErrNoJSONBlock, text, nil)
	}
	return strings.TrimSpace(m[1]), nil
}

func decodeArray(block string) ([]map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(block))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, types.NewStageError(types.StageDecode, types.ErrJSONDecode, snippetAt(block, err), err)
	}
	// Anything after the first value is junk inside the fence
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		off := int(dec.InputOffset())
		err := fmt.Errorf("unexpected data after JSON value at offset %d", off)
		return nil, types.NewStageError(types.StageDecode, types.ErrJSONDecode, tail(block, off), err)
	}

	arr, ok := v.([]any)
	if !ok {
		err := fmt.Errorf("expected array, got %s", kindOf(v))
		return nil, types.NewStageError(types.StageSchema, types.ErrSchema, block, err)
	}

	out := make([]map[string]any, 0, len(arr))
	for i, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			err := fmt.Errorf("element %d: expected object, got %s", i, kindOf(el))
			return nil, types.NewStageError(types.StageSchema, types.ErrSchema, block, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// snippetAt centres the diagnostic snippet on the decoder's error offset
// when one is available.
func snippetAt(block string, err error) string {
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return block
	}
	return tail(block, int(syn.Offset)-types.MaxSnippet/2)
}

func tail(s string, from int) string {
	if from <= 0 {
		return s
	}
	if from >= len(s) {
		return ""
	}
	return s[from:]
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
