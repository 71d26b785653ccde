package types

import (
	"errors"
	"fmt"
)

// Error kinds produced by the analysis pipeline. Match them with errors.Is.
var (
	ErrEmptyResponse     = errors.New("model returned no answer segments")
	ErrMalformedEnvelope = errors.New("no text field in model response envelope")
	ErrNoJSONBlock       = errors.New("no ```json fenced block in model text")
	ErrJSONDecode        = errors.New("fenced block is not valid JSON")
	ErrSchema            = errors.New("JSON payload has unexpected shape")
	ErrNoValidComponents = errors.New("no valid components in model output")
	ErrModelTimeout      = errors.New("model call timed out")
	ErrModelUnavailable  = errors.New("model call failed")
	ErrImageIO           = errors.New("image processing failed")
)

// MaxSnippet bounds the offending text attached to a StageError
const MaxSnippet = 200

// Pipeline stage names
const (
	StageEnvelope = "envelope"
	StageFence    = "fence"
	StageDecode   = "decode"
	StageSchema   = "schema"
	StageValidate = "validate"
	StageModel    = "model"
	StageLoad     = "load"
	StageAnnotate = "annotate"
	StageSave     = "save"
)

// StageError reports where the pipeline broke, what kind of failure it was
// and a bounded piece of the input that caused it.
type StageError struct {
	Stage   string
	Kind    error
	Snippet string
	Err     error
}

// NewStageError builds a StageError, truncating snippet to MaxSnippet bytes
func NewStageError(stage string, kind error, snippet string, err error) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Snippet: Truncate(snippet, MaxSnippet),
		Err:     err,
	}
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (near %q)", e.Snippet)
	}
	return msg
}

// Unwrap exposes both the error kind and the underlying cause
func (e *StageError) Unwrap() []error {
	out := []error{e.Kind}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// IsRetryable reports whether err came from the model call and may succeed
// on a second attempt. Extraction and validation failures are
// deterministic for a given response and are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrModelTimeout) || errors.Is(err, ErrModelUnavailable)
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
