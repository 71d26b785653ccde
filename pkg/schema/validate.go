// Package schema checks decoded model output against the component shape
// and turns it into typed components.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

// Warning records a component that was dropped during validation
type Warning struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("component %d dropped: %s", w.Index, w.Reason)
}

// Result holds the components that passed validation, in input order
type Result struct {
	Components []types.Component
	Warnings   []Warning
}

// WarningStrings renders the warnings for logging and API output
func (r Result) WarningStrings() []string {
	if len(r.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.String()
	}
	return out
}

var locationFields = []string{"top", "left", "width", "height"}

// Validate converts raw objects into components. Malformed elements are
// dropped with a warning; the call fails only when nothing survives.
func Validate(raw []map[string]any) (Result, error) {
	var res Result
	for i, obj := range raw {
		c, err := component(obj)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Index: i, Reason: err.Error()})
			continue
		}
		res.Components = append(res.Components, c)
	}

	if len(res.Components) == 0 {
		err := fmt.Errorf("%d of %d components rejected", len(res.Warnings), len(raw))
		snippet := strings.Join(res.WarningStrings(), "; ")
		return res, types.NewStageError(types.StageValidate, types.ErrNoValidComponents, snippet, err)
	}
	return res, nil
}

func component(obj map[string]any) (types.Component, error) {
	var c types.Component

	typ, ok := obj["type"].(string)
	if !ok {
		return c, fieldError("type", obj["type"], "string")
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return c, fmt.Errorf("type is empty")
	}

	desc, ok := obj["description"].(string)
	if !ok {
		return c, fieldError("description", obj["description"], "string")
	}

	loc, ok := obj["location"].(map[string]any)
	if !ok {
		return c, fieldError("location", obj["location"], "object")
	}

	var vals [4]float64
	for i, key := range locationFields {
		v, err := toFloat(loc[key])
		if err != nil {
			return c, fmt.Errorf("location.%s: %v", key, err)
		}
		vals[i] = v
	}

	c.Type = typ
	c.Description = desc
	c.Location = types.PercentRect{Top: vals[0], Left: vals[1], Width: vals[2], Height: vals[3]}
	return c, nil
}

// toFloat accepts JSON numbers and numeric strings, with an optional
// trailing percent sign ("12.5%").
func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing")
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n.String())
		}
		f = x
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		f = x
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

func fieldError(name string, v any, want string) error {
	if v == nil {
		return fmt.Errorf("%s is missing", name)
	}
	return fmt.Errorf("%s: expected %s, got %T", name, want, v)
}
