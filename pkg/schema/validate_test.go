package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/layout-analyzer/pkg/types"
)

func decode(t *testing.T, s string) []map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out []map[string]any
	require.NoError(t, dec.Decode(&out))
	return out
}

func TestValidateDropsSingleMalformed(t *testing.T) {
	raw := decode(t, `[
		{"type":"button","description":"A","location":{"top":1,"left":2,"width":3,"height":4}},
		{"type":"link","description":"B","location":{"top":5,"left":6,"width":7,"height":8}},
		{"type":"image","description":"C","location":{"top":"9","left":10,"width":11}},
		{"type":"input field","description":"D","location":{"top":12,"left":13,"width":14,"height":15}},
		{"type":"text block","description":"E","location":{"top":16,"left":17,"width":18,"height":19}}
	]`)

	res, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, res.Components, 4)
	require.Len(t, res.Warnings, 1)

	assert.Equal(t, 2, res.Warnings[0].Index)
	assert.Contains(t, res.Warnings[0].Reason, "location.height")

	got := make([]string, len(res.Components))
	for i, c := range res.Components {
		got[i] = c.Description
	}
	assert.Equal(t, []string{"A", "B", "D", "E"}, got, "order must be preserved")
	assert.Equal(t, types.PercentRect{Top: 12, Left: 13, Width: 14, Height: 15}, res.Components[2].Location)
}

func TestValidateAllMalformed(t *testing.T) {
	raw := decode(t, `[
		{"description":"no type","location":{"top":1,"left":2,"width":3,"height":4}},
		{"type":"button","location":{"top":1,"left":2,"width":3,"height":4}},
		{"type":"button","description":"x","location":[1,2,3,4]},
		{"type":"button","description":"x","location":{"top":"high","left":2,"width":3,"height":4}}
	]`)

	res, err := Validate(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNoValidComponents)
	assert.Empty(t, res.Components)
	assert.Len(t, res.Warnings, 4)
}

func TestValidateEmptyBatch(t *testing.T) {
	_, err := Validate(nil)
	assert.ErrorIs(t, err, types.ErrNoValidComponents)
}

func TestValidateCoercion(t *testing.T) {
	raw := []map[string]any{{
		"type":        "  button ",
		"description": "",
		"location": map[string]any{
			"top":    "12.5%",
			"left":   json.Number("3"),
			"width":  7.25,
			"height": " 4 ",
		},
	}}

	res, err := Validate(raw)
	require.NoError(t, err)
	require.Len(t, res.Components, 1)
	c := res.Components[0]
	assert.Equal(t, "button", c.Type)
	assert.Equal(t, "", c.Description)
	assert.Equal(t, types.PercentRect{Top: 12.5, Left: 3, Width: 7.25, Height: 4}, c.Location)
}

func TestValidateRejects(t *testing.T) {
	loc := func() map[string]any {
		return map[string]any{"top": 1.0, "left": 1.0, "width": 1.0, "height": 1.0}
	}
	tests := map[string]map[string]any{
		"type not string":   {"type": 5.0, "description": "d", "location": loc()},
		"blank type":        {"type": "  ", "description": "d", "location": loc()},
		"description null":  {"type": "t", "description": nil, "location": loc()},
		"location string":   {"type": "t", "description": "d", "location": "top left"},
		"width bool":        {"type": "t", "description": "d", "location": map[string]any{"top": 1.0, "left": 1.0, "width": true, "height": 1.0}},
		"height not finite": {"type": "t", "description": "d", "location": map[string]any{"top": 1.0, "left": 1.0, "width": 1.0, "height": "NaN"}},
	}
	for name, obj := range tests {
		t.Run(name, func(t *testing.T) {
			res, err := Validate([]map[string]any{obj})
			assert.ErrorIs(t, err, types.ErrNoValidComponents)
			require.Len(t, res.Warnings, 1)
			assert.NotEmpty(t, res.Warnings[0].Reason)
		})
	}
}

func TestWarningStrings(t *testing.T) {
	r := Result{Warnings: []Warning{{Index: 3, Reason: "type is missing"}}}
	assert.Equal(t, []string{"component 3 dropped: type is missing"}, r.WarningStrings())
	assert.Nil(t, Result{}.WarningStrings())
}
