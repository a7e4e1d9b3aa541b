package schema

import (
	"math"
	"strconv"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// prepare applies the structural rules the OpenAPI pass cannot express:
// missing required fields are reported, null nullable arrays become empty
// (as do absent ones unless the field is optional), null optional fields are
// dropped, unknown fields are stripped and whole numbers outside the int64
// range are reported.
func prepare(s *types.Shape, v any, path string, issues *[]types.Issue) any {
	switch s.Type {
	case types.TypeObject:
		m, ok := v.(map[string]any)
		if !ok {
			return v
		}
		out := make(map[string]any, len(s.Fields))
		for i := range s.Fields {
			f := &s.Fields[i]
			fp := join(path, f.Name)
			val, present := m[f.Name]
			switch {
			case !present && f.Optional:
			case val == nil && f.Type == types.TypeArray && f.Nullable.IsNullable():
				out[f.Name] = []any{}
			case !present:
				*issues = append(*issues, types.Issue{Path: fp, Message: "is required"})
			case val == nil && !f.Nullable.IsNullable() && f.Optional:
				// dropped
			default:
				out[f.Name] = prepare(&f.Shape, val, fp, issues)
			}
		}
		return out
	case types.TypeArray:
		if v == nil && s.Nullable.IsNullable() {
			return []any{}
		}
		list, ok := v.([]any)
		if !ok || s.Items == nil {
			return v
		}
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = prepare(s.Items, item, join(path, strconv.Itoa(i)), issues)
		}
		return out
	case types.TypeInteger:
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			if _, ok := types.Int64Of(f); !ok {
				*issues = append(*issues, types.Issue{Path: path, Message: "integer out of range"})
			}
		}
	}
	return v
}

// coerce converts a validated document to its typed form. Whole numbers
// declared integer become int64.
func coerce(s *types.Shape, v any) any {
	switch s.Type {
	case types.TypeInteger:
		if f, ok := v.(float64); ok {
			if i, ok := types.Int64Of(f); ok {
				return i
			}
		}
	case types.TypeArray:
		if list, ok := v.([]any); ok && s.Items != nil {
			for i := range list {
				list[i] = coerce(s.Items, list[i])
			}
		}
	case types.TypeObject:
		if m, ok := v.(map[string]any); ok {
			for i := range s.Fields {
				f := &s.Fields[i]
				if val, ok := m[f.Name]; ok {
					m[f.Name] = coerce(&f.Shape, val)
				}
			}
		}
	}
	return v
}

func join(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
