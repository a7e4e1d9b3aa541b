package sqlstore

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// encode converts a row value to a bind argument for column c.
func encode(c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c.json() {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		return string(data), nil
	}
	if c.shape.Type == types.TypeInteger {
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			i, ok := types.Int64Of(f)
			if !ok {
				return nil, fmt.Errorf("encode %s: %w: %g", c.name, ErrNotInt64, f)
			}
			return i, nil
		}
	}
	return v, nil
}

// decode converts a scanned value back to its row form for column c.
func decode(c column, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	switch c.shape.Type {
	case types.TypeBoolean:
		switch x := v.(type) {
		case int64:
			return x != 0, nil
		case bool:
			return x, nil
		}
	case types.TypeInteger:
		if f, ok := v.(float64); ok {
			i, ok := types.Int64Of(f)
			if !ok {
				return nil, fmt.Errorf("decode %s: %w: %g", c.name, ErrNotInt64, f)
			}
			return i, nil
		}
	case types.TypeNumber:
		if i, ok := v.(int64); ok {
			return float64(i), nil
		}
	case types.TypeObject, types.TypeArray:
		if s, ok := v.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("decode %s: %w", c.name, err)
			}
			return out, nil
		}
	case types.TypeAny:
		// Undeclared columns hold whatever the database returned.
		if s, ok := v.(string); ok && c.declared() {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("decode %s: %w", c.name, err)
			}
			return out, nil
		}
	}
	return v, nil
}

// declared reports whether the column came from the row shape.
func (c column) declared() bool { return c.shape != nil && c.shape != untyped }

// untyped is the shape given to columns the row shape does not declare.
var untyped = &types.Shape{Type: types.TypeAny}
