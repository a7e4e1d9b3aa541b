package schema

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// compile converts a shape to an OpenAPI schema. Required fields are not
// declared here; the structural pass reports them with their own paths.
func compile(s *types.Shape) *openapi3.Schema {
	var out *openapi3.Schema
	switch s.Type {
	case types.TypeText:
		out = openapi3.NewStringSchema()
		if s.NonEmpty {
			out.MinLength = 1
		}
	case types.TypeInteger:
		out = openapi3.NewIntegerSchema()
	case types.TypeNumber:
		out = openapi3.NewFloat64Schema()
	case types.TypeBoolean:
		out = openapi3.NewBoolSchema()
	case types.TypeArray:
		out = openapi3.NewArraySchema()
		if s.NonEmpty {
			out.MinItems = 1
		}
		if s.Items != nil {
			out.Items = openapi3.NewSchemaRef("", compile(s.Items))
		}
	case types.TypeObject:
		out = openapi3.NewObjectSchema()
		for i := range s.Fields {
			f := &s.Fields[i]
			out.Properties[f.Name] = openapi3.NewSchemaRef("", compile(&f.Shape))
		}
	default:
		// any
		out = &openapi3.Schema{}
		out.Nullable = true
	}
	if s.Nullable.IsNullable() {
		out.Nullable = true
	}
	if len(s.Enum) > 0 {
		out.Enum = make([]any, len(s.Enum))
		for i, e := range s.Enum {
			out.Enum[i] = e
		}
	}
	return out
}
