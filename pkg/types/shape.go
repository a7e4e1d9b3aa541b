// Declarative shapes for endpoint arguments, rows and procedure results.
// See docs/ARCHITECTURE.md § Data Model.
package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ShapeType is the primitive or composite type of a Shape.
type ShapeType string

// Supported shape types.
const (
	TypeText    ShapeType = "text"
	TypeInteger ShapeType = "integer"
	TypeNumber  ShapeType = "number"
	TypeBoolean ShapeType = "boolean"
	TypeObject  ShapeType = "object"
	TypeArray   ShapeType = "array"
	TypeAny     ShapeType = "any"
)

// validShapeTypes is the set of recognized shape types.
var validShapeTypes = map[ShapeType]bool{
	TypeText:    true,
	TypeInteger: true,
	TypeNumber:  true,
	TypeBoolean: true,
	TypeObject:  true,
	TypeArray:   true,
	TypeAny:     true,
}

// Nullability counts how many times a shape was marked nullable. Generated
// declarations sometimes mark a list nullable twice; any depth above zero
// means the same thing: null is accepted and a null list reads as empty.
type Nullability int

// IsNullable reports whether null is an accepted value.
func (n Nullability) IsNullable() bool { return n > 0 }

// Redundant reports whether the shape was marked nullable more than once.
func (n Nullability) Redundant() bool { return n > 1 }

// UnmarshalYAML accepts either a boolean or a nullability depth.
func (n *Nullability) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if err := node.Decode(&b); err == nil {
		if b {
			*n = 1
		} else {
			*n = 0
		}
		return nil
	}
	var depth int
	if err := node.Decode(&depth); err != nil {
		return fmt.Errorf("nullable must be a boolean or a depth: %w", err)
	}
	if depth < 0 {
		return fmt.Errorf("nullable depth %d is negative", depth)
	}
	*n = Nullability(depth)
	return nil
}

// Shape declares the structure a value must have. Objects list their fields
// in declaration order; arrays describe their elements with Items.
type Shape struct {
	Type     ShapeType   `yaml:"type" json:"type"`
	Nullable Nullability `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Optional bool        `yaml:"optional,omitempty" json:"optional,omitempty"`
	NonEmpty bool        `yaml:"non_empty,omitempty" json:"non_empty,omitempty"`
	Enum     []string    `yaml:"enum,omitempty" json:"enum,omitempty"`
	Items    *Shape      `yaml:"items,omitempty" json:"items,omitempty"`
	Fields   []Field     `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Field is a named member of an object shape.
type Field struct {
	Name  string `yaml:"name" json:"name"`
	Shape `yaml:",inline"`
}

// Field returns the named field of an object shape.
func (s *Shape) Field(name string) (*Field, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// FieldNames returns the object's field names in declaration order.
func (s *Shape) FieldNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks that the shape declaration itself is well-formed.
// It returns ErrInvalidShape wrapped with the offending path.
func (s *Shape) Validate() error {
	return s.validate("")
}

func (s *Shape) validate(path string) error {
	if s == nil {
		return fmt.Errorf("%w: %s: missing shape", ErrInvalidShape, displayPath(path))
	}
	if !validShapeTypes[s.Type] {
		return fmt.Errorf("%w: %s: unknown type %q", ErrInvalidShape, displayPath(path), s.Type)
	}
	switch s.Type {
	case TypeArray:
		if s.Items == nil {
			return fmt.Errorf("%w: %s: array without items", ErrInvalidShape, displayPath(path))
		}
		return s.Items.validate(joinPath(path, "items"))
	case TypeObject:
		seen := make(map[string]bool, len(s.Fields))
		for i := range s.Fields {
			f := &s.Fields[i]
			if f.Name == "" {
				return fmt.Errorf("%w: %s: field %d has no name", ErrInvalidShape, displayPath(path), i)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidShape, displayPath(path), f.Name)
			}
			seen[f.Name] = true
			if err := f.Shape.validate(joinPath(path, f.Name)); err != nil {
				return err
			}
		}
	default:
		if len(s.Fields) > 0 {
			return fmt.Errorf("%w: %s: fields on non-object type %q", ErrInvalidShape, displayPath(path), s.Type)
		}
	}
	return nil
}

// Walk calls fn for the shape and every nested shape, depth first.
// The path argument is the dotted path of the nested shape.
func (s *Shape) Walk(fn func(path string, s *Shape)) {
	s.walk("", fn)
}

func (s *Shape) walk(path string, fn func(string, *Shape)) {
	if s == nil {
		return
	}
	fn(path, s)
	if s.Items != nil {
		s.Items.walk(joinPath(path, "items"), fn)
	}
	for i := range s.Fields {
		s.Fields[i].Shape.walk(joinPath(path, s.Fields[i].Name), fn)
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
