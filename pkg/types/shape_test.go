package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name    string
		shape   *Shape
		wantErr bool
	}{
		{
			name:  "text",
			shape: &Shape{Type: TypeText},
		},
		{
			name: "object with nested array",
			shape: &Shape{Type: TypeObject, Fields: []Field{
				{Name: "id", Shape: Shape{Type: TypeText}},
				{Name: "tags", Shape: Shape{Type: TypeArray, Items: &Shape{Type: TypeText}}},
			}},
		},
		{
			name:    "nil shape",
			shape:   nil,
			wantErr: true,
		},
		{
			name:    "unknown type",
			shape:   &Shape{Type: "date"},
			wantErr: true,
		},
		{
			name:    "array without items",
			shape:   &Shape{Type: TypeArray},
			wantErr: true,
		},
		{
			name: "duplicate field",
			shape: &Shape{Type: TypeObject, Fields: []Field{
				{Name: "a", Shape: Shape{Type: TypeText}},
				{Name: "a", Shape: Shape{Type: TypeText}},
			}},
			wantErr: true,
		},
		{
			name:    "fields on text",
			shape:   &Shape{Type: TypeText, Fields: []Field{{Name: "a", Shape: Shape{Type: TypeText}}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidShape)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestShapeYAMLNullability(t *testing.T) {
	src := `
type: object
fields:
  - name: title
    type: text
    non_empty: true
  - name: labels
    type: array
    nullable: 2
    items:
      type: text
  - name: note
    type: text
    nullable: true
    optional: true
`
	var s Shape
	require.NoError(t, yaml.Unmarshal([]byte(src), &s))
	require.NoError(t, s.Validate())

	assert.Equal(t, []string{"title", "labels", "note"}, s.FieldNames())

	labels, ok := s.Field("labels")
	require.True(t, ok)
	assert.True(t, labels.Nullable.IsNullable())
	assert.True(t, labels.Nullable.Redundant())

	note, ok := s.Field("note")
	require.True(t, ok)
	assert.True(t, note.Nullable.IsNullable())
	assert.False(t, note.Nullable.Redundant())
	assert.True(t, note.Optional)

	title, _ := s.Field("title")
	assert.True(t, title.NonEmpty)
	assert.False(t, title.Nullable.IsNullable())
}

func TestShapeYAMLNullabilityRejectsNegative(t *testing.T) {
	var s Shape
	err := yaml.Unmarshal([]byte("type: text\nnullable: -1\n"), &s)
	assert.Error(t, err)
}

func TestShapeWalk(t *testing.T) {
	s := &Shape{Type: TypeObject, Fields: []Field{
		{Name: "a", Shape: Shape{Type: TypeArray, Items: &Shape{Type: TypeObject, Fields: []Field{
			{Name: "b", Shape: Shape{Type: TypeInteger}},
		}}}},
	}}
	var paths []string
	s.Walk(func(path string, _ *Shape) { paths = append(paths, path) })
	assert.Equal(t, []string{"", "a", "a.items", "a.items.b"}, paths)
}
