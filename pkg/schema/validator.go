package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Validator checks values against shapes. It is safe for concurrent use.
type Validator struct {
	compiled sync.Map // *types.Shape -> *openapi3.Schema
	logger   *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used for validation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// New returns a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{logger: zap.NewNop()}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate checks value against shape and returns the coerced value or every
// issue found, sorted by path. Shapes are assumed immutable; each one is
// compiled on first use.
func (v *Validator) Validate(shape *types.Shape, value any) types.ValidationResult {
	if shape == nil {
		return types.Invalid([]types.Issue{{Message: "no shape declared"}})
	}
	doc, err := normalize(value)
	if err != nil {
		return types.Invalid([]types.Issue{{Message: err.Error()}})
	}

	var issues []types.Issue
	doc = prepare(shape, doc, "", &issues)

	if err := v.schemaFor(shape).VisitJSON(doc, openapi3.MultiErrors()); err != nil {
		issues = append(issues, flatten(err)...)
	}
	if len(issues) > 0 {
		issues = sortIssues(issues)
		v.logger.Debug("value rejected", zap.Int("issues", len(issues)))
		return types.Invalid(issues)
	}
	return types.Valid(coerce(shape, doc))
}

func (v *Validator) schemaFor(shape *types.Shape) *openapi3.Schema {
	if s, ok := v.compiled.Load(shape); ok {
		return s.(*openapi3.Schema)
	}
	s, _ := v.compiled.LoadOrStore(shape, compile(shape))
	return s.(*openapi3.Schema)
}

// normalize converts any Go value into its JSON form: maps, slices,
// float64, string, bool and nil. Structs honour their json tags.
func normalize(value any) (any, error) {
	switch value.(type) {
	case nil, string, bool, float64:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("value is not serializable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("value is not serializable: %w", err)
	}
	return out, nil
}

// flatten turns kin-openapi errors into issues.
func flatten(err error) []types.Issue {
	var me openapi3.MultiError
	if errors.As(err, &me) {
		var out []types.Issue
		for _, e := range me {
			out = append(out, flatten(e)...)
		}
		return out
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		msg := se.Reason
		if msg == "" {
			msg = se.Error()
		}
		return []types.Issue{{Path: strings.Join(se.JSONPointer(), "."), Message: msg}}
	}
	return []types.Issue{{Message: err.Error()}}
}

func sortIssues(issues []types.Issue) []types.Issue {
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	out := issues[:0]
	for i, is := range issues {
		if i > 0 && is == issues[i-1] {
			continue
		}
		out = append(out, is)
	}
	return out
}
