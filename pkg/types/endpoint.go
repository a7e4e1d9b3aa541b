// Endpoint descriptors identify one remote procedure or resource table.
// See docs/ARCHITECTURE.md § Data Model.
package types

import "fmt"

// EndpointKind distinguishes remote procedures from resource tables.
type EndpointKind string

// Endpoint kinds.
const (
	KindProcedure EndpointKind = "procedure"
	KindTable     EndpointKind = "table"
)

// DefaultPrimaryKey is used by table endpoints that do not name one.
const DefaultPrimaryKey = "id"

// Endpoint is the static descriptor of one remote procedure or table.
// Descriptors are built once, from the catalog or by hand, and never mutated
// afterwards.
type Endpoint struct {
	Name        string       `yaml:"name" json:"name"`
	Kind        EndpointKind `yaml:"kind" json:"kind"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`

	// Args is the procedure argument shape.
	Args *Shape `yaml:"args,omitempty" json:"args,omitempty"`
	// Returns is the procedure result shape, or the row shape of a table.
	Returns *Shape `yaml:"returns,omitempty" json:"returns,omitempty"`
	// SQL optionally implements a procedure as one statement run by SQL
	// transports. Arguments bind to :name parameters.
	SQL string `yaml:"sql,omitempty" json:"sql,omitempty"`

	// Table-only declarations.
	PrimaryKey string `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Key        *Shape `yaml:"key,omitempty" json:"key,omitempty"`
	Create     *Shape `yaml:"create,omitempty" json:"create,omitempty"`
	Update     *Shape `yaml:"update,omitempty" json:"update,omitempty"`
}

// IsTable reports whether the endpoint is a resource table.
func (e *Endpoint) IsTable() bool { return e.Kind == KindTable }

// IsProcedure reports whether the endpoint is a remote procedure.
func (e *Endpoint) IsProcedure() bool { return e.Kind == KindProcedure }

// Scope is the broadest invalidation scope of the endpoint.
func (e *Endpoint) Scope() CacheKey {
	return CacheKey{e.Name}
}

// ListScope covers every cached list read of the table.
func (e *Endpoint) ListScope() CacheKey {
	return CacheKey{e.Name, ScopeList}
}

// RowScope covers cached reads of the row with the given primary key.
func (e *Endpoint) RowScope(key any) CacheKey {
	return CacheKey{e.Name, ScopeRow, fmt.Sprint(key)}
}

// Validate checks that the descriptor is complete for its kind. Call
// Complete first to fill derived table shapes.
func (e *Endpoint) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEndpoint)
	}
	switch e.Kind {
	case KindProcedure:
		if e.Args == nil || e.Returns == nil {
			return fmt.Errorf("%w: procedure %q needs args and returns", ErrInvalidEndpoint, e.Name)
		}
		if err := e.Args.Validate(); err != nil {
			return fmt.Errorf("procedure %q args: %w", e.Name, err)
		}
		if err := e.Returns.Validate(); err != nil {
			return fmt.Errorf("procedure %q returns: %w", e.Name, err)
		}
	case KindTable:
		if e.PrimaryKey == "" {
			return fmt.Errorf("%w: table %q has no primary key", ErrInvalidEndpoint, e.Name)
		}
		if e.Returns == nil || e.Returns.Type != TypeObject {
			return fmt.Errorf("%w: table %q needs an object row shape", ErrInvalidEndpoint, e.Name)
		}
		if _, ok := e.Returns.Field(e.PrimaryKey); !ok {
			return fmt.Errorf("%w: table %q row has no primary key field %q", ErrInvalidEndpoint, e.Name, e.PrimaryKey)
		}
		for name, s := range map[string]*Shape{"returns": e.Returns, "create": e.Create, "update": e.Update, "key": e.Key} {
			if s == nil {
				continue
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("table %q %s: %w", e.Name, name, err)
			}
		}
		if e.Create == nil || e.Update == nil {
			return fmt.Errorf("%w: table %q has no create or update shape", ErrInvalidEndpoint, e.Name)
		}
		if f, ok := e.Update.Field(e.PrimaryKey); !ok || f.Optional {
			return fmt.Errorf("%w: table %q update shape must require %q", ErrInvalidEndpoint, e.Name, e.PrimaryKey)
		}
	default:
		return fmt.Errorf("%w: %q has unknown kind %q", ErrInvalidEndpoint, e.Name, e.Kind)
	}
	return nil
}

// Complete returns a copy of a table descriptor with the primary key and the
// create and update shapes filled in when they were not declared.
//
// The derived create shape is the row shape with the primary key made
// optional. The derived update shape requires the primary key and makes
// every other create field optional, so a key alone is a valid update.
func (e Endpoint) Complete() Endpoint {
	if e.Kind != KindTable {
		return e
	}
	if e.PrimaryKey == "" {
		e.PrimaryKey = DefaultPrimaryKey
	}
	if e.Returns == nil || e.Returns.Type != TypeObject {
		return e
	}
	if e.Create == nil {
		e.Create = deriveCreate(e.Returns, e.PrimaryKey)
	}
	if e.Update == nil {
		e.Update = deriveUpdate(e.Returns, e.Create, e.PrimaryKey)
	}
	return e
}

func deriveCreate(row *Shape, pk string) *Shape {
	out := &Shape{Type: TypeObject}
	for _, f := range row.Fields {
		if f.Name == pk {
			f.Optional = true
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

func deriveUpdate(row, create *Shape, pk string) *Shape {
	key := Field{Name: pk, Shape: Shape{Type: TypeText, NonEmpty: true}}
	if f, ok := row.Field(pk); ok {
		key = *f
	}
	key.Optional = false
	key.Nullable = 0

	out := &Shape{Type: TypeObject, Fields: []Field{key}}
	for _, f := range create.Fields {
		if f.Name == pk {
			continue
		}
		f.Optional = true
		out.Fields = append(out.Fields, f)
	}
	return out
}
