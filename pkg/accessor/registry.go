package accessor

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// ErrEndpointNotFound is returned when a registry has no endpoint of the
// requested name and kind.
var ErrEndpointNotFound = errors.New("endpoint not found")

// Registry holds one Accessor per endpoint, all sharing the same transport,
// validator and options.
type Registry struct {
	accessors map[string]*Accessor
	order     []string
}

// NewRegistry builds an accessor for every endpoint. Names must be unique.
func NewRegistry(endpoints []types.Endpoint, t Transport, v Validator, opts ...Option) (*Registry, error) {
	r := &Registry{accessors: make(map[string]*Accessor, len(endpoints))}
	for _, e := range endpoints {
		if _, dup := r.accessors[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate endpoint %q", types.ErrInvalidEndpoint, e.Name)
		}
		a, err := New(e, t, v, opts...)
		if err != nil {
			return nil, err
		}
		r.accessors[e.Name] = a
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// Lookup returns the accessor for name, whatever its kind.
func (r *Registry) Lookup(name string) (*Accessor, error) {
	a, ok := r.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEndpointNotFound, name)
	}
	return a, nil
}

// Table returns the accessor of the named table endpoint.
func (r *Registry) Table(name string) (*Accessor, error) {
	return r.lookupKind(name, types.KindTable)
}

// Procedure returns the accessor of the named procedure endpoint.
func (r *Registry) Procedure(name string) (*Accessor, error) {
	return r.lookupKind(name, types.KindProcedure)
}

func (r *Registry) lookupKind(name string, kind types.EndpointKind) (*Accessor, error) {
	a, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	if a.endpoint.Kind != kind {
		return nil, fmt.Errorf("%w: %q is a %s, not a %s", ErrEndpointNotFound, name, a.endpoint.Kind, kind)
	}
	return a, nil
}

// Endpoints returns the completed descriptors in registration order.
func (r *Registry) Endpoints() []types.Endpoint {
	out := make([]types.Endpoint, len(r.order))
	for i, name := range r.order {
		out[i] = r.accessors[name].endpoint
	}
	return out
}
