package accessor

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Page is a typed page of rows.
type Page[T any] struct {
	Data       []T
	Pagination types.PageInfo
}

// Table is a typed view over a table accessor. Rows decode into T through
// its json tags.
type Table[T any] struct {
	a *Accessor
}

// NewTable wraps a table accessor.
func NewTable[T any](a *Accessor) (*Table[T], error) {
	if err := a.requireKind("bind", types.KindTable); err != nil {
		return nil, err
	}
	return &Table[T]{a: a}, nil
}

// Accessor returns the untyped accessor, for bulk operations.
func (t *Table[T]) Accessor() *Accessor { return t.a }

// Get returns the row with the given key.
func (t *Table[T]) Get(ctx context.Context, key any) (T, error) {
	row, err := t.a.Get(ctx, key)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](row)
}

// List returns one typed page.
func (t *Table[T]) List(ctx context.Context, d query.Directives) (*Page[T], error) {
	resp, err := t.a.List(ctx, d)
	if err != nil {
		return nil, err
	}
	page := &Page[T]{Data: make([]T, 0, len(resp.Data)), Pagination: resp.Pagination}
	for _, row := range resp.Data {
		v, err := decode[T](row)
		if err != nil {
			return nil, err
		}
		page.Data = append(page.Data, v)
	}
	return page, nil
}

// Create inserts input and returns the stored row.
func (t *Table[T]) Create(ctx context.Context, input any) (T, error) {
	row, err := t.a.Create(ctx, input)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](row)
}

// Update applies a keyed patch and returns the updated row.
func (t *Table[T]) Update(ctx context.Context, input any) (T, error) {
	row, err := t.a.Update(ctx, input)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](row)
}

// Delete removes the row with the given key.
func (t *Table[T]) Delete(ctx context.Context, key any) error {
	return t.a.Delete(ctx, key)
}

// Procedure is a typed view over a procedure accessor.
type Procedure[A, R any] struct {
	a *Accessor
}

// NewProcedure wraps a procedure accessor.
func NewProcedure[A, R any](a *Accessor) (*Procedure[A, R], error) {
	if err := a.requireKind("bind", types.KindProcedure); err != nil {
		return nil, err
	}
	return &Procedure[A, R]{a: a}, nil
}

// Call invokes the procedure and decodes its validated result into R.
func (p *Procedure[A, R]) Call(ctx context.Context, args A) (R, error) {
	v, err := p.a.Call(ctx, args)
	if err != nil {
		var zero R
		return zero, err
	}
	return decode[R](v)
}

func decode[T any](v any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return out, fmt.Errorf("decode %T: %w", out, err)
	}
	return out, nil
}
