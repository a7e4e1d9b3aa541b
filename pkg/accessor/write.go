package accessor

import (
	"context"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Create validates input against the create shape, inserts it and returns
// the stored row. The list scope is invalidated on success.
func (a *Accessor) Create(ctx context.Context, input any) (row types.Row, err error) {
	const op = "create"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindTable); err != nil {
		return nil, err
	}
	v, err := a.validateArgs(a.endpoint.Create, input, -1)
	if err != nil {
		return nil, err
	}
	rows, err := a.transport.Insert(ctx, a.endpoint.Name, []types.Row{toRow(v)})
	if err != nil {
		return nil, a.transportErr("insert", nil, err)
	}
	a.invalidate(ctx, a.endpoint.ListScope())
	if len(rows) == 0 {
		return nil, a.transportErr("insert", nil, ErrNoRowReturned)
	}
	return rows[0], nil
}

// Update validates input against the update shape, which requires the
// primary key, and applies the remaining fields as a patch to that row. An
// empty patch is valid. The list scope and the row scope are invalidated on
// success.
func (a *Accessor) Update(ctx context.Context, input any) (row types.Row, err error) {
	const op = "update"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindTable); err != nil {
		return nil, err
	}
	return a.updateOne(ctx, input, -1)
}

func (a *Accessor) updateOne(ctx context.Context, input any, index int) (types.Row, error) {
	row, err := a.updateItem(ctx, input, index)
	if err != nil {
		return nil, err
	}
	a.invalidate(ctx, a.endpoint.ListScope(), a.endpoint.RowScope(row.key))
	return row.Row, nil
}

// Delete removes the row with the given primary key. The list scope and the
// row scope are invalidated on success.
func (a *Accessor) Delete(ctx context.Context, key any) (err error) {
	const op = "delete"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindTable); err != nil {
		return err
	}
	if missingKey(key) {
		return a.keyIssue(-1)
	}
	if err := a.transport.Delete(ctx, a.endpoint.Name, query.ByKey(a.endpoint.PrimaryKey, key)); err != nil {
		return a.transportErr("delete", key, err)
	}
	a.invalidate(ctx, a.endpoint.ListScope(), a.endpoint.RowScope(key))
	return nil
}

// splitKey separates the primary key from the rest of a validated update.
func (a *Accessor) splitKey(r types.Row) (any, types.Row) {
	patch := r.Clone()
	key := patch[a.endpoint.PrimaryKey]
	delete(patch, a.endpoint.PrimaryKey)
	return key, patch
}

func toRow(v any) types.Row {
	switch m := v.(type) {
	case types.Row:
		return m
	case map[string]any:
		return types.Row(m)
	}
	return types.Row{}
}
