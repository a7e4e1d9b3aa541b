package accessor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Get returns the row whose primary key equals key. A missing row is a
// NotFoundError, never a nil row. The key is validated only when the
// endpoint declares a key shape.
func (a *Accessor) Get(ctx context.Context, key any) (row types.Row, err error) {
	const op = "get"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindTable); err != nil {
		return nil, err
	}
	if a.endpoint.Key != nil {
		v, err := a.validateArgs(a.endpoint.Key, key, -1)
		if err != nil {
			return nil, err
		}
		key = v
	} else if missingKey(key) {
		return nil, a.keyIssue(-1)
	}

	d := query.BuildOne(a.endpoint.Name, a.endpoint.PrimaryKey, key)
	rows, _, err := a.transport.QueryTable(ctx, a.endpoint.Name, d)
	if err != nil {
		return nil, a.transportErr("query", nil, err)
	}
	if len(rows) == 0 {
		return nil, &types.NotFoundError{Endpoint: a.endpoint.Name, Key: key}
	}
	return rows[0], nil
}

// List returns one page of rows matching the directives plus the exact
// total. It has no side effects and never touches the coordinator.
func (a *Accessor) List(ctx context.Context, d query.Directives) (resp *types.PaginatedResponse, err error) {
	const op = "list"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	if err := a.requireKind(op, types.KindTable); err != nil {
		return nil, err
	}
	desc, err := query.Build(a.endpoint.Name, d)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", a.endpoint.Name, err)
	}
	rows, total, err := a.transport.QueryTable(ctx, a.endpoint.Name, desc)
	if err != nil {
		return nil, a.transportErr("query", nil, err)
	}

	resp = &types.PaginatedResponse{
		Data: []types.Row{},
		Pagination: types.PageInfo{
			Page:     desc.Page.Page,
			PageSize: desc.Page.PageSize,
		},
	}
	if total <= 0 {
		return resp, nil
	}
	if len(rows) > desc.Page.PageSize {
		a.logger.Warn("transport returned more rows than the page size",
			zap.Int("rows", len(rows)), zap.Int("page_size", desc.Page.PageSize))
		rows = rows[:desc.Page.PageSize]
	}
	resp.Data = append(resp.Data, rows...)
	resp.Pagination.Total = total
	resp.Pagination.TotalPages = types.TotalPages(total, desc.Page.PageSize)
	return resp, nil
}
