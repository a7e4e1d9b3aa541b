package accessor

import (
	"context"
	"time"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// OutcomeStatus is the fate of one item of a bulk call.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusWritten OutcomeStatus = "written"
	StatusFailed  OutcomeStatus = "failed"
	StatusSkipped OutcomeStatus = "skipped"

	// StatusRequested marks a key of a bulk delete that succeeded. The
	// transport reports success for the whole set, not which keys matched a
	// row.
	StatusRequested OutcomeStatus = "requested"
)

// Outcome reports one item of a bulk call, aligned with the input by Index.
// Row is set for written creates and updates; Err for the failed item.
type Outcome struct {
	Index  int           `json:"index"`
	Status OutcomeStatus `json:"status"`
	Row    types.Row     `json:"row,omitempty"`
	Err    error         `json:"-"`
}

// Written reports how many outcomes are StatusWritten.
func Written(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusWritten {
			n++
		}
	}
	return n
}

// Requested reports how many outcomes are StatusRequested.
func Requested(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == StatusRequested {
			n++
		}
	}
	return n
}

func newOutcomes(n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = Outcome{Index: i, Status: StatusSkipped}
	}
	return out
}

// CreateMany validates every input before writing any. The first invalid
// item aborts the call with its index and issues and nothing is inserted.
// Valid batches are written with one multi-row insert. The outcome slice
// always has one entry per input.
func (a *Accessor) CreateMany(ctx context.Context, inputs []any) (outcomes []Outcome, err error) {
	const op = "create_many"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	outcomes = newOutcomes(len(inputs))
	if err := a.requireKind(op, types.KindTable); err != nil {
		return outcomes, err
	}
	if len(inputs) == 0 {
		return outcomes, nil
	}

	rows := make([]types.Row, len(inputs))
	for i, in := range inputs {
		v, err := a.validateArgs(a.endpoint.Create, in, i)
		if err != nil {
			outcomes[i].Status = StatusFailed
			outcomes[i].Err = err
			return outcomes, err
		}
		rows[i] = toRow(v)
	}

	written, err := a.transport.Insert(ctx, a.endpoint.Name, rows)
	if err != nil {
		err = a.transportErr("insert", nil, err)
		for i := range outcomes {
			outcomes[i].Status = StatusFailed
			outcomes[i].Err = err
		}
		return outcomes, err
	}
	a.invalidate(ctx, a.endpoint.ListScope())
	for i := range outcomes {
		outcomes[i].Status = StatusWritten
		if i < len(written) {
			outcomes[i].Row = written[i]
		}
	}
	return outcomes, nil
}

// UpdateMany validates and writes items one at a time, strictly in input
// order. The first failure stops the call: earlier items stay written, the
// failing item is reported and later items are skipped. The list scope is
// invalidated once if anything was written.
func (a *Accessor) UpdateMany(ctx context.Context, inputs []any) (outcomes []Outcome, err error) {
	const op = "update_many"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	outcomes = newOutcomes(len(inputs))
	if err := a.requireKind(op, types.KindTable); err != nil {
		return outcomes, err
	}

	var rowScopes []types.CacheKey
	defer func() {
		if len(rowScopes) > 0 {
			a.invalidate(ctx, append([]types.CacheKey{a.endpoint.ListScope()}, rowScopes...)...)
		}
	}()

	for i, in := range inputs {
		row, err := a.updateItem(ctx, in, i)
		if err != nil {
			outcomes[i].Status = StatusFailed
			outcomes[i].Err = err
			return outcomes, err
		}
		outcomes[i].Status = StatusWritten
		outcomes[i].Row = row.Row
		rowScopes = append(rowScopes, a.endpoint.RowScope(row.key))
	}
	return outcomes, nil
}

type keyedRow struct {
	types.Row
	key any
}

// updateItem is updateOne without per-item invalidation.
func (a *Accessor) updateItem(ctx context.Context, input any, index int) (keyedRow, error) {
	v, err := a.validateArgs(a.endpoint.Update, input, index)
	if err != nil {
		return keyedRow{}, err
	}
	key, patch := a.splitKey(toRow(v))
	if missingKey(key) {
		return keyedRow{}, a.keyIssue(index)
	}
	row, err := a.transport.Update(ctx, a.endpoint.Name, query.ByKey(a.endpoint.PrimaryKey, key), patch)
	if err != nil {
		return keyedRow{}, a.transportErr("update", key, err)
	}
	return keyedRow{Row: row, key: key}, nil
}

// DeleteMany removes every row whose primary key is in keys with one
// transport call. Keys must be non-empty; no other validation applies.
// On success every key is StatusRequested: keys that matched no row are
// not told apart from deleted ones.
func (a *Accessor) DeleteMany(ctx context.Context, keys []any) (outcomes []Outcome, err error) {
	const op = "delete_many"
	defer func(start time.Time) { a.observe(op, start, err) }(time.Now())

	outcomes = newOutcomes(len(keys))
	if err := a.requireKind(op, types.KindTable); err != nil {
		return outcomes, err
	}
	if len(keys) == 0 {
		return outcomes, nil
	}
	for i, k := range keys {
		if missingKey(k) {
			err := a.keyIssue(i)
			outcomes[i].Status = StatusFailed
			outcomes[i].Err = err
			return outcomes, err
		}
	}

	match := query.ByKeys(a.endpoint.PrimaryKey, keys)
	if err := a.transport.Delete(ctx, a.endpoint.Name, match); err != nil {
		err = a.transportErr("delete", keys, err)
		for i := range outcomes {
			outcomes[i].Status = StatusFailed
			outcomes[i].Err = err
		}
		return outcomes, err
	}

	scopes := make([]types.CacheKey, 0, len(keys)+1)
	scopes = append(scopes, a.endpoint.ListScope())
	for i, k := range keys {
		outcomes[i].Status = StatusRequested
		scopes = append(scopes, a.endpoint.RowScope(k))
	}
	a.invalidate(ctx, scopes...)
	return outcomes, nil
}
