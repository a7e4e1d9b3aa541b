package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// QueryTable returns the rows inside the descriptor window. When the
// descriptor asks for an exact count, the total is computed in the same
// read transaction as the rows.
func (s *Store) QueryTable(ctx context.Context, name string, d query.Descriptor) ([]types.Row, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.lookup(name)
	if err != nil {
		return nil, 0, err
	}

	tx, err := s.db.BeginTx(ctx, s.dialect.readTx())
	if err != nil {
		return nil, 0, fmt.Errorf("begin read: %w", err)
	}
	defer tx.Rollback()

	total := 0
	if d.Count == query.CountExact {
		b := &binder{d: s.dialect}
		where, err := t.where(b, d.Constraints)
		if err != nil {
			return nil, 0, err
		}
		q := "SELECT COUNT(*) FROM " + quote(t.name) + where
		if err := tx.QueryRowContext(ctx, q, b.args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count %s: %w", t.name, err)
		}
		if total == 0 {
			return []types.Row{}, 0, tx.Commit()
		}
	}

	b := &binder{d: s.dialect}
	where, err := t.where(b, d.Constraints)
	if err != nil {
		return nil, 0, err
	}
	names, cols := t.selectList(d.Select)
	q := "SELECT " + cols + " FROM " + quote(t.name) + where + t.orderBy(d.Sort) + limit(d.Window)
	s.logger.Debug("query", zap.String("sql", q), zap.Int("args", len(b.args)))

	rows, err := s.scanRows(ctx, tx, t, names, q, b.args)
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit read: %w", err)
	}
	return rows, total, nil
}

// Insert writes rows in one transaction and returns them as stored, in
// input order. Missing text primary keys are generated; rows with every key
// known are written with a single multi-row statement.
func (s *Store) Insert(ctx context.Context, name string, rows []types.Row) ([]types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []types.Row{}, nil
	}

	prepared := make([]types.Row, len(rows))
	keyed := true
	for i, r := range rows {
		r = r.Clone()
		if missing(r[t.pk]) {
			if t.byName[t.pk].shape.Type == types.TypeText {
				r[t.pk] = newKey()
			} else {
				delete(r, t.pk)
				keyed = false
			}
		}
		for col := range r {
			if _, ok := t.byName[col]; !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, col)
			}
		}
		prepared[i] = r
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	var out []types.Row
	if keyed {
		out, err = s.insertKeyed(ctx, tx, t, prepared)
	} else {
		out, err = s.insertEach(ctx, tx, t, prepared)
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}
	s.logger.Debug("rows inserted", zap.String("table", t.name), zap.Int("rows", len(out)))
	return out, nil
}

// insertKeyed writes every row with one INSERT and reads them back by key.
func (s *Store) insertKeyed(ctx context.Context, tx *sql.Tx, t *table, rows []types.Row) ([]types.Row, error) {
	cols := t.insertColumns(rows)
	b := &binder{d: s.dialect}
	tuples := make([]string, len(rows))
	keys := make([]any, len(rows))
	for i, r := range rows {
		ph, err := t.bindValues(b, cols, r)
		if err != nil {
			return nil, err
		}
		tuples[i] = "(" + strings.Join(ph, ", ") + ")"
		keys[i] = r[t.pk]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", quote(t.name), quoteAll(cols), strings.Join(tuples, ", "))
	if _, err := tx.ExecContext(ctx, q, b.args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, err)
	}

	stored, err := s.selectByKeys(ctx, tx, t, keys)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]types.Row, len(stored))
	for _, r := range stored {
		byKey[fmt.Sprint(r[t.pk])] = r
	}
	out := make([]types.Row, len(keys))
	for i, k := range keys {
		out[i] = byKey[fmt.Sprint(k)]
	}
	return out, nil
}

// insertEach writes rows one at a time so generated keys come back with
// each row.
func (s *Store) insertEach(ctx context.Context, tx *sql.Tx, t *table, rows []types.Row) ([]types.Row, error) {
	names, cols := t.selectList(nil)
	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		ins := t.insertColumns([]types.Row{r})
		b := &binder{d: s.dialect}
		ph, err := t.bindValues(b, ins, r)
		if err != nil {
			return nil, err
		}
		var q string
		if len(ins) == 0 {
			q = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", quote(t.name), cols)
		} else {
			q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
				quote(t.name), quoteAll(ins), strings.Join(ph, ", "), cols)
		}
		got, err := s.scanRows(ctx, tx, t, names, q, b.args)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// Update applies patch to the rows matching key and returns the first
// updated row. An empty patch reads the row unchanged. No match is
// types.ErrNotFound.
func (s *Store) Update(ctx context.Context, name string, key query.KeyMatch, patch types.Row) (types.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		rows, err := s.selectByKeys(ctx, s.db, t, key.Values)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("update %s: %w", t.name, types.ErrNotFound)
		}
		return rows[0], nil
	}

	b := &binder{d: s.dialect}
	sets := make([]string, 0, len(patch))
	for _, col := range slices.Sorted(maps.Keys(patch)) {
		c, ok := t.byName[col]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.name, col)
		}
		v, err := encode(c, patch[col])
		if err != nil {
			return nil, err
		}
		p := b.bind(v)
		if c.json() {
			p = s.dialect.bindJSON(p)
		}
		sets = append(sets, quote(col)+" = "+p)
	}
	where, err := t.keyWhere(b, key)
	if err != nil {
		return nil, err
	}
	names, cols := t.selectList(nil)
	q := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s", quote(t.name), strings.Join(sets, ", "), where, cols)

	rows, err := s.scanRows(ctx, s.db, t, names, q, b.args)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update %s: %w", t.name, types.ErrNotFound)
	}
	return rows[0], nil
}

// Delete removes the rows matching keys. Deleting nothing is
// types.ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string, keys query.KeyMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(name)
	if err != nil {
		return err
	}
	b := &binder{d: s.dialect}
	where, err := t.keyWhere(b, keys)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+quote(t.name)+where, b.args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", t.name, types.ErrNotFound)
	}
	s.logger.Debug("rows deleted", zap.String("table", t.name), zap.Int64("rows", n))
	return nil
}

func (s *Store) selectByKeys(ctx context.Context, q Querier, t *table, keys []any) ([]types.Row, error) {
	b := &binder{d: s.dialect}
	where, err := t.keyWhere(b, query.KeyMatch{Field: t.pk, Values: keys})
	if err != nil {
		return nil, err
	}
	names, cols := t.selectList(nil)
	return s.scanRows(ctx, q, t, names, "SELECT "+cols+" FROM "+quote(t.name)+where, b.args)
}

// scanRows runs q and decodes each result row by column name.
func (s *Store) scanRows(ctx context.Context, q Querier, t *table, names []string, stmt string, args []any) ([]types.Row, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	out := []types.Row{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		r := make(types.Row, len(names))
		for i, n := range names {
			v, err := decode(t.column(n), vals[i])
			if err != nil {
				return nil, err
			}
			r[n] = v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// insertColumns returns, in table order, every column present in any row.
func (t *table) insertColumns(rows []types.Row) []string {
	var cols []string
	for _, c := range t.columns {
		for _, r := range rows {
			if _, ok := r[c.name]; ok {
				cols = append(cols, c.name)
				break
			}
		}
	}
	return cols
}

// bindValues binds one row's values for cols; absent values bind NULL.
func (t *table) bindValues(b *binder, cols []string, r types.Row) ([]string, error) {
	ph := make([]string, len(cols))
	for i, name := range cols {
		c := t.byName[name]
		v, err := encode(c, r[name])
		if err != nil {
			return nil, err
		}
		ph[i] = b.bind(v)
		if c.json() && v != nil {
			ph[i] = b.d.bindJSON(ph[i])
		}
	}
	return ph, nil
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

func missing(v any) bool {
	switch k := v.(type) {
	case nil:
		return true
	case string:
		return k == ""
	}
	return false
}
