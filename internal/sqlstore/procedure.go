package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handler implements a procedure in Go against the attached database.
type Handler func(ctx context.Context, db Querier, args any) (any, error)

// sqlProcedure is a procedure declared with a SQL body.
type sqlProcedure struct {
	sql     string
	returns *types.Shape
}

// Handle registers a Go handler for the named procedure. Handlers take
// precedence over SQL bodies.
func (s *Store) Handle(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[name] = h
}

// CallProcedure runs the named procedure. Lookup order is Go handlers,
// then SQL bodies, then (PostgreSQL only) a server function of the same
// name taking one jsonb argument.
func (s *Store) CallProcedure(ctx context.Context, name string, args any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, ErrNotAttached
	}
	if h, ok := s.procs[name]; ok {
		return h(ctx, s.db, args)
	}
	if p, ok := s.sqlProcs[name]; ok {
		return s.callSQL(ctx, name, p, args)
	}
	if s.config.Backend == types.BackendPostgres {
		return s.callFunction(ctx, name, args)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProcedure, name)
}

func (s *Store) callSQL(ctx context.Context, name string, p sqlProcedure, args any) (any, error) {
	named, err := argMap(args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	b := &binder{d: s.dialect}
	stmt := bindNamed(p.sql, func(param string) string { return b.bind(named[param]) })
	s.logger.Debug("call", zap.String("procedure", name), zap.String("sql", stmt))

	rows, err := s.db.QueryContext(ctx, stmt, b.args...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	cols := resultColumns(p.returns, names)

	var out []any
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("call %s: %w", name, err)
		}
		r := make(map[string]any, len(names))
		for i, c := range cols {
			v, err := decode(c, vals[i])
			if err != nil {
				return nil, err
			}
			r[c.name] = v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return shapeResult(p.returns, names, out), nil
}

// callFunction invokes a PostgreSQL function and decodes its jsonb result.
func (s *Store) callFunction(ctx context.Context, name string, args any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	var raw []byte
	q := fmt.Sprintf("SELECT to_jsonb(%s($1::text::jsonb))", quote(name))
	if err := s.db.QueryRowContext(ctx, q, string(data)).Scan(&raw); err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return out, nil
}

// argMap returns the procedure arguments as a name to value map.
func argMap(args any) (map[string]any, error) {
	switch a := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return a, nil
	case types.Row:
		return a, nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("arguments must be an object: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

// bindNamed replaces each :name parameter in stmt with bind(name). Casts
// (::type) and quoted text are left alone.
func bindNamed(stmt string, bind func(string) string) string {
	var out strings.Builder
	var quoteCh byte
	for i := 0; i < len(stmt); i++ {
		ch := stmt[i]
		switch {
		case quoteCh != 0:
			if ch == quoteCh {
				quoteCh = 0
			}
			out.WriteByte(ch)
		case ch == '\'' || ch == '"':
			quoteCh = ch
			out.WriteByte(ch)
		case ch == ':' && i+1 < len(stmt) && stmt[i+1] == ':':
			out.WriteString("::")
			i++
		case ch == ':' && i+1 < len(stmt) && isIdentStart(stmt[i+1]):
			j := i + 1
			for j < len(stmt) && isIdentPart(stmt[j]) {
				j++
			}
			out.WriteString(bind(stmt[i+1 : j]))
			i = j - 1
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }

// resultColumns types the result columns from the declared result shape.
func resultColumns(returns *types.Shape, names []string) []column {
	row := returns
	if row != nil && row.Type == types.TypeArray {
		row = row.Items
	}
	cols := make([]column, len(names))
	for i, n := range names {
		cols[i] = column{name: n, shape: untyped}
		if row == nil {
			continue
		}
		if row.Type == types.TypeObject {
			if f, ok := row.Field(n); ok {
				cols[i].shape = &f.Shape
			}
		} else if i == 0 {
			cols[i].shape = row
		}
	}
	return cols
}

// shapeResult turns result rows into the declared result form: every row
// for arrays, the first row for objects, the first column otherwise.
func shapeResult(returns *types.Shape, names []string, rows []any) any {
	if returns != nil && returns.Type == types.TypeArray {
		if rows == nil {
			return []any{}
		}
		if returns.Items != nil && returns.Items.Type != types.TypeObject && returns.Items.Type != types.TypeAny {
			flat := make([]any, len(rows))
			for i, r := range rows {
				flat[i] = r.(map[string]any)[names[0]]
			}
			return flat
		}
		return rows
	}
	if len(rows) == 0 {
		return nil
	}
	first := rows[0].(map[string]any)
	if returns != nil && returns.Type != types.TypeObject && returns.Type != types.TypeAny && len(names) > 0 {
		return first[names[0]]
	}
	return first
}
