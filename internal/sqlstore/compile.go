package sqlstore

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/query"
)

// binder numbers bind parameters across one statement.
type binder struct {
	d    dialect
	args []any
}

func (b *binder) bind(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

var comparisons = map[query.Op]string{
	query.OpEq:   "=",
	query.OpNeq:  "<>",
	query.OpGt:   ">",
	query.OpGte:  ">=",
	query.OpLt:   "<",
	query.OpLte:  "<=",
	query.OpLike: "LIKE",
}

// where renders the constraints as a WHERE clause, in order, joined by AND.
func (t *table) where(b *binder, constraints []query.Constraint) (string, error) {
	if len(constraints) == 0 {
		return "", nil
	}
	conditions := make([]string, 0, len(constraints))
	for _, c := range constraints {
		col := t.column(c.Field)
		ident := quote(c.Field)
		switch c.Op {
		case query.OpIn:
			if len(c.Values) == 0 {
				conditions = append(conditions, "1 = 0")
				continue
			}
			placeholders := make([]string, len(c.Values))
			for i, v := range c.Values {
				ev, err := encode(col, v)
				if err != nil {
					return "", err
				}
				placeholders[i] = b.bind(ev)
			}
			conditions = append(conditions, ident+" IN ("+strings.Join(placeholders, ", ")+")")
		case query.OpRange:
			if c.Values[0] != nil {
				conditions = append(conditions, ident+" >= "+b.bind(c.Values[0]))
			}
			if c.Values[1] != nil {
				conditions = append(conditions, ident+" <= "+b.bind(c.Values[1]))
			}
		default:
			op, ok := comparisons[c.Op]
			if !ok {
				return "", fmt.Errorf("%w: operator %q", query.ErrInvalidPredicate, c.Op)
			}
			v := c.Values[0]
			if v == nil && (c.Op == query.OpEq || c.Op == query.OpNeq) {
				if c.Op == query.OpEq {
					conditions = append(conditions, ident+" IS NULL")
				} else {
					conditions = append(conditions, ident+" IS NOT NULL")
				}
				continue
			}
			ev, err := encode(col, v)
			if err != nil {
				return "", err
			}
			conditions = append(conditions, ident+" "+op+" "+b.bind(ev))
		}
	}
	return " WHERE " + strings.Join(conditions, " AND "), nil
}

// orderBy sorts by the requested field, then by primary key so pages are
// stable.
func (t *table) orderBy(s *query.Sort) string {
	pk := quote(t.pk)
	if s == nil || s.Field == t.pk {
		dir := "ASC"
		if s != nil && s.Direction == query.Desc {
			dir = "DESC"
		}
		return " ORDER BY " + pk + " " + dir
	}
	dir := "ASC"
	if s.Direction == query.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s ASC", quote(s.Field), dir, pk)
}

// limit renders the window as LIMIT/OFFSET.
func limit(w *query.Window) string {
	if w == nil {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", w.Limit(), w.From)
}

// keyWhere renders "pk IN (...)" for a key match.
func (t *table) keyWhere(b *binder, key query.KeyMatch) (string, error) {
	field := key.Field
	if field == "" {
		field = t.pk
	}
	return t.where(b, []query.Constraint{{Field: field, Op: query.OpIn, Values: key.Values}})
}
