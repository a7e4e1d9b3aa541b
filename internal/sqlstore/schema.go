package sqlstore

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// column is one table column derived from a row shape field.
type column struct {
	name  string
	shape *types.Shape
}

// json reports whether the column stores encoded JSON.
func (c column) json() bool {
	switch c.shape.Type {
	case types.TypeObject, types.TypeArray, types.TypeAny:
		return true
	}
	return false
}

// table is the SQL layout of one table endpoint.
type table struct {
	name    string
	pk      string
	columns []column
	byName  map[string]column
}

func newTable(e types.Endpoint) (*table, error) {
	if e.Returns == nil || e.Returns.Type != types.TypeObject {
		return nil, fmt.Errorf("%w: table %q needs an object row shape", types.ErrInvalidEndpoint, e.Name)
	}
	t := &table{name: e.Name, pk: e.PrimaryKey, byName: make(map[string]column)}
	for i := range e.Returns.Fields {
		f := &e.Returns.Fields[i]
		c := column{name: f.Name, shape: &f.Shape}
		t.columns = append(t.columns, c)
		t.byName[f.Name] = c
	}
	if _, ok := t.byName[t.pk]; !ok {
		return nil, fmt.Errorf("%w: table %q has no column %q", types.ErrInvalidEndpoint, e.Name, t.pk)
	}
	return t, nil
}

// createDDL returns CREATE TABLE IF NOT EXISTS for the table.
func (t *table) createDDL(d dialect) string {
	defs := make([]string, len(t.columns))
	for i, c := range t.columns {
		def := quote(c.name) + " " + d.columnType(c.shape, c.name == t.pk)
		switch {
		case c.name == t.pk:
			def += " PRIMARY KEY"
		case !c.shape.Optional && !c.shape.Nullable.IsNullable():
			def += " NOT NULL"
		}
		defs[i] = def
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", quote(t.name), strings.Join(defs, ",\n    "))
}

// selectList returns the quoted columns to read. An empty selection reads
// every column; unknown names are passed to the database unchanged.
func (t *table) selectList(selection []string) ([]string, string) {
	names := selection
	if len(names) == 0 {
		names = make([]string, len(t.columns))
		for i, c := range t.columns {
			names[i] = c.name
		}
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return names, strings.Join(quoted, ", ")
}

// column returns the named column, or an untyped one for names the shape
// does not declare.
func (t *table) column(name string) column {
	if c, ok := t.byName[name]; ok {
		return c
	}
	return column{name: name, shape: untyped}
}
