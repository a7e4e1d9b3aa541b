package query

// Op is a filter predicate operator.
type Op string

// Predicate operators.
const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpIn    Op = "in"
	OpRange Op = "range"
	OpLike  Op = "like"
)

var knownOps = map[Op]bool{
	OpEq: true, OpNeq: true, OpGt: true, OpGte: true, OpLt: true,
	OpLte: true, OpIn: true, OpRange: true, OpLike: true,
}

// Predicate constrains one field. Comparison operators use Value; OpIn uses
// Values; OpRange uses Low and High, either of which may be nil for an open
// bound.
type Predicate struct {
	Op     Op
	Value  any
	Values []any
	Low    any
	High   any
}

// Eq matches values equal to v.
func Eq(v any) Predicate { return Predicate{Op: OpEq, Value: v} }

// Neq matches values not equal to v.
func Neq(v any) Predicate { return Predicate{Op: OpNeq, Value: v} }

// Gt matches values greater than v.
func Gt(v any) Predicate { return Predicate{Op: OpGt, Value: v} }

// Gte matches values greater than or equal to v.
func Gte(v any) Predicate { return Predicate{Op: OpGte, Value: v} }

// Lt matches values less than v.
func Lt(v any) Predicate { return Predicate{Op: OpLt, Value: v} }

// Lte matches values less than or equal to v.
func Lte(v any) Predicate { return Predicate{Op: OpLte, Value: v} }

// In matches any of the given values.
func In(vs ...any) Predicate { return Predicate{Op: OpIn, Values: vs} }

// Between matches low <= value <= high.
func Between(low, high any) Predicate { return Predicate{Op: OpRange, Low: low, High: high} }

// Like matches a SQL LIKE pattern.
func Like(pattern string) Predicate { return Predicate{Op: OpLike, Value: pattern} }

// Filter pairs a field with its predicate.
type Filter struct {
	Field     string
	Predicate Predicate
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort orders results by one field.
type Sort struct {
	Field     string
	Direction Direction
}

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

// Pagination defaults applied when a paginated read omits them.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Directives is the full description of one read. Filters keep insertion
// order; the zero value reads the first default page with no constraints.
type Directives struct {
	Filters []Filter
	Sort    *Sort
	Page    *Page
	Select  []string
}

// Where returns a copy of d with one more filter appended.
func (d Directives) Where(field string, p Predicate) Directives {
	filters := make([]Filter, len(d.Filters), len(d.Filters)+1)
	copy(filters, d.Filters)
	d.Filters = append(filters, Filter{Field: field, Predicate: p})
	return d
}

// OrderBy returns a copy of d sorted by field.
func (d Directives) OrderBy(field string, dir Direction) Directives {
	d.Sort = &Sort{Field: field, Direction: dir}
	return d
}

// Paginate returns a copy of d requesting the given page.
func (d Directives) Paginate(page, pageSize int) Directives {
	d.Page = &Page{Page: page, PageSize: pageSize}
	return d
}

// Fields returns a copy of d restricted to the named fields.
func (d Directives) Fields(names ...string) Directives {
	d.Select = append([]string(nil), names...)
	return d
}

// KeyMatch scopes a write to the rows whose key field holds one of Values.
type KeyMatch struct {
	Field  string
	Values []any
}

// ByKey matches a single row.
func ByKey(field string, key any) KeyMatch {
	return KeyMatch{Field: field, Values: []any{key}}
}

// ByKeys matches every row whose key is one of keys.
func ByKeys(field string, keys []any) KeyMatch {
	return KeyMatch{Field: field, Values: append([]any(nil), keys...)}
}

// Single reports whether the match names exactly one key.
func (k KeyMatch) Single() bool { return len(k.Values) == 1 }
