package query

import (
	"errors"
	"fmt"
	"math"
)

// Builder errors.
var (
	ErrInvalidPage      = errors.New("invalid page")
	ErrInvalidPredicate = errors.New("invalid predicate")
	ErrInvalidSort      = errors.New("invalid sort")
)

// CountMode tells the transport whether to compute a total row count.
type CountMode string

// Count modes.
const (
	CountNone  CountMode = ""
	CountExact CountMode = "exact"
)

// Constraint is one filter attached to a descriptor. Values holds the
// operand: one value for comparisons, any number for OpIn, and the low and
// high bounds for OpRange (either may be nil).
type Constraint struct {
	Field  string
	Op     Op
	Values []any
}

// Window is a zero-based inclusive row range.
type Window struct {
	From int
	To   int
}

// Limit is the number of rows the window spans.
func (w Window) Limit() int { return w.To - w.From + 1 }

// Descriptor is the transport-executable form of a read. Transports must
// compute Total (when Count is CountExact) and the windowed rows from the
// same snapshot.
type Descriptor struct {
	Table       string
	Constraints []Constraint
	Sort        *Sort
	Window      *Window
	Select      []string
	Count       CountMode
	// Page echoes the requested page so responses can report it.
	Page Page
}

// WindowFor converts a 1-based page into a zero-based window.
// Values below 1 are rejected, never clamped, as are pages whose window
// would not fit in an int.
func WindowFor(page, pageSize int) (Window, error) {
	if page < 1 || pageSize < 1 {
		return Window{}, fmt.Errorf("%w: page %d, page size %d: both must be at least 1", ErrInvalidPage, page, pageSize)
	}
	if page-1 > (math.MaxInt-pageSize)/pageSize {
		return Window{}, fmt.Errorf("%w: page %d of size %d is out of range", ErrInvalidPage, page, pageSize)
	}
	from := (page - 1) * pageSize
	return Window{From: from, To: from + pageSize - 1}, nil
}

// ApplyFilters attaches each filter to d in insertion order. Field names are
// not checked against any shape; the backend is authoritative.
func ApplyFilters(d Descriptor, filters []Filter) (Descriptor, error) {
	out := make([]Constraint, len(d.Constraints), len(d.Constraints)+len(filters))
	copy(out, d.Constraints)
	for _, f := range filters {
		c, err := constraintFor(f)
		if err != nil {
			return Descriptor{}, err
		}
		out = append(out, c)
	}
	d.Constraints = out
	return d, nil
}

func constraintFor(f Filter) (Constraint, error) {
	p := f.Predicate
	if f.Field == "" {
		return Constraint{}, fmt.Errorf("%w: empty field", ErrInvalidPredicate)
	}
	if !knownOps[p.Op] {
		return Constraint{}, fmt.Errorf("%w: %s: unknown operator %q", ErrInvalidPredicate, f.Field, p.Op)
	}
	c := Constraint{Field: f.Field, Op: p.Op}
	switch p.Op {
	case OpIn:
		c.Values = append([]any(nil), p.Values...)
	case OpRange:
		if p.Low == nil && p.High == nil {
			return Constraint{}, fmt.Errorf("%w: %s: range needs a bound", ErrInvalidPredicate, f.Field)
		}
		c.Values = []any{p.Low, p.High}
	default:
		c.Values = []any{p.Value}
	}
	return c, nil
}

// Build turns directives into a paginated read-many descriptor. Omitted
// pagination defaults to DefaultPage and DefaultPageSize; an exact count is
// always requested.
func Build(table string, d Directives) (Descriptor, error) {
	page := Page{Page: DefaultPage, PageSize: DefaultPageSize}
	if d.Page != nil {
		page = *d.Page
	}
	w, err := WindowFor(page.Page, page.PageSize)
	if err != nil {
		return Descriptor{}, err
	}
	desc := Descriptor{
		Table:  table,
		Window: &w,
		Count:  CountExact,
		Page:   page,
	}
	if d.Sort != nil {
		if d.Sort.Field == "" {
			return Descriptor{}, fmt.Errorf("%w: empty field", ErrInvalidSort)
		}
		s := *d.Sort
		switch s.Direction {
		case "":
			s.Direction = Asc
		case Asc, Desc:
		default:
			return Descriptor{}, fmt.Errorf("%w: direction %q", ErrInvalidSort, s.Direction)
		}
		desc.Sort = &s
	}
	if len(d.Select) > 0 {
		desc.Select = append([]string(nil), d.Select...)
	}
	return ApplyFilters(desc, d.Filters)
}

// BuildOne describes a read of the single row whose key field equals key.
// The window is [0,0] and no count is requested.
func BuildOne(table, keyField string, key any) Descriptor {
	return Descriptor{
		Table:       table,
		Constraints: []Constraint{{Field: keyField, Op: OpEq, Values: []any{key}}},
		Window:      &Window{From: 0, To: 0},
		Page:        Page{Page: 1, PageSize: 1},
	}
}
