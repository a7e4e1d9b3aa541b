package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFilter parses the command-line filter syntax:
//
//	field=value          equality
//	field:op=value       any operator; in takes a comma list,
//	                     range takes low..high with optional bounds
//
// Operands that parse as numbers or booleans are passed as such.
func ParseFilter(s string) (Filter, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok || lhs == "" {
		return Filter{}, fmt.Errorf("%w: %q is not field=value", ErrInvalidPredicate, s)
	}
	field, op, hasOp := strings.Cut(lhs, ":")
	if !hasOp {
		op = string(OpEq)
	}
	p := Predicate{Op: Op(op)}
	switch p.Op {
	case OpIn:
		for _, part := range strings.Split(rhs, ",") {
			p.Values = append(p.Values, parseScalar(part))
		}
	case OpRange:
		low, high, ok := strings.Cut(rhs, "..")
		if !ok {
			return Filter{}, fmt.Errorf("%w: range %q is not low..high", ErrInvalidPredicate, rhs)
		}
		if low != "" {
			p.Low = parseScalar(low)
		}
		if high != "" {
			p.High = parseScalar(high)
		}
	case OpLike:
		p.Value = rhs
	default:
		p.Value = parseScalar(rhs)
	}
	f := Filter{Field: field, Predicate: p}
	if _, err := constraintFor(f); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// ParseSort parses "field" or "-field" (descending).
func ParseSort(s string) (*Sort, error) {
	if s == "" {
		return nil, nil
	}
	if name, ok := strings.CutPrefix(s, "-"); ok {
		if name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSort, s)
		}
		return &Sort{Field: name, Direction: Desc}, nil
	}
	return &Sort{Field: s, Direction: Asc}, nil
}

func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
