package query

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowFor(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     Window
		wantErr  bool
	}{
		{name: "first page", page: 1, pageSize: 10, want: Window{From: 0, To: 9}},
		{name: "third page", page: 3, pageSize: 25, want: Window{From: 50, To: 74}},
		{name: "single row pages", page: 4, pageSize: 1, want: Window{From: 3, To: 3}},
		{name: "page zero", page: 0, pageSize: 10, wantErr: true},
		{name: "negative page", page: -1, pageSize: 10, wantErr: true},
		{name: "size zero", page: 1, pageSize: 0, wantErr: true},
		{name: "offset overflows", page: math.MaxInt/10 + 2, pageSize: 10, wantErr: true},
		{name: "huge page size", page: 2, pageSize: math.MaxInt, wantErr: true},
		{name: "last window that fits", page: 1, pageSize: math.MaxInt, want: Window{From: 0, To: math.MaxInt - 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WindowFor(tt.page, tt.pageSize)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pageSize, got.Limit())
		})
	}
}

func TestBuildDefaults(t *testing.T) {
	d, err := Build("todos", Directives{})
	require.NoError(t, err)
	assert.Equal(t, CountExact, d.Count)
	assert.Equal(t, &Window{From: 0, To: 9}, d.Window)
	assert.Equal(t, Page{Page: DefaultPage, PageSize: DefaultPageSize}, d.Page)
	assert.Empty(t, d.Constraints)
	assert.Nil(t, d.Sort)
}

func TestBuildKeepsFilterOrderAndUnknownFields(t *testing.T) {
	dir := Directives{}.
		Where("status", Eq("open")).
		Where("no_such_column", Gt(3)).
		Where("priority", In(1, 2)).
		Where("due", Between("2024-01-01", nil)).
		OrderBy("due", Desc).
		Paginate(2, 5).
		Fields("id", "name")

	d, err := Build("todos", dir)
	require.NoError(t, err)

	want := Descriptor{
		Table: "todos",
		Constraints: []Constraint{
			{Field: "status", Op: OpEq, Values: []any{"open"}},
			{Field: "no_such_column", Op: OpGt, Values: []any{3}},
			{Field: "priority", Op: OpIn, Values: []any{1, 2}},
			{Field: "due", Op: OpRange, Values: []any{"2024-01-01", nil}},
		},
		Sort:   &Sort{Field: "due", Direction: Desc},
		Window: &Window{From: 5, To: 9},
		Select: []string{"id", "name"},
		Count:  CountExact,
		Page:   Page{Page: 2, PageSize: 5},
	}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("descriptor mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name    string
		dir     Directives
		wantErr error
	}{
		{"page below one", Directives{}.Paginate(0, 10), ErrInvalidPage},
		{"size below one", Directives{}.Paginate(1, 0), ErrInvalidPage},
		{"unknown operator", Directives{}.Where("a", Predicate{Op: "regex"}), ErrInvalidPredicate},
		{"unbounded range", Directives{}.Where("a", Between(nil, nil)), ErrInvalidPredicate},
		{"bad direction", Directives{Sort: &Sort{Field: "a", Direction: "up"}}, ErrInvalidSort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("todos", tt.dir)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWhereDoesNotAlias(t *testing.T) {
	base := Directives{Filters: make([]Filter, 0, 4)}.Where("a", Eq(1))
	x := base.Where("b", Eq(2))
	y := base.Where("c", Eq(3))
	assert.Equal(t, "b", x.Filters[1].Field)
	assert.Equal(t, "c", y.Filters[1].Field)
	assert.Len(t, base.Filters, 1)
}

func TestBuildOne(t *testing.T) {
	d := BuildOne("todos", "id", "42")
	assert.Equal(t, &Window{From: 0, To: 0}, d.Window)
	assert.Equal(t, CountNone, d.Count)
	assert.Equal(t, []Constraint{{Field: "id", Op: OpEq, Values: []any{"42"}}}, d.Constraints)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{in: "name=Buy milk", want: Filter{Field: "name", Predicate: Eq("Buy milk")}},
		{in: "priority:gte=2", want: Filter{Field: "priority", Predicate: Gte(int64(2))}},
		{in: "done=true", want: Filter{Field: "done", Predicate: Eq(true)}},
		{in: "id:in=1,abc", want: Filter{Field: "id", Predicate: In(int64(1), "abc")}},
		{in: "score:range=0.5..", want: Filter{Field: "score", Predicate: Between(0.5, nil)}},
		{in: "name:like=Buy%", want: Filter{Field: "name", Predicate: Like("Buy%")}},
		{in: "noequals", wantErr: true},
		{in: "a:regex=x", wantErr: true},
		{in: "a:range=5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPredicate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("-due")
	require.NoError(t, err)
	assert.Equal(t, &Sort{Field: "due", Direction: Desc}, s)

	s, err = ParseSort("name")
	require.NoError(t, err)
	assert.Equal(t, &Sort{Field: "name", Direction: Asc}, s)

	s, err = ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = ParseSort("-")
	assert.ErrorIs(t, err, ErrInvalidSort)
}
