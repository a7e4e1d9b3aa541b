package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// countingTransport answers every query with the same rows and counts
// round trips.
type countingTransport struct {
	Transport
	queries int
	rows    []types.Row
}

func (c *countingTransport) QueryTable(context.Context, string, query.Descriptor) ([]types.Row, int, error) {
	c.queries++
	return c.rows, len(c.rows), nil
}

func TestReadThroughCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	backend := &countingTransport{rows: []types.Row{{"id": "1"}}}
	store := NewMemory(16, 0, nil)
	rt := NewReadThrough(backend, store)

	list, err := query.Build("todos", query.Directives{})
	require.NoError(t, err)
	one := query.BuildOne("todos", "id", "1")

	for i := 0; i < 3; i++ {
		_, _, err := rt.QueryTable(ctx, "todos", list)
		require.NoError(t, err)
		_, _, err = rt.QueryTable(ctx, "todos", one)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.queries)

	store.Invalidate(ctx, types.CacheKey{"todos", "list"})
	_, _, _ = rt.QueryTable(ctx, "todos", list)
	_, _, _ = rt.QueryTable(ctx, "todos", one)
	assert.Equal(t, 3, backend.queries, "row read survives a list invalidation")

	store.Invalidate(ctx, types.CacheKey{"todos", "row", "1"})
	_, _, _ = rt.QueryTable(ctx, "todos", one)
	assert.Equal(t, 4, backend.queries)
}

// gatedTransport blocks each query until release is closed and reports
// when a query has started.
type gatedTransport struct {
	Transport
	started chan struct{}
	release chan struct{}
	rows    []types.Row
}

func (g *gatedTransport) QueryTable(context.Context, string, query.Descriptor) ([]types.Row, int, error) {
	g.started <- struct{}{}
	<-g.release
	return g.rows, len(g.rows), nil
}

func TestReadThroughDropsReadsRacingInvalidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, 0, nil)
	backend := &gatedTransport{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		rows:    []types.Row{{"id": "1", "name": "old"}},
	}
	rt := NewReadThrough(backend, store)
	list, err := query.Build("todos", query.Directives{})
	require.NoError(t, err)

	done := make(chan []types.Row)
	go func() {
		rows, _, _ := rt.QueryTable(ctx, "todos", list)
		done <- rows
	}()
	<-backend.started
	rt.Invalidate(ctx, types.CacheKey{"todos", "list"})
	close(backend.release)

	rows := <-done
	assert.Equal(t, "old", rows[0]["name"], "the racing read still answers its caller")
	assert.Equal(t, 0, store.Len(), "but its rows are not cached")

	go func() {
		rows, _, _ := rt.QueryTable(ctx, "todos", list)
		done <- rows
	}()
	<-backend.started
	<-done
	assert.Equal(t, 1, store.Len(), "a quiet read is cached")
}

func TestReadThroughInvalidatesEverything(t *testing.T) {
	ctx := context.Background()
	backend := &countingTransport{rows: []types.Row{{"id": "1"}}}
	store := NewMemory(16, 0, nil)
	rt := NewReadThrough(backend, store)

	list, err := query.Build("todos", query.Directives{})
	require.NoError(t, err)
	_, _, _ = rt.QueryTable(ctx, "todos", list)
	_, _, _ = rt.QueryTable(ctx, "notes", list)
	require.Equal(t, 2, store.Len())

	rt.Invalidate(ctx, nil)
	assert.Equal(t, 0, store.Len())
}

func TestReadThroughCallerCannotMutateCache(t *testing.T) {
	ctx := context.Background()
	backend := &countingTransport{rows: []types.Row{{"id": "1", "name": "milk"}}}
	rt := NewReadThrough(backend, NewMemory(16, 0, nil))
	one := query.BuildOne("todos", "id", "1")

	rows, _, err := rt.QueryTable(ctx, "todos", one)
	require.NoError(t, err)
	rows[0]["name"] = "edited by caller"

	cached, _, err := rt.QueryTable(ctx, "todos", one)
	require.NoError(t, err)
	cached[0]["name"] = "edited again"

	again, _, err := rt.QueryTable(ctx, "todos", one)
	require.NoError(t, err)
	assert.Equal(t, "milk", again[0]["name"])
	assert.Equal(t, 1, backend.queries)
}

func TestReadThroughDoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backend := &countingTransport{}
	rt := NewReadThrough(backend, NewMemory(16, 0, nil))

	one := query.BuildOne("todos", "id", "9")
	_, _, _ = rt.QueryTable(ctx, "todos", one)
	_, _, _ = rt.QueryTable(ctx, "todos", one)
	assert.Equal(t, 2, backend.queries)
}

func TestReadKey(t *testing.T) {
	list, err := query.Build("todos", query.Directives{}.Where("id", query.Eq("1")))
	require.NoError(t, err)
	k, err := ReadKey("todos", list)
	require.NoError(t, err)
	assert.True(t, k.HasPrefix(types.CacheKey{"todos", "list"}))

	k, err = ReadKey("todos", query.BuildOne("todos", "id", 42))
	require.NoError(t, err)
	assert.True(t, k.HasPrefix(types.CacheKey{"todos", "row", "42"}))

	other, err := query.Build("todos", query.Directives{}.Paginate(2, 10))
	require.NoError(t, err)
	k2, err := ReadKey("todos", other)
	require.NoError(t, err)
	k1, _ := ReadKey("todos", list)
	assert.False(t, k1.Equal(k2))
}
