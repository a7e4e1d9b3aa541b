package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/accessor"
	"github.com/mesh-intelligence/pantry/pkg/cache"
	"github.com/mesh-intelligence/pantry/pkg/catalog"
	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/schema"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type todo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Done        bool     `json:"done"`
	Priority    int      `json:"priority"`
	Tags        []string `json:"tags"`
}

type stats struct {
	Total int `json:"total"`
	Open  int `json:"open"`
}

func starterRegistry(t *testing.T, coord accessor.Coordinator) (*accessor.Registry, *cache.Memory) {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.Parse(catalog.Starter, nil)
	require.NoError(t, err)

	store := sqlstore.New(nil)
	require.NoError(t, store.Attach(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Register(ctx, cat.Endpoints...))

	mem := cache.NewMemory(64, time.Minute, nil)
	transport := cache.NewReadThrough(store, mem)
	if coord == nil {
		coord = transport
	}
	reg, err := accessor.NewRegistry(cat.Endpoints, transport, schema.New(), accessor.WithCoordinator(coord))
	require.NoError(t, err)
	return reg, mem
}

func TestStarterCatalogRoundTrip(t *testing.T) {
	reg, _ := starterRegistry(t, nil)
	ctx := context.Background()

	a, err := reg.Table("todos")
	require.NoError(t, err)
	todos, err := accessor.NewTable[todo](a)
	require.NoError(t, err)

	created, err := todos.Create(ctx, map[string]any{"name": "write docs", "description": "architecture", "priority": 2})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Tags, "a nullable list reads back empty")

	_, err = todos.Create(ctx, map[string]any{"name": "ship", "description": "release", "priority": 5, "tags": []string{"release"}})
	require.NoError(t, err)

	got, err := todos.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := todos.Update(ctx, map[string]any{"id": created.ID, "done": true})
	require.NoError(t, err)
	assert.True(t, updated.Done)
	assert.Equal(t, "write docs", updated.Name)

	page, err := todos.List(ctx, query.Directives{}.OrderBy("priority", query.Desc).Paginate(1, 1))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "ship", page.Data[0].Name)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	p, err := reg.Procedure("todo_stats")
	require.NoError(t, err)
	statsProc, err := accessor.NewProcedure[map[string]any, stats](p)
	require.NoError(t, err)
	s, err := statsProc.Call(ctx, map[string]any{"min_priority": 3})
	require.NoError(t, err)
	assert.Equal(t, stats{Total: 1, Open: 1}, s)
	s, err = statsProc.Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, stats{Total: 2, Open: 1}, s)

	require.NoError(t, todos.Delete(ctx, created.ID))
	_, err = todos.Get(ctx, created.ID)
	var nf *types.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStarterCatalogValidation(t *testing.T) {
	reg, _ := starterRegistry(t, nil)
	a, err := reg.Table("todos")
	require.NoError(t, err)

	_, err = a.Create(context.Background(), map[string]any{"name": "", "priority": "high"})
	var ve *types.ArgumentValidationError
	require.ErrorAs(t, err, &ve)
	paths := make([]string, len(ve.Issues))
	for i, is := range ve.Issues {
		paths[i] = is.Path
	}
	assert.Equal(t, []string{"description", "name", "priority"}, paths)
}

func TestReadThroughInvalidatedByWrites(t *testing.T) {
	reg, mem := starterRegistry(t, nil)
	ctx := context.Background()
	a, err := reg.Table("todos")
	require.NoError(t, err)

	row, err := a.Create(ctx, map[string]any{"name": "n", "description": "d"})
	require.NoError(t, err)

	_, err = a.List(ctx, query.Directives{})
	require.NoError(t, err)
	_, err = a.Get(ctx, row["id"])
	require.NoError(t, err)
	assert.Equal(t, 2, mem.Len(), "list and row reads are cached")

	_, err = a.Update(ctx, map[string]any{"id": row["id"], "name": "renamed"})
	require.NoError(t, err)
	assert.Equal(t, 0, mem.Len())

	got, err := a.Get(ctx, row["id"])
	require.NoError(t, err)
	assert.Equal(t, "renamed", got["name"])
}

func TestBulkOperations(t *testing.T) {
	reg, _ := starterRegistry(t, cache.NoOp{})
	ctx := context.Background()
	a, err := reg.Table("todos")
	require.NoError(t, err)

	out, err := a.CreateMany(ctx, []any{
		map[string]any{"id": "t1", "name": "one", "description": "first"},
		map[string]any{"id": "t2", "name": "two", "description": "second"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, accessor.Written(out))

	out, err = a.UpdateMany(ctx, []any{
		map[string]any{"id": "t1", "done": true},
		map[string]any{"id": "missing", "done": true},
	})
	require.Error(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, accessor.StatusWritten, out[0].Status)
	assert.Equal(t, accessor.StatusFailed, out[1].Status)

	out, err = a.DeleteMany(ctx, []any{"t1", "t2", "never-existed"})
	require.NoError(t, err)
	assert.Equal(t, 3, accessor.Requested(out))
	assert.Zero(t, accessor.Written(out))

	_, err = a.Get(ctx, "t1")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
