package accessor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/schema"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type todo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Done        bool   `json:"done,omitempty"`
}

func TestTypedTable(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	tbl, err := NewTable[todo](a)
	require.NoError(t, err)

	f.transport.On("QueryTable", mock.Anything, "todos", mock.Anything).
		Return([]types.Row{{"id": "1", "name": "Buy milk", "description": "2%", "done": true}}, 1, nil)
	f.transport.On("Insert", mock.Anything, "todos", mock.Anything).
		Return([]types.Row{{"id": "2", "name": "Walk", "description": "dog"}}, nil)

	got, err := tbl.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, todo{ID: "1", Name: "Buy milk", Description: "2%", Done: true}, got)

	page, err := tbl.List(context.Background(), query.Directives{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	created, err := tbl.Create(context.Background(), todo{Name: "Walk", Description: "dog"})
	require.NoError(t, err)
	assert.Equal(t, "2", created.ID)

	_, err = NewProcedure[map[string]any, map[string]any](a)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestTypedProcedure(t *testing.T) {
	type greetArgs struct {
		Name string `json:"name"`
	}
	type greeting struct {
		Greeting string `json:"greeting"`
	}
	a, f := newFixture(t, greetEndpoint())
	f.transport.On("CallProcedure", mock.Anything, "greet", map[string]any{"name": "Ada"}).
		Return(map[string]any{"greeting": "hello Ada"}, nil)

	p, err := NewProcedure[greetArgs, greeting](a)
	require.NoError(t, err)
	got, err := p.Call(context.Background(), greetArgs{Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, greeting{Greeting: "hello Ada"}, got)
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry([]types.Endpoint{todosEndpoint(), greetEndpoint()}, &MockTransport{}, schema.New())
	require.NoError(t, err)

	tbl, err := r.Table("todos")
	require.NoError(t, err)
	assert.Equal(t, "id", tbl.Endpoint().PrimaryKey)
	assert.NotNil(t, tbl.Endpoint().Update, "registry completes table descriptors")

	_, err = r.Procedure("greet")
	require.NoError(t, err)

	_, err = r.Table("greet")
	assert.ErrorIs(t, err, ErrEndpointNotFound)
	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, ErrEndpointNotFound)

	names := []string{}
	for _, e := range r.Endpoints() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"todos", "greet"}, names)

	_, err = NewRegistry([]types.Endpoint{todosEndpoint(), todosEndpoint()}, &MockTransport{}, schema.New())
	assert.ErrorIs(t, err, types.ErrInvalidEndpoint)
}
