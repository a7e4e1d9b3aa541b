package accessor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func statuses(outcomes []Outcome) []OutcomeStatus {
	out := make([]OutcomeStatus, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func TestCreateManyValidatesAllBeforeWriting(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	inputs := []any{
		map[string]any{"name": "a", "description": "b"},
		map[string]any{"name": "", "description": 3},
		map[string]any{"name": "c", "description": "d"},
	}

	outcomes, err := a.CreateMany(context.Background(), inputs)
	require.ErrorIs(t, err, types.ErrArgumentValidation)

	var av *types.ArgumentValidationError
	require.ErrorAs(t, err, &av)
	assert.Equal(t, 1, av.Index)
	assert.Equal(t, []string{"description", "name"}, issuePaths(t, err))

	assert.Len(t, outcomes, len(inputs))
	assert.Equal(t, []OutcomeStatus{StatusSkipped, StatusFailed, StatusSkipped}, statuses(outcomes))
	f.transport.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything, mock.Anything)
	f.coordinator.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestCreateManyOneInsert(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	f.transport.On("Insert", mock.Anything, "todos", mock.MatchedBy(func(rows []types.Row) bool {
		return len(rows) == 2
	})).Return([]types.Row{{"id": "1"}, {"id": "2"}}, nil)

	outcomes, err := a.CreateMany(context.Background(), []any{
		map[string]any{"name": "a", "description": "b"},
		map[string]any{"name": "c", "description": "d"},
	})
	require.NoError(t, err)
	assert.Equal(t, []OutcomeStatus{StatusWritten, StatusWritten}, statuses(outcomes))
	assert.Equal(t, "2", outcomes[1].Row["id"])
	assert.Equal(t, 2, Written(outcomes))
	f.transport.AssertNumberOfCalls(t, "Insert", 1)
	assert.Equal(t, []types.CacheKey{{"todos", "list"}}, f.coordinator.invalidated())
}

func TestCreateManyTransportFailure(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	f.transport.On("Insert", mock.Anything, "todos", mock.Anything).Return(nil, errors.New("unique violation"))

	outcomes, err := a.CreateMany(context.Background(), []any{
		map[string]any{"name": "a", "description": "b"},
	})
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Equal(t, []OutcomeStatus{StatusFailed}, statuses(outcomes))
	assert.Empty(t, f.coordinator.invalidated())
}

func TestCreateManyEmpty(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	outcomes, err := a.CreateMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, f.transport.Calls)
	assert.Empty(t, f.coordinator.Calls)
}

func TestUpdateManyIsSequentialAndPartial(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	f.transport.On("Update", mock.Anything, "todos", query.ByKey("id", "1"), types.Row{"done": true}).
		Return(types.Row{"id": "1", "done": true}, nil).Once()

	outcomes, err := a.UpdateMany(context.Background(), []any{
		map[string]any{"id": "1", "done": true},
		map[string]any{"id": "2", "done": "nope"},
		map[string]any{"id": "3", "done": true},
	})
	require.ErrorIs(t, err, types.ErrArgumentValidation)

	var av *types.ArgumentValidationError
	require.ErrorAs(t, err, &av)
	assert.Equal(t, 1, av.Index)

	assert.Equal(t, []OutcomeStatus{StatusWritten, StatusFailed, StatusSkipped}, statuses(outcomes))
	assert.Equal(t, "1", outcomes[0].Row["id"])
	assert.Equal(t, err, outcomes[1].Err)
	f.transport.AssertNumberOfCalls(t, "Update", 1)

	assert.Equal(t,
		[]types.CacheKey{{"todos", "list"}, {"todos", "row", "1"}},
		f.coordinator.invalidated())
}

func TestUpdateManyKeepsInputOrder(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	var order []any
	f.transport.On("Update", mock.Anything, "todos", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			order = append(order, args.Get(2).(query.KeyMatch).Values[0])
		}).
		Return(types.Row{}, nil)

	_, err := a.UpdateMany(context.Background(), []any{
		map[string]any{"id": "c"},
		map[string]any{"id": "a"},
		map[string]any{"id": "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"c", "a", "b"}, order)

	var lists int
	for _, k := range f.coordinator.invalidated() {
		if k.Equal(types.CacheKey{"todos", "list"}) {
			lists++
		}
	}
	assert.Equal(t, 1, lists)
}

func TestUpdateManyTotalFailureDoesNotInvalidate(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	f.transport.On("Update", mock.Anything, "todos", mock.Anything, mock.Anything).
		Return(nil, errors.New("timeout"))

	outcomes, err := a.UpdateMany(context.Background(), []any{
		map[string]any{"id": "1"},
		map[string]any{"id": "2"},
	})
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Equal(t, []OutcomeStatus{StatusFailed, StatusSkipped}, statuses(outcomes))
	assert.Empty(t, f.coordinator.Calls)
}

func TestDeleteManyOneCall(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	f.transport.On("Delete", mock.Anything, "todos", query.ByKeys("id", []any{"1", "2"})).Return(nil)

	outcomes, err := a.DeleteMany(context.Background(), []any{"1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []OutcomeStatus{StatusRequested, StatusRequested}, statuses(outcomes))
	assert.Equal(t, 2, Requested(outcomes))
	assert.Zero(t, Written(outcomes), "a bulk delete does not claim per-key writes")
	f.transport.AssertNumberOfCalls(t, "Delete", 1)
	assert.Equal(t,
		[]types.CacheKey{{"todos", "list"}, {"todos", "row", "1"}, {"todos", "row", "2"}},
		f.coordinator.invalidated())
}

func TestDeleteManyRejectsEmptyKey(t *testing.T) {
	a, f := newFixture(t, todosEndpoint())
	outcomes, err := a.DeleteMany(context.Background(), []any{"1", ""})
	assert.ErrorIs(t, err, types.ErrArgumentValidation)
	assert.Equal(t, []OutcomeStatus{StatusSkipped, StatusFailed}, statuses(outcomes))
	assert.Empty(t, f.transport.Calls)
}
