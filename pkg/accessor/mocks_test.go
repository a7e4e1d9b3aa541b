package accessor

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// MockTransport is a mock implementation of Transport.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) CallProcedure(ctx context.Context, name string, args any) (any, error) {
	ret := m.Called(ctx, name, args)
	return ret.Get(0), ret.Error(1)
}

func (m *MockTransport) QueryTable(ctx context.Context, table string, d query.Descriptor) ([]types.Row, int, error) {
	ret := m.Called(ctx, table, d)
	if ret.Get(0) == nil {
		return nil, ret.Int(1), ret.Error(2)
	}
	return ret.Get(0).([]types.Row), ret.Int(1), ret.Error(2)
}

func (m *MockTransport) Insert(ctx context.Context, table string, rows []types.Row) ([]types.Row, error) {
	ret := m.Called(ctx, table, rows)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).([]types.Row), ret.Error(1)
}

func (m *MockTransport) Update(ctx context.Context, table string, key query.KeyMatch, patch types.Row) (types.Row, error) {
	ret := m.Called(ctx, table, key, patch)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(types.Row), ret.Error(1)
}

func (m *MockTransport) Delete(ctx context.Context, table string, keys query.KeyMatch) error {
	ret := m.Called(ctx, table, keys)
	return ret.Error(0)
}

// MockCoordinator is a mock implementation of Coordinator.
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) Invalidate(ctx context.Context, key types.CacheKey) {
	m.Called(ctx, key)
}

// invalidated returns the keys passed to Invalidate, in call order.
func (m *MockCoordinator) invalidated() []types.CacheKey {
	var out []types.CacheKey
	for _, c := range m.Calls {
		if c.Method == "Invalidate" {
			out = append(out, c.Arguments.Get(1).(types.CacheKey))
		}
	}
	return out
}
