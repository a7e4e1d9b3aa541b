package cache

import (
	"context"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Coordinator receives invalidation notices.
type Coordinator interface {
	Invalidate(ctx context.Context, key types.CacheKey)
}

// NoOp ignores every notice.
type NoOp struct{}

// Invalidate does nothing.
func (NoOp) Invalidate(context.Context, types.CacheKey) {}

// Func adapts a function to a Coordinator.
type Func func(ctx context.Context, key types.CacheKey)

// Invalidate calls f.
func (f Func) Invalidate(ctx context.Context, key types.CacheKey) { f(ctx, key) }

// Multi forwards each notice to every coordinator in order.
type Multi []Coordinator

// Invalidate forwards key to every member.
func (m Multi) Invalidate(ctx context.Context, key types.CacheKey) {
	for _, c := range m {
		c.Invalidate(ctx, key)
	}
}
