package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mesh-intelligence/pantry/pkg/query"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Transport is the backend interface ReadThrough wraps.
type Transport interface {
	CallProcedure(ctx context.Context, name string, args any) (any, error)
	QueryTable(ctx context.Context, table string, d query.Descriptor) ([]types.Row, int, error)
	Insert(ctx context.Context, table string, rows []types.Row) ([]types.Row, error)
	Update(ctx context.Context, table string, key query.KeyMatch, patch types.Row) (types.Row, error)
	Delete(ctx context.Context, table string, keys query.KeyMatch) error
}

// ReadThrough serves table reads from a Store and forwards everything else.
// Single-row reads are cached under the row scope of their key and page
// reads under the list scope, so the invalidations accessors issue after
// writes evict exactly the stale reads.
//
// ReadThrough is also the Coordinator for its store. Each invalidation
// bumps a generation for its table; a read that was in flight across a
// bump is returned but not cached.
type ReadThrough struct {
	Transport
	store Store

	mu   sync.Mutex
	all  uint64
	gens map[string]uint64
}

// NewReadThrough wraps t with store.
func NewReadThrough(t Transport, store Store) *ReadThrough {
	return &ReadThrough{Transport: t, store: store, gens: make(map[string]uint64)}
}

// QueryTable returns a cached read when present, otherwise queries the
// wrapped transport and caches the result.
func (r *ReadThrough) QueryTable(ctx context.Context, table string, d query.Descriptor) ([]types.Row, int, error) {
	key, err := ReadKey(table, d)
	if err != nil {
		return r.Transport.QueryTable(ctx, table, d)
	}
	if e, ok := r.store.Get(ctx, key); ok {
		return e.Rows, e.Total, nil
	}
	gen := r.generation(table)
	rows, total, err := r.Transport.QueryTable(ctx, table, d)
	if err != nil {
		return nil, 0, err
	}
	// Misses are not cached: a later create of the key only invalidates the
	// list scope.
	if key[1] == types.ScopeRow && len(rows) == 0 {
		return rows, total, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.all+r.gens[table] == gen {
		r.store.Set(ctx, key, Entry{Rows: rows, Total: total})
	}
	return rows, total, nil
}

// Invalidate evicts every cached read under prefix. An empty prefix
// evicts everything.
func (r *ReadThrough) Invalidate(ctx context.Context, prefix types.CacheKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(prefix) == 0 {
		r.all++
	} else {
		r.gens[prefix[0]]++
	}
	r.store.Invalidate(ctx, prefix)
}

func (r *ReadThrough) generation(table string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.all + r.gens[table]
}

// ReadKey returns the cache key of a read. Single-row reads (no count, one
// equality constraint) sit under {table, row, key}; everything else sits
// under {table, list}. A digest of the descriptor ends the key.
func ReadKey(table string, d query.Descriptor) (types.CacheKey, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode descriptor: %w", err)
	}
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:8])

	if d.Count == query.CountNone && len(d.Constraints) == 1 {
		c := d.Constraints[0]
		if c.Op == query.OpEq && len(c.Values) == 1 {
			return types.CacheKey{table, types.ScopeRow, fmt.Sprint(c.Values[0]), digest}, nil
		}
	}
	return types.CacheKey{table, types.ScopeList, digest}, nil
}
