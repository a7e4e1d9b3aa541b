package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Entry is one cached table read.
type Entry struct {
	Rows  []types.Row `json:"rows"`
	Total int         `json:"total"`
}

// Store holds cached reads. Invalidate removes every entry whose key has
// the given prefix.
type Store interface {
	Coordinator
	Get(ctx context.Context, key types.CacheKey) (Entry, bool)
	Set(ctx context.Context, key types.CacheKey, e Entry)
}

type memoryEntry struct {
	key   types.CacheKey
	entry Entry
}

// Memory is an in-process Store backed by a size-bounded LRU with expiry.
// Rows are deep-copied on Set and on Get, so no caller shares maps with the
// cache or with another caller.
type Memory struct {
	lru    *expirable.LRU[string, memoryEntry]
	logger *zap.Logger
}

// NewMemory returns a Memory store holding at most size entries for ttl.
// A zero ttl disables expiry.
func NewMemory(size int, ttl time.Duration, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1024
	}
	return &Memory{
		lru:    expirable.NewLRU[string, memoryEntry](size, nil, ttl),
		logger: logger,
	}
}

// Get returns the cached entry for key.
func (m *Memory) Get(_ context.Context, key types.CacheKey) (Entry, bool) {
	e, ok := m.lru.Get(key.String())
	if !ok {
		return Entry{}, false
	}
	return Entry{Rows: types.CloneRows(e.entry.Rows), Total: e.entry.Total}, true
}

// Set caches e under key.
func (m *Memory) Set(_ context.Context, key types.CacheKey, e Entry) {
	e.Rows = types.CloneRows(e.Rows)
	m.lru.Add(key.String(), memoryEntry{key: key, entry: e})
}

// Invalidate evicts every entry whose key has prefix.
func (m *Memory) Invalidate(_ context.Context, prefix types.CacheKey) {
	evicted := 0
	for _, k := range m.lru.Keys() {
		e, ok := m.lru.Peek(k)
		if ok && e.key.HasPrefix(prefix) {
			m.lru.Remove(k)
			evicted++
		}
	}
	m.logger.Debug("cache invalidated", zap.Stringer("scope", prefix), zap.Int("evicted", evicted))
}

// Len returns the number of cached entries.
func (m *Memory) Len() int { return m.lru.Len() }
