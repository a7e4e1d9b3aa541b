package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// DefaultRedisPrefix namespaces every key the Redis store writes.
const DefaultRedisPrefix = "pantry"

// Redis is a Store shared by every process using the same server. Keys are
// the escaped cache key tokens joined by ":" under a prefix, so a scope
// invalidation is a SCAN on "<scope>:*" plus the scope key itself.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis returns a Redis store. A zero ttl keeps entries until
// invalidated.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// RedisKey renders a cache key as a Redis key.
func RedisKey(prefix string, key types.CacheKey) string {
	parts := make([]string, 0, len(key)+1)
	parts = append(parts, prefix)
	for _, tok := range key {
		parts = append(parts, url.QueryEscape(tok))
	}
	return strings.Join(parts, ":")
}

// Get returns the cached entry for key. Errors read as a miss.
func (r *Redis) Get(ctx context.Context, key types.CacheKey) (Entry, bool) {
	data, err := r.client.Get(ctx, RedisKey(r.prefix, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed", zap.Error(err))
		}
		return Entry{}, false
	}
	e, err := decodeEntry(data)
	if err != nil {
		r.logger.Warn("discarding malformed cache entry", zap.Stringer("key", key), zap.Error(err))
		return Entry{}, false
	}
	return e, true
}

// Set caches e under key. Errors are logged.
func (r *Redis) Set(ctx context.Context, key types.CacheKey, e Entry) {
	data, err := encodeEntry(e)
	if err != nil {
		r.logger.Error("encode cache entry", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, RedisKey(r.prefix, key), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.Error(err))
	}
}

// Invalidate deletes the scope key and every key under it.
func (r *Redis) Invalidate(ctx context.Context, prefix types.CacheKey) {
	base := RedisKey(r.prefix, prefix)
	keys := []string{base}
	iter := r.client.Scan(ctx, 0, base+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn("redis scan failed", zap.String("pattern", base+":*"), zap.Error(err))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("redis delete failed", zap.Error(err))
	}
}

// encodeEntry writes floats with a fraction or exponent so decodeEntry can
// tell them from integers: 2.0 stays a float64 and 2 an int64.
func encodeEntry(e Entry) ([]byte, error) {
	rows := make([]types.Row, len(e.Rows))
	for i, row := range e.Rows {
		out := make(types.Row, len(row))
		for k, v := range row {
			out[k] = tagFloats(v)
		}
		rows[i] = out
	}
	return json.Marshal(Entry{Rows: rows, Total: e.Total})
}

func tagFloats(v any) any {
	switch x := v.(type) {
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEN") {
			s += ".0"
		}
		return json.Number(s)
	case float32:
		return tagFloats(float64(x))
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = tagFloats(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k := range x {
			out[k] = tagFloats(x[k])
		}
		return out
	}
	return v
}

// decodeEntry restores numbers written by encodeEntry to the Go types the
// transport returned: int64 for integer literals, float64 otherwise.
func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&e); err != nil {
		return Entry{}, err
	}
	for _, row := range e.Rows {
		for k, v := range row {
			row[k] = restoreNumbers(v)
		}
	}
	return e, nil
}

func restoreNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if !strings.ContainsAny(string(x), ".eE") {
			if i, err := x.Int64(); err == nil {
				return i
			}
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = restoreNumbers(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = restoreNumbers(x[k])
		}
	}
	return v
}
