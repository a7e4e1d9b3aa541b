// Package cache provides cache coordinators and read caches for accessors.
//
// Coordinators receive invalidation notices after writes. Stores hold
// cached table reads keyed by types.CacheKey, and ReadThrough serves
// QueryTable from a Store so that invalidating a scope evicts exactly the
// reads it covers. See docs/ARCHITECTURE.md § Cache Coordination.
package cache
