// Package types defines endpoint descriptors, declarative shapes, validation
// results, cache keys and the error taxonomy shared by every pantry
// accessor.
// See docs/ARCHITECTURE.md § Data Model.
package types
