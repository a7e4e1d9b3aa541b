package types

import "strings"

// CacheKey is an ordered sequence of tokens naming a cached read or an
// invalidation scope. Invalidating a key invalidates every cached read whose
// key it prefixes.
type CacheKey []string

// Scope qualifiers used by table endpoints.
const (
	ScopeList = "list"
	ScopeRow  = "row"
)

// HasPrefix reports whether prefix is a token-wise prefix of k.
// The empty key prefixes every key.
func (k CacheKey) HasPrefix(prefix CacheKey) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, tok := range prefix {
		if k[i] != tok {
			return false
		}
	}
	return true
}

// Append returns a new key with extra tokens; k is not modified.
func (k CacheKey) Append(tokens ...string) CacheKey {
	out := make(CacheKey, 0, len(k)+len(tokens))
	out = append(out, k...)
	return append(out, tokens...)
}

// Equal reports whether both keys hold the same tokens.
func (k CacheKey) Equal(other CacheKey) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// String joins the tokens with "/".
func (k CacheKey) String() string {
	return strings.Join(k, "/")
}
