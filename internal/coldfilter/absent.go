package coldfilter

import (
	lru "github.com/hashicorp/golang-lru"
)

// absentKey identifies a (key, subkey) pair known to be absent on disk.
// subkey == "" (with hasSubkey == false) represents "the whole key is
// absent" for string-typed NOP short-circuits.
type absentKey struct {
	key       string
	subkey    string
	hasSubkey bool
}

// AbsentCache is the bounded LRU negative cache of spec.md §4.3: entries
// recorded when a disk lookup definitively returned nothing. It is a pure
// negative cache — a miss means "must check disk", never "exists".
type AbsentCache struct {
	cache *lru.Cache
}

// NewAbsentCache builds a cache holding at most capacity entries.
func NewAbsentCache(capacity int) *AbsentCache {
	c, err := lru.New(capacity)
	if err != nil {
		// lru.New only errors on capacity <= 0; fall back to a minimal
		// usable cache rather than propagating a constructor error for a
		// pure-cache component.
		c, _ = lru.New(1)
	}
	return &AbsentCache{cache: c}
}

func (a *AbsentCache) RecordAbsent(key string, subkey []byte) {
	a.cache.Add(makeAbsentKey(key, subkey), struct{}{})
}

func (a *AbsentCache) KnownAbsent(key string, subkey []byte) bool {
	_, ok := a.cache.Get(makeAbsentKey(key, subkey))
	return ok
}

// KeyDeleted clears every absent-cache entry associated with key (both the
// whole-key marker and any per-subkey markers we can no longer distinguish
// cheaply, so we simply drop anything under this key by scanning keys()).
func (a *AbsentCache) KeyDeleted(key string) {
	for _, k := range a.cache.Keys() {
		ak := k.(absentKey)
		if ak.key == key {
			a.cache.Remove(k)
		}
	}
}

func makeAbsentKey(key string, subkey []byte) absentKey {
	if subkey == nil {
		return absentKey{key: key}
	}
	return absentKey{key: key, subkey: string(subkey), hasSubkey: true}
}
