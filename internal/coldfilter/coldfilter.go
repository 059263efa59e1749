package coldfilter

// Filter is the per-database (cuckoo_filter, absent_cache) pair of
// spec.md §4.3.
type Filter struct {
	cuckoo    *CuckooFilter
	absent    *AbsentCache
	saturated bool // cuckoo's kick chain has exhausted itself at least once
}

// Config controls capacity/false-positive tradeoffs for one Filter.
type Config struct {
	// ExpectedKeys sizes the cuckoo filter's bucket array.
	ExpectedKeys int
	// BitsPerTag trades memory for false-positive rate (more bits, fewer
	// false positives, more memory).
	BitsPerTag uint
	// AbsentCacheCapacity bounds the (key, subkey) negative cache.
	AbsentCacheCapacity int
}

func DefaultConfig() Config {
	return Config{ExpectedKeys: 1 << 16, BitsPerTag: 8, AbsentCacheCapacity: 1 << 16}
}

func New(cfg Config) *Filter {
	return &Filter{
		cuckoo: NewCuckooFilter(cfg.ExpectedKeys, cfg.BitsPerTag),
		absent: NewAbsentCache(cfg.AbsentCacheCapacity),
	}
}

// AddKey records that key has (or may soon have) cold data, called on
// eviction/persist. If the cuckoo filter's kick chain exhausts itself, the
// displaced fingerprint it was carrying is lost (cuckoo.go's Add returns
// false without re-storing it) — a silently dropped fingerprint would make
// ProbablyCold return false for a key that really is cold, a false
// negative spec.md §4.3 forbids. So once Add ever fails, the filter is
// marked saturated and ProbablyCold answers true unconditionally from then
// on, trading away the filter's selectivity (every lookup now pays a disk
// round-trip) rather than risking a stale read.
func (f *Filter) AddKey(key []byte) {
	if !f.cuckoo.Add(key) {
		f.saturated = true
	}
}

// ProbablyCold answers "is key possibly cold?" false means "definitely
// not", letting callers skip a disk lookup entirely. Once the underlying
// cuckoo filter has saturated (see AddKey), it can no longer make that
// guarantee for every key, so it answers true for all of them.
func (f *Filter) ProbablyCold(key []byte) bool {
	if f.saturated {
		return true
	}
	return f.cuckoo.Contains(key)
}

// RecordAbsent remembers that (key, subkey) returned nothing on disk.
// subkey == nil records absence of the whole key.
func (f *Filter) RecordAbsent(key []byte, subkey []byte) {
	f.absent.RecordAbsent(string(key), subkey)
}

// KnownAbsent reports a negative-cache hit for (key, subkey).
func (f *Filter) KnownAbsent(key []byte, subkey []byte) bool {
	return f.absent.KnownAbsent(string(key), subkey)
}

// KeyDeleted clears every absent-cache entry for key; the cuckoo filter is
// left untouched (a stale "possibly cold" is safe — it only costs an extra
// disk round-trip, never a stale read).
func (f *Filter) KeyDeleted(key []byte) { f.absent.KeyDeleted(string(key)) }
