package objectmeta

import "sync/atomic"

// key is the internal map key: (dbid, key bytes as string).
type key struct {
	dbid int
	key  string
}

// Store is the server-thread-owned mapping (db, key) -> *Meta. No locking:
// per spec.md §5, it is only ever touched from the single server thread.
type Store struct {
	byDB    []map[string]*Meta
	version uint64 // monotonic version source, shared across all dbs
}

func NewStore(dbnum int) *Store {
	s := &Store{byDB: make([]map[string]*Meta, dbnum)}
	for i := range s.byDB {
		s.byDB[i] = make(map[string]*Meta)
	}
	return s
}

// NextVersion hands out a strictly increasing version number, used whenever
// a key's version must bump (cold->hot->cold transitions that drop old
// data, per spec.md §3's layout invariant).
func (s *Store) NextVersion() uint64 { return atomic.AddUint64(&s.version, 1) }

func (s *Store) Get(dbid int, k string) (*Meta, bool) {
	m, ok := s.byDB[dbid][k]
	return m, ok
}

func (s *Store) Set(dbid int, k string, m *Meta) { s.byDB[dbid][k] = m }

func (s *Store) Delete(dbid int, k string) { delete(s.byDB[dbid], k) }

// Len reports how many keys in dbid currently have object meta (i.e. are
// warm or cold).
func (s *Store) Len(dbid int) int { return len(s.byDB[dbid]) }

// Flush clears every meta entry for dbid (used by FLUSHDB).
func (s *Store) Flush(dbid int) { s.byDB[dbid] = make(map[string]*Meta) }

// Range calls fn for every (key, meta) pair in dbid; fn returning false
// stops iteration early.
func (s *Store) Range(dbid int, fn func(k string, m *Meta) bool) {
	for k, m := range s.byDB[dbid] {
		if !fn(k, m) {
			return
		}
	}
}
