package coldfilter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCuckooFilterNoFalseNegatives(t *testing.T) {
	f := NewCuckooFilter(2000, 8)
	keys := make([][]byte, 0, 2000)
	for i := 0; i < 2000; i++ {
		k := []byte(fmt.Sprintf("key-%d", i))
		require.True(t, f.Add(k), "insertion %d should succeed within capacity", i)
		keys = append(keys, k)
	}
	for _, k := range keys {
		require.True(t, f.Contains(k), "must never false-negative on an inserted key")
	}
}

func TestCuckooFilterRemove(t *testing.T) {
	f := NewCuckooFilter(100, 8)
	k := []byte("hello")
	require.True(t, f.Add(k))
	require.True(t, f.Contains(k))
	require.True(t, f.Remove(k))
}

func TestAbsentCacheBoundedAndNegative(t *testing.T) {
	c := NewAbsentCache(2)
	c.RecordAbsent("k1", []byte("f1"))
	require.True(t, c.KnownAbsent("k1", []byte("f1")))
	require.False(t, c.KnownAbsent("k1", []byte("f2")))

	c.RecordAbsent("k1", []byte("f2"))
	c.RecordAbsent("k1", []byte("f3")) // evicts f1 (capacity 2)
	require.False(t, c.KnownAbsent("k1", []byte("f1")))
	require.True(t, c.KnownAbsent("k1", []byte("f3")))
}

func TestAbsentCacheKeyDeleted(t *testing.T) {
	c := NewAbsentCache(10)
	c.RecordAbsent("k1", []byte("f1"))
	c.RecordAbsent("k1", []byte("f2"))
	c.RecordAbsent("k2", []byte("f1"))
	c.KeyDeleted("k1")
	require.False(t, c.KnownAbsent("k1", []byte("f1")))
	require.False(t, c.KnownAbsent("k1", []byte("f2")))
	require.True(t, c.KnownAbsent("k2", []byte("f1")))
}

func TestFilterSaturationNeverFalseNegatives(t *testing.T) {
	f := New(Config{ExpectedKeys: 4, BitsPerTag: 2, AbsentCacheCapacity: 16})

	saturated := false
	for i := 0; i < 5000 && !saturated; i++ {
		f.AddKey([]byte(fmt.Sprintf("key-%d", i)))
		saturated = f.saturated
	}
	require.True(t, saturated, "tiny filter driven well past capacity should saturate")

	// Once saturated, every key — inserted or not — must answer "possibly
	// cold"; a false here would be the false negative spec.md §4.3 forbids.
	require.True(t, f.ProbablyCold([]byte("key-0")))
	require.True(t, f.ProbablyCold([]byte("never-inserted")))
}

func TestFilterIntegration(t *testing.T) {
	f := New(DefaultConfig())
	f.AddKey([]byte("hot-key"))
	require.True(t, f.ProbablyCold([]byte("hot-key")))
	f.RecordAbsent([]byte("hot-key"), []byte("missing-field"))
	require.True(t, f.KnownAbsent([]byte("hot-key"), []byte("missing-field")))
	f.KeyDeleted([]byte("hot-key"))
	require.False(t, f.KnownAbsent([]byte("hot-key"), []byte("missing-field")))
}

func TestRecencyDigestOrdersOldestFirst(t *testing.T) {
	d := NewRecencyDigest(60)
	clock := time.Unix(0, 0)
	d.now = func() time.Time { return clock }

	d.Touch("a")
	clock = clock.Add(61 * time.Second)
	d.Touch("b")
	clock = clock.Add(61 * time.Second)
	// "c" never touched.

	got := d.LeastRecent([]string{"a", "b", "c"}, 3)
	require.Equal(t, []string{"c", "a", "b"}, got)
}
