// Package coldfilter implements spec.md §4.3: a per-database pair of
// negative caches that let the swap core answer "this key cannot be cold"
// or "this subkey is known absent" without touching disk. Both structures
// must never produce a false negative.
package coldfilter

import (
	"github.com/RoaringBitmap/roaring"
)

// CuckooFilter is a probabilistic set membership structure over key
// fingerprints, organized as buckets of tags (classic cuckoo-filter design)
// with a configurable number of bits per tag. It answers "possibly cold"
// (true) or "definitely not cold" (false), at the cost of a bounded
// false-positive rate. It produces no false negative as long as every Add
// has succeeded: an Add whose kick chain exhausts itself returns false and
// drops the tag it was carrying, which may belong to an earlier key.
//
// The bucket occupancy mask (which bucket slots are filled) is kept as a
// RoaringBitmap rather than a dense byte array, the same choice the teacher
// makes for sparse membership data in ethdb/bitmapdb.
type CuckooFilter struct {
	bitsPerTag   uint
	bucketSize   int
	numBuckets   uint32
	tags         [][]uint32 // numBuckets slices, each up to bucketSize tags (masked to bitsPerTag)
	occupied     *roaring.Bitmap
	maxKickCount int
}

// NewCuckooFilter builds a filter sized for roughly capacity keys at the
// given bits-per-tag (spec.md §4.3: "Cuckoo filter uses configurable
// bits-per-tag").
func NewCuckooFilter(capacity int, bitsPerTag uint) *CuckooFilter {
	const bucketSize = 4
	numBuckets := nextPow2(uint32((capacity + bucketSize - 1) / bucketSize))
	if numBuckets < 1 {
		numBuckets = 1
	}
	tags := make([][]uint32, numBuckets)
	return &CuckooFilter{
		bitsPerTag:   bitsPerTag,
		bucketSize:   bucketSize,
		numBuckets:   numBuckets,
		tags:         tags,
		occupied:     roaring.New(),
		maxKickCount: 500,
	}
}

func nextPow2(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	return v + 1
}

func (f *CuckooFilter) mask(tag uint32) uint32 {
	if f.bitsPerTag >= 32 {
		return tag
	}
	m := tag & ((1 << f.bitsPerTag) - 1)
	if m == 0 {
		m = 1 // reserve 0 as "empty slot" sentinel
	}
	return m
}

func (f *CuckooFilter) fingerprint(data []byte) (i1 uint32, tag uint32) {
	h := fnv1a(data)
	tag = f.mask(uint32(h))
	i1 = uint32(h>>32) % f.numBuckets
	return i1, tag
}

func (f *CuckooFilter) altIndex(i uint32, tag uint32) uint32 {
	h := fnv1a32(tag)
	return (i ^ h) % f.numBuckets
}

// Add inserts data's fingerprint, relocating existing tags (cuckoo kick
// chain) if both candidate buckets are full.
func (f *CuckooFilter) Add(data []byte) bool {
	i1, tag := f.fingerprint(data)
	i2 := f.altIndex(i1, tag)

	if f.insertInto(i1, tag) || f.insertInto(i2, tag) {
		return true
	}

	// Both buckets full: repeatedly kick out the existing tag in the slot
	// picked by the incoming tag's value (tag % bucket length).
	i := i1
	for n := 0; n < f.maxKickCount; n++ {
		bucket := f.tags[i]
		victimIdx := int(tag) % len(bucket)
		tag, bucket[victimIdx] = bucket[victimIdx], tag
		i = f.altIndex(i, tag)
		if f.insertInto(i, tag) {
			return true
		}
	}
	return false
}

func (f *CuckooFilter) insertInto(i uint32, tag uint32) bool {
	bucket := f.tags[i]
	if len(bucket) < f.bucketSize {
		f.tags[i] = append(bucket, tag)
		f.occupied.Add(i)
		return true
	}
	return false
}

// Contains reports whether data's fingerprint is present in either
// candidate bucket. False means "definitely not cold"; true means "maybe".
func (f *CuckooFilter) Contains(data []byte) bool {
	i1, tag := f.fingerprint(data)
	if containsTag(f.tags[i1], tag) {
		return true
	}
	i2 := f.altIndex(i1, tag)
	return containsTag(f.tags[i2], tag)
}

func containsTag(bucket []uint32, tag uint32) bool {
	for _, t := range bucket {
		if t == tag {
			return true
		}
	}
	return false
}

// Remove deletes one occurrence of data's fingerprint, if present.
func (f *CuckooFilter) Remove(data []byte) bool {
	i1, tag := f.fingerprint(data)
	if removeTag(f.tags, i1, tag) {
		return true
	}
	i2 := f.altIndex(i1, tag)
	return removeTag(f.tags, i2, tag)
}

func removeTag(buckets [][]uint32, i uint32, tag uint32) bool {
	bucket := buckets[i]
	for idx, t := range bucket {
		if t == tag {
			buckets[i] = append(bucket[:idx], bucket[idx+1:]...)
			return true
		}
	}
	return false
}

func fnv1a(data []byte) uint64 {
	const offset = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offset)
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}

func fnv1a32(v uint32) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for i := 0; i < 4; i++ {
		h ^= (v >> (8 * i)) & 0xff
		h *= prime
	}
	return h
}
