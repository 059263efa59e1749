package objectmeta

import "github.com/RoaringBitmap/roaring"

// BucketSize is the fixed byte-size of one bitmap bucket. A cold bitmap may
// be partially materialized at bucket granularity.
const BucketSize = 4096

// BucketExtend tracks which fixed-size byte buckets of a logical bitmap are
// resident, as a compressed bitset of bucket indices (grounded on
// ethdb/bitmapdb's use of RoaringBitmap for sharded bucket storage).
type BucketExtend struct {
	Resident *roaring.Bitmap
}

func NewBucketExtend() *BucketExtend {
	return &BucketExtend{Resident: roaring.New()}
}

func (b *BucketExtend) DeepCopy() Extend {
	return &BucketExtend{Resident: b.Resident.Clone()}
}

func (b *BucketExtend) Equal(o Extend) bool {
	other, ok := o.(*BucketExtend)
	if !ok {
		return false
	}
	return b.Resident.Equals(other.Resident)
}

// BucketOf returns the bucket index containing byte offset.
func BucketOf(byteOffset int64) uint32 { return uint32(byteOffset / BucketSize) }

// IsResident reports whether the bucket containing byteOffset is in RAM.
func (b *BucketExtend) IsResident(byteOffset int64) bool {
	return b.Resident.Contains(BucketOf(byteOffset))
}

// MarkResident/MarkEvicted flip one bucket's residency bit.
func (b *BucketExtend) MarkResident(bucket uint32) { b.Resident.Add(bucket) }
func (b *BucketExtend) MarkEvicted(bucket uint32)  { b.Resident.Remove(bucket) }

// MissingBuckets returns, of [fromBucket, toBucket], those not resident.
func (b *BucketExtend) MissingBuckets(fromBucket, toBucket uint32) []uint32 {
	var out []uint32
	for i := fromBucket; i <= toBucket; i++ {
		if !b.Resident.Contains(i) {
			out = append(out, i)
		}
		if i == ^uint32(0) {
			break
		}
	}
	return out
}
