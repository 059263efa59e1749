package objectmeta

// Segment describes one contiguous run of a list's monotonically growing
// raw-index space. InMemory marks whether the segment's elements are
// currently resident in RAM.
type Segment struct {
	RidxLo   int64
	RidxHi   int64
	InMemory bool
}

// SegmentExtend tracks which index ranges of a list are in memory, ordered
// by RidxLo. List algorithms translate logical indices to raw indices
// through this map and pick the smallest contiguous segment to swap in for
// LINDEX/LRANGE/LPOP/LPUSH.
type SegmentExtend struct {
	Segments []Segment
	// Length is the list's total logical element count (resident +
	// evicted); unlike hash/set/zset, a list's raw-index space can have
	// holes tracked only by segment boundaries, so the overall length
	// can't be recovered from ColdLen alone.
	Length int64
}

func (s *SegmentExtend) DeepCopy() Extend {
	cp := &SegmentExtend{Segments: make([]Segment, len(s.Segments)), Length: s.Length}
	copy(cp.Segments, s.Segments)
	return cp
}

func (s *SegmentExtend) Equal(o Extend) bool {
	other, ok := o.(*SegmentExtend)
	if !ok || len(s.Segments) != len(other.Segments) || s.Length != other.Length {
		return false
	}
	for i := range s.Segments {
		if s.Segments[i] != other.Segments[i] {
			return false
		}
	}
	return true
}

// FindSegment returns the segment containing raw index ridx, or (-1,false)
// if ridx isn't covered by any known segment.
func (s *SegmentExtend) FindSegment(ridx int64) (int, bool) {
	for i, seg := range s.Segments {
		if ridx >= seg.RidxLo && ridx < seg.RidxHi {
			return i, true
		}
	}
	return -1, false
}

// InMemoryRange reports whether [lo, hi) is entirely covered by in-memory
// segments.
func (s *SegmentExtend) InMemoryRange(lo, hi int64) bool {
	cursor := lo
	for cursor < hi {
		idx, ok := s.FindSegment(cursor)
		if !ok || !s.Segments[idx].InMemory {
			return false
		}
		cursor = s.Segments[idx].RidxHi
	}
	return true
}

// MarkInMemory splits/merges segments so that [lo, hi) is marked resident.
func (s *SegmentExtend) MarkInMemory(lo, hi int64) { s.setResidency(lo, hi, true) }

// MarkEvicted splits/merges segments so that [lo, hi) is marked non-resident.
func (s *SegmentExtend) MarkEvicted(lo, hi int64) { s.setResidency(lo, hi, false) }

func (s *SegmentExtend) setResidency(lo, hi int64, resident bool) {
	if lo >= hi {
		return
	}
	var out []Segment
	for _, seg := range s.Segments {
		if seg.RidxHi <= lo || seg.RidxLo >= hi {
			out = append(out, seg)
			continue
		}
		if seg.RidxLo < lo {
			out = append(out, Segment{RidxLo: seg.RidxLo, RidxHi: lo, InMemory: seg.InMemory})
		}
		if seg.RidxHi > hi {
			out = append(out, Segment{RidxLo: hi, RidxHi: seg.RidxHi, InMemory: seg.InMemory})
		}
	}
	out = append(out, Segment{RidxLo: lo, RidxHi: hi, InMemory: resident})
	sortSegments(out)
	s.Segments = mergeAdjacent(out)
}

func sortSegments(segs []Segment) {
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && segs[j].RidxLo < segs[j-1].RidxLo; j-- {
			segs[j], segs[j-1] = segs[j-1], segs[j]
		}
	}
}

func mergeAdjacent(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	out := []Segment{segs[0]}
	for _, seg := range segs[1:] {
		last := &out[len(out)-1]
		if last.RidxHi == seg.RidxLo && last.InMemory == seg.InMemory {
			last.RidxHi = seg.RidxHi
			continue
		}
		out = append(out, seg)
	}
	return out
}
