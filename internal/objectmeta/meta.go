// Package objectmeta implements the per-key satellite descriptor of
// spec.md §4.2: a (db, key) -> ObjectMeta map held only in the server
// thread, with deep-copy and equality support for testing. Three concrete
// auxiliary flavors exist: length (hash/set/zset), segment (list), and
// bucket (bitmap).
package objectmeta

import (
	"github.com/ctripcorp/Redis-On-Rocks-sub000/internal/codec"
)

// Meta is the per-key descriptor living beside the main keyspace.
//
// Invariant: ColdLen == 0 && value in RAM => hot; value absent from RAM =>
// cold; otherwise warm.
type Meta struct {
	Version  uint64
	SwapType codec.SwapType
	ColdLen  uint64
	Extend   Extend
}

// Extend is the per-type auxiliary payload. Only one of the concrete
// flavors below is meaningful for a given Meta, selected by SwapType.
type Extend interface {
	DeepCopy() Extend
	Equal(Extend) bool
}

// IsHot reports whether a key with this meta and the given in-memory
// presence is fully resident.
func (m *Meta) IsHot(valueLen int) bool { return m.ColdLen == 0 && valueLen > 0 }

// IsCold reports whether a key with this meta and the given in-memory
// presence has no bytes in RAM at all.
func (m *Meta) IsCold(valueLen int) bool { return valueLen == 0 && m.ColdLen > 0 }

// IsWarm reports the partially-resident state.
func (m *Meta) IsWarm(valueLen int) bool { return m.ColdLen > 0 && valueLen > 0 }

// DeepCopy returns an independent copy of m, including its Extend.
func (m *Meta) DeepCopy() *Meta {
	if m == nil {
		return nil
	}
	cp := *m
	if m.Extend != nil {
		cp.Extend = m.Extend.DeepCopy()
	}
	return &cp
}

// Equal compares two metas structurally, used by tests.
func (m *Meta) Equal(o *Meta) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Version != o.Version || m.SwapType != o.SwapType || m.ColdLen != o.ColdLen {
		return false
	}
	if (m.Extend == nil) != (o.Extend == nil) {
		return false
	}
	if m.Extend != nil && !m.Extend.Equal(o.Extend) {
		return false
	}
	return true
}
