package objectmeta

// LengthExtend is the auxiliary flavor for hash/set/zset: cold_len alone
// (carried on Meta.ColdLen) is sufficient, so LengthExtend carries no extra
// fields beyond a marker that lets Extend type-switch cleanly.
type LengthExtend struct{}

func (LengthExtend) DeepCopy() Extend { return LengthExtend{} }
func (LengthExtend) Equal(o Extend) bool {
	_, ok := o.(LengthExtend)
	return ok
}
