package refset

import "github.com/bits-and-blooms/bitset"

// Rank classifies the strength of a reference as seen by the collector.
type Rank uint

const (
	RankAmbig Rank = iota
	RankExact
	RankWeak
	RankFinal
	// RankLimit is one past the last valid Rank; it is the cardinality of
	// the Rank enum, not a usable rank itself.
	RankLimit
)

// Check reports whether r is a well-formed rank.
func (r Rank) Check() bool {
	return r < RankLimit
}

// RankSet is a bit-set of Ranks, used to say e.g. "this reference might be
// ambiguous or exact, but is definitely neither weak nor final."
type RankSet struct {
	bits *bitset.BitSet
}

// NewRankSet returns an empty RankSet.
func NewRankSet() RankSet {
	return RankSet{bits: bitset.New(uint(RankLimit))}
}

// RankSetOf returns a RankSet containing exactly the given ranks.
func RankSetOf(ranks ...Rank) RankSet {
	rs := NewRankSet()
	for _, r := range ranks {
		rs = rs.Add(r)
	}
	return rs
}

// Check reports whether rs is well-formed: every set bit is < RankLimit.
// bitset.BitSet never grows past what Set() asks for, so this is really a
// check that no Rank outside the enum was ever added.
func (rs RankSet) Check() bool {
	if rs.bits == nil {
		return true
	}
	return rs.bits.Len() <= uint(RankLimit)
}

// Add returns rs with r added.
func (rs RankSet) Add(r Rank) RankSet {
	if rs.bits == nil {
		rs.bits = bitset.New(uint(RankLimit))
	}
	next := rs.bits.Clone()
	next.Set(uint(r))
	return RankSet{bits: next}
}

// Has reports whether rs contains r.
func (rs RankSet) Has(r Rank) bool {
	if rs.bits == nil {
		return false
	}
	return rs.bits.Test(uint(r))
}

// Union returns the union of rs and other.
func (rs RankSet) Union(other RankSet) RankSet {
	return RankSet{bits: unionOf(rs.bits, other.bits)}
}

// Inter returns the intersection of rs and other.
func (rs RankSet) Inter(other RankSet) RankSet {
	if rs.bits == nil || other.bits == nil {
		return NewRankSet()
	}
	return RankSet{bits: rs.bits.Intersection(other.bits)}
}

// IsEmpty reports whether rs contains no ranks.
func (rs RankSet) IsEmpty() bool {
	return rs.bits == nil || rs.bits.None()
}

func unionOf(a, b *bitset.BitSet) *bitset.BitSet {
	switch {
	case a == nil && b == nil:
		return bitset.New(uint(RankLimit))
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	default:
		return a.Union(b)
	}
}
