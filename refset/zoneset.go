package refset

import "math/bits"

// wordBits is W, the bit-width of the machine word a ZoneSet packs into.
// The algebra in ofRange relies on this matching ZoneSet's underlying type.
const wordBits = 64

// ZoneSet is a bit-set over the arena's zones, one bit per zone, packed into
// a single machine word.
type ZoneSet uint64

const (
	// EMPTY is the zone set containing no zones.
	EMPTY ZoneSet = 0
	// UNIV is the zone set containing every zone.
	UNIV ZoneSet = ^ZoneSet(0)
)

// Geometry is the slice of the arena that the zone/era algebra needs:
// how addresses map to zones, how big a stripe is, and the current epoch.
// Concrete arenas satisfy this without the algebra importing them.
type Geometry interface {
	Clock
	ZoneShift() uint
	StripeSize() uintptr
}

// zoneOf returns the zone an address belongs to: (addr >> ZoneShift) mod W.
func zoneOf(g Geometry, addr uintptr) uint {
	return uint(addr>>g.ZoneShift()) % wordBits
}

// Has reports whether zs contains the zone addr falls in.
func Has(g Geometry, zs ZoneSet, addr uintptr) bool {
	return zs&(1<<zoneOf(g, addr)) != 0
}

// AddAddr returns zs with addr's zone added.
func AddAddr(g Geometry, zs ZoneSet, addr uintptr) ZoneSet {
	return zs | (1 << zoneOf(g, addr))
}

// Sub reports whether a is a subset of b.
func (a ZoneSet) Sub(b ZoneSet) bool { return a&b == a }

// Super reports whether a is a superset of b.
func (a ZoneSet) Super(b ZoneSet) bool { return b.Sub(a) }

// Inter returns the intersection of a and b.
func (a ZoneSet) Inter(b ZoneSet) ZoneSet { return a & b }

// Union returns the union of a and b.
func (a ZoneSet) Union(b ZoneSet) ZoneSet { return a | b }

// IsEmpty reports whether the zone set contains no zones.
func (a ZoneSet) IsEmpty() bool { return a == EMPTY }

// IsUniv reports whether the zone set contains every zone.
func (a ZoneSet) IsUniv() bool { return a == UNIV }

// Count returns the number of zones in the set.
func (a ZoneSet) Count() int { return bits.OnesCount64(uint64(a)) }

// OfRange computes the zone set of addresses [base, limit). Panics if
// limit <= base, matching the original's AVER(limit > base) precondition.
func OfRange(g Geometry, base, limit uintptr) ZoneSet {
	if limit <= base {
		panic("refset: OfRange requires limit > base")
	}

	zbase := uint(base >> g.ZoneShift())
	zlimit := uint((limit-1)>>g.ZoneShift()) + 1

	// A range spanning a full sweep through all zones (or more) touches
	// every zone; no need to reason about wrap-around.
	if zlimit-zbase >= wordBits {
		return UNIV
	}

	zbase %= wordBits
	zlimit %= wordBits

	if zbase < zlimit {
		// Contiguous run: looks like 000111100.
		return ZoneSet(1)<<zlimit - ZoneSet(1)<<zbase
	}
	// Wrap-around run: looks like 111000011.
	return ^(ZoneSet(1)<<zbase - ZoneSet(1)<<zlimit)
}

// OfExtent computes the zone set of an extent of size bytes starting at
// base. Convenience wrapper over OfRange, the same relationship the
// original has between ZoneSetOfSeg and ZoneSetOfRange.
func OfExtent(g Geometry, base uintptr, size uintptr) ZoneSet {
	return OfRange(g, base, base+size)
}

// Blacklist returns the zones a conservative ambiguous-root scanner would
// likely mistake for real references: the zones of small bit patterns
// (0, 1, -1) interpreted as addresses, both at int and pointer width. These
// values turn up constantly on stacks as loop counters, booleans, and
// sentinels, and almost always land in zone 0 and the top zone.
func Blacklist(g Geometry) ZoneSet {
	blacklist := EMPTY
	for _, word := range blacklistWords() {
		blacklist = AddAddr(g, blacklist, word)
	}
	return blacklist
}

func blacklistWords() []uintptr {
	negInt, negInt32 := int(-1), int32(-1)
	var zero, one, minusOne uintptr = 0, 1, uintptr(negInt)
	var zero32, one32, minusOne32 uintptr = 0, 1, uintptr(negInt32)
	return []uintptr{zero, one, minusOne, zero32, one32, minusOne32}
}
