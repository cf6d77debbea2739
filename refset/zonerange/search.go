// Package zonerange searches an address window for the first or last
// sub-window whose addresses all lie within a chosen set of zones. It sits
// above refset (for ZoneSet) and the arena's geometry, and below nothing —
// it has no dependents in this module.
package zonerange

import "github.com/miliYoung/mps/refset"

// wordBits mirrors refset's fixed ZoneSet width: a "zebra" is one full
// sweep through all of them.
const wordBits = 64

func alignUp(x, align uintptr) uintptr {
	return (x + align - 1) &^ (align - 1)
}

func alignDown(x, align uintptr) uintptr {
	return x &^ (align - 1)
}

func nextStripe(base, limit uintptr, g refset.Geometry) uintptr {
	next := alignUp(base+1, g.StripeSize())
	if next >= limit || next < base {
		next = limit
	}
	return next
}

func prevStripe(base, limit uintptr, g refset.Geometry) uintptr {
	prev := alignDown(limit-1, g.StripeSize())
	if prev < base {
		prev = base
	}
	return prev
}

// First finds the lowest sub-range of [base, limit) that is at least size
// bytes long and entirely within zoneSet. It panics if limit <= base,
// size == 0, or zoneSet is empty — all caller preconditions, per spec.
func First(g refset.Geometry, base, limit uintptr, zoneSet refset.ZoneSet, size uintptr) (rangeBase, rangeLimit uintptr, ok bool) {
	checkSearchArgs(base, limit, zoneSet, size)

	if limit-base < size {
		return 0, 0, false
	}
	if zoneSet == refset.UNIV {
		return base, limit, true
	}

	// A "zebra" is one complete sweep through all W zones; no run of
	// admissible stripes can cover a zebra without the zone set being
	// universal, which it isn't at this point.
	zebra := uintptr(wordBits) * g.StripeSize()
	if size >= zebra {
		return 0, 0, false
	}

	// There's no point searching through the zone set more than once.
	searchLimit := alignUp(base, g.StripeSize()) + zebra
	if searchLimit > base && limit > searchLimit {
		limit = searchLimit
	}

	for base < limit {
		for !refset.Has(g, zoneSet, base) {
			base = nextStripe(base, limit, g)
			if base >= limit {
				return 0, 0, false
			}
		}

		next := base
		for {
			next = nextStripe(next, limit, g)
			if !(next < limit && refset.Has(g, zoneSet, next)) {
				break
			}
		}

		if next-base >= size {
			return base, next, true
		}
		base = next
	}

	return 0, 0, false
}

// Last finds the highest sub-range of [base, limit) that is at least size
// bytes long and entirely within zoneSet. Symmetric to First, sweeping
// downward from limit.
func Last(g refset.Geometry, base, limit uintptr, zoneSet refset.ZoneSet, size uintptr) (rangeBase, rangeLimit uintptr, ok bool) {
	checkSearchArgs(base, limit, zoneSet, size)

	if limit-base < size {
		return 0, 0, false
	}
	if zoneSet == refset.UNIV {
		return base, limit, true
	}

	zebra := uintptr(wordBits) * g.StripeSize()
	if size >= zebra {
		return 0, 0, false
	}

	searchBase := alignDown(limit, g.StripeSize()) - zebra
	if searchBase < limit && base < searchBase {
		base = searchBase
	}

	for base < limit {
		for !refset.Has(g, zoneSet, limit-1) {
			limit = prevStripe(base, limit, g)
			if base >= limit {
				return 0, 0, false
			}
		}

		prev := limit
		for {
			prev = prevStripe(base, prev, g)
			if !(prev > base && refset.Has(g, zoneSet, prev-1)) {
				break
			}
		}

		if limit-prev >= size {
			return prev, limit, true
		}
		limit = prev
	}

	return 0, 0, false
}

func checkSearchArgs(base, limit uintptr, zoneSet refset.ZoneSet, size uintptr) {
	if base >= limit {
		panic("zonerange: requires base < limit")
	}
	if size == 0 {
		panic("zonerange: requires size > 0")
	}
	if zoneSet.IsEmpty() {
		panic("zonerange: requires a non-empty zone set")
	}
}
