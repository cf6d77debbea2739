// Package refset implements the zone/era reference-set algebra used by a
// tracing collector to summarise, conservatively, where and when a possibly
// held reference can live.
package refset

import "math"

// Epoch is a collector tick counter.
type Epoch uint64

const (
	// EARLIEST is the sentinel for "since the beginning of time."
	EARLIEST Epoch = 0
	// LATEST is the sentinel for "until the end of time."
	LATEST Epoch = math.MaxUint64
)

// Era is a closed epoch interval [Start, End]. The canonical empty Era has
// Start = LATEST and End = EARLIEST, so Start > End trivially (LATEST is the
// type's maximum, EARLIEST its minimum). The original's EraInitEmpty instead
// sets end to EraEARLIEST-1, relying on that particular build's EARLIEST
// being 1 so the subtraction lands on 0 without wrapping; generalising that
// to EARLIEST=0 here would require an actual unsigned wraparound, which Go
// constant arithmetic rejects outright at End = LATEST.
type Era struct {
	Start Epoch
	End   Epoch
}

// EmptyEra returns the canonical empty era.
func EmptyEra() Era {
	return Era{Start: LATEST, End: EARLIEST}
}

// UnivEra returns the era spanning all time.
func UnivEra() Era {
	return Era{Start: EARLIEST, End: LATEST}
}

// IsEmpty reports whether e is empty.
func (e Era) IsEmpty() bool {
	return e.Start > e.End
}

// IsUniv reports whether e spans all time.
func (e Era) IsUniv() bool {
	return e.Start == EARLIEST && e.End == LATEST
}

func epochMin(a, b Epoch) Epoch {
	if a < b {
		return a
	}
	return b
}

func epochMax(a, b Epoch) Epoch {
	if a > b {
		return a
	}
	return b
}

// Sub reports whether e is a subset of other (e ⊆ other).
func (e Era) Sub(other Era) bool {
	return e.IsEmpty() || (!other.IsEmpty() && e.Start >= other.Start && e.End <= other.End)
}

// Super reports whether e is a superset of other (e ⊇ other).
func (e Era) Super(other Era) bool {
	return other.Sub(e)
}

// Intersects reports whether e and other share any epoch.
func (e Era) Intersects(other Era) bool {
	return !e.IsEmpty() && !other.IsEmpty() && e.Start <= other.End && other.Start <= e.End
}

// Equal reports whether e and other denote the same era (both empty counts
// as equal regardless of representation).
func (e Era) Equal(other Era) bool {
	return (e.IsEmpty() && other.IsEmpty()) || (e.Start == other.Start && e.End == other.End)
}

// Union returns the convex hull of e and other. Two disjoint non-empty eras
// union to their hull, not to a set of intervals — eras stay single
// intervals by design, at the cost of precision.
func (e Era) Union(other Era) Era {
	if e.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return e
	}
	return Era{
		Start: epochMin(e.Start, other.Start),
		End:   epochMax(e.End, other.End),
	}
}

// BoundNotPast clamps Start forward to at least the clock's current epoch.
func (e Era) BoundNotPast(clock Clock) Era {
	e.Start = epochMax(e.Start, clock.Epoch())
	return e
}

// BoundNotFuture clamps End back to at most the clock's current epoch.
func (e Era) BoundNotFuture(clock Clock) Era {
	e.End = epochMin(e.End, clock.Epoch())
	return e
}

// Clock supplies the current collector epoch, the only thing the era
// algebra needs from the arena.
type Clock interface {
	Epoch() Epoch
}
