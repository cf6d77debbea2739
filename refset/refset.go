package refset

import (
	"fmt"
	"io"
	"strings"
)

// RefSet is a conservative over-approximation of where (ZoneSet) and when
// (Era) a reference might exist. A RefSet may include references the
// collector does not actually hold, but must never exclude one it does —
// every operation here must preserve that.
type RefSet struct {
	Zones ZoneSet
	Era   Era
}

// Empty is the RefSet that rules out every reference.
var Empty = RefSet{Zones: EMPTY, Era: EmptyEra()}

// Univ is the RefSet that rules out nothing.
var Univ = RefSet{Zones: UNIV, Era: UnivEra()}

// FromZones builds a RefSet unconstrained in time from a zone set.
func FromZones(zones ZoneSet) RefSet {
	return RefSet{Zones: zones, Era: UnivEra()}
}

// Sub reports whether rs is a subset of other.
func (rs RefSet) Sub(other RefSet) bool {
	return rs.Zones.Sub(other.Zones) && rs.Era.Sub(other.Era)
}

// Super reports whether rs is a superset of other.
func (rs RefSet) Super(other RefSet) bool {
	return rs.Zones.Super(other.Zones) && rs.Era.Super(other.Era)
}

// Inter reports whether rs and other may share a reference: their zones
// overlap and their eras overlap. It does not return the overlap itself —
// RefSet has no representation tighter than a yes/no answer here.
func (rs RefSet) Inter(other RefSet) bool {
	return rs.Zones.Inter(other.Zones) != EMPTY && rs.Era.Intersects(other.Era)
}

// InterZones reports whether rs's zones overlap zs, ignoring time.
func (rs RefSet) InterZones(zs ZoneSet) bool {
	return rs.Zones.Inter(zs) != EMPTY
}

// Union returns the (over-approximating) union of rs and other.
func (rs RefSet) Union(other RefSet) RefSet {
	return RefSet{
		Zones: rs.Zones.Union(other.Zones),
		Era:   rs.Era.Union(other.Era),
	}
}

// RefSetAddAddr folds a concrete reference into rs. This forces Era to
// universal: having seen a reference proves its zone is real, but the set
// can no longer claim to be bounded in time — the reference might be held
// at any epoch, not just the current one.
func RefSetAddAddr(g Geometry, rs RefSet, addr uintptr) RefSet {
	return RefSet{
		Zones: AddAddr(g, rs.Zones, addr),
		Era:   UnivEra(),
	}
}

// IsEmpty reports whether rs can be proven to rule out every reference.
func (rs RefSet) IsEmpty() bool {
	return rs.Zones == EMPTY || rs.Era.IsEmpty()
}

// IsUniv reports whether rs rules out nothing.
func (rs RefSet) IsUniv() bool {
	return rs.Zones == UNIV && rs.Era.IsUniv()
}

// Equal reports whether rs and other denote the same set.
func (rs RefSet) Equal(other RefSet) bool {
	return rs.Zones == other.Zones && rs.Era.Equal(other.Era)
}

// BoundNotFuture clamps rs's era so it does not extend past the clock's
// current epoch.
func (rs RefSet) BoundNotFuture(clock Clock) RefSet {
	rs.Era = rs.Era.BoundNotFuture(clock)
	return rs
}

// Describe writes a human-readable, non-parseable dump of rs to w.
func (rs RefSet) Describe(w io.Writer, depth int) {
	indent := strings.Repeat(" ", depth)
	fmt.Fprintf(w, "%sRefSet {\n", indent)
	fmt.Fprintf(w, "%s  zones = %#016x\n", indent, uint64(rs.Zones))
	rs.Era.Describe(w, depth+2)
	fmt.Fprintf(w, "%s}\n", indent)
}

// Describe writes a human-readable dump of e to w.
func (e Era) Describe(w io.Writer, depth int) {
	indent := strings.Repeat(" ", depth)
	fmt.Fprintf(w, "%sEra {\n", indent)
	fmt.Fprintf(w, "%s  start = %d\n", indent, e.Start)
	fmt.Fprintf(w, "%s  end   = %d\n", indent, e.End)
	fmt.Fprintf(w, "%s}\n", indent)
}
