package refset

import "testing"

// TestRefSetReflexivity covers invariant 5: sub(a,a) and equal(a,a) for
// every RefSet.
func TestRefSetReflexivity(t *testing.T) {
	for _, rs := range []RefSet{Empty, Univ, FromZones(0b101), {Zones: 0b11, Era: Era{Start: 1, End: 5}}} {
		if !rs.Sub(rs) {
			t.Fatalf("%+v should be a subset of itself", rs)
		}
		if !rs.Equal(rs) {
			t.Fatalf("%+v should equal itself", rs)
		}
	}
}

// TestRefSetSubAntisymmetry covers invariant 6: sub(a,b) && sub(b,a) <=>
// equal(a,b).
func TestRefSetSubAntisymmetry(t *testing.T) {
	a := RefSet{Zones: 0b11, Era: Era{Start: 1, End: 5}}
	b := RefSet{Zones: 0b11, Era: Era{Start: 1, End: 5}}
	c := RefSet{Zones: 0b11, Era: Era{Start: 1, End: 10}}

	if !(a.Sub(b) && b.Sub(a)) || !a.Equal(b) {
		t.Fatal("mutually-subset-equal RefSets should satisfy both directions")
	}
	if a.Sub(c) && c.Sub(a) {
		t.Fatal("a and c differ in era and should not be mutual subsets")
	}
	if a.Equal(c) {
		t.Fatal("a and c should not be equal")
	}
}

// TestRefSetInterCommutative covers invariant 7 (commutativity of Inter,
// and commutativity/associativity of Union as a componentwise lift).
func TestRefSetInterCommutative(t *testing.T) {
	a := RefSet{Zones: 0b0011, Era: Era{Start: 0, End: 5}}
	b := RefSet{Zones: 0b0110, Era: Era{Start: 3, End: 8}}
	c := RefSet{Zones: 0b1100, Era: Era{Start: 7, End: 20}}

	if a.Inter(b) != b.Inter(a) {
		t.Fatal("Inter should be commutative")
	}

	if !a.Union(b).Equal(b.Union(a)) {
		t.Fatal("Union should be commutative")
	}
	if !a.Union(b).Union(c).Equal(a.Union(b.Union(c))) {
		t.Fatal("Union should be associative")
	}
}

// TestRefSetUnionIsUpperBound covers invariant 8: sub(a, union(a,b)) and
// sub(b, union(a,b)).
func TestRefSetUnionIsUpperBound(t *testing.T) {
	a := RefSet{Zones: 0b0011, Era: Era{Start: 0, End: 5}}
	b := RefSet{Zones: 0b0110, Era: Era{Start: 3, End: 8}}
	u := a.Union(b)

	if !a.Sub(u) {
		t.Fatal("a should be a subset of a ∪ b")
	}
	if !b.Sub(u) {
		t.Fatal("b should be a subset of a ∪ b")
	}
}

// TestRefSetInterImpliesNonEmpty covers invariant 9: inter(a,b) implies
// neither a nor b is empty.
func TestRefSetInterImpliesNonEmpty(t *testing.T) {
	a := RefSet{Zones: 0b0011, Era: Era{Start: 0, End: 5}}
	b := RefSet{Zones: 0b0110, Era: Era{Start: 3, End: 8}}

	if a.Inter(b) {
		if a.IsEmpty() || b.IsEmpty() {
			t.Fatal("Inter true implies both operands non-empty")
		}
	}
	if Empty.Inter(Univ) {
		t.Fatal("Inter involving an empty RefSet must be false")
	}
}

// TestRefSetInterZones covers invariant 10: interZones(fromZones(Z), Z) <=>
// Z != EMPTY.
func TestRefSetInterZones(t *testing.T) {
	for _, z := range []ZoneSet{EMPTY, 0b1, 0b101, UNIV} {
		rs := FromZones(z)
		got := rs.InterZones(z)
		want := z != EMPTY
		if got != want {
			t.Fatalf("InterZones(fromZones(%#x), %#x) = %v, want %v", z, z, got, want)
		}
	}
}

// TestRefSetAddAddr covers invariant 11: after AddAddr, zones contains the
// address's zone and era is universal.
func TestRefSetAddAddr(t *testing.T) {
	g := newTestGeom()
	addr := uintptr(5) << g.ZoneShift()

	rs := RefSetAddAddr(g, RefSet{Zones: EMPTY, Era: Era{Start: 1, End: 2}}, addr)
	if !Has(g, rs.Zones, addr) {
		t.Fatal("AddAddr should set the address's zone")
	}
	if !rs.Era.IsUniv() {
		t.Fatal("AddAddr should force the era to universal")
	}
}

func TestRefSetSentinels(t *testing.T) {
	if !Empty.IsEmpty() {
		t.Fatal("Empty should report IsEmpty")
	}
	if !Univ.IsUniv() {
		t.Fatal("Univ should report IsUniv")
	}
	if Empty.IsUniv() || Univ.IsEmpty() {
		t.Fatal("sentinels should not double as each other")
	}
}

func TestRefSetBoundNotFuture(t *testing.T) {
	g := &testGeom{epoch: 7}
	rs := RefSet{Zones: 0b1, Era: Era{Start: 3, End: 100}}.BoundNotFuture(g)
	if rs.Era.End != 7 {
		t.Fatalf("BoundNotFuture should clamp era end to the clock epoch, got %d", rs.Era.End)
	}
}
