package zonerange

import (
	"testing"

	"github.com/miliYoung/mps/refset"
)

type geom struct {
	stripeSize uintptr
	epoch      refset.Epoch
}

func (g geom) ZoneShift() uint     { return 16 }
func (g geom) StripeSize() uintptr { return g.stripeSize }
func (g geom) Epoch() refset.Epoch { return g.epoch }

// TestFirstScenario covers scenario S5 from spec.md.
func TestFirstScenario(t *testing.T) {
	g := geom{stripeSize: 65536}
	zones := refset.ZoneSet(0b1100) // zones 2 and 3

	base, limit, ok := First(g, 0, 16*g.stripeSize, zones, 2*g.stripeSize)
	if !ok {
		t.Fatal("expected a match for size=2 stripes")
	}
	if base != 2*g.stripeSize || limit != 4*g.stripeSize {
		t.Fatalf("got [%d,%d), want [%d,%d)", base, limit, 2*g.stripeSize, 4*g.stripeSize)
	}

	_, _, ok = First(g, 0, 16*g.stripeSize, zones, 3*g.stripeSize)
	if ok {
		t.Fatal("expected no match for size=3 stripes (only a 2-stripe run is admissible)")
	}
}

func TestLastScenario(t *testing.T) {
	g := geom{stripeSize: 65536}
	zones := refset.ZoneSet(0b1100) // zones 2 and 3

	base, limit, ok := Last(g, 0, 16*g.stripeSize, zones, 2*g.stripeSize)
	if !ok {
		t.Fatal("expected a match for size=2 stripes")
	}
	if base != 2*g.stripeSize || limit != 4*g.stripeSize {
		t.Fatalf("got [%d,%d), want [%d,%d)", base, limit, 2*g.stripeSize, 4*g.stripeSize)
	}
}

func TestFirstUniv(t *testing.T) {
	g := geom{stripeSize: 65536}
	base, limit, ok := First(g, 100, 500, refset.UNIV, 50)
	if !ok || base != 100 || limit != 500 {
		t.Fatalf("UNIV zone set should return the whole range unchanged, got [%d,%d) ok=%v", base, limit, ok)
	}
}

func TestFirstTooSmallRange(t *testing.T) {
	g := geom{stripeSize: 65536}
	_, _, ok := First(g, 0, 10, refset.ZoneSet(0b1), 100)
	if ok {
		t.Fatal("a range smaller than size should never match")
	}
}

func TestFirstRejectsZebraSizedRequest(t *testing.T) {
	g := geom{stripeSize: 65536}
	zebra := uintptr(64) * g.stripeSize
	_, _, ok := First(g, 0, 10*zebra, refset.ZoneSet(0b1), zebra)
	if ok {
		t.Fatal("no admissible run can cover a full zebra unless the zone set is universal")
	}
}

func TestFirstPanicsOnEmptyZoneSet(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty zone set")
		}
	}()
	g := geom{stripeSize: 65536}
	First(g, 0, 1000, refset.EMPTY, 10)
}

func TestFindsLowestAndHighestDistinctly(t *testing.T) {
	g := geom{stripeSize: 65536}
	// Two disjoint admissible 1-stripe runs: zones 1 and 5.
	zones := refset.ZoneSet(0b100010)

	fb, fl, ok := First(g, 0, 16*g.stripeSize, zones, g.stripeSize)
	if !ok || fb != 1*g.stripeSize || fl != 2*g.stripeSize {
		t.Fatalf("First should land on the lowest run, got [%d,%d) ok=%v", fb, fl, ok)
	}

	lb, ll, ok := Last(g, 0, 16*g.stripeSize, zones, g.stripeSize)
	if !ok || lb != 5*g.stripeSize || ll != 6*g.stripeSize {
		t.Fatalf("Last should land on the highest run, got [%d,%d) ok=%v", lb, ll, ok)
	}
}
