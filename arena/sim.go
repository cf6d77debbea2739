// Package arena provides Sim, a small in-process reference arena good
// enough to drive the pool/mfs allocator and the refset/zonerange address
// algebra in tests and local experiments. Nothing in pool/mfs or refset
// imports this package; it only consumes their exported interfaces, in the
// same spirit as the teacher's byte-slice-backed SlabAllocator and
// BuddyAllocator, which never know about the pools layered on top of them.
package arena

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/miliYoung/mps/pool/mfs"
	"github.com/miliYoung/mps/refset"
)

const (
	defaultGrain      = 4096
	defaultZoneShift  = 16
	defaultStripeSize = 1 << defaultZoneShift
	defaultBase       = 1 << 20 // never mint address 0: it is the pool free-list "nil"
)

type extentRecord struct {
	size  uintptr
	owner mfs.Owner
}

// Sim is a bump-allocating arena: every Alloc mints a fresh, ever-increasing
// address and backs it with a real []byte. Freed extents are never reused,
// which keeps the implementation trivial; it is a reference and test
// arena, not a production one.
type Sim struct {
	mu sync.Mutex

	grain      uintptr
	zoneShift  uint
	stripeSize uintptr
	epoch      refset.Epoch

	limit    uintptr // 0 = unbounded
	issued   uintptr
	nextBase uintptr

	extents map[uintptr]*extentRecord
	seen    *bloom.BloomFilter
}

// Option configures a Sim at construction.
type Option func(*Sim)

// WithGrain sets the arena's allocation granularity (GrainRound's rounding
// unit). Default 4096.
func WithGrain(grain uintptr) Option {
	return func(s *Sim) { s.grain = grain }
}

// WithZoneGeometry sets the zone shift and stripe size Sim reports through
// refset.Geometry. Default zoneShift=16 (64 KiB stripes).
func WithZoneGeometry(zoneShift uint, stripeSize uintptr) Option {
	return func(s *Sim) {
		s.zoneShift = zoneShift
		s.stripeSize = stripeSize
	}
}

// WithLimit caps the bytes Sim has outstanding at once (freed extents no
// longer count); an Alloc that would exceed the cap returns an error.
// Default 0 (unbounded).
func WithLimit(limit uintptr) Option {
	return func(s *Sim) { s.limit = limit }
}

// NewSim constructs a Sim arena.
func NewSim(opts ...Option) *Sim {
	s := &Sim{
		grain:      defaultGrain,
		zoneShift:  defaultZoneShift,
		stripeSize: defaultStripeSize,
		nextBase:   defaultBase,
		extents:    make(map[uintptr]*extentRecord),
		seen:       bloom.NewWithEstimates(10000, 0.01),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ZoneShift implements refset.Geometry.
func (s *Sim) ZoneShift() uint { return s.zoneShift }

// StripeSize implements refset.Geometry.
func (s *Sim) StripeSize() uintptr { return s.stripeSize }

// Epoch implements refset.Geometry and refset.Clock.
func (s *Sim) Epoch() refset.Epoch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Tick advances the arena's notion of the current epoch by one, the way a
// real arena's clock advances once per collection or allocation cycle.
func (s *Sim) Tick() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// GrainRound implements mfs.Arena: rounds size up to the arena's grain.
func (s *Sim) GrainRound(size uintptr) uintptr {
	return (size + s.grain - 1) &^ (s.grain - 1)
}

// Alloc implements mfs.Arena.
func (s *Sim) Alloc(size uintptr, owner mfs.Owner) (mfs.Extent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit != 0 && s.issued+size > s.limit {
		return mfs.Extent{}, fmt.Errorf("arena: out of memory: %d bytes requested, %d of %d already issued", size, s.issued, s.limit)
	}

	base := s.nextBase
	s.nextBase += size
	s.issued += size

	s.extents[base] = &extentRecord{size: size, owner: owner}
	for bucket := base / s.grain; bucket <= (base+size-1)/s.grain; bucket++ {
		s.seen.Add(addrKey(bucket))
	}

	return mfs.Extent{Base: base, Mem: make([]byte, size)}, nil
}

// Free implements mfs.Arena.
func (s *Sim) Free(base uintptr, owner mfs.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.extents[base]
	if !ok {
		return fmt.Errorf("arena: free of unknown extent %#x", base)
	}
	delete(s.extents, base)
	s.issued -= rec.size
	return nil
}

// HasAddr implements mfs.Arena. It uses the bloom filter as a fast negative
// check before falling back to the exact extent table, the same "seen
// filter" idiom the teacher uses to short-circuit gossip message replays.
func (s *Sim) HasAddr(owner mfs.Owner, addr uintptr) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seen.Test(addrKey(addr / s.grain)) {
		return false
	}
	for base, rec := range s.extents {
		if addr >= base && addr < base+rec.size && rec.owner == owner {
			return true
		}
	}
	return false
}

func addrKey(addr uintptr) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(addr >> (8 * i))
	}
	return b
}
