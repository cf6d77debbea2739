// Package mfs implements the manual fixed-size small-unit pool: a LIFO
// free-list allocator for many same-sized units drawn from extents an Arena
// supplies. It is the allocator of last resort during bootstrap, since it
// is simple enough to allocate its own bookkeeping inside the extents it
// manages rather than from another pool.
package mfs

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"
)

const (
	platformAlign   = 8 // word alignment assumed for every unit and header
	unitMin         = 8 // a unit must be at least large enough to hold a free-list link
	extendByDefault = 64 * 1024
)

// Args configures a Pool at construction, mirroring the MPS keyword
// arguments MPS_KEY_MFS_UNIT_SIZE, MPS_KEY_EXTEND_BY and MFSExtendSelf.
type Args struct {
	// UnitSize is the size in bytes of each allocated unit. Required.
	UnitSize uintptr
	// ExtendBy is how much memory to request from the arena each time the
	// pool needs a new extent. Zero selects a default.
	ExtendBy uintptr
	// ExtendSelf, when false, makes the pool refuse to grow: Alloc returns
	// a LIMIT error instead of ever calling the arena. Used for pools that
	// exist only to carve up memory handed to them directly via Extend.
	ExtendSelf bool
}

// Pool is a manual fixed-size small-unit pool. It draws memory only from its
// Arena, never from another pool, since other pools may depend on it.
type Pool struct {
	arena Arena

	unroundedUnitSize uintptr
	unitSize          uintptr
	extendBy          uintptr
	extendSelf        bool

	freeList uintptr // global address of the first free unit, 0 = none
	ring     ring

	total uintptr
	free  uintptr

	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker
	limiter *limiter.TokenBucket
}

func round(n, unit uintptr) uintptr {
	return (n + unit - 1) - (n+unit-1)%unit
}

// New creates a pool that draws its extents from arena. It does not
// allocate any memory itself; the first extent is created lazily by Alloc
// (or eagerly via Extend, for the bootstrap case).
func New(arena Arena, args Args, logger *slog.Logger) (*Pool, error) {
	if args.UnitSize == 0 {
		return nil, newError(KindParam, "New", "unit size must be positive", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	extendBy := args.ExtendBy
	if extendBy == 0 {
		extendBy = extendByDefault
	}

	unroundedUnitSize := args.UnitSize
	unitSize := args.UnitSize
	if unitSize < unitMin {
		unitSize = unitMin
	}
	unitSize = round(unitSize, platformAlign)

	ringSize := round(ringHeaderSize, platformAlign)
	minExtendBy := ringSize + unitSize
	if extendBy < minExtendBy {
		extendBy = minExtendBy
	}
	extendBy = arena.GrainRound(extendBy)

	p := &Pool{
		arena:             arena,
		unroundedUnitSize: unroundedUnitSize,
		unitSize:          unitSize,
		extendBy:          extendBy,
		extendSelf:        args.ExtendSelf,
		logger:            logger.With("pool", "mfs", "unitSize", unitSize, "extendBy", extendBy),
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mfs-arena",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	bucket, err := limiter.NewTokenBucket(limiter.Config{
		Rate:     int64(1),
		Duration: time.Second,
		Burst:    int64(1),
	}, store.NewMemoryStore(time.Minute))
	if err == nil {
		p.limiter = bucket
	}

	return p, nil
}

// warnThrottled logs a warning, but at most once per second, so that a
// caller repeatedly hitting a failing arena or an exhausted non-extending
// pool doesn't flood the log.
func (p *Pool) warnThrottled(msg string, args ...any) {
	if p.limiter != nil && !p.limiter.Allow("mfs-warn") {
		return
	}
	p.logger.Warn(msg, args...)
}

// Extend hands the pool a new extent. It is normally called internally by
// Alloc when the free list runs dry, but it is also the only way to supply
// memory to a pool created with ExtendSelf false.
func (p *Pool) Extend(ext Extent) error {
	if ext.size() != p.extendBy {
		panic("mfs: Extend extent size must equal the pool's extendBy")
	}

	node := newExtentNode(ext)
	p.ring.append(node)

	usable := node.usable()
	size := uintptr(len(usable))
	unitsPerExtent := size / p.unitSize
	if unitsPerExtent == 0 {
		return newError(KindParam, "Extend", "extent too small to hold a single unit", nil)
	}

	p.total += size
	p.free += size

	base := ext.Base + ringHeaderSize

	// Sew the new units onto the free list working down from the top, so
	// that after insertion they sit in ascending address order (LIFO pop
	// therefore yields ascending addresses too, starting at the lowest unit
	// of the new extent).
	for i := uintptr(0); i < unitsPerExtent; i++ {
		unitBase := base + p.unitSize*(unitsPerExtent-i-1)
		p.linkUnit(unitBase, p.freeList)
		p.freeList = unitBase
	}

	return nil
}

// linkUnit writes next into the free-list link word at the start of the
// unit at addr.
func (p *Pool) linkUnit(addr uintptr, next uintptr) {
	node := p.ring.find(addr)
	if node == nil {
		panic("mfs: linkUnit address not owned by any extent")
	}
	off := int(addr - node.base)
	putU64(node.mem, off, uint64(next))
}

func (p *Pool) readUnitLink(addr uintptr) uintptr {
	node := p.ring.find(addr)
	if node == nil {
		panic("mfs: readUnitLink address not owned by any extent")
	}
	off := int(addr - node.base)
	return uintptr(getU64(node.mem, off))
}

// extendFromArena asks the arena for a new extent of extendBy bytes,
// through the circuit breaker, and wires it into the pool.
func (p *Pool) extendFromArena() error {
	result, err := p.breaker.Execute(func() (any, error) {
		return p.arena.Alloc(p.extendBy, p)
	})
	if err != nil {
		p.warnThrottled("arena allocation failed", "error", err)
		return newError(KindMemory, "Alloc", "arena could not supply a new extent", err)
	}
	ext := result.(Extent)
	if err := p.Extend(ext); err != nil {
		return err
	}
	p.logger.Debug("extended pool", "base", ext.Base, "total", p.total)
	return nil
}

// Alloc returns the address of one free unit, extending the pool from its
// arena if the free list is empty. size must equal the unrounded unit size
// the pool was created with.
func (p *Pool) Alloc(size uintptr) (uintptr, error) {
	if size != p.unroundedUnitSize {
		panic("mfs: Alloc size does not match the pool's unit size")
	}

	if p.freeList == 0 {
		if !p.extendSelf {
			p.warnThrottled("pool may not extend itself and the free list is empty")
			return 0, newError(KindLimit, "Alloc", "pool may not extend itself and the free list is empty", nil)
		}
		if err := p.extendFromArena(); err != nil {
			return 0, err
		}
	}

	addr := p.freeList
	p.freeList = p.readUnitLink(addr)
	p.free -= p.unitSize
	return addr, nil
}

// Free returns a unit previously returned by Alloc to the free list. size
// must equal the unrounded unit size the pool was created with. Free does
// not check that addr was ever actually handed out by Alloc — the client is
// the authority on that, exactly as for the original's PoolFree — so
// freeing a bogus or double-freed address corrupts the free list instead of
// returning an error. linkUnit's panic on an address outside every extent
// is the closest this gets to a safety net.
func (p *Pool) Free(addr uintptr, size uintptr) error {
	if addr == 0 {
		panic("mfs: Free address must not be zero")
	}
	if size != p.unroundedUnitSize {
		panic("mfs: Free size does not match the pool's unit size")
	}

	p.linkUnit(addr, p.freeList)
	p.freeList = addr
	p.free += p.unitSize
	return nil
}

// ExtentVisitor is called once per extent by FinishExtents.
type ExtentVisitor func(base uintptr, size uintptr)

// FinishExtents detaches every extent the pool owns and calls visitor once
// for each, in the order they were created. The pool itself is left with
// an empty ring and should not be used again afterward.
func (p *Pool) FinishExtents(visitor ExtentVisitor) {
	for _, node := range p.ring.detachAll() {
		visitor(node.base, uintptr(len(node.mem)))
	}
}

// Finish tears the pool down completely, returning every extent to the
// arena.
func (p *Pool) Finish() {
	p.FinishExtents(func(base uintptr, size uintptr) {
		if err := p.arena.Free(base, p); err != nil {
			p.warnThrottled("arena free failed", "base", base, "error", err)
		}
	})
}

// TotalSize returns the bytes available for units across every extent the
// pool has been given, excluding each extent's ring header.
func (p *Pool) TotalSize() uintptr { return p.total }

// FreeSize returns how much of that memory is presently unused.
func (p *Pool) FreeSize() uintptr { return p.free }

// Describe writes a human-readable dump of the pool's fields to w, one per
// line, indented by depth — the same convention as refset.RefSet.Describe
// and refset.Era.Describe.
func (p *Pool) Describe(w io.Writer, depth int) error {
	pad := strings.Repeat(" ", depth)
	_, err := fmt.Fprintf(w, "%sPool {\n%s  unroundedUnitSize = %d\n%s  unitSize = %d\n%s  extendBy = %d\n%s  extendSelf = %v\n%s  total = %d\n%s  free = %d\n%s}\n",
		pad, pad, p.unroundedUnitSize, pad, p.unitSize, pad, p.extendBy, pad, p.extendSelf, pad, p.total, pad, p.free, pad)
	return err
}
