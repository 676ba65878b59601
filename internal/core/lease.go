package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/giantswarm/corealloc/internal/affinity"
)

// CoreGroup is the lease returned by a successful allocation.
//
// A lease has two variants. The no-dedicated-cores variant (NewAnyCore) is
// used when no core isolation is configured: binding is a no-op that returns
// an inert Cleanup. The claimed variant holds the group claim and exposes the
// group's cores; while it is alive the group is excluded from allocation.
//
// Release, or Reserve followed by releasing every Reservation, returns the
// group to the registry. A lease is meant to be driven by one owner; its
// methods are safe to call concurrently but BindNth racing Release on the
// same lease may observe either order.
type CoreGroup struct {
	group    *ManagedGroup // nil for the no-dedicated-cores variant
	claim    *Handle
	released atomic.Bool
	affinity ThreadAffinity
	log      *slog.Logger
}

// NewAnyCore returns a no-dedicated-cores lease.
func NewAnyCore() *CoreGroup {
	return &CoreGroup{affinity: affinity.OS{}, log: Logger()}
}

func newLease(g *ManagedGroup, claim *Handle, aff ThreadAffinity, log *slog.Logger) *CoreGroup {
	return &CoreGroup{group: g, claim: claim, affinity: aff, log: log}
}

// IsAnyCore reports whether the lease is the no-dedicated-cores variant.
func (g *CoreGroup) IsAnyCore() bool {
	return g.group == nil
}

// Cores returns the lease's core ids in group order, or nil for the
// no-dedicated-cores variant.
func (g *CoreGroup) Cores() []CoreIndex {
	if g.IsAnyCore() {
		return nil
	}
	return g.group.Indices()
}

// Len returns the number of cores in the lease.
func (g *CoreGroup) Len() int {
	if g.IsAnyCore() {
		return 0
	}
	return len(g.group.cores)
}

// BindNth claims the occupancy of the i-th core of the lease and pins the
// calling goroutine's OS thread to it. The goroutine is locked to its thread
// until the returned Cleanup is released on that same goroutine.
//
// Returns ErrIndexOutOfRange when i is not a position in the lease,
// ErrAlreadyBound when the core is bound or reserved elsewhere, ErrPoisoned
// when the core was poisoned and ErrLeaseReleased after Release or Reserve.
// No affinity change happens on error.
//
// For the no-dedicated-cores variant BindNth returns an inert Cleanup.
func (g *CoreGroup) BindNth(i int) (*Cleanup, error) {
	if g.IsAnyCore() {
		return inertCleanup(), nil
	}
	if g.released.Load() {
		return nil, ErrLeaseReleased
	}
	if i < 0 || i >= len(g.group.cores) {
		return nil, fmt.Errorf("bind position %d of %d-core group %v: %w", i, len(g.group.cores), g.Cores(), ErrIndexOutOfRange)
	}

	core := g.group.cores[i]
	occ, err := core.occupancy.TryClaim()
	if err != nil {
		return nil, occupancyError(core.Index, err)
	}

	c, err := bind(core.Index, occ, nil, g.affinity, g.log)
	if err != nil {
		occ.Release()
		return nil, err
	}
	return c, nil
}

// Reserve converts the lease into one Reservation per core, claiming every
// core's occupancy. Affinity is not changed. The lease is consumed: later
// BindNth, Reserve and Release calls on it have no effect or fail with
// ErrLeaseReleased. The group claim is released once every Reservation has
// been released or poisoned.
//
// Reserve is all-or-nothing. If any core is already occupied, occupancy
// claimed so far is released and the error is returned with the lease
// still intact.
//
// For the no-dedicated-cores variant Reserve returns no reservations.
func (g *CoreGroup) Reserve() ([]*Reservation, error) {
	if g.IsAnyCore() {
		return nil, nil
	}
	if g.released.Load() {
		return nil, ErrLeaseReleased
	}

	handles := make([]*Handle, 0, len(g.group.cores))
	rollback := func() {
		for _, h := range handles {
			h.Release()
		}
	}
	for _, core := range g.group.cores {
		h, err := core.occupancy.TryClaim()
		if err != nil {
			rollback()
			return nil, fmt.Errorf("reserve group %v: %w", g.Cores(), occupancyError(core.Index, err))
		}
		handles = append(handles, h)
	}

	if !g.released.CompareAndSwap(false, true) {
		rollback()
		return nil, ErrLeaseReleased
	}

	shared := &groupClaim{claim: g.claim}
	shared.remaining.Store(int64(len(handles)))

	out := make([]*Reservation, len(handles))
	for i, h := range handles {
		out[i] = &Reservation{
			core:      g.group.cores[i].Index,
			occupancy: h,
			group:     shared,
			affinity:  g.affinity,
			log:       g.log,
		}
	}
	return out, nil
}

// Release returns the group to the registry. Cores still bound through
// Cleanups obtained from this lease stay occupied until those Cleanups are
// released. Release is idempotent and a no-op after Reserve.
func (g *CoreGroup) Release() {
	if g.IsAnyCore() {
		return
	}
	if g.released.CompareAndSwap(false, true) {
		g.claim.Release()
	}
}

// String renders the lease for diagnostics.
func (g *CoreGroup) String() string {
	if g.IsAnyCore() {
		return "CoreGroup(any)"
	}
	ids := make([]string, 0, len(g.group.cores))
	for _, c := range g.group.cores {
		ids = append(ids, fmt.Sprint(int(c.Index)))
	}
	return "CoreGroup[" + strings.Join(ids, " ") + "]"
}

// groupClaim releases a group claim shared by the reservations of one lease
// once each of them has finished.
type groupClaim struct {
	claim     *Handle
	remaining atomic.Int64
}

func (s *groupClaim) finish() {
	if s.remaining.Add(-1) == 0 {
		s.claim.Release()
	}
}

// occupancyError maps a failed occupancy claim on core to the lease error.
func occupancyError(core CoreIndex, err error) error {
	if errors.Is(err, ErrWouldBlock) {
		return fmt.Errorf("core %d: %w", core, ErrAlreadyBound)
	}
	return fmt.Errorf("core %d: %w", core, err)
}
