package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/giantswarm/corealloc/internal/affinity"
)

// CoreIndex identifies one logical core.
type CoreIndex int

// AnyCore is the core reported by bindings of a no-dedicated-cores lease.
const AnyCore CoreIndex = -1

// ManagedCore is one core plus its occupancy claim. The occupancy claim is
// held while the core is bound by a Cleanup or reserved by a Reservation.
type ManagedCore struct {
	Index     CoreIndex
	occupancy Resource
}

// IsOccupied reports whether the core is currently bound or reserved.
func (c *ManagedCore) IsOccupied() bool {
	return c.occupancy.IsTaken()
}

// ManagedGroup is a fixed set of cores plus the claim that hands the whole
// set to one lease. Membership never changes after construction.
type ManagedGroup struct {
	cores []*ManagedCore
	claim Resource
}

// Indices returns the group's core ids in construction order.
func (g *ManagedGroup) Indices() []CoreIndex {
	out := make([]CoreIndex, len(g.cores))
	for i, c := range g.cores {
		out[i] = c.Index
	}
	return out
}

// RegistryParams holds the optional collaborators of a Registry.
type RegistryParams struct {
	// Affinity changes thread affinity on bind. Nil selects affinity.OS.
	Affinity ThreadAffinity
	// Logger receives registry and lease diagnostics. Nil selects Logger().
	Logger *slog.Logger
}

// Registry owns a fixed sequence of core groups and allocates them to
// leases. It is the grouped allocation strategy shared by sequential and
// hierarchical construction.
//
// Allocate is safe for concurrent use by multiple goroutines. FilterGroups
// mutates the candidate set and must only be called during setup, before any
// concurrent Allocate.
type Registry struct {
	groups   []*ManagedGroup
	cores    map[CoreIndex]*ManagedCore
	affinity ThreadAffinity
	log      *slog.Logger
}

// NewRegistry builds a Registry from groups, preserving their order, which is
// also the allocation order. A core listed in several groups is backed by one
// ManagedCore, so its occupancy is shared between those groups.
//
// Returns an error when groups is empty, a group is empty, a core id is
// negative, or a core appears twice in the same group.
func NewRegistry(groups [][]CoreIndex, params RegistryParams) (*Registry, error) {
	if len(groups) == 0 {
		return nil, errors.New("registry needs at least one core group")
	}

	aff := params.Affinity
	if aff == nil {
		aff = affinity.OS{}
	}
	log := params.Logger
	if log == nil {
		log = Logger()
	}

	r := &Registry{
		groups:   make([]*ManagedGroup, 0, len(groups)),
		cores:    make(map[CoreIndex]*ManagedCore),
		affinity: aff,
		log:      log,
	}

	var errs []error
	for gi, group := range groups {
		if len(group) == 0 {
			errs = append(errs, fmt.Errorf("group %d is empty", gi))
			continue
		}
		mg := &ManagedGroup{cores: make([]*ManagedCore, 0, len(group))}
		seen := make(map[CoreIndex]struct{}, len(group))
		for _, idx := range group {
			if idx < 0 {
				errs = append(errs, fmt.Errorf("group %d: negative core id %d", gi, idx))
				continue
			}
			if _, dup := seen[idx]; dup {
				errs = append(errs, fmt.Errorf("group %d: core %d listed twice", gi, idx))
				continue
			}
			seen[idx] = struct{}{}
			mg.cores = append(mg.cores, r.core(idx))
		}
		r.groups = append(r.groups, mg)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r.log.Debug("core registry built", "groups", len(r.groups), "cores", len(r.cores))
	return r, nil
}

// core returns the ManagedCore for idx, creating it on first use.
func (r *Registry) core(idx CoreIndex) *ManagedCore {
	if c, ok := r.cores[idx]; ok {
		return c
	}
	c := &ManagedCore{Index: idx}
	r.cores[idx] = c
	return c
}

// FilterGroups removes every group containing at least one core for which
// keep returns false. Not safe for concurrent use with Allocate.
func (r *Registry) FilterGroups(keep func(CoreIndex) bool) {
	kept := r.groups[:0]
	for _, g := range r.groups {
		if groupKept(g, keep) {
			kept = append(kept, g)
		}
	}
	// Clear the tail so dropped groups are not retained by the backing array.
	for i := len(kept); i < len(r.groups); i++ {
		r.groups[i] = nil
	}
	dropped := len(r.groups) - len(kept)
	r.groups = kept

	if len(kept) == 0 {
		r.log.Warn("core group filter removed every group", "dropped", dropped)
		return
	}
	r.log.Debug("core groups filtered", "kept", len(kept), "dropped", dropped)
}

func groupKept(g *ManagedGroup, keep func(CoreIndex) bool) bool {
	for _, c := range g.cores {
		if !keep(c.Index) {
			return false
		}
	}
	return true
}

// Allocate claims the first free group in construction order and returns a
// lease over it. Returns ErrNoGroupAvailable when every group is claimed or
// poisoned. Allocate never blocks; callers that want to wait must retry.
func (r *Registry) Allocate() (*CoreGroup, error) {
	for _, g := range r.groups {
		h, err := g.claim.TryClaim()
		if err == nil {
			return newLease(g, h, r.affinity, r.log), nil
		}
		if errors.Is(err, ErrPoisoned) {
			r.log.Debug("skipping poisoned core group", "cores", g.Indices())
		}
	}
	return nil, ErrNoGroupAvailable
}

// Groups returns a snapshot of the candidate groups' core ids in allocation
// order.
func (r *Registry) Groups() [][]CoreIndex {
	out := make([][]CoreIndex, len(r.groups))
	for i, g := range r.groups {
		out[i] = g.Indices()
	}
	return out
}

// Len returns the number of candidate groups.
func (r *Registry) Len() int {
	return len(r.groups)
}

// Core returns the ManagedCore for idx, or nil if no group references it.
func (r *Registry) Core(idx CoreIndex) *ManagedCore {
	return r.cores[idx]
}
