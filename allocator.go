package corealloc

import (
	"fmt"

	"github.com/giantswarm/corealloc/internal/core"
	"github.com/giantswarm/corealloc/internal/topology"
)

// CoreIndex identifies one logical core.
type CoreIndex = core.CoreIndex

// AnyCore is the core reported for bindings of a StrategyNone lease.
const AnyCore = core.AnyCore

// CoreGroup is a lease over one allocated group. Release it, or Reserve it
// and release every Reservation, to make the group allocatable again.
type CoreGroup = core.CoreGroup

// Cleanup restores a thread's affinity when released. It must be released on
// the goroutine that performed the bind.
type Cleanup = core.Cleanup

// Reservation is a detached, thread-independent claim on one core.
type Reservation = core.Reservation

// Allocator hands out core group leases. It is one of a closed set of
// strategies, fixed at construction.
//
// AllocateCore is safe for concurrent use. FilterGroup must only be called
// during setup, before the Allocator is shared.
type Allocator struct {
	strategy Strategy
	registry *core.Registry // nil for StrategyNone
}

// NewNone returns an Allocator that dedicates no cores.
func NewNone() *Allocator {
	return &Allocator{strategy: StrategyNone}
}

// NewSequential returns an Allocator over the half-open core range
// [start, end) sliced into groups of width cores. A trailing remainder
// narrower than width is not allocated.
func NewSequential(start, end, width int, opts ...Option) (*Allocator, error) {
	return New(Config{
		Strategy:   StrategySequential,
		RangeStart: start,
		RangeEnd:   end,
		Width:      width,
	}, opts...)
}

// NewHierarchical returns an Allocator with one group per topology unit at
// level, restricted to the listed package positions (all packages when
// empty). The topology is read from sysfs unless WithTopology is given.
func NewHierarchical(level Level, packages []int, opts ...Option) (*Allocator, error) {
	return New(Config{
		Strategy: StrategyHierarchical,
		Level:    level,
		Packages: packages,
	}, opts...)
}

// New builds an Allocator from cfg. The group partition is computed once and
// never changes afterwards, apart from FilterGroup.
func New(cfg Config, opts ...Option) (*Allocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid allocator config: %w", err)
	}
	o := applyOptions(opts)

	if cfg.Strategy == StrategyNone {
		return NewNone(), nil
	}

	groups, err := buildGroups(cfg, o)
	if err != nil {
		return nil, err
	}

	reg, err := core.NewRegistry(groups, o.registryParams())
	if err != nil {
		return nil, fmt.Errorf("build core registry: %w", err)
	}

	if o.filter != nil {
		filter := *o.filter
		reg.FilterGroups(func(c core.CoreIndex) bool { return filter.Contains(int(c)) })
		if reg.Len() == 0 {
			return nil, fmt.Errorf("cpu filter %s removed every %s core group", filter.String(), cfg.Strategy)
		}
	}

	return &Allocator{strategy: cfg.Strategy, registry: reg}, nil
}

func buildGroups(cfg Config, o allocatorConfig) ([][]CoreIndex, error) {
	switch cfg.Strategy {
	case StrategySequential:
		groups, err := core.Sequential(cfg.RangeStart, cfg.RangeEnd, cfg.Width)
		if err != nil {
			return nil, fmt.Errorf("sequential core groups: %w", err)
		}
		return groups, nil
	case StrategyHierarchical:
		p := o.provider
		if p == nil {
			p = topology.NewSysfs(cfg.SysfsRoot)
		}
		groups, err := core.Hierarchical(p, cfg.Level, cfg.Packages)
		if err != nil {
			return nil, fmt.Errorf("hierarchical core groups: %w", err)
		}
		return groups, nil
	default:
		return nil, fmt.Errorf("invalid allocation strategy: %v", cfg.Strategy)
	}
}

// Strategy returns the strategy the Allocator was built with.
func (a *Allocator) Strategy() Strategy {
	return a.strategy
}

// AllocateCore claims the first free group and returns a lease over it.
// It never blocks; ErrNoGroupAvailable means every group is currently
// claimed. Callers that want to wait must retry.
//
// Under StrategyNone it always succeeds with a lease whose bindings leave
// affinity untouched.
func (a *Allocator) AllocateCore() (*CoreGroup, error) {
	if a.registry == nil {
		return core.NewAnyCore(), nil
	}
	return a.registry.Allocate()
}

// FilterGroup removes every group containing a core for which keep returns
// false. It is a setup-time operation and must not run concurrently with
// AllocateCore. No-op under StrategyNone.
func (a *Allocator) FilterGroup(keep func(CoreIndex) bool) {
	if a.registry == nil {
		return
	}
	a.registry.FilterGroups(keep)
}

// Groups returns the candidate groups in allocation order, or nil under
// StrategyNone.
func (a *Allocator) Groups() [][]CoreIndex {
	if a.registry == nil {
		return nil
	}
	return a.registry.Groups()
}
