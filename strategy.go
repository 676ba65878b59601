package corealloc

import "github.com/giantswarm/corealloc/internal/core"

// Strategy selects how an Allocator partitions cores into groups.
//
// Strategy is a type alias (not a named type) so that the underlying
// [core.Strategy] methods are part of the public API:
//
//   - IsValid reports whether the value is a recognized strategy.
//   - String returns the strategy name (implements [fmt.Stringer]).
//
// Audit: new methods added to core.Strategy automatically become part of the
// public API through this alias.
type Strategy = core.Strategy

const (
	// StrategyNone dedicates no cores. AllocateCore always succeeds and the
	// returned lease binds without touching thread affinity.
	StrategyNone = core.StrategyNone

	// StrategySequential slices a contiguous core range into fixed-width
	// groups, in range order.
	StrategySequential = core.StrategySequential

	// StrategyHierarchical derives groups from the hardware topology at a
	// chosen Level.
	StrategyHierarchical = core.StrategyHierarchical
)

// ParseStrategy converts a strategy name ("none", "sequential",
// "hierarchical") into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	return core.ParseStrategy(s)
}
