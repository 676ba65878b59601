package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giantswarm/corealloc/internal/topology"
)

// Strategy selects how cores are partitioned into allocatable groups.
type Strategy int

const (
	// StrategyNone dedicates no cores. Every allocation succeeds and yields
	// a lease whose bindings leave thread affinity untouched. This is the
	// default strategy.
	StrategyNone Strategy = iota

	// StrategySequential slices a contiguous core range into fixed-width
	// groups.
	StrategySequential

	// StrategyHierarchical derives one group per hardware topology unit at
	// a chosen level, splitting last-level caches into physical and
	// hyperthread halves.
	StrategyHierarchical
)

// IsValid reports whether s is a recognized Strategy value.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyNone, StrategySequential, StrategyHierarchical:
		return true
	default:
		return false
	}
}

// String returns the lower-case name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategySequential:
		return "sequential"
	case StrategyHierarchical:
		return "hierarchical"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a name as printed by String back into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return StrategyNone, nil
	case "sequential", "seq":
		return StrategySequential, nil
	case "hierarchical", "topology":
		return StrategyHierarchical, nil
	default:
		return 0, fmt.Errorf("unknown allocation strategy %q", s)
	}
}

// Config describes how an allocator partitions cores. Only the fields of the
// selected Strategy are consulted.
type Config struct {
	Strategy Strategy

	// RangeStart and RangeEnd bound the half-open core range sliced by
	// StrategySequential.
	RangeStart int
	RangeEnd   int
	// Width is the number of cores per sequential group.
	Width int

	// Level is the topology granularity used by StrategyHierarchical.
	Level topology.Level
	// Packages restricts hierarchical groups to these package positions.
	// Empty means every package.
	Packages []int
	// SysfsRoot is the sysfs mount read for topology when no provider is
	// supplied. Empty means topology.DefaultSysfsRoot.
	SysfsRoot string
}

// Validate checks the Config invariants of the selected strategy and
// returns an error describing every violation found, joined with
// errors.Join.
func (c Config) Validate() error {
	var errs []error

	switch c.Strategy {
	case StrategyNone:
	case StrategySequential:
		if c.Width <= 0 {
			errs = append(errs, fmt.Errorf("group width must be greater than 0, got %d", c.Width))
		}
		if c.RangeStart < 0 {
			errs = append(errs, fmt.Errorf("range start must not be negative, got %d", c.RangeStart))
		}
		if c.RangeEnd <= c.RangeStart {
			errs = append(errs, fmt.Errorf("range end must be greater than start %d, got %d", c.RangeStart, c.RangeEnd))
		}
	case StrategyHierarchical:
		if !c.Level.IsValid() {
			errs = append(errs, fmt.Errorf("invalid topology level: %v", c.Level))
		}
		seen := make(map[int]struct{}, len(c.Packages))
		for _, p := range c.Packages {
			if p < 0 {
				errs = append(errs, fmt.Errorf("package index must not be negative, got %d", p))
				continue
			}
			if _, dup := seen[p]; dup {
				errs = append(errs, fmt.Errorf("package %d listed twice", p))
			}
			seen[p] = struct{}{}
		}
	default:
		errs = append(errs, fmt.Errorf("invalid allocation strategy: %v", c.Strategy))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
