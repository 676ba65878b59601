package topology

import (
	"fmt"
	"strings"

	"k8s.io/utils/cpuset"
)

// Level is a granularity of hardware grouping.
type Level int

const (
	// LevelCore groups the hardware threads of one physical core.
	LevelCore Level = iota
	// LevelL2Cache groups the cpus sharing one L2 cache.
	LevelL2Cache
	// LevelL3Cache groups the cpus sharing one L3 (last-level) cache.
	LevelL3Cache
	// LevelNUMANode groups the cpus of one NUMA node.
	LevelNUMANode
	// LevelPackage groups the cpus of one physical package (socket).
	LevelPackage
)

// IsValid reports whether l is a recognized Level value.
func (l Level) IsValid() bool {
	switch l {
	case LevelCore, LevelL2Cache, LevelL3Cache, LevelNUMANode, LevelPackage:
		return true
	default:
		return false
	}
}

// String returns the lower-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelCore:
		return "core"
	case LevelL2Cache:
		return "l2"
	case LevelL3Cache:
		return "l3"
	case LevelNUMANode:
		return "numa"
	case LevelPackage:
		return "package"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts a level name as printed by String back into a Level.
// Matching is case-insensitive; "llc" is accepted as an alias for "l3".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "core":
		return LevelCore, nil
	case "l2":
		return LevelL2Cache, nil
	case "l3", "llc":
		return LevelL3Cache, nil
	case "numa":
		return LevelNUMANode, nil
	case "package", "socket":
		return LevelPackage, nil
	default:
		return 0, fmt.Errorf("unknown topology level %q", s)
	}
}

// Unit is one object of the hierarchy at a given level.
type Unit struct {
	// CPUs is every logical cpu contained in the unit.
	CPUs cpuset.CPUSet
	// Children holds the cpu set of each object one level below the unit,
	// ordered by lowest cpu id. For cache levels the children are the
	// physical cores sharing the cache.
	Children []cpuset.CPUSet
}

// Provider yields the partition of cpus into units for a level.
//
// Implementations must return units ordered by lowest cpu id so that group
// construction, and therefore allocation order, is reproducible.
type Provider interface {
	// Units returns every unit at the given level.
	Units(level Level) ([]Unit, error)
	// Packages returns the cpu set of each physical package, indexed by
	// package position (not by the firmware package id).
	Packages() ([]cpuset.CPUSet, error)
}

// Static is a Provider over a fixed description of the hierarchy. It backs
// tests and callers that already know their layout.
type Static struct {
	Levels      map[Level][]Unit
	PackageCPUs []cpuset.CPUSet
}

// Compile-time interface satisfaction check.
var _ Provider = (*Static)(nil)

// Units returns the units recorded for level.
func (s *Static) Units(level Level) ([]Unit, error) {
	units, ok := s.Levels[level]
	if !ok {
		return nil, fmt.Errorf("level %s not described", level)
	}
	return units, nil
}

// Packages returns the recorded package cpu sets.
func (s *Static) Packages() ([]cpuset.CPUSet, error) {
	return s.PackageCPUs, nil
}
