package corealloc

import "github.com/giantswarm/corealloc/internal/topology"

// Level is a granularity of the hardware hierarchy used by
// StrategyHierarchical.
type Level = topology.Level

const (
	// LevelCore yields one group per physical core (its hardware threads).
	LevelCore = topology.LevelCore
	// LevelL2Cache yields one group per L2 cache.
	LevelL2Cache = topology.LevelL2Cache
	// LevelL3Cache yields two groups per last-level cache: physical threads
	// and hyperthreads.
	LevelL3Cache = topology.LevelL3Cache
	// LevelNUMANode yields one group per NUMA node.
	LevelNUMANode = topology.LevelNUMANode
	// LevelPackage yields one group per physical package.
	LevelPackage = topology.LevelPackage
)

// TopologyProvider reports the hardware hierarchy. Pass one to WithTopology
// to replace sysfs discovery.
type TopologyProvider = topology.Provider

// TopologyUnit is one object of the hierarchy at a given level.
type TopologyUnit = topology.Unit

// StaticTopology is a TopologyProvider over a fixed description.
type StaticTopology = topology.Static

// ParseLevel converts a level name ("core", "l2", "l3", "numa", "package")
// into a Level.
func ParseLevel(s string) (Level, error) {
	return topology.ParseLevel(s)
}
