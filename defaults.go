package corealloc

import "github.com/giantswarm/corealloc/internal/topology"

// Default configuration values for New.
const (
	// DefaultStrategy is the strategy of a zero Config: no dedicated cores.
	DefaultStrategy = StrategyNone

	// DefaultLevel is the topology level used by the corealloc command when
	// none is given. Last-level cache groups keep workers that share data on
	// one cache.
	DefaultLevel = LevelL3Cache

	// DefaultSysfsRoot is the sysfs mount read for topology discovery.
	DefaultSysfsRoot = topology.DefaultSysfsRoot
)

// DefaultConfig returns the Config of a zero-option allocator: no dedicated
// cores, with the hierarchical fields preset to DefaultLevel and
// DefaultSysfsRoot so that switching Strategy alone is enough.
func DefaultConfig() Config {
	return Config{
		Strategy:  DefaultStrategy,
		Level:     DefaultLevel,
		SysfsRoot: DefaultSysfsRoot,
	}
}
