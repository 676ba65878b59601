package corealloc

import (
	"log/slog"

	"github.com/giantswarm/corealloc/internal/core"
	"k8s.io/utils/cpuset"
)

// Config describes how an Allocator partitions cores. The zero value selects
// StrategyNone. Only the fields of the selected Strategy are consulted:
//
//   - StrategySequential: RangeStart, RangeEnd and Width.
//   - StrategyHierarchical: Level, Packages and SysfsRoot.
//
// Config is a type alias so that Validate is part of the public API.
type Config = core.Config

// allocatorConfig holds the collaborators set through Option values. The
// partitioning itself lives in Config.
type allocatorConfig struct {
	logger   *slog.Logger
	affinity core.ThreadAffinity
	provider TopologyProvider
	filter   *cpuset.CPUSet
}

// registryParams returns the core registry collaborators, leaving nil fields
// to core's defaults.
func (c allocatorConfig) registryParams() core.RegistryParams {
	return core.RegistryParams{
		Affinity: c.affinity,
		Logger:   c.logger,
	}
}

func applyOptions(opts []Option) allocatorConfig {
	var cfg allocatorConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
