package corealloc

// OptionsSnapshot reports which collaborators a set of options configured.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type OptionsSnapshot struct {
	HasLogger   bool
	HasAffinity bool
	HasTopology bool
	Filter      string
}

// ApplyOptionsForTesting applies opts to an empty allocator config and
// returns a snapshot of the result.
func ApplyOptionsForTesting(opts ...Option) OptionsSnapshot {
	cfg := applyOptions(opts)
	snap := OptionsSnapshot{
		HasLogger:   cfg.logger != nil,
		HasAffinity: cfg.affinity != nil,
		HasTopology: cfg.provider != nil,
	}
	if cfg.filter != nil {
		snap.Filter = cfg.filter.String()
	}
	return snap
}
