package corealloc

import (
	"log/slog"

	"github.com/giantswarm/corealloc/internal/core"
	"k8s.io/utils/cpuset"
)

// ThreadAffinity reads and sets the CPU affinity of the calling OS thread.
// The default implementation issues sched_getaffinity and sched_setaffinity
// for the calling thread.
type ThreadAffinity = core.ThreadAffinity

// Option configures an Allocator during construction.
//
// The With* functions panic on invalid input (nil collaborators, empty cpu
// sets). Option values are built during initialization, so an invalid value
// is a programmer error.
type Option func(*allocatorConfig)

// WithLogger sets the logger for one Allocator and the leases it hands out.
// Default: the package-level logger (see SetLogger).
//
// Panics if l is nil.
func WithLogger(l *slog.Logger) Option {
	if l == nil {
		panic("corealloc: logger must not be nil")
	}
	return func(c *allocatorConfig) {
		c.logger = l
	}
}

// WithAffinity replaces the OS affinity primitive. Tests use it to observe
// bindings without changing real thread masks.
//
// Panics if a is nil.
func WithAffinity(a ThreadAffinity) Option {
	if a == nil {
		panic("corealloc: thread affinity must not be nil")
	}
	return func(c *allocatorConfig) {
		c.affinity = a
	}
}

// WithTopology replaces sysfs discovery for StrategyHierarchical.
// Ignored by the other strategies.
//
// Panics if p is nil.
func WithTopology(p TopologyProvider) Option {
	if p == nil {
		panic("corealloc: topology provider must not be nil")
	}
	return func(c *allocatorConfig) {
		c.provider = p
	}
}

// WithCPUFilter keeps only the groups whose cores all lie in cpus. It is
// applied once, right after the groups are built, and construction fails if
// no group survives. Ignored by StrategyNone.
//
// Panics if cpus is empty.
func WithCPUFilter(cpus cpuset.CPUSet) Option {
	if cpus.IsEmpty() {
		panic("corealloc: cpu filter must not be empty")
	}
	return func(c *allocatorConfig) {
		c.filter = &cpus
	}
}
