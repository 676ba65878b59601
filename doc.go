// Package corealloc hands out exclusive groups of CPU cores to callers that
// need dedicated hardware, such as latency-sensitive worker threads, and pins
// OS threads to those cores for the duration of a scope.
//
// An Allocator partitions cores into groups once, at construction time, using
// one of three strategies: no dedicated cores, fixed-width slices of a core
// range, or groups derived from the machine's cache and package hierarchy.
// AllocateCore never blocks: it returns a lease over the first free group or
// ErrNoGroupAvailable.
//
// # Basic Usage
//
//	alloc, err := corealloc.NewSequential(0, 8, 2)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	lease, err := alloc.AllocateCore()
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, corealloc.ErrNoGroupAvailable)
//	}
//	defer lease.Release()
//
//	cleanup, err := lease.BindNth(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cleanup.Release() // restores the thread's previous affinity
//
// # Thread Binding
//
// BindNth locks the calling goroutine to its OS thread before changing the
// thread's affinity, and the returned Cleanup unlocks it again. A Cleanup must
// be released on the goroutine that created it; releasing it anywhere else
// returns ErrWrongThread and poisons the core. Call Cleanup.Detach to keep the
// binding past the current scope.
//
// # Long-Lived Workers
//
// CoreGroup.Reserve converts a lease into one Reservation per core that can be
// handed to other goroutines. RunPinned does this for the common case of one
// worker per core:
//
//	err := corealloc.RunPinned(ctx, lease, func(ctx context.Context, core corealloc.CoreIndex) error {
//	    // runs on an OS thread pinned to core
//	    return nil
//	})
//
// # Topology
//
// NewHierarchical reads the machine layout from sysfs by default. At
// LevelL3Cache every cache yields two groups: the first hardware thread of
// each core sharing the cache, and the second. Machines whose caches do not
// hold exactly two threads per core fail construction with
// ErrTopologyInvariant.
package corealloc
