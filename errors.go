package corealloc

import (
	"errors"

	"github.com/giantswarm/corealloc/internal/core"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrNoGroupAvailable is returned by AllocateCore when every group is
	// claimed or poisoned.
	ErrNoGroupAvailable = core.ErrNoGroupAvailable

	// ErrIndexOutOfRange is returned by CoreGroup.BindNth for a position
	// outside the lease.
	ErrIndexOutOfRange = core.ErrIndexOutOfRange

	// ErrAlreadyBound is returned when the target core is already bound or
	// reserved through another lease.
	ErrAlreadyBound = core.ErrAlreadyBound

	// ErrPoisoned is returned when binding or reserving a core whose previous
	// holder failed while holding it.
	ErrPoisoned = core.ErrPoisoned

	// ErrTopologyInvariant is returned by hierarchical construction when the
	// topology does not split into the expected groups.
	ErrTopologyInvariant = core.ErrTopologyInvariant

	// ErrLeaseReleased is returned when a lease or reservation is used after
	// release.
	ErrLeaseReleased = core.ErrLeaseReleased

	// ErrWrongThread is returned by Cleanup.Release when called from an OS
	// thread other than the one that bound the core.
	ErrWrongThread = core.ErrWrongThread
)

// ErrUnsupported is returned by bindings on platforms without a thread
// affinity primitive. It is errors.ErrUnsupported.
var ErrUnsupported = errors.ErrUnsupported
