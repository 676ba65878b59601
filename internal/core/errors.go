package core

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable error type backed by a string constant, so sentinel
// errors can be declared as const and still match through wrapped chains
// with errors.Is.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNoGroupAvailable is returned by Registry.Allocate when every
	// candidate group is currently claimed or poisoned.
	ErrNoGroupAvailable = Error("no core group available")

	// ErrIndexOutOfRange is returned by CoreGroup.BindNth when the requested
	// position does not exist in the lease.
	ErrIndexOutOfRange = Error("core index out of range")

	// ErrAlreadyBound is returned when the occupancy claim of the target core
	// is held by another binding or reservation.
	ErrAlreadyBound = Error("core already bound")

	// ErrWouldBlock is returned by Resource.TryClaim when the resource is
	// held by another claimant.
	ErrWouldBlock = Error("resource already claimed")

	// ErrPoisoned is returned when a resource was abandoned by a holder whose
	// invariants could not be trusted. A poisoned resource is never claimable
	// again.
	ErrPoisoned = Error("resource poisoned")

	// ErrTopologyInvariant is returned when the topology does not match the
	// partitioning assumption of the requested hierarchy level.
	ErrTopologyInvariant = Error("topology construction invariant violated")

	// ErrLeaseReleased is returned when a lease or reservation is used after
	// it was released or consumed.
	ErrLeaseReleased = Error("lease has been released")

	// ErrWrongThread is returned by Cleanup.Release when called from an OS
	// thread other than the one that performed the bind.
	ErrWrongThread = Error("cleanup released from a different OS thread")
)
