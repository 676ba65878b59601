// Package core provides the internal implementation of corealloc.
//
// It contains the exclusive-claim primitive (Resource and its Handle), the
// Registry that owns every ManagedGroup and ManagedCore for its lifetime and
// hands out groups with a non-blocking first-free scan, the CoreGroup lease
// returned by a successful allocation, and the thread-bound Cleanup guard
// that restores a thread's CPU affinity when a binding ends.
//
// Two independent exclusivity domains exist. A group claim reserves a group
// for one lease. A core occupancy claim marks one core as bound or reserved,
// whichever lease it was reached through. Both are decided by a single
// compare-and-swap on the owning Resource; there are no locks on the
// allocation path.
package core
