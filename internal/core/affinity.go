package core

import (
	"github.com/giantswarm/corealloc/internal/affinity"
	"k8s.io/utils/cpuset"
)

// ThreadAffinity reads and sets the CPU affinity of the calling OS thread.
// The default implementation is affinity.OS; tests substitute a fake.
//
// Implementations must be safe for concurrent use: every method acts on the
// calling thread only.
type ThreadAffinity interface {
	// Get returns the calling thread's current affinity mask.
	Get() (cpuset.CPUSet, error)
	// Set restricts the calling thread to cpus.
	Set(cpus cpuset.CPUSet) error
	// ThreadID identifies the calling OS thread.
	ThreadID() int
}

// Compile-time interface satisfaction check.
var _ ThreadAffinity = affinity.OS{}
