package affinity

import (
	"errors"

	"k8s.io/utils/cpuset"
)

// ErrEmptyMask is returned by Set when asked to apply a mask without cpus.
var ErrEmptyMask = errors.New("affinity mask must contain at least one cpu")

// OS controls the affinity of the calling OS thread through the operating
// system. The zero value is ready to use.
type OS struct{}

// Get returns the affinity mask of the calling thread.
func (OS) Get() (cpuset.CPUSet, error) {
	return get()
}

// Set restricts the calling thread to cpus.
func (OS) Set(cpus cpuset.CPUSet) error {
	if cpus.IsEmpty() {
		return ErrEmptyMask
	}
	return set(cpus)
}

// ThreadID returns the kernel id of the calling thread, or -1 where the
// platform does not expose one.
func (OS) ThreadID() int {
	return threadID()
}
