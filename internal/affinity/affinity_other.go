//go:build !linux

package affinity

import (
	"errors"
	"fmt"
	"runtime"

	"k8s.io/utils/cpuset"
)

func get() (cpuset.CPUSet, error) {
	return cpuset.New(), fmt.Errorf("get thread affinity on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}

func set(_ cpuset.CPUSet) error {
	return fmt.Errorf("set thread affinity on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}

func threadID() int {
	return -1
}
