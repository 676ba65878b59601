//go:build linux

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"
	"k8s.io/utils/cpuset"
)

// maxCPUs is CPU_SETSIZE, the capacity of unix.CPUSet.
const maxCPUs = 1024

func get() (cpuset.CPUSet, error) {
	var mask unix.CPUSet
	if err := unix.SchedGetaffinity(0, &mask); err != nil {
		return cpuset.New(), fmt.Errorf("sched_getaffinity: %w", err)
	}
	return fromUnix(&mask), nil
}

func set(cpus cpuset.CPUSet) error {
	mask, err := toUnix(cpus)
	if err != nil {
		return err
	}
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return fmt.Errorf("sched_setaffinity %s: %w", cpus, err)
	}
	return nil
}

func threadID() int {
	return unix.Gettid()
}

func fromUnix(mask *unix.CPUSet) cpuset.CPUSet {
	cpus := make([]int, 0, mask.Count())
	for cpu := range maxCPUs {
		if mask.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpuset.New(cpus...)
}

func toUnix(cpus cpuset.CPUSet) (unix.CPUSet, error) {
	var mask unix.CPUSet
	mask.Zero()
	for _, cpu := range cpus.List() {
		if cpu < 0 || cpu >= maxCPUs {
			return mask, fmt.Errorf("cpu %d outside affinity mask range [0, %d)", cpu, maxCPUs)
		}
		mask.Set(cpu)
	}
	return mask, nil
}
