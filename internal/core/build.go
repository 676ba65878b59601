package core

import (
	"errors"
	"fmt"

	"github.com/giantswarm/corealloc/internal/topology"
	"k8s.io/utils/cpuset"
)

// Sequential slices the half-open core range [start, end) into contiguous
// groups of width cores, in range order. A trailing remainder narrower than
// width is dropped.
func Sequential(start, end, width int) ([][]CoreIndex, error) {
	var errs []error
	if width <= 0 {
		errs = append(errs, fmt.Errorf("group width must be greater than 0, got %d", width))
	}
	if start < 0 {
		errs = append(errs, fmt.Errorf("range start must not be negative, got %d", start))
	}
	if end < start {
		errs = append(errs, fmt.Errorf("range end %d is before start %d", end, start))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	n := (end - start) / width
	if n == 0 {
		return nil, fmt.Errorf("range [%d, %d) holds no group of width %d", start, end, width)
	}

	groups := make([][]CoreIndex, n)
	for i := range groups {
		g := make([]CoreIndex, width)
		for j := range g {
			g[j] = CoreIndex(start + i*width + j)
		}
		groups[i] = g
	}
	return groups, nil
}

// Hierarchical builds one group per topology unit at level, keeping only
// cpus of the packages listed in packages (positions as returned by
// Provider.Packages). An empty packages list keeps every package.
//
// At LevelL3Cache each cache unit yields two groups instead of one: the
// first cpu of every child core forms the physical group and the second
// forms the hyperthread group. A child with other than two cpus, or a unit
// whose children do not cover exactly its cpus, fails construction with
// ErrTopologyInvariant. The check runs on every unit before the package
// restriction is applied.
func Hierarchical(p topology.Provider, level topology.Level, packages []int) ([][]CoreIndex, error) {
	if !level.IsValid() {
		return nil, fmt.Errorf("invalid topology level %v", level)
	}

	allowed, err := allowedCPUs(p, packages)
	if err != nil {
		return nil, err
	}

	units, err := p.Units(level)
	if err != nil {
		return nil, fmt.Errorf("query %s units: %w", level, err)
	}

	var groups [][]CoreIndex
	for ui, u := range units {
		if level == topology.LevelL3Cache {
			phys, hyper, err := splitSiblings(u, allowed)
			if err != nil {
				return nil, fmt.Errorf("%s unit %d (%s): %w", level, ui, u.CPUs.String(), err)
			}
			groups = appendGroup(groups, phys)
			groups = appendGroup(groups, hyper)
			continue
		}
		groups = appendGroup(groups, restrict(u.CPUs, allowed))
	}

	if len(groups) == 0 {
		return nil, fmt.Errorf("no %s units with cpus in packages %v", level, packages)
	}
	return groups, nil
}

// allowedCPUs returns the cpus of the listed package positions, or nil for
// an empty list.
func allowedCPUs(p topology.Provider, packages []int) (*cpuset.CPUSet, error) {
	if len(packages) == 0 {
		return nil, nil
	}
	pkgs, err := p.Packages()
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	acc := cpuset.New()
	for _, idx := range packages {
		if idx < 0 || idx >= len(pkgs) {
			return nil, fmt.Errorf("package %d not present, machine has %d", idx, len(pkgs))
		}
		acc = acc.Union(pkgs[idx])
	}
	return &acc, nil
}

func restrict(cpus cpuset.CPUSet, allowed *cpuset.CPUSet) cpuset.CPUSet {
	if allowed == nil {
		return cpus
	}
	return cpus.Intersection(*allowed)
}

// splitSiblings sorts the first and second cpu of each child core into the
// physical and hyperthread sets. Every child must hold exactly two cpus and
// the children must cover the unit, whether or not the unit lies in an
// allowed package; only then are the halves restricted to allowed.
func splitSiblings(u topology.Unit, allowed *cpuset.CPUSet) (phys, hyper cpuset.CPUSet, err error) {
	covered := cpuset.New()
	var p, h []int
	for _, child := range u.Children {
		cpus := child.List()
		if len(cpus) != 2 {
			return cpuset.New(), cpuset.New(), fmt.Errorf("core %s has %d cpus, want 2: %w", child.String(), len(cpus), ErrTopologyInvariant)
		}
		covered = covered.Union(child)
		p = append(p, cpus[0])
		h = append(h, cpus[1])
	}
	if !covered.Equals(u.CPUs) {
		return cpuset.New(), cpuset.New(), fmt.Errorf("cores cover %q of cpus %q: %w", covered.String(), u.CPUs.String(), ErrTopologyInvariant)
	}
	return restrict(cpuset.New(p...), allowed), restrict(cpuset.New(h...), allowed), nil
}

func appendGroup(groups [][]CoreIndex, cpus cpuset.CPUSet) [][]CoreIndex {
	if cpus.IsEmpty() {
		return groups
	}
	ids := cpus.List()
	g := make([]CoreIndex, len(ids))
	for i, id := range ids {
		g[i] = CoreIndex(id)
	}
	return append(groups, g)
}
