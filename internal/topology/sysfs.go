package topology

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"k8s.io/utils/cpuset"
)

// DefaultSysfsRoot is the mount point of sysfs on Linux.
const DefaultSysfsRoot = "/sys"

// Sysfs is a Provider backed by the Linux sysfs cpu and node trees.
// Only online cpus are reported. It is safe for concurrent use; every call
// re-reads the tree.
type Sysfs struct {
	root string
}

// Compile-time interface satisfaction check.
var _ Provider = (*Sysfs)(nil)

// NewSysfs returns a Provider reading sysfs mounted at root. An empty root
// selects DefaultSysfsRoot.
func NewSysfs(root string) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{root: root}
}

func (s *Sysfs) cpuDir() string {
	return filepath.Join(s.root, "devices", "system", "cpu")
}

func (s *Sysfs) nodeDir() string {
	return filepath.Join(s.root, "devices", "system", "node")
}

// Units returns every unit at level. Children are the units one level below:
// single cpus for cores, cores for L2 caches, L2 caches for L3 caches (cores
// when no L2 information exists), L3 caches for NUMA nodes and NUMA nodes for
// packages.
func (s *Sysfs) Units(level Level) ([]Unit, error) {
	if !level.IsValid() {
		return nil, fmt.Errorf("invalid topology level %v", level)
	}
	online, err := s.online()
	if err != nil {
		return nil, err
	}

	sets, err := s.sets(level, online)
	if err != nil {
		return nil, err
	}
	lower, err := s.lower(level, online)
	if err != nil {
		return nil, err
	}

	units := make([]Unit, 0, len(sets))
	for _, set := range sets {
		u := Unit{CPUs: set}
		for _, child := range lower {
			if child.IsSubsetOf(set) {
				u.Children = append(u.Children, child)
			}
		}
		units = append(units, u)
	}
	return units, nil
}

// Packages returns the online cpus of each physical package ordered by
// package id.
func (s *Sysfs) Packages() ([]cpuset.CPUSet, error) {
	online, err := s.online()
	if err != nil {
		return nil, err
	}
	return s.packages(online)
}

func (s *Sysfs) online() (cpuset.CPUSet, error) {
	set, err := readCPUList(filepath.Join(s.cpuDir(), "online"))
	if err != nil {
		return cpuset.New(), fmt.Errorf("read online cpus: %w", err)
	}
	if set.IsEmpty() {
		return cpuset.New(), errors.New("no online cpus reported")
	}
	return set, nil
}

// sets returns the distinct cpu sets at level, restricted to online cpus.
func (s *Sysfs) sets(level Level, online cpuset.CPUSet) ([]cpuset.CPUSet, error) {
	switch level {
	case LevelCore:
		return s.cores(online)
	case LevelL2Cache:
		return s.caches(online, 2)
	case LevelL3Cache:
		return s.caches(online, 3)
	case LevelNUMANode:
		return s.numaNodes(online)
	case LevelPackage:
		return s.packages(online)
	default:
		return nil, fmt.Errorf("invalid topology level %v", level)
	}
}

// lower returns the sets used as children of units at level.
func (s *Sysfs) lower(level Level, online cpuset.CPUSet) ([]cpuset.CPUSet, error) {
	switch level {
	case LevelCore:
		singles := make([]cpuset.CPUSet, 0, online.Size())
		for _, cpu := range online.List() {
			singles = append(singles, cpuset.New(cpu))
		}
		return singles, nil
	case LevelL2Cache:
		return s.cores(online)
	case LevelL3Cache:
		l2, err := s.caches(online, 2)
		if err == nil && len(l2) > 0 {
			return l2, nil
		}
		return s.cores(online)
	case LevelNUMANode:
		l3, err := s.caches(online, 3)
		if err == nil && len(l3) > 0 {
			return l3, nil
		}
		return s.cores(online)
	case LevelPackage:
		return s.numaNodes(online)
	default:
		return nil, fmt.Errorf("invalid topology level %v", level)
	}
}

// cores groups online cpus by their hardware thread siblings.
func (s *Sysfs) cores(online cpuset.CPUSet) ([]cpuset.CPUSet, error) {
	var sets []cpuset.CPUSet
	for _, cpu := range online.List() {
		dir := filepath.Join(s.cpuDir(), "cpu"+strconv.Itoa(cpu), "topology")
		siblings, err := readCPUList(filepath.Join(dir, "core_cpus_list"))
		if errors.Is(err, fs.ErrNotExist) {
			// Kernels before 5.x only provide the older name.
			siblings, err = readCPUList(filepath.Join(dir, "thread_siblings_list"))
		}
		if err != nil {
			return nil, fmt.Errorf("read core siblings of cpu %d: %w", cpu, err)
		}
		sets = append(sets, siblings.Intersection(online))
	}
	return uniqueSets(sets), nil
}

// caches groups online cpus by the data or unified cache at the given level.
func (s *Sysfs) caches(online cpuset.CPUSet, level int) ([]cpuset.CPUSet, error) {
	want := strconv.Itoa(level)
	var sets []cpuset.CPUSet
	for _, cpu := range online.List() {
		cacheDir := filepath.Join(s.cpuDir(), "cpu"+strconv.Itoa(cpu), "cache")
		entries, err := os.ReadDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("read cache info of cpu %d: %w", cpu, err)
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasPrefix(e.Name(), "index") {
				continue
			}
			idx := filepath.Join(cacheDir, e.Name())
			lvl, err := readTrimmed(filepath.Join(idx, "level"))
			if err != nil || lvl != want {
				continue
			}
			if typ, err := readTrimmed(filepath.Join(idx, "type")); err == nil && typ == "Instruction" {
				continue
			}
			shared, err := readCPUList(filepath.Join(idx, "shared_cpu_list"))
			if err != nil {
				return nil, fmt.Errorf("read L%d sharing of cpu %d: %w", level, cpu, err)
			}
			sets = append(sets, shared.Intersection(online))
		}
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no L%d cache information under %s", level, s.cpuDir())
	}
	return uniqueSets(sets), nil
}

// numaNodes returns the online cpus of each NUMA node. Systems without a node
// tree are reported as one node holding every online cpu.
func (s *Sysfs) numaNodes(online cpuset.CPUSet) ([]cpuset.CPUSet, error) {
	entries, err := os.ReadDir(s.nodeDir())
	if errors.Is(err, fs.ErrNotExist) {
		return []cpuset.CPUSet{online}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read numa nodes: %w", err)
	}

	var sets []cpuset.CPUSet
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || !strings.HasPrefix(name, "node") {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimPrefix(name, "node")); err != nil {
			continue
		}
		cpus, err := readCPUList(filepath.Join(s.nodeDir(), name, "cpulist"))
		if err != nil {
			return nil, fmt.Errorf("read cpus of %s: %w", name, err)
		}
		sets = append(sets, cpus.Intersection(online))
	}
	if len(sets) == 0 {
		return []cpuset.CPUSet{online}, nil
	}
	return uniqueSets(sets), nil
}

// packages groups online cpus by physical_package_id, ordered by id.
func (s *Sysfs) packages(online cpuset.CPUSet) ([]cpuset.CPUSet, error) {
	byID := make(map[int][]int)
	for _, cpu := range online.List() {
		path := filepath.Join(s.cpuDir(), "cpu"+strconv.Itoa(cpu), "topology", "physical_package_id")
		raw, err := readTrimmed(path)
		if err != nil {
			return nil, fmt.Errorf("read package of cpu %d: %w", cpu, err)
		}
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse package id of cpu %d: %w", cpu, err)
		}
		byID[id] = append(byID[id], cpu)
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	sets := make([]cpuset.CPUSet, 0, len(ids))
	for _, id := range ids {
		sets = append(sets, cpuset.New(byID[id]...))
	}
	return sets, nil
}

// uniqueSets drops empty and repeated sets and orders the rest by lowest cpu.
func uniqueSets(sets []cpuset.CPUSet) []cpuset.CPUSet {
	seen := make(map[string]struct{}, len(sets))
	out := make([]cpuset.CPUSet, 0, len(sets))
	for _, set := range sets {
		if set.IsEmpty() {
			continue
		}
		key := set.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, set)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].List()[0] < out[j].List()[0]
	})
	return out
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readCPUList(path string) (cpuset.CPUSet, error) {
	raw, err := readTrimmed(path)
	if err != nil {
		return cpuset.New(), err
	}
	set, err := cpuset.Parse(raw)
	if err != nil {
		return cpuset.New(), fmt.Errorf("parse cpu list %s: %w", path, err)
	}
	return set, nil
}
