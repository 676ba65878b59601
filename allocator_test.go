package corealloc_test

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/giantswarm/corealloc"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/cpuset"
)

// l3Topology has one package with one L3 cache over four SMT cores:
// {0,4}, {1,5}, {2,6} and {3,7}.
func l3Topology() *corealloc.StaticTopology {
	all := cpuset.New(0, 1, 2, 3, 4, 5, 6, 7)
	return &corealloc.StaticTopology{
		Levels: map[corealloc.Level][]corealloc.TopologyUnit{
			corealloc.LevelL3Cache: {{
				CPUs: all,
				Children: []cpuset.CPUSet{
					cpuset.New(0, 4), cpuset.New(1, 5), cpuset.New(2, 6), cpuset.New(3, 7),
				},
			}},
		},
		PackageCPUs: []cpuset.CPUSet{all},
	}
}

func TestNewNone(t *testing.T) {
	t.Parallel()

	a := corealloc.NewNone()
	if a.Strategy() != corealloc.StrategyNone || a.Groups() != nil {
		t.Fatalf("NewNone: strategy=%v groups=%v", a.Strategy(), a.Groups())
	}
	a.FilterGroup(func(corealloc.CoreIndex) bool { return false })

	for range 3 {
		lease, err := a.AllocateCore()
		if err != nil {
			t.Fatalf("AllocateCore: %v", err)
		}
		if !lease.IsAnyCore() || lease.Cores() != nil {
			t.Errorf("lease = %s, want any-core", lease)
		}
		c, err := lease.BindNth(0)
		if err != nil {
			t.Fatalf("BindNth: %v", err)
		}
		if c.Core() != corealloc.AnyCore {
			t.Errorf("Core() = %d, want AnyCore", c.Core())
		}
		if err := c.Release(); err != nil {
			t.Errorf("Release: %v", err)
		}
	}
}

func TestNewSequential(t *testing.T) {
	t.Parallel()

	aff := newRecordingAffinity()
	a, err := corealloc.NewSequential(0, 8, 2, corealloc.WithAffinity(aff))
	if err != nil {
		t.Fatalf("NewSequential: %v", err)
	}
	want := [][]corealloc.CoreIndex{{0, 1}, {2, 3}, {4, 5}, {6, 7}}
	if got := a.Groups(); !slices.EqualFunc(got, want, slices.Equal) {
		t.Fatalf("Groups() = %v, want %v", got, want)
	}

	var leases []*corealloc.CoreGroup
	for range want {
		l, err := a.AllocateCore()
		if err != nil {
			t.Fatalf("AllocateCore: %v", err)
		}
		leases = append(leases, l)
	}
	if _, err := a.AllocateCore(); !errors.Is(err, corealloc.ErrNoGroupAvailable) {
		t.Fatalf("AllocateCore on exhausted allocator error = %v", err)
	}

	leases[2].Release()
	l, err := a.AllocateCore()
	if err != nil {
		t.Fatalf("AllocateCore after release: %v", err)
	}
	if !slices.Equal(l.Cores(), []corealloc.CoreIndex{4, 5}) {
		t.Errorf("reallocated %v, want [4 5]", l.Cores())
	}
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		build        func() (*corealloc.Allocator, error)
		wantContains string
		wantIs       error
	}{
		"zero width": {
			build:        func() (*corealloc.Allocator, error) { return corealloc.NewSequential(0, 8, 0) },
			wantContains: "group width",
		},
		"invalid strategy": {
			build: func() (*corealloc.Allocator, error) {
				return corealloc.New(corealloc.Config{Strategy: corealloc.Strategy(9)})
			},
			wantContains: "allocation strategy",
		},
		"filter removes everything": {
			build: func() (*corealloc.Allocator, error) {
				return corealloc.NewSequential(0, 4, 2, corealloc.WithCPUFilter(cpuset.New(1, 2)))
			},
			wantContains: "removed every",
		},
		"l3 invariant": {
			build: func() (*corealloc.Allocator, error) {
				p := &corealloc.StaticTopology{Levels: map[corealloc.Level][]corealloc.TopologyUnit{
					corealloc.LevelL3Cache: {{CPUs: cpuset.New(0, 1, 2), Children: []cpuset.CPUSet{cpuset.New(0, 1, 2)}}},
				}}
				return corealloc.NewHierarchical(corealloc.LevelL3Cache, nil, corealloc.WithTopology(p))
			},
			wantIs: corealloc.ErrTopologyInvariant,
		},
		"missing sysfs": {
			build: func() (*corealloc.Allocator, error) {
				return corealloc.New(corealloc.Config{
					Strategy:  corealloc.StrategyHierarchical,
					Level:     corealloc.LevelCore,
					SysfsRoot: "/nonexistent/sysfs",
				})
			},
			wantContains: "hierarchical core groups",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a, err := tc.build()
			if err == nil {
				t.Fatalf("expected error, got allocator %v", a.Groups())
			}
			if tc.wantContains != "" && !strings.Contains(err.Error(), tc.wantContains) {
				t.Errorf("error %q should contain %q", err.Error(), tc.wantContains)
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Errorf("error %v is not %v", err, tc.wantIs)
			}
		})
	}
}

func TestNewHierarchical(t *testing.T) {
	t.Parallel()

	a, err := corealloc.NewHierarchical(corealloc.LevelL3Cache, nil,
		corealloc.WithTopology(l3Topology()),
		corealloc.WithAffinity(newRecordingAffinity()),
	)
	if err != nil {
		t.Fatalf("NewHierarchical: %v", err)
	}
	want := [][]corealloc.CoreIndex{{0, 1, 2, 3}, {4, 5, 6, 7}}
	if got := a.Groups(); !slices.EqualFunc(got, want, slices.Equal) {
		t.Fatalf("Groups() = %v, want %v", got, want)
	}

	t.Run("with cpu filter", func(t *testing.T) {
		t.Parallel()
		a, err := corealloc.NewHierarchical(corealloc.LevelL3Cache, []int{0},
			corealloc.WithTopology(l3Topology()),
			corealloc.WithCPUFilter(cpuset.New(0, 1, 2, 3)),
		)
		if err != nil {
			t.Fatalf("NewHierarchical: %v", err)
		}
		want := [][]corealloc.CoreIndex{{0, 1, 2, 3}}
		if got := a.Groups(); !slices.EqualFunc(got, want, slices.Equal) {
			t.Errorf("Groups() = %v, want %v", got, want)
		}
	})
}

func TestFilterGroup(t *testing.T) {
	t.Parallel()

	a, err := corealloc.NewSequential(0, 6, 2, corealloc.WithAffinity(newRecordingAffinity()))
	if err != nil {
		t.Fatalf("NewSequential: %v", err)
	}
	a.FilterGroup(func(c corealloc.CoreIndex) bool { return c >= 2 })

	want := [][]corealloc.CoreIndex{{2, 3}, {4, 5}}
	if got := a.Groups(); !slices.EqualFunc(got, want, slices.Equal) {
		t.Errorf("Groups() = %v, want %v", got, want)
	}
}

// TestConcurrentAllocateAndBind runs many goroutines that allocate, bind
// every core and release, and checks that no core is ever bound twice at
// the same time.
func TestConcurrentAllocateAndBind(t *testing.T) {
	t.Parallel()

	aff := newRecordingAffinity()
	a, err := corealloc.NewSequential(0, 8, 2, corealloc.WithAffinity(aff))
	if err != nil {
		t.Fatalf("NewSequential: %v", err)
	}

	var (
		mu     sync.Mutex
		active = make(map[corealloc.CoreIndex]bool)
		g      errgroup.Group
	)
	for range 32 {
		g.Go(func() error {
			for range 50 {
				lease, err := a.AllocateCore()
				if errors.Is(err, corealloc.ErrNoGroupAvailable) {
					continue
				}
				if err != nil {
					return err
				}
				if err := bindAll(lease, &mu, active); err != nil {
					return err
				}
				lease.Release()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	total := 0
	for core := range 8 {
		total += aff.binds(core)
	}
	if total == 0 {
		t.Error("no core was ever bound")
	}
}

func bindAll(lease *corealloc.CoreGroup, mu *sync.Mutex, active map[corealloc.CoreIndex]bool) error {
	for i := range lease.Len() {
		c, err := lease.BindNth(i)
		if err != nil {
			return fmt.Errorf("bind %s position %d: %w", lease, i, err)
		}
		mu.Lock()
		if active[c.Core()] {
			mu.Unlock()
			return fmt.Errorf("core %d bound twice", c.Core())
		}
		active[c.Core()] = true
		mu.Unlock()

		mu.Lock()
		active[c.Core()] = false
		mu.Unlock()
		if err := c.Release(); err != nil {
			return err
		}
	}
	return nil
}
