package main

import (
	"flag"
	"slices"
	"strings"
	"testing"

	"github.com/giantswarm/corealloc"
)

// parseAllocatorFlags registers the allocator flags on a fresh FlagSet and
// parses args into them.
func parseAllocatorFlags(t *testing.T, args ...string) *allocatorFlags {
	t.Helper()
	af := &allocatorFlags{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	af.register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return af
}

func TestAllocatorFlagsConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := parseAllocatorFlags(t).config()
		if err != nil {
			t.Fatalf("config: %v", err)
		}
		if cfg.Strategy != corealloc.StrategyHierarchical || cfg.Level != corealloc.DefaultLevel {
			t.Errorf("defaults = %v/%v, want hierarchical/%v", cfg.Strategy, cfg.Level, corealloc.DefaultLevel)
		}
		if len(cfg.Packages) != 0 || cfg.SysfsRoot != corealloc.DefaultSysfsRoot {
			t.Errorf("packages=%v sysfs=%q", cfg.Packages, cfg.SysfsRoot)
		}
	})

	t.Run("sequential with packages", func(t *testing.T) {
		t.Parallel()
		cfg, err := parseAllocatorFlags(t, "-strategy", "sequential", "-start", "2", "-end", "10", "-width", "4", "-packages", "1,0").config()
		if err != nil {
			t.Fatalf("config: %v", err)
		}
		if cfg.Strategy != corealloc.StrategySequential || cfg.RangeStart != 2 || cfg.RangeEnd != 10 || cfg.Width != 4 {
			t.Errorf("config = %+v", cfg)
		}
		if !slices.Equal(cfg.Packages, []int{0, 1}) {
			t.Errorf("packages = %v, want [0 1]", cfg.Packages)
		}
	})

	tests := map[string]struct {
		args         []string
		wantContains string
	}{
		"bad strategy": {args: []string{"-strategy", "random"}, wantContains: "allocation strategy"},
		"bad level":    {args: []string{"-level", "l9"}, wantContains: "topology level"},
		"bad packages": {args: []string{"-packages", "a-b"}, wantContains: "-packages"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseAllocatorFlags(t, tc.args...).config()
			if err == nil || !strings.Contains(err.Error(), tc.wantContains) {
				t.Errorf("error = %v, want containing %q", err, tc.wantContains)
			}
		})
	}
}

func TestHeldLeasesReleasesOldestFirst(t *testing.T) {
	t.Parallel()

	alloc, err := corealloc.NewSequential(0, 3, 1)
	if err != nil {
		t.Fatalf("NewSequential: %v", err)
	}
	leases, err := drain(alloc)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(leases) != 3 {
		t.Fatalf("drained %d leases, want 3", len(leases))
	}

	held := newHeldLeases(2)
	for _, l := range leases {
		held.push(l)
	}

	// Pushing the third lease released the first.
	l, err := alloc.AllocateCore()
	if err != nil {
		t.Fatalf("AllocateCore: %v", err)
	}
	if !slices.Equal(l.Cores(), []corealloc.CoreIndex{0}) {
		t.Errorf("reallocated %v, want [0]", l.Cores())
	}
	l.Release()

	held.releaseAll()
	leases, err = drain(alloc)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(leases) != 3 {
		t.Errorf("after releaseAll drained %d leases, want 3", len(leases))
	}
}

func TestFormatCores(t *testing.T) {
	t.Parallel()
	if got := formatCores(nil); got != "any" {
		t.Errorf("formatCores(nil) = %q", got)
	}
	if got := formatCores([]corealloc.CoreIndex{0, 4}); got != "0 4" {
		t.Errorf("formatCores = %q", got)
	}
}
