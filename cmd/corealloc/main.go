// Command corealloc inspects and exercises core group allocation on the
// current machine.
//
// Usage:
//
//	corealloc list   [allocator flags] [-json]
//	corealloc reuse  [allocator flags]
//	corealloc stress [allocator flags] [-workers n] [-iterations n] [-rate r] [-hold n]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/giantswarm/corealloc"
	"k8s.io/utils/cpuset"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{name: "list", summary: "drain the allocator and print every group", run: runList},
	{name: "reuse", summary: "check that a released group is handed out again", run: runReuse},
	{name: "stress", summary: "allocate and bind from many goroutines", run: runStress},
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(os.Args[2:]); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				os.Exit(0)
			}
			colorPrintf(red, "corealloc %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}

	colorPrintf(red, "unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	colorPrintLn(bold, "usage: corealloc <command> [flags]")
	fmt.Println()
	for _, c := range commands {
		fmt.Printf("  %-8s %s\n", c.name, c.summary)
	}
	fmt.Println()
	fmt.Println("Run 'corealloc <command> -h' for the flags of a command.")
}

// allocatorFlags are the flags shared by every command that builds an
// Allocator.
type allocatorFlags struct {
	strategy string
	level    string
	packages string
	start    int
	end      int
	width    int
	sysfs    string
	cpus     string
	verbose  bool
}

func (f *allocatorFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.strategy, "strategy", corealloc.StrategyHierarchical.String(), "allocation strategy: none, sequential or hierarchical")
	fs.StringVar(&f.level, "level", corealloc.DefaultLevel.String(), "topology level for hierarchical groups: core, l2, l3, numa or package")
	fs.StringVar(&f.packages, "packages", "", "package positions to use, as a cpu-list expression (e.g. 0,1); empty means all")
	fs.IntVar(&f.start, "start", 0, "first core of the sequential range")
	fs.IntVar(&f.end, "end", 8, "end of the sequential range (exclusive)")
	fs.IntVar(&f.width, "width", 2, "cores per sequential group")
	fs.StringVar(&f.sysfs, "sysfs", corealloc.DefaultSysfsRoot, "sysfs mount used for topology discovery")
	fs.StringVar(&f.cpus, "cpus", "", "only keep groups whose cores are all in this cpu list (e.g. 2-7,10)")
	fs.BoolVar(&f.verbose, "v", false, "log allocator debug messages")
}

// config converts the flags into an allocator Config.
func (f *allocatorFlags) config() (corealloc.Config, error) {
	strategy, err := corealloc.ParseStrategy(f.strategy)
	if err != nil {
		return corealloc.Config{}, err
	}
	level, err := corealloc.ParseLevel(f.level)
	if err != nil {
		return corealloc.Config{}, err
	}
	pkgs, err := cpuset.Parse(f.packages)
	if err != nil {
		return corealloc.Config{}, fmt.Errorf("parse -packages: %w", err)
	}
	return corealloc.Config{
		Strategy:   strategy,
		RangeStart: f.start,
		RangeEnd:   f.end,
		Width:      f.width,
		Level:      level,
		Packages:   pkgs.List(),
		SysfsRoot:  f.sysfs,
	}, nil
}

// build configures logging and returns the Allocator described by the flags.
func (f *allocatorFlags) build() (*corealloc.Allocator, error) {
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	corealloc.SetLogger(logger.With("component", "corealloc"))

	cfg, err := f.config()
	if err != nil {
		return nil, err
	}

	var opts []corealloc.Option
	if f.cpus != "" {
		filter, err := cpuset.Parse(f.cpus)
		if err != nil {
			return nil, fmt.Errorf("parse -cpus: %w", err)
		}
		if filter.IsEmpty() {
			return nil, errors.New("-cpus selects no cpu")
		}
		opts = append(opts, corealloc.WithCPUFilter(filter))
	}

	return corealloc.New(cfg, opts...)
}
