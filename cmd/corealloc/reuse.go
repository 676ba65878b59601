package main

import (
	"errors"
	"flag"
	"fmt"
	"slices"

	"github.com/giantswarm/corealloc"
)

// runReuse allocates a group and binds to it, allocates a second group
// (which must differ), then releases the first and checks that the next
// allocation returns the same cores again.
func runReuse(args []string) error {
	var af allocatorFlags
	fs := flag.NewFlagSet("reuse", flag.ContinueOnError)
	af.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	alloc, err := af.build()
	if err != nil {
		return err
	}
	if alloc.Strategy() == corealloc.StrategyNone {
		return errors.New("reuse needs dedicated cores; pick -strategy sequential or hierarchical")
	}

	first, err := alloc.AllocateCore()
	if err != nil {
		return fmt.Errorf("first allocation: %w", err)
	}
	cleanup, err := first.BindNth(0)
	if err != nil {
		first.Release()
		return fmt.Errorf("bind first group: %w", err)
	}
	colorPrintf(bold, "first group:  %s (bound to core %d)\n", formatCores(first.Cores()), cleanup.Core())

	second, err := alloc.AllocateCore()
	if err != nil {
		_ = cleanup.Release()
		first.Release()
		return fmt.Errorf("second allocation: %w", err)
	}
	defer second.Release()
	colorPrintf(bold, "second group: %s\n", formatCores(second.Cores()))
	if slices.Equal(first.Cores(), second.Cores()) {
		return fmt.Errorf("second allocation returned the held group %s", formatCores(first.Cores()))
	}

	if err := cleanup.Release(); err != nil {
		return fmt.Errorf("restore affinity: %w", err)
	}
	want := first.Cores()
	first.Release()

	third, err := alloc.AllocateCore()
	if err != nil {
		return fmt.Errorf("third allocation: %w", err)
	}
	defer third.Release()
	colorPrintf(bold, "third group:  %s\n", formatCores(third.Cores()))
	if !slices.Equal(third.Cores(), want) {
		return fmt.Errorf("released group %s was not reused, got %s", formatCores(want), formatCores(third.Cores()))
	}

	colorPrintLn(green, "released group was handed out again")
	return nil
}
