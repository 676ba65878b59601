package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/giantswarm/corealloc"
	"github.com/olekukonko/tablewriter"
	"github.com/sugawarayuuta/sonnet"
)

type listedGroup struct {
	Order int   `json:"order"`
	Cores []int `json:"cores"`
}

type listReport struct {
	Strategy string        `json:"strategy"`
	Groups   []listedGroup `json:"groups"`
}

func runList(args []string) error {
	var (
		af      allocatorFlags
		jsonOut bool
	)
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	af.register(fs)
	fs.BoolVar(&jsonOut, "json", false, "print the groups as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	alloc, err := af.build()
	if err != nil {
		return err
	}

	report := listReport{Strategy: alloc.Strategy().String()}
	if alloc.Strategy() != corealloc.StrategyNone {
		leases, err := drain(alloc)
		if err != nil {
			return err
		}
		for i, l := range leases {
			cores := make([]int, 0, l.Len())
			for _, c := range l.Cores() {
				cores = append(cores, int(c))
			}
			report.Groups = append(report.Groups, listedGroup{Order: i, Cores: cores})
			l.Release()
		}
	}

	if jsonOut {
		out, err := sonnet.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode groups: %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(out))
		return err
	}

	if len(report.Groups) == 0 {
		colorPrintLn(yellow, "strategy none: no dedicated cores, every allocation binds nothing")
		return nil
	}

	colorPrintf(bold, "%d core groups (%s)\n", len(report.Groups), report.Strategy)
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Order", "Cores", "Size")
	for _, g := range report.Groups {
		_ = table.Append(fmt.Sprint(g.Order), fmt.Sprint(g.Cores), fmt.Sprint(len(g.Cores)))
	}
	return table.Render()
}

// drain allocates until the allocator is exhausted and returns the leases
// in allocation order.
func drain(alloc *corealloc.Allocator) ([]*corealloc.CoreGroup, error) {
	var leases []*corealloc.CoreGroup
	for {
		l, err := alloc.AllocateCore()
		if errors.Is(err, corealloc.ErrNoGroupAvailable) {
			return leases, nil
		}
		if err != nil {
			for _, held := range leases {
				held.Release()
			}
			return nil, err
		}
		leases = append(leases, l)
	}
}
