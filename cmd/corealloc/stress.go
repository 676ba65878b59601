package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/giantswarm/corealloc"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type stressFlags struct {
	workers    int
	iterations int
	rate       float64
	hold       int
}

type stressStats struct {
	attempts  atomic.Int64
	allocated atomic.Int64
	exhausted atomic.Int64
	binds     atomic.Int64
}

// heldLeases keeps recently used leases alive so that allocation sees a
// partly exhausted registry. The oldest lease is released first.
type heldLeases struct {
	mu    sync.Mutex
	q     *queue.Queue
	limit int
}

func newHeldLeases(limit int) *heldLeases {
	return &heldLeases{q: queue.New(), limit: limit}
}

// push keeps l and releases the oldest held lease once more than limit are
// held.
func (h *heldLeases) push(l *corealloc.CoreGroup) {
	h.mu.Lock()
	h.q.Add(l)
	var oldest *corealloc.CoreGroup
	if h.q.Length() > h.limit {
		oldest = h.q.Remove().(*corealloc.CoreGroup)
	}
	h.mu.Unlock()

	if oldest != nil {
		oldest.Release()
	}
}

func (h *heldLeases) releaseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.q.Length() > 0 {
		h.q.Remove().(*corealloc.CoreGroup).Release()
	}
}

// runStress allocates from several goroutines at a limited rate, binds each
// core of every lease and verifies that no core is ever bound by two
// goroutines at once.
func runStress(args []string) error {
	var (
		af allocatorFlags
		sf stressFlags
	)
	fs := flag.NewFlagSet("stress", flag.ContinueOnError)
	af.register(fs)
	fs.IntVar(&sf.workers, "workers", 8, "number of allocating goroutines")
	fs.IntVar(&sf.iterations, "iterations", 200, "allocation attempts per goroutine")
	fs.Float64Var(&sf.rate, "rate", 2000, "allocation attempts per second across all goroutines (0 = unlimited)")
	fs.IntVar(&sf.hold, "hold", 1, "leases kept alive after use, released oldest first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if sf.workers <= 0 || sf.iterations <= 0 || sf.hold < 0 || sf.rate < 0 {
		return errors.New("-workers and -iterations must be positive, -hold and -rate must not be negative")
	}

	alloc, err := af.build()
	if err != nil {
		return err
	}

	limit := rate.Inf
	if sf.rate > 0 {
		limit = rate.Limit(sf.rate)
	}
	limiter := rate.NewLimiter(limit, sf.workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	bar := progressbar.NewOptions(sf.workers*sf.iterations,
		progressbar.OptionSetDescription("Allocating"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)

	var (
		stats  stressStats
		active sync.Map // CoreIndex -> struct{}
		held   = newHeldLeases(sf.hold)
		start  = time.Now()
	)
	defer held.releaseAll()

	g, ctx := errgroup.WithContext(ctx)
	for range sf.workers {
		g.Go(func() error {
			for range sf.iterations {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				stats.attempts.Add(1)
				_ = bar.Add(1)

				lease, err := alloc.AllocateCore()
				if errors.Is(err, corealloc.ErrNoGroupAvailable) {
					stats.exhausted.Add(1)
					continue
				}
				if err != nil {
					return err
				}
				stats.allocated.Add(1)

				if err := bindEach(lease, &active, &stats); err != nil {
					lease.Release()
					return err
				}
				held.push(lease)
			}
			return nil
		})
	}
	err = g.Wait()
	_ = bar.Finish()
	if err != nil {
		return err
	}

	colorPrintLn(green, "no core was bound twice")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Attempts", "Allocated", "Exhausted", "Binds", "Elapsed")
	_ = table.Append(
		fmt.Sprint(stats.attempts.Load()),
		fmt.Sprint(stats.allocated.Load()),
		fmt.Sprint(stats.exhausted.Load()),
		fmt.Sprint(stats.binds.Load()),
		time.Since(start).Round(time.Millisecond).String(),
	)
	return table.Render()
}

// bindEach binds the calling goroutine to each core of lease in turn.
func bindEach(lease *corealloc.CoreGroup, active *sync.Map, stats *stressStats) error {
	for i := range lease.Len() {
		c, err := lease.BindNth(i)
		if err != nil {
			return fmt.Errorf("bind %s position %d: %w", lease, i, err)
		}
		if _, dup := active.LoadOrStore(c.Core(), struct{}{}); dup {
			_ = c.Release()
			return fmt.Errorf("core %d bound by two goroutines", c.Core())
		}
		stats.binds.Add(1)
		active.Delete(c.Core())
		if err := c.Release(); err != nil {
			return err
		}
	}
	return nil
}
