package corealloc

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunPinned reserves every core of lease and runs fn once per core, each call
// on its own goroutine whose OS thread is pinned to that core. It waits for
// all calls and returns the first error; the context passed to fn is
// cancelled as soon as one call fails.
//
// The lease is consumed. Each core is freed when its call returns and the
// group becomes allocatable once all calls have returned. A call that panics
// poisons its core and the panic is returned as an error.
//
// For a StrategyNone lease fn runs once, on the calling goroutine, with
// AnyCore.
func RunPinned(ctx context.Context, lease *CoreGroup, fn func(ctx context.Context, core CoreIndex) error) error {
	if lease.IsAnyCore() {
		return fn(ctx, AnyCore)
	}

	reservations, err := lease.Reserve()
	if err != nil {
		return fmt.Errorf("reserve %s: %w", lease, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range reservations {
		g.Go(func() error {
			return runReserved(ctx, r, fn)
		})
	}
	return g.Wait()
}

func runReserved(ctx context.Context, r *Reservation, fn func(context.Context, CoreIndex) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.Poison()
			err = fmt.Errorf("worker on core %d panicked: %v", r.Core(), p)
			return
		}
		r.Release()
	}()

	c, err := r.Bind()
	if err != nil {
		return fmt.Errorf("pin worker: %w", err)
	}
	defer func() {
		if rerr := c.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn(ctx, r.Core())
}
