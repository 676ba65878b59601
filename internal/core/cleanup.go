package core

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"

	"k8s.io/utils/cpuset"
)

// Cleanup is the scope guard of one bound core. Releasing it restores the
// OS thread's previous affinity mask, unlocks the goroutine from the thread
// and frees the core's occupancy.
//
// A Cleanup belongs to the OS thread that performed the bind. Binding locks
// the calling goroutine to that thread, so the guard must be released on the
// same goroutine, typically with defer right after the bind. Release from
// any other thread is refused with ErrWrongThread and the core is poisoned.
// Do not store a Cleanup where another goroutine can reach it.
//
// Binds nest: a second bind on the same goroutine records the first core as
// its previous mask. Nested guards must be released in reverse bind order,
// which deferred releases give for free. Releasing an outer guard while an
// inner one is still bound restores the outer mask early and leaves the
// thread pinned once the inner guard is released; Release logs a warning
// when it finds the thread's mask is not the core it bound.
type Cleanup struct {
	core     CoreIndex
	prior    cpuset.CPUSet
	threadID int

	// occupancy is the core's occupancy claim when the guard owns it. It is
	// nil when a Reservation owns the occupancy instead.
	occupancy *Handle
	owner     *Reservation

	affinity ThreadAffinity
	log      *slog.Logger
	inert    bool
	done     atomic.Bool
}

// inertCleanup returns the guard of a no-dedicated-cores binding.
func inertCleanup() *Cleanup {
	return &Cleanup{core: AnyCore, inert: true}
}

// bind locks the calling goroutine to its OS thread and pins that thread to
// core. occ may be nil when owner holds the core's occupancy. On error the
// goroutine is unlocked and the affinity is unchanged.
func bind(core CoreIndex, occ *Handle, owner *Reservation, aff ThreadAffinity, log *slog.Logger) (*Cleanup, error) {
	runtime.LockOSThread()

	prior, err := aff.Get()
	if err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("read affinity before binding core %d: %w", core, err)
	}
	if err := aff.Set(cpuset.New(int(core))); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("bind thread to core %d: %w", core, err)
	}

	c := &Cleanup{
		core:      core,
		prior:     prior,
		threadID:  aff.ThreadID(),
		occupancy: occ,
		owner:     owner,
		affinity:  aff,
		log:       log,
	}
	log.Debug("thread bound to core", "core", int(core), "thread", c.threadID, "previous", prior.String())
	return c, nil
}

// Core returns the bound core, or AnyCore for an inert guard.
func (c *Cleanup) Core() CoreIndex {
	return c.core
}

// Previous returns the affinity mask that Release restores.
func (c *Cleanup) Previous() cpuset.CPUSet {
	return c.prior
}

// IsInert reports whether the guard came from a no-dedicated-cores lease.
func (c *Cleanup) IsInert() bool {
	return c.inert
}

// Release restores the previous affinity mask and frees the core's
// occupancy. It is idempotent; only the first call has an effect.
//
// A failure to restore the mask is logged and not returned, since callers
// usually release while unwinding. The only error is ErrWrongThread, in
// which case the mask is left alone and the core is poisoned.
func (c *Cleanup) Release() error {
	if !c.done.CompareAndSwap(false, true) || c.inert {
		return nil
	}

	if tid := c.affinity.ThreadID(); tid != c.threadID {
		c.log.Error("core binding released from a different thread",
			"core", int(c.core), "bound_thread", c.threadID, "thread", tid)
		switch {
		case c.occupancy != nil:
			c.occupancy.Poison()
		case c.owner != nil:
			c.owner.Poison()
		}
		return fmt.Errorf("core %d bound on thread %d, released on %d: %w", c.core, c.threadID, tid, ErrWrongThread)
	}

	if cur, err := c.affinity.Get(); err == nil && !cur.Equals(cpuset.New(int(c.core))) {
		c.log.Warn("thread affinity changed while bound, nested bindings must be released in reverse order",
			"core", int(c.core), "thread", c.threadID, "current", cur.String())
	}
	if err := c.affinity.Set(c.prior); err != nil {
		c.log.Error("failed to restore thread affinity", "core", int(c.core), "previous", c.prior.String(), "error", err)
	}
	runtime.UnlockOSThread()

	if c.occupancy != nil {
		c.occupancy.Release()
	}
	c.log.Debug("core binding released", "core", int(c.core), "thread", c.threadID)
	return nil
}

// Detach drops both obligations of the guard: the thread stays bound to the
// core and locked to its goroutine, and the core's occupancy stays claimed.
// The returned Reservation is the only way to free the occupancy later;
// discarding it keeps the core occupied for the rest of the process.
//
// Detach returns nil for an inert guard or after Release. For a guard
// obtained from Reservation.Bind it returns that Reservation.
func (c *Cleanup) Detach() *Reservation {
	if !c.done.CompareAndSwap(false, true) || c.inert {
		return nil
	}
	c.log.Debug("core binding detached", "core", int(c.core), "thread", c.threadID)
	if c.owner != nil {
		return c.owner
	}
	return &Reservation{
		core:      c.core,
		occupancy: c.occupancy,
		affinity:  c.affinity,
		log:       c.log,
	}
}

// Reservation is a detached claim on one core's occupancy. It is not tied to
// a scope or a thread and can be handed to another goroutine, which binds
// with Bind and frees the core with Release when done.
//
// Reservations produced by CoreGroup.Reserve also share the lease's group
// claim: the group becomes allocatable again once all of them are released
// or poisoned.
type Reservation struct {
	core      CoreIndex
	occupancy *Handle
	group     *groupClaim // nil for reservations produced by Detach

	affinity ThreadAffinity
	log      *slog.Logger
	done     atomic.Bool
}

// Core returns the reserved core.
func (r *Reservation) Core() CoreIndex {
	return r.core
}

// Bind pins the calling goroutine's OS thread to the reserved core. The
// occupancy stays with the Reservation, so releasing the Cleanup restores
// affinity without freeing the core.
func (r *Reservation) Bind() (*Cleanup, error) {
	if r.done.Load() {
		return nil, ErrLeaseReleased
	}
	return bind(r.core, nil, r, r.affinity, r.log)
}

// Release frees the core's occupancy. It is idempotent.
func (r *Reservation) Release() {
	if !r.done.CompareAndSwap(false, true) {
		return
	}
	r.occupancy.Release()
	r.finish()
}

// Poison abandons the core: its occupancy is never freed and later binds
// fail with ErrPoisoned. The group claim, if shared, is still counted down.
// It is a no-op after Release.
func (r *Reservation) Poison() {
	if !r.done.CompareAndSwap(false, true) {
		return
	}
	r.occupancy.Poison()
	r.log.Warn("core poisoned", "core", int(r.core))
	r.finish()
}

func (r *Reservation) finish() {
	if r.group != nil {
		r.group.finish()
	}
}
