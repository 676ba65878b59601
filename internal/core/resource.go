package core

import "sync/atomic"

// Resource is a non-blocking exclusive-claim flag. The zero value is an
// unclaimed, usable resource.
//
// Claim state is a monotonic generation counter: odd values mean claimed,
// even values (including 0) mean free. Each successful TryClaim produces a
// unique odd token, so a stale Handle from an earlier claim can never free a
// later holder's claim.
type Resource struct {
	gen      atomic.Uint64
	poisoned atomic.Bool
}

// NewResource returns an unclaimed Resource.
func NewResource() *Resource {
	return &Resource{}
}

// TryClaim performs a single compare-and-swap from free to claimed. It
// returns ErrWouldBlock when the resource is held and ErrPoisoned when a
// previous holder poisoned it. TryClaim never blocks.
func (r *Resource) TryClaim() (*Handle, error) {
	g := r.gen.Load()
	if g%2 == 1 {
		// Poison keeps the generation odd, so a poisoned resource always
		// lands here.
		if r.poisoned.Load() {
			return nil, ErrPoisoned
		}
		return nil, ErrWouldBlock
	}
	if !r.gen.CompareAndSwap(g, g+1) {
		return nil, ErrWouldBlock
	}
	return &Handle{res: r, token: g + 1}, nil
}

// IsTaken reports whether the resource is currently claimed. Poisoned
// resources report true. The answer may be stale by the time it is used;
// only TryClaim decides ownership.
func (r *Resource) IsTaken() bool {
	return r.gen.Load()%2 == 1
}

// IsPoisoned reports whether the resource was poisoned.
func (r *Resource) IsPoisoned() bool {
	return r.poisoned.Load()
}

// Handle is the release guard of one successful claim. Exactly one of
// Release or Poison must be called on it.
type Handle struct {
	res   *Resource
	token uint64
	done  atomic.Bool
}

// Release frees the claim, making the resource claimable again.
//
// Panics if the handle was already released or poisoned. A second release
// would otherwise free a claim that now belongs to somebody else.
func (h *Handle) Release() {
	if !h.done.CompareAndSwap(false, true) {
		panic("corealloc: double release of resource claim")
	}
	if !h.res.gen.CompareAndSwap(h.token, h.token+1) {
		panic("corealloc: resource generation changed while claimed")
	}
}

// Poison abandons the claim without freeing it. Every later TryClaim on the
// resource fails with ErrPoisoned.
//
// Panics if the handle was already released or poisoned.
func (h *Handle) Poison() {
	if !h.done.CompareAndSwap(false, true) {
		panic("corealloc: poison of a released resource claim")
	}
	h.res.poisoned.Store(true)
}
