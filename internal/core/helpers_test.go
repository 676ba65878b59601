package core

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"k8s.io/utils/cpuset"
)

// Compile-time interface satisfaction check.
var _ ThreadAffinity = (*fakeAffinity)(nil)

var errFakeSet = errors.New("fake: set affinity failed")

// fakeAffinity records affinity changes instead of issuing syscalls. All
// callers share one simulated thread whose id can be changed with setTID.
type fakeAffinity struct {
	mu   sync.Mutex
	mask cpuset.CPUSet
	tid  int
	sets []cpuset.CPUSet
	// failFrom makes the n-th and every later Set call fail (1-based).
	// Zero never fails.
	failFrom int
	getErr   error
}

func newFakeAffinity(cpus ...int) *fakeAffinity {
	return &fakeAffinity{mask: cpuset.New(cpus...), tid: 100}
}

func (f *fakeAffinity) Get() (cpuset.CPUSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return cpuset.New(), f.getErr
	}
	return f.mask, nil
}

func (f *fakeAffinity) Set(cpus cpuset.CPUSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, cpus)
	if f.failFrom > 0 && len(f.sets) >= f.failFrom {
		return errFakeSet
	}
	f.mask = cpus
	return nil
}

func (f *fakeAffinity) ThreadID() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tid
}

func (f *fakeAffinity) current() cpuset.CPUSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mask
}

func (f *fakeAffinity) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

func (f *fakeAffinity) setTID(tid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tid = tid
}

// syncBuffer is a bytes.Buffer safe for concurrent writes by a slog handler.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogger returns a debug-level text logger writing into a buffer.
func captureLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// newTestRegistry builds a Registry over groups with a fake affinity.
func newTestRegistry(t *testing.T, groups [][]CoreIndex) (*Registry, *fakeAffinity) {
	t.Helper()
	aff := newFakeAffinity(0, 1, 2, 3, 4, 5, 6, 7)
	log, _ := captureLogger()
	r, err := NewRegistry(groups, RegistryParams{Affinity: aff, Logger: log})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r, aff
}

// mustAllocate allocates from r or fails the test.
func mustAllocate(t *testing.T, r *Registry) *CoreGroup {
	t.Helper()
	g, err := r.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	return g
}

// releaseCleanup releases c and fails the test on error.
func releaseCleanup(t *testing.T, c *Cleanup) {
	t.Helper()
	if err := c.Release(); err != nil {
		t.Fatalf("release binding of core %d: %v", c.Core(), err)
	}
}

// requirePanicContains calls fn and verifies it panics with a message
// containing wantSubstr.
func requirePanicContains(t *testing.T, fn func(), wantSubstr string) {
	t.Helper()

	var recovered string
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = fmt.Sprint(r)
			}
		}()
		fn()
	}()

	if recovered == "" {
		t.Fatal("expected panic, got none")
	}

	if !strings.Contains(recovered, wantSubstr) {
		t.Errorf("panic message %q does not contain %q", recovered, wantSubstr)
	}
}
