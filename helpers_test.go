package corealloc_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/giantswarm/corealloc"
	"k8s.io/utils/cpuset"
)

// Compile-time interface satisfaction check.
var _ corealloc.ThreadAffinity = (*recordingAffinity)(nil)

// recordingAffinity counts single-core binds without changing any real
// thread. Every caller reports the same thread id, and Set never changes the
// mask returned by Get.
type recordingAffinity struct {
	mu    sync.Mutex
	mask  cpuset.CPUSet
	bound map[int]int // core -> number of binds
}

func newRecordingAffinity() *recordingAffinity {
	return &recordingAffinity{
		mask:  cpuset.New(0, 1, 2, 3, 4, 5, 6, 7),
		bound: make(map[int]int),
	}
}

func (a *recordingAffinity) Get() (cpuset.CPUSet, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mask, nil
}

func (a *recordingAffinity) Set(cpus cpuset.CPUSet) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cpus.Size() == 1 {
		a.bound[cpus.List()[0]]++
	}
	return nil
}

func (a *recordingAffinity) ThreadID() int { return 1 }

func (a *recordingAffinity) binds(core int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bound[core]
}

// panicTestCase defines a test case for option validation panic tests.
type panicTestCase struct {
	name     string
	panics   bool
	panicMsg string
	fn       func()
}

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, shouldPanic bool, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if shouldPanic && r == nil {
			t.Fatal("expected panic but didn't get one")
		}
		if !shouldPanic && r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
		if shouldPanic && r != nil {
			msg := fmt.Sprint(r)
			if msg != wantMsg {
				t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
			}
		}
	}()
	fn()
}

// runPanicTests runs a slice of panic test cases using requirePanics.
func runPanicTests(t *testing.T, tests []panicTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tt.panics, tt.panicMsg, tt.fn)
		})
	}
}
