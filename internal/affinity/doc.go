// Package affinity reads and changes the CPU affinity mask of the calling OS
// thread. Affinity is a per-thread property, so callers must hold
// runtime.LockOSThread for as long as a changed mask is expected to apply to
// the current goroutine.
//
// Linux is implemented with sched_getaffinity/sched_setaffinity on thread id
// 0 (the caller). Other platforms report errors.ErrUnsupported.
package affinity
