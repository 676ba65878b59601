package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds the logger installed with SetLogger. It is an atomic pointer
// because allocators read it on their own goroutines while the caller may
// swap it. The name avoids shadowing the stdlib "log" package.
//
// Nil means nothing was installed and Logger() serves the cached default.
var logger atomic.Pointer[slog.Logger]

// defaultLogger is slog.Default() tagged with component=corealloc, built on
// the first Logger() call that finds no installed logger and reused after
// that instead of calling With on every lookup. A later slog.SetDefault() is
// therefore not seen until SetLogger(nil) drops the cached value.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the installed logger, or the cached component-tagged
// default when none is installed. It never returns nil and is safe for
// concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return cacheDefault(newDefaultLogger())
}

// cacheDefault stores l as the default unless another goroutine cached one
// first, and returns whichever is cached. CompareAndSwap keeps a concurrent
// winner in place. The winner may itself be cleared by SetLogger(nil) before
// it is reloaded; l is returned in that case rather than nil.
func cacheDefault(l *slog.Logger) *slog.Logger {
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if winner := defaultLogger.Load(); winner != nil {
		return winner
	}
	return l
}

// newDefaultLogger derives the default logger from the current slog.Default().
func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "corealloc")
}

// SetLogger installs l as the package-level logger. A nil l uninstalls it:
// Logger() goes back to slog.Default() with the component attribute,
// re-derived on its next call and cached again.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	// Drop the cached default in both cases so a slog.SetDefault() made
	// since the last lookup takes effect once no logger is installed.
	defaultLogger.Store(nil)
}
