package corealloc

import (
	"log/slog"

	"github.com/giantswarm/corealloc/internal/core"
)

// SetLogger replaces the package-level logger used by corealloc.
// The provided logger should already have any desired attributes; corealloc
// will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute, re-derived on the next log call and then cached.
// Call SetLogger(nil) after slog.SetDefault() to pick up changes.
//
// SetLogger is safe to call concurrently with allocation. Allocators capture
// the logger at construction time, so call it before building them. Use
// WithLogger to give a single Allocator its own logger.
//
// Example:
//
//	corealloc.SetLogger(myLogger.With("component", "corealloc"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
