// Package vfs implements the uniform storage contract artifacts are
// materialized against: exists/open/mkdir/last-update-time/listdir over
// local disk and object storage. Cache validity for the whole
// engine is defined by this package's LastUpdateTime, so its backends are
// the one piece of ambient state the scheduler trusts across runs.
package vfs

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Backend identifies which concrete implementation produced a [Timestamp].
// Timestamps from different backends are not comparable; this package
// makes that explicit rather than silently guessing.
type Backend string

// Recognized backends.
const (
	BackendLocal  Backend = "local"
	BackendObject Backend = "objstore"
)

// Timestamp is an opaque, per-backend notion of "when was this last
// written". Only Compare/Before/After between timestamps of the same
// Backend are meaningful.
type Timestamp struct {
	Time    time.Time
	Backend Backend
}

// Compare reports -1, 0, or 1 as t is before, equal to, or after u. It
// returns an error if t and u come from different backends.
func (t Timestamp) Compare(u Timestamp) (int, error) {
	if t.Backend != u.Backend {
		return 0, fmt.Errorf("vfs: cannot compare timestamps from backend %q and %q", t.Backend, u.Backend)
	}
	switch {
	case t.Time.Before(u.Time):
		return -1, nil
	case t.Time.After(u.Time):
		return 1, nil
	default:
		return 0, nil
	}
}

// Before reports whether t is strictly before u. It returns false (not an
// error) if the backends differ, which makes it unsuitable for staleness
// decisions that must not silently treat a backend mismatch as "not
// stale" — the scheduler uses [Timestamp.Compare] directly for exactly
// that reason. Before is a convenience for callers (tests, diagnostics)
// that already know both timestamps share a backend.
func (t Timestamp) Before(u Timestamp) bool {
	c, err := t.Compare(u)
	return err == nil && c < 0
}

// After reports whether t is strictly after u, with the same cross-backend
// caveat as Before.
func (t Timestamp) After(u Timestamp) bool {
	c, err := t.Compare(u)
	return err == nil && c > 0
}

// FileSystem is the uniform storage contract every backend provides.
// Implementations must be safe for concurrent use: the scheduler calls
// into a single FileSystem from many worker goroutines at once, each
// working a disjoint path.
type FileSystem interface {
	// Exists reports whether path is present.
	Exists(ctx context.Context, path string) (bool, error)

	// OpenReader opens path for reading. It returns an error satisfying
	// errors.Is(err, os.ErrNotExist) (wrapped in catalog.ErrIO by callers) if path
	// does not exist.
	OpenReader(ctx context.Context, path string) (io.ReadCloser, error)

	// OpenWriter opens path for writing, creating missing parent
	// directories first. The write is not guaranteed durable until Close
	// returns nil; implementations commit atomically where the backend
	// supports it.
	OpenWriter(ctx context.Context, path string) (io.WriteCloser, error)

	// Mkdir creates path and any missing parents. It is idempotent.
	Mkdir(ctx context.Context, path string) error

	// LastUpdateTime returns the backend-local last-modified time of path,
	// or a backend-specific sentinel minimum if path does not exist.
	LastUpdateTime(ctx context.Context, path string) (Timestamp, error)

	// FullPath returns the backend-local absolute path or key for path.
	FullPath(path string) string

	// URI returns a URI identifying path within this filesystem's root.
	URI(path string) string

	// Listdir lists the immediate entries of path. Hidden entries (names
	// beginning with ".") are excluded unless includeHidden is true.
	Listdir(ctx context.Context, path string, includeHidden bool) ([]string, error)
}

// MinTimestamp returns the sentinel minimum timestamp for backend, used by
// LastUpdateTime implementations when a path does not exist.
func MinTimestamp(backend Backend) Timestamp {
	switch backend {
	case BackendObject:
		return Timestamp{Time: time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), Backend: backend}
	default:
		return Timestamp{Time: time.Unix(0, 0).UTC(), Backend: backend}
	}
}
