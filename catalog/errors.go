// Package catalog implements the declarative artifact model: datasets,
// collections, collection filters, and the per-run context that binds them.
// Identity of every artifact — declaration or bound instance — is defined
// solely by its catalog path (see [Path]).
package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the taxonomy a [CatalogError] wraps. Use
// [errors.Is] against these, not against the concrete *CatalogError type.
var (
	// ErrDeclaration reports a problem found while declaring an artifact:
	// a missing mandatory attribute, a keys function with the wrong arity,
	// a create/parents arity mismatch, or a non-artifact parent reference.
	ErrDeclaration = errors.New("declaration error")

	// ErrResolution reports a problem found while expanding declarations
	// into a task graph: an unknown parent, a filter over an unknown
	// collection, a keys() failure, or a dependency cycle.
	ErrResolution = errors.New("resolution error")

	// ErrIO reports a VFS open/read/write/mkdir failure encountered while
	// running a task.
	ErrIO = errors.New("io error")

	// ErrBuild reports a create function that returned an error.
	ErrBuild = errors.New("build error")

	// ErrCodec reports a serialize/deserialize failure; treated identically
	// to ErrIO by callers that don't need to distinguish the two.
	ErrCodec = errors.New("codec error")
)

// CatalogError names the artifact a failure is attributed to. The zero value
// is not valid; construct with [NewCatalogError].
type CatalogError struct {
	Path Path  // the catalog path of the offending artifact
	Err  error // one of the sentinel errors above, or a wrapper of one
}

// NewCatalogError attributes err to path, wrapping one of the sentinel
// errors declared above (or a compatible wrapper of one).
func NewCatalogError(path Path, err error) *CatalogError {
	return &CatalogError{Path: path, Err: err}
}

// Error implements the error interface. It deliberately includes the path,
// since a catalog path is not sensitive and is the whole point of the
// diagnostic.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap supports errors.Is/errors.As against the sentinel errors.
func (e *CatalogError) Unwrap() error { return e.Err }

// declErrorf builds an ErrDeclaration-wrapped *CatalogError.
func declErrorf(path Path, format string, args ...any) error {
	return NewCatalogError(path, fmt.Errorf("%w: %s", ErrDeclaration, fmt.Sprintf(format, args...)))
}

// resolveErrorf builds an ErrResolution-wrapped *CatalogError.
func resolveErrorf(path Path, format string, args ...any) error {
	return NewCatalogError(path, fmt.Errorf("%w: %s", ErrResolution, fmt.Sprintf(format, args...)))
}
