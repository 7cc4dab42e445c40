package catalog

// A Context is an opaque, read-only configuration bag shared by every node
// in one run. It is safe to copy and safe for concurrent reads
// from multiple goroutines; nothing in this package mutates a Context after
// construction.
type Context struct {
	// CatalogURI is the root storage URI (e.g. "/var/data", "file:///data",
	// "s3://bucket/prefix"). Required.
	CatalogURI string

	// FSKwargs is a backend-specific argument bag forwarded to the VFS
	// constructor selected for CatalogURI.
	FSKwargs map[string]any

	// Extra carries additional user-defined keys, preserved untouched for
	// downstream create functions to read.
	Extra map[string]any
}

// NewContext constructs a Context rooted at uri.
func NewContext(uri string) Context {
	return Context{CatalogURI: uri}
}

// WithFSKwargs returns a copy of c with FSKwargs set.
func (c Context) WithFSKwargs(kwargs map[string]any) Context {
	c.FSKwargs = kwargs
	return c
}

// WithExtra returns a copy of c with Extra set.
func (c Context) WithExtra(extra map[string]any) Context {
	c.Extra = extra
	return c
}
