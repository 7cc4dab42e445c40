package vfs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Opener dispatches a catalog root URI to the appropriate backend
// constructor: "s3://bucket/prefix" selects the object store,
// "file:///absolute/path" and bare paths select local disk.
//
// This lives in the vfs package, not in vfs/local or vfs/objstore directly,
// to avoid a dependency cycle: callers needing only one backend should
// import that backend's subpackage instead of pulling in both.
type Opener struct {
	NewLocal  func(dir string) (FileSystem, error)
	NewObject func(ctx context.Context, bucket, prefix string, kwargs map[string]any) (FileSystem, error)
}

// Open constructs the backend named by uri, using the constructors
// registered on o.
func (o Opener) Open(ctx context.Context, uri string, kwargs map[string]any) (FileSystem, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		rest := strings.TrimPrefix(uri, "s3://")
		bucket, prefix, _ := strings.Cut(rest, "/")
		if o.NewObject == nil {
			return nil, fmt.Errorf("vfs: no object-store backend registered for %q", uri)
		}
		return o.NewObject(ctx, bucket, prefix, kwargs)
	case strings.HasPrefix(uri, "file://"):
		if o.NewLocal == nil {
			return nil, fmt.Errorf("vfs: no local backend registered for %q", uri)
		}
		return o.NewLocal(strings.TrimPrefix(uri, "file://"))
	default:
		if o.NewLocal == nil {
			return nil, fmt.Errorf("vfs: no local backend registered for %q", uri)
		}
		return o.NewLocal(uri)
	}
}

// KwargString extracts a string-valued key from a backend kwargs bag,
// returning "" if absent or of the wrong type.
func KwargString(kwargs map[string]any, key string) string {
	v, ok := kwargs[key].(string)
	if !ok {
		return ""
	}
	return v
}

// KwargBool extracts a bool-valued key, tolerating a string "true"/"false"
// for kwargs bags that round-tripped through a text config format.
func KwargBool(kwargs map[string]any, key string) bool {
	switch v := kwargs[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}
