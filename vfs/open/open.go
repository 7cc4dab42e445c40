// Package open wires together the local and object-store backends behind
// [FromURI], so callers that don't need to stub out storage for tests can
// get a working [vfs.FileSystem] from a single call.
package open

import (
	"context"

	"github.com/databuild/databuild/vfs"
	"github.com/databuild/databuild/vfs/local"
	"github.com/databuild/databuild/vfs/objstore"
)

// FromURI opens the backend named by uri: "s3://..." opens
// an object store, "file://..." and bare paths open local disk.
func FromURI(ctx context.Context, uri string, kwargs map[string]any) (vfs.FileSystem, error) {
	opener := vfs.Opener{
		NewLocal: func(dir string) (vfs.FileSystem, error) {
			return local.New(dir)
		},
		NewObject: func(ctx context.Context, bucket, prefix string, kwargs map[string]any) (vfs.FileSystem, error) {
			return objstore.New(ctx, bucket, prefix, objstore.Options{
				Region:         vfs.KwargString(kwargs, "region"),
				Endpoint:       vfs.KwargString(kwargs, "endpoint"),
				AccessKey:      vfs.KwargString(kwargs, "access_key"),
				SecretKey:      vfs.KwargString(kwargs, "secret_key"),
				ForcePathStyle: vfs.KwargBool(kwargs, "force_path_style"),
			})
		},
	}
	return opener.Open(ctx, uri, kwargs)
}
