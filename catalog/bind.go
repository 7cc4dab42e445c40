package catalog

import (
	"context"
	"fmt"

	"github.com/databuild/databuild/codec"
	"github.com/databuild/databuild/vfs"
)

// Identified is implemented by every declaration and bound instance in this
// package. Equality and hashing are defined solely by CatalogPath: an
// instance equals its template whenever their paths match.
type Identified interface {
	CatalogPath() Path
}

// CatalogPath implements [Identified].
func (d DatasetDecl) CatalogPath() Path { return d.Path }

// CatalogPath implements [Identified].
func (c CollectionDecl) CatalogPath() Path { return c.Path }

// Equal reports whether a and b share a catalog path. It holds regardless
// of whether a and b are declarations, bound instances, or one of each.
func Equal(a, b Identified) bool { return a.CatalogPath() == b.CatalogPath() }

// Dataset is a [DatasetDecl] bound to a run [Context] and the storage
// backend + codec that Context's catalog URI resolves to. Construct with
// [DatasetDecl.Bind].
type Dataset struct {
	Decl    DatasetDecl
	Context Context
	FS      vfs.FileSystem
	Codec   codec.Codec
}

// Bind instantiates d against ctx using the given storage backend and
// codec.
func (d DatasetDecl) Bind(ctx Context, fs vfs.FileSystem, cdc codec.Codec) Dataset {
	return Dataset{Decl: d, Context: ctx, FS: fs, Codec: cdc}
}

// CatalogPath implements [Identified].
func (d Dataset) CatalogPath() Path { return d.Decl.Path }

// Exists reports whether the dataset's artifact is present in storage.
func (d Dataset) Exists(ctx context.Context) (bool, error) {
	ok, err := d.FS.Exists(ctx, d.Decl.RelativePath)
	if err != nil {
		return false, NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	return ok, nil
}

// LastUpdateTime returns the artifact's last-modified time, or the
// backend's sentinel minimum if it does not exist.
func (d Dataset) LastUpdateTime(ctx context.Context) (vfs.Timestamp, error) {
	ts, err := d.FS.LastUpdateTime(ctx, d.Decl.RelativePath)
	if err != nil {
		return vfs.Timestamp{}, NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	return ts, nil
}

// Read loads the dataset's value from storage via its codec.
func (d Dataset) Read(ctx context.Context) (any, error) {
	r, err := d.FS.OpenReader(ctx, d.Decl.RelativePath)
	if err != nil {
		return nil, NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	defer r.Close()
	v, err := d.Codec.Read(r)
	if err != nil {
		return nil, NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrCodec, err))
	}
	return v, nil
}

// Write persists value to storage via the dataset's codec.
func (d Dataset) Write(ctx context.Context, value any) error {
	w, err := d.FS.OpenWriter(ctx, d.Decl.RelativePath)
	if err != nil {
		return NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	if err := d.Codec.Write(w, value); err != nil {
		w.Close()
		return NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrCodec, err))
	}
	if err := w.Close(); err != nil {
		return NewCatalogError(d.Decl.Path, fmt.Errorf("%w: %v", ErrIO, err))
	}
	return nil
}

// Collection is a [CollectionDecl] bound to a run [Context]. Construct
// with [CollectionDecl.Bind].
type Collection struct {
	Decl    CollectionDecl
	Context Context
	FS      vfs.FileSystem
	Codec   codec.Codec
}

// Bind instantiates c against ctx using the given storage backend and
// codec.
func (c CollectionDecl) Bind(ctx Context, fs vfs.FileSystem, cdc codec.Codec) Collection {
	return Collection{Decl: c, Context: ctx, FS: fs, Codec: cdc}
}

// CatalogPath implements [Identified].
func (c Collection) CatalogPath() Path { return c.Decl.Path }

// Keys returns the collection's keys for its bound context.
func (c Collection) Keys() ([]string, error) {
	keys, err := c.Decl.Keys(c.Context)
	if err != nil {
		return nil, NewCatalogError(c.Decl.Path, fmt.Errorf("%w: keys(): %v", ErrResolution, err))
	}
	return keys, nil
}

// Get returns the derived dataset for key, bound to the same context,
// storage, and codec.
func (c Collection) Get(key string) (Dataset, error) {
	d, err := c.Decl.Get(key)
	if err != nil {
		return Dataset{}, err
	}
	return d.Bind(c.Context, c.FS, c.Codec), nil
}

// ReadAll implements the original's FileCollection.read(): materialize
// every key (or the given subset) into a map, each via its own codec read.
func (c Collection) ReadAll(ctx context.Context, keys []string) (map[string]any, error) {
	if keys == nil {
		var err error
		keys, err = c.Keys()
		if err != nil {
			return nil, err
		}
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		item, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		v, err := item.Read(ctx)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}
