package catalog

import (
	"fmt"
	"path"
)

// KeysFunc enumerates a collection's keys for a given run context: a
// function of one argument returning a finite iterable of string keys.
// Go's static typing already enforces the "exactly one parameter"
// invariant, so KeysFunc carries no arity-validation step.
type KeysFunc func(ctx Context) ([]string, error)

// ItemTemplate is the per-key dataset blueprint a [CollectionDecl] derives
// concrete items from. Path, Namespace, and RelativePath are intentionally
// absent here: [CollectionDecl.Get] derives them for every key from the
// collection's own Path, Namespace, and RelativePath.
type ItemTemplate struct {
	Parents       []ParentRef
	Create        CreateFunc
	FileExtension string
	IsBinary      bool
	ReadKwargs    map[string]any
	WriteKwargs   map[string]any
}

// CollectionOptions configures [NewCollection].
type CollectionOptions struct {
	Path         Path
	Namespace    string
	Description  string
	RelativePath string // defaults to Namespace (minus root segment) / Name
	Keys         KeysFunc
	Item         ItemTemplate
}

// CollectionDecl is the immutable declaration of an indexed family of
// datasets, one per key. Construct with [NewCollection].
type CollectionDecl struct {
	Path         Path
	Namespace    string
	Description  string
	RelativePath string
	Keys         KeysFunc
	Item         ItemTemplate
}

// NewCollection validates that keys is present and, when Item declares a
// create function or parents, that their arities match, and returns the
// declaration. A zero Item is accepted.
func NewCollection(opts CollectionOptions) (CollectionDecl, error) {
	if opts.Path == "" {
		return CollectionDecl{}, declErrorf(opts.Path, "collection declared with empty catalog path")
	}
	if opts.Keys == nil {
		return CollectionDecl{}, declErrorf(opts.Path, "missing mandatory attribute: keys")
	}
	if opts.Item.Create != nil || len(opts.Item.Parents) > 0 {
		if err := checkCreateArity(opts.Item.Create, len(opts.Item.Parents)); err != nil {
			return CollectionDecl{}, declErrorf(opts.Path, "Item.Create: %v", err)
		}
	}

	relPath := opts.RelativePath
	if relPath == "" {
		name := string(opts.Path)
		if i := lastDot(name); i >= 0 {
			name = name[i+1:]
		}
		relPath = path.Join(namespacePath(opts.Namespace), name)
	}

	return CollectionDecl{
		Path:         opts.Path,
		Namespace:    opts.Namespace,
		Description:  opts.Description,
		RelativePath: relPath,
		Keys:         opts.Keys,
		Item:         opts.Item,
	}, nil
}

// Get derives the concrete dataset for key k: its catalog path is
// c.Path + ":" + k, its relative path is
// c.RelativePath/k.ext, and any [RefFilter] among c.Item.Parents is resolved
// against k via [Filter.FilterBy]. [RefDataset] and [RefCollection] parents
// pass through unchanged.
func (c CollectionDecl) Get(k string) (DatasetDecl, error) {
	parents := make([]ParentRef, len(c.Item.Parents))
	for i, ref := range c.Item.Parents {
		switch r := ref.(type) {
		case RefFilter:
			resolved, err := r.Filter.FilterBy(k)
			if err != nil {
				return DatasetDecl{}, resolveErrorf(c.Path.WithKey(k), "filter_by(%q): %v", k, err)
			}
			parents[i] = resolved
		default:
			parents[i] = ref
		}
	}

	ext := c.Item.FileExtension
	if ext == "" {
		ext = "dat"
	}

	return DatasetDecl{
		Path:          c.Path.WithKey(k),
		Namespace:     c.Namespace,
		Description:   c.Description,
		Parents:       parents,
		Create:        c.Item.Create,
		RelativePath:  path.Join(c.RelativePath, fmt.Sprintf("%s.%s", k, ext)),
		FileExtension: ext,
		IsBinary:      c.Item.IsBinary,
		ReadKwargs:    c.Item.ReadKwargs,
		WriteKwargs:   c.Item.WriteKwargs,
	}, nil
}

// GetMany derives datasets for every key in keys, reporting a
// [CollectionDecl.Get] error from the first key that fails.
func (c CollectionDecl) GetMany(keys []string) (map[string]DatasetDecl, error) {
	out := make(map[string]DatasetDecl, len(keys))
	for _, k := range keys {
		d, err := c.Get(k)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}
