package catalog

import (
	"fmt"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// filterCallSeq hands out the monotonic counter folded into every
// GeneralFilter's suffix hash. It is package-level, not per-instance: two
// independently constructed filters over the same parent (the common case
// of two unrelated datasets each filtering the same collection) must never
// produce the same suffix, and an instance-local counter can't guarantee
// that since every fresh *GeneralFilter starts counting from zero.
var filterCallSeq atomic.Uint64

// A Filter maps a child dataset's key into a dependency on a subset (or a
// single item) of a parent collection. FilterBy is called on every
// collection-item derivation ([CollectionDecl.Get]), so deriving the same
// key twice calls it twice; its result replaces the [RefFilter] in the
// derived item's parents.
type Filter interface {
	FilterBy(childKey string) (ParentRef, error)
}

// GeneralFilter is a filter parametrized by a two-argument predicate over
// (childKey, parentKey). FilterBy returns a new collection that is a subset
// of Parent, sharing its Item template, namespace, relative path, and
// description, but carrying a distinct catalog path so the resolver treats
// it as a different node even when two calls produce identical key sets.
type GeneralFilter struct {
	Parent CollectionDecl
	Match  func(childKey, parentKey string) bool
}

// NewGeneralFilter constructs a [GeneralFilter] over parent.
func NewGeneralFilter(parent CollectionDecl, match func(childKey, parentKey string) bool) *GeneralFilter {
	return &GeneralFilter{Parent: parent, Match: match}
}

// FilterBy implements [Filter]. Each call yields a distinct catalog path:
// the suffix is an xxhash digest of the parent's path combined with a
// process-wide monotonic call counter, so two calls never collide even
// when they come from different *GeneralFilter instances over the same
// parent and produce identical key sets.
func (f *GeneralFilter) FilterBy(childKey string) (ParentRef, error) {
	suffix := filterSuffix(f.Parent.Path, filterCallSeq.Add(1))

	parentKeys := f.Parent.Keys
	match := f.Match
	child := childKey

	filtered := CollectionDecl{
		Path:         f.Parent.Path.WithSuffix(suffix),
		Namespace:    f.Parent.Namespace,
		Description:  f.Parent.Description,
		RelativePath: f.Parent.RelativePath,
		Item:         f.Parent.Item,
		Keys: func(ctx Context) ([]string, error) {
			all, err := parentKeys(ctx)
			if err != nil {
				return nil, err
			}
			var out []string
			for _, k := range all {
				if match(child, k) {
					out = append(out, k)
				}
			}
			return out, nil
		},
	}
	return RefCollection{Collection: filtered}, nil
}

func filterSuffix(parent Path, call uint64) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s#%d", parent, call)
	return fmt.Sprintf("filter%016x", h.Sum64())
}

// SameKeyFilter maps a child key to the single parent item at that same
// key. FilterBy returns a [RefDataset], not a collection.
type SameKeyFilter struct {
	Parent CollectionDecl
}

// SameKeyIn constructs a [SameKeyFilter] over collection.
func SameKeyIn(collection CollectionDecl) *SameKeyFilter {
	return &SameKeyFilter{Parent: collection}
}

// FilterBy implements [Filter]: SameKeyIn(C).FilterBy(k) == C.Get(k).
func (f *SameKeyFilter) FilterBy(childKey string) (ParentRef, error) {
	item, err := f.Parent.Get(childKey)
	if err != nil {
		return nil, err
	}
	return RefDataset{Dataset: item}, nil
}
