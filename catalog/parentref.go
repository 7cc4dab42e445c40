package catalog

// A ParentRef is a reference to one parent of a dataset: another dataset,
// a whole collection, or a filtered view of a collection. This is a closed
// sum type: the unexported marker method means the only implementations
// are the three defined in this package, so the derivation step in
// Collection.Get never needs a type switch guarded by reflection.
type ParentRef interface {
	parentRef()

	// path returns the catalog path this reference resolves to. Filters
	// are resolved during per-key derivation, so path is only meaningful
	// for RefDataset and RefCollection.
	path() Path
}

// RefDataset is a parent reference to a single dataset.
type RefDataset struct{ Dataset DatasetDecl }

func (RefDataset) parentRef()   {}
func (r RefDataset) path() Path { return r.Dataset.Path }

// RefCollection is a parent reference to an entire collection, delivered to
// the child's create function as a map[string]any keyed by the collection's
// keys.
type RefCollection struct{ Collection CollectionDecl }

func (RefCollection) parentRef()   {}
func (r RefCollection) path() Path { return r.Collection.Path }

// RefFilter is a parent reference to a subset (or single item) of a
// collection, determined by the child's own key at derivation time. It is
// resolved by [CollectionDecl.Get] before the graph builder ever sees it,
// and therefore has no standalone path.
type RefFilter struct{ Filter Filter }

func (RefFilter) parentRef() {}
func (RefFilter) path() Path { return "" }
