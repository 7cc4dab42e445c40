// Package graph expands a set of declared artifacts into a concrete task
// DAG for a given target set and context. It resolves
// collection expansions (enumerating keys and deriving per-key datasets)
// and deduplicates shared subgraphs by catalog path; filters have already
// been resolved by the time a reference reaches this package
// and never appear here directly.
package graph

import (
	"fmt"
	"strings"

	"github.com/creachadair/mds/mapset"

	"github.com/databuild/databuild/catalog"
)

// Kind distinguishes the two task shapes the builder produces: dataset
// tasks that run a create function, and gather tasks that collect a whole
// collection into a map.
type Kind int

const (
	// DatasetKind runs a dataset's create function and writes the result.
	DatasetKind Kind = iota
	// GatherKind collects a map[string]any from a collection's keys.
	GatherKind
)

// Node is one vertex of the task graph.
type Node struct {
	Path catalog.Path
	Kind Kind

	Dataset    catalog.DatasetDecl      // valid when Kind == DatasetKind
	Collection catalog.CollectionDecl   // valid when Kind == GatherKind
	ItemKeys   []string                 // valid when Kind == GatherKind: the collection's keys, in order
	ItemPaths  map[string]catalog.Path  // valid when Kind == GatherKind: key -> dataset node path

	// Deps lists the catalog paths of this node's direct predecessors, in
	// the order this node's create function expects its arguments.
	Deps []catalog.Path
}

// Graph is the concrete task DAG produced by [Build].
type Graph struct {
	Nodes map[catalog.Path]*Node
	// Order lists node paths in the order their visits completed, so every
	// node appears after all of its predecessors (the scheduler recomputes
	// readiness from Deps rather than relying on it).
	Order []catalog.Path
}

type builder struct {
	ctx   catalog.Context
	nodes map[catalog.Path]*Node
	order []catalog.Path

	// gray is the three-color DFS cycle check's "on the current DFS stack"
	// set: a path absent from it is white (unvisited) or black (fully
	// processed, found in nodes instead); present means gray. Mirrors
	// blob.KeySet's use of mds/mapset in the teacher.
	gray  mapset.Set[string]
	stack []catalog.Path
}

// Build expands targets (or, if empty, every node in all) into a task DAG
// bound to ctx.
func Build(all []catalog.Node, targets []catalog.Node, ctx catalog.Context) (*Graph, error) {
	if len(targets) == 0 {
		targets = all
	}
	b := &builder{
		ctx:   ctx,
		nodes: make(map[catalog.Path]*Node),
		gray:  mapset.New[string](),
	}
	for _, t := range targets {
		switch v := t.(type) {
		case catalog.NodeDataset:
			if err := b.visitDataset(v.Dataset); err != nil {
				return nil, err
			}
		case catalog.NodeCollection:
			if _, err := b.visitCollection(v.Collection); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("graph: unrecognized target node %T", t)
		}
	}
	return &Graph{Nodes: b.nodes, Order: b.order}, nil
}

func (b *builder) visitDataset(d catalog.DatasetDecl) error {
	if n, ok := b.nodes[d.Path]; ok && n.Kind == DatasetKind {
		return nil // already fully resolved
	}
	if b.gray.Has(string(d.Path)) {
		return b.cycleError(d.Path)
	}
	b.pushGray(d.Path)
	defer b.popGray(d.Path)

	deps := make([]catalog.Path, len(d.Parents))
	for i, ref := range d.Parents {
		switch r := ref.(type) {
		case catalog.RefDataset:
			if err := b.visitDataset(r.Dataset); err != nil {
				return err
			}
			deps[i] = r.Dataset.Path
		case catalog.RefCollection:
			gatherPath, err := b.visitCollection(r.Collection)
			if err != nil {
				return err
			}
			deps[i] = gatherPath
		default:
			return fmt.Errorf("graph: %s: unresolved parent reference %T (filters must be resolved before reaching the graph builder)", d.Path, ref)
		}
	}

	b.nodes[d.Path] = &Node{Path: d.Path, Kind: DatasetKind, Dataset: d, Deps: deps}
	b.order = append(b.order, d.Path)
	return nil
}

// visitCollection adds a gather node for c (if not already present) and
// recursively visits each of its keyed items. It returns the gather node's
// catalog path, which callers use as a dependency edge.
//
// A collection that is itself a build target materializes all of its
// items: visiting a collection, whether reached as a dependency or
// supplied directly as a target, always expands every key.
func (b *builder) visitCollection(c catalog.CollectionDecl) (catalog.Path, error) {
	if n, ok := b.nodes[c.Path]; ok && n.Kind == GatherKind {
		return c.Path, nil
	}
	if b.gray.Has(string(c.Path)) {
		return "", b.cycleError(c.Path)
	}
	b.pushGray(c.Path)
	defer b.popGray(c.Path)

	keys, err := c.Keys(b.ctx)
	if err != nil {
		return "", catalog.NewCatalogError(c.Path, fmt.Errorf("%w: keys(): %v", catalog.ErrResolution, err))
	}

	itemPaths := make(map[string]catalog.Path, len(keys))
	for _, k := range keys {
		item, err := c.Get(k)
		if err != nil {
			return "", err
		}
		if err := b.visitDataset(item); err != nil {
			return "", err
		}
		itemPaths[k] = item.Path
	}

	b.nodes[c.Path] = &Node{
		Path:       c.Path,
		Kind:       GatherKind,
		Collection: c,
		ItemKeys:   keys,
		ItemPaths:  itemPaths,
	}
	b.order = append(b.order, c.Path)
	return c.Path, nil
}

func (b *builder) pushGray(p catalog.Path) {
	b.gray.Add(string(p))
	b.stack = append(b.stack, p)
}

func (b *builder) popGray(p catalog.Path) {
	b.gray.Remove(string(p))
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *builder) cycleError(p catalog.Path) error {
	var names []string
	start := 0
	for i, s := range b.stack {
		if s == p {
			start = i
			break
		}
	}
	for _, s := range b.stack[start:] {
		names = append(names, string(s))
	}
	names = append(names, string(p))
	return catalog.NewCatalogError(p, fmt.Errorf("%w: dependency cycle: %s", catalog.ErrResolution, strings.Join(names, " -> ")))
}
