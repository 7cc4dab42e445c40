package graph_test

import (
	"errors"
	"testing"

	"github.com/databuild/databuild/catalog"
	"github.com/databuild/databuild/graph"
)

func mustDataset(t *testing.T, opts catalog.DatasetOptions) catalog.DatasetDecl {
	t.Helper()
	d, err := catalog.NewDataset(opts)
	if err != nil {
		t.Fatalf("NewDataset(%q): %v", opts.Path, err)
	}
	return d
}

func TestBuildDedupesSharedSubgraph(t *testing.T) {
	// A = source; B = f(A); C = g(A); D = h(B, C) — A is reached twice.
	a := mustDataset(t, catalog.DatasetOptions{Path: "p.A", Namespace: "root.p"})
	b := mustDataset(t, catalog.DatasetOptions{
		Path: "p.B", Namespace: "root.p",
		Parents: []catalog.ParentRef{catalog.RefDataset{Dataset: a}},
		Create:  func(any) any { return nil },
	})
	c := mustDataset(t, catalog.DatasetOptions{
		Path: "p.C", Namespace: "root.p",
		Parents: []catalog.ParentRef{catalog.RefDataset{Dataset: a}},
		Create:  func(any) any { return nil },
	})
	d := mustDataset(t, catalog.DatasetOptions{
		Path: "p.D", Namespace: "root.p",
		Parents: []catalog.ParentRef{
			catalog.RefDataset{Dataset: b},
			catalog.RefDataset{Dataset: c},
		},
		Create: func(any, any) any { return nil },
	})

	g, err := graph.Build(nil, []catalog.Node{catalog.NodeDataset{Dataset: d}}, catalog.Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes) != 4 {
		t.Fatalf("len(Nodes) = %d, want 4 (A deduped across two parent edges)", len(g.Nodes))
	}
	if _, ok := g.Nodes["p.A"]; !ok {
		t.Error("expected a single node for p.A")
	}
}

func TestBuildDetectsCycle(t *testing.T) {
	// Construct a genuine cycle X -> Y -> X. DatasetDecl is immutable once
	// built, but NewDataset stores opts.Parents by reference rather than
	// copying its backing array, so mutating the slice after construction
	// (once X exists) closes the loop for both Y's own Parents field and
	// every RefDataset that already captured a copy of Y.
	yParents := make([]catalog.ParentRef, 1)
	y := mustDataset(t, catalog.DatasetOptions{
		Path: "p.Y", Namespace: "root.p",
		Parents: yParents,
		Create:  func(any) any { return nil },
	})
	x := mustDataset(t, catalog.DatasetOptions{
		Path: "p.X", Namespace: "root.p",
		Parents: []catalog.ParentRef{catalog.RefDataset{Dataset: y}},
		Create:  func(any) any { return nil },
	})
	yParents[0] = catalog.RefDataset{Dataset: x}

	_, err := graph.Build(nil, []catalog.Node{catalog.NodeDataset{Dataset: x}}, catalog.Context{})
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
	if !errors.Is(err, catalog.ErrResolution) {
		t.Errorf("error = %v, want one wrapping ErrResolution", err)
	}
}

func TestBuildTargetSimplification(t *testing.T) {
	a := mustDataset(t, catalog.DatasetOptions{Path: "p.A", Namespace: "root.p"})
	unused := mustDataset(t, catalog.DatasetOptions{Path: "p.Unused", Namespace: "root.p"})

	g, err := graph.Build(
		[]catalog.Node{catalog.NodeDataset{Dataset: a}, catalog.NodeDataset{Dataset: unused}},
		[]catalog.Node{catalog.NodeDataset{Dataset: a}},
		catalog.Context{},
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("len(Nodes) = %d, want 1 (only the requested target)", len(g.Nodes))
	}
	if _, ok := g.Nodes["p.Unused"]; ok {
		t.Error("p.Unused should not be reachable from the requested target")
	}
}

func TestBuildCollectionFanIn(t *testing.T) {
	col, err := catalog.NewCollection(catalog.CollectionOptions{
		Path:      "root.p.K",
		Namespace: "root.p",
		Keys:      func(catalog.Context) ([]string, error) { return []string{"a", "b"}, nil },
		Item:      catalog.ItemTemplate{FileExtension: "json"},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := mustDataset(t, catalog.DatasetOptions{
		Path: "p.D", Namespace: "root.p",
		Parents: []catalog.ParentRef{catalog.RefCollection{Collection: col}},
		Create:  func(any) any { return nil },
	})

	g, err := graph.Build(nil, []catalog.Node{catalog.NodeDataset{Dataset: d}}, catalog.Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	gather, ok := g.Nodes["root.p.K"]
	if !ok {
		t.Fatal("expected a gather node for the collection")
	}
	if gather.Kind != graph.GatherKind {
		t.Errorf("collection node kind = %v, want GatherKind", gather.Kind)
	}
	if len(gather.ItemPaths) != 2 {
		t.Errorf("gather ItemPaths has %d entries, want 2", len(gather.ItemPaths))
	}
	if _, ok := g.Nodes["root.p.K:a"]; !ok {
		t.Error("expected a dataset node for collection item :a")
	}
}
