package catalog_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/databuild/databuild/catalog"
)

func mustDataset(t *testing.T, opts catalog.DatasetOptions) catalog.DatasetDecl {
	t.Helper()
	d, err := catalog.NewDataset(opts)
	if err != nil {
		t.Fatalf("NewDataset(%q): %v", opts.Path, err)
	}
	return d
}

func mustCollection(t *testing.T, opts catalog.CollectionOptions) catalog.CollectionDecl {
	t.Helper()
	c, err := catalog.NewCollection(opts)
	if err != nil {
		t.Fatalf("NewCollection(%q): %v", opts.Path, err)
	}
	return c
}

func TestIdentityByPath(t *testing.T) {
	a := mustDataset(t, catalog.DatasetOptions{Path: "pkg.A", Namespace: "root.pkg"})
	b := mustDataset(t, catalog.DatasetOptions{Path: "pkg.A", Namespace: "root.pkg", Description: "different description"})

	if !catalog.Equal(a, b) {
		t.Errorf("datasets sharing a catalog path should be equal regardless of other fields")
	}

	ctx := catalog.NewContext("/tmp/catalog")
	inst := a.Bind(ctx, nil, nil)
	if !catalog.Equal(a, inst) {
		t.Errorf("a bound instance must equal its template")
	}
	if inst.CatalogPath() != a.Path {
		t.Errorf("CatalogPath() = %q, want %q", inst.CatalogPath(), a.Path)
	}
}

func TestDatasetArityValidation(t *testing.T) {
	parent := mustDataset(t, catalog.DatasetOptions{Path: "pkg.P", Namespace: "root.pkg"})

	if _, err := catalog.NewDataset(catalog.DatasetOptions{
		Path:    "pkg.Bad",
		Parents: []catalog.ParentRef{catalog.RefDataset{Dataset: parent}},
		Create:  func() any { return nil }, // wrong arity: 0 params, 1 parent
	}); err == nil {
		t.Fatal("expected an arity mismatch error, got nil")
	}

	if _, err := catalog.NewDataset(catalog.DatasetOptions{
		Path:    "pkg.Good",
		Parents: []catalog.ParentRef{catalog.RefDataset{Dataset: parent}},
		Create:  func(p any) any { return p },
	}); err != nil {
		t.Fatalf("matching arity should validate cleanly: %v", err)
	}
}

func TestRelativePathNotInherited(t *testing.T) {
	base := mustDataset(t, catalog.DatasetOptions{
		Path: "root.base.A", Namespace: "root.base", FileExtension: "json",
	})
	derived := mustDataset(t, catalog.DatasetOptions{
		Path: "root.other.A", Namespace: "root.other", FileExtension: "json",
	})
	if base.RelativePath == derived.RelativePath {
		t.Fatalf("expected distinct relative paths for distinct namespaces, both got %q", base.RelativePath)
	}
	if derived.RelativePath != "other/A.json" {
		t.Errorf("RelativePath = %q, want %q", derived.RelativePath, "other/A.json")
	}
}

func TestCollectionItemDerivation(t *testing.T) {
	col := mustCollection(t, catalog.CollectionOptions{
		Path:      "root.pkg.K",
		Namespace: "root.pkg",
		Keys:      func(catalog.Context) ([]string, error) { return []string{"a1", "a2"}, nil },
		Item:      catalog.ItemTemplate{FileExtension: "json"},
	})

	got, err := col.Get("a1")
	if err != nil {
		t.Fatalf("Get(a1): %v", err)
	}
	if want := catalog.Path("root.pkg.K:a1"); got.Path != want {
		t.Errorf("catalog path = %q, want %q", got.Path, want)
	}
	if want := "pkg/K/a1.json"; got.RelativePath != want {
		t.Errorf("relative path = %q, want %q", got.RelativePath, want)
	}
}

func TestFilterDistinctness(t *testing.T) {
	parent := mustCollection(t, catalog.CollectionOptions{
		Path:      "root.pkg.Parent",
		Namespace: "root.pkg",
		Keys:      func(catalog.Context) ([]string, error) { return []string{"a1", "a2", "b1"}, nil },
		Item:      catalog.ItemTemplate{FileExtension: "json"},
	})
	match := func(childKey, parentKey string) bool { return parentKey[:1] == childKey[:1] }

	f1 := catalog.NewGeneralFilter(parent, match)
	first, err := f1.FilterBy("a1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := f1.FilterBy("a1")
	if err != nil {
		t.Fatal(err)
	}

	c1 := first.(catalog.RefCollection).Collection
	c2 := second.(catalog.RefCollection).Collection
	if c1.Path == c2.Path {
		t.Errorf("two FilterBy calls with identical args produced the same catalog path %q", c1.Path)
	}
	if c1.Path == parent.Path || c2.Path == parent.Path {
		t.Errorf("filtered collection path must differ from parent path")
	}

	keys1, err := c1.Keys(catalog.Context{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a1", "a2"}, keys1); diff != "" {
		t.Errorf("filtered keys mismatch (-want +got):\n%s", diff)
	}
}

// TestFilterDistinctnessAcrossInstances covers spec §8 "Filter
// distinctness" as literally stated: two separately constructed filters
// over the same parent (the natural shape of two unrelated datasets each
// filtering the same collection) must yield distinct catalog paths even on
// each filter's very first FilterBy call, not just across repeated calls
// on one shared instance.
func TestFilterDistinctnessAcrossInstances(t *testing.T) {
	parent := mustCollection(t, catalog.CollectionOptions{
		Path:      "root.pkg.Parent",
		Namespace: "root.pkg",
		Keys:      func(catalog.Context) ([]string, error) { return []string{"a1", "a2", "b1"}, nil },
		Item:      catalog.ItemTemplate{FileExtension: "json"},
	})
	matchA := func(childKey, parentKey string) bool { return parentKey[:1] == childKey[:1] }
	matchB := func(childKey, parentKey string) bool { return parentKey[:1] == childKey[:1] }

	f1 := catalog.NewGeneralFilter(parent, matchA)
	f2 := catalog.NewGeneralFilter(parent, matchB)

	r1, err := f1.FilterBy("a1")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := f2.FilterBy("a1")
	if err != nil {
		t.Fatal(err)
	}

	c1 := r1.(catalog.RefCollection).Collection
	c2 := r2.(catalog.RefCollection).Collection
	if c1.Path == c2.Path {
		t.Errorf("two independently constructed filters' first FilterBy(%q) collided on catalog path %q", "a1", c1.Path)
	}
}

func TestSameKeyFilter(t *testing.T) {
	parent := mustCollection(t, catalog.CollectionOptions{
		Path:      "root.pkg.Parent",
		Namespace: "root.pkg",
		Keys:      func(catalog.Context) ([]string, error) { return []string{"a1"}, nil },
		Item:      catalog.ItemTemplate{FileExtension: "json"},
	})
	sk := catalog.SameKeyIn(parent)

	ref, err := sk.FilterBy("a1")
	if err != nil {
		t.Fatal(err)
	}
	want, err := parent.Get("a1")
	if err != nil {
		t.Fatal(err)
	}
	got := ref.(catalog.RefDataset).Dataset
	if got.Path != want.Path {
		t.Errorf("SameKeyIn(parent).FilterBy(k) = %q, want parent.Get(k) = %q", got.Path, want.Path)
	}
}

func TestRegistryDescribe(t *testing.T) {
	r := catalog.NewRegistry()
	a := mustDataset(t, catalog.DatasetOptions{Path: "pkg.A", Namespace: "root.pkg", Description: "dataset A"})
	r.Register(catalog.NodeDataset{Dataset: a})

	desc := r.Describe()
	if desc["pkg.A"] != "dataset A" {
		t.Errorf("Describe()[pkg.A] = %q, want %q", desc["pkg.A"], "dataset A")
	}
	if len(r.All()) != 1 {
		t.Errorf("All() returned %d nodes, want 1", len(r.All()))
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := catalog.NewRegistry()
	a := mustDataset(t, catalog.DatasetOptions{Path: "pkg.A", Namespace: "root.pkg"})
	r.Register(catalog.NodeDataset{Dataset: a})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register(catalog.NodeDataset{Dataset: a})
}
