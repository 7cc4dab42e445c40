package catalog

import "fmt"

// Node is anything the graph builder can take as a target: a dataset or a
// collection declaration. It is a closed sum type for the same
// reason [ParentRef] is.
type Node interface {
	node()
	CatalogPath() Path
}

// NodeDataset wraps a DatasetDecl as a build target.
type NodeDataset struct{ Dataset DatasetDecl }

func (NodeDataset) node()               {}
func (n NodeDataset) CatalogPath() Path { return n.Dataset.Path }

// NodeCollection wraps a CollectionDecl as a build target.
type NodeCollection struct{ Collection CollectionDecl }

func (NodeCollection) node()               {}
func (n NodeCollection) CatalogPath() Path { return n.Collection.Path }

// Registry is an explicit namespace of declared artifacts. It replaces a
// reflective module-member walk with an explicit registration call — no
// reflection over package members.
type Registry struct {
	nodes        []Node
	descriptions map[Path]string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{descriptions: make(map[Path]string)}
}

// Register adds a dataset or collection declaration to the registry. It
// panics on a duplicate catalog path, since a namespace collision at
// registration time is a programming error, not a runtime condition a
// caller can recover from mid-build.
func (r *Registry) Register(n Node) {
	for _, existing := range r.nodes {
		if existing.CatalogPath() == n.CatalogPath() {
			panic(fmt.Sprintf("catalog: duplicate registration for %s", n.CatalogPath()))
		}
	}
	r.nodes = append(r.nodes, n)
	r.descriptions[n.CatalogPath()] = description(n)
}

func description(n Node) string {
	switch v := n.(type) {
	case NodeDataset:
		return v.Dataset.Description
	case NodeCollection:
		return v.Collection.Description
	default:
		return ""
	}
}

// All returns every node registered, in registration order. This is the
// default target set when no explicit targets are given.
func (r *Registry) All() []Node {
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Describe returns {catalog_path: description} for every registered node.
func (r *Registry) Describe() map[string]string {
	out := make(map[string]string, len(r.descriptions))
	for path, desc := range r.descriptions {
		out[string(path)] = desc
	}
	return out
}
