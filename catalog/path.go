package catalog

import "strings"

// A Path is the stable catalog identity of an artifact, of the form
// "<namespace>.<Name>[:<key>][:<suffix>]". Equality and hashing
// of artifacts, whether declarations or context-bound instances, are
// defined solely by this string.
type Path string

// String implements fmt.Stringer.
func (p Path) String() string { return string(p) }

// WithKey returns the per-key derivation of p for a collection item, of the
// form "p:key".
func (p Path) WithKey(key string) Path {
	return Path(string(p) + ":" + key)
}

// WithSuffix appends an opaque suffix segment, used by filters to keep a
// filtered collection distinct from its parent in the resolver.
func (p Path) WithSuffix(suffix string) Path {
	return Path(string(p) + ":" + suffix)
}

// namespacePath returns the directory-like path used to derive a relative
// storage path, which is the artifact's namespace with its leading segment
// dropped. The dropped segment is named the root namespace and
// is supplied explicitly at declaration time, not inferred from source
// layout.
func namespacePath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[1:], "/")
}
