// Package codec defines the opaque per-subtype serialize/deserialize hook
// datasets use to move their materialized value to and from a byte stream.
// The engine never interprets the value between Read and
// Write; codecs for specific tabular formats (CSV, Parquet, Pickle, Excel)
// are explicitly out of scope and are not implemented here.
package codec

import "io"

// A Codec reads and writes a dataset's in-memory value. Implementations
// must treat the value as opaque: any interpretation of its structure is
// the concern of the dataset's create function, not the codec.
type Codec interface {
	// Read deserializes a value from r.
	Read(r io.Reader) (any, error)

	// Write serializes v to w.
	Write(w io.Writer, v any) error
}

// Registry maps a name (typically a dataset's FileExtension) to the Codec
// that handles it: small, composable, per-format plugins registered by
// name rather than discovered by reflection.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register associates name with c. A later call with the same name
// replaces the previous association.
func (r *Registry) Register(name string, c Codec) {
	r.codecs[name] = c
}

// Lookup returns the codec registered under name, if any.
func (r *Registry) Lookup(name string) (Codec, bool) {
	c, ok := r.codecs[name]
	return c, ok
}
