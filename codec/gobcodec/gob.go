// Package gobcodec implements [codec.Codec] using the standard library's
// encoding/gob, for datasets whose values are native Go structs and don't
// need cross-language portability.
package gobcodec

import (
	"encoding/gob"
	"io"
)

// Codec serializes values with encoding/gob. New must construct a pointer
// to the concrete type to decode into, since gob (like json) needs a
// concrete destination rather than a bare interface value.
type Codec struct {
	New func() any
}

// NewCodec returns a Codec that decodes into the value produced by new.
func NewCodec(new func() any) Codec { return Codec{New: new} }

// Read implements [codec.Codec].
func (c Codec) Read(r io.Reader) (any, error) {
	target := c.New()
	if err := gob.NewDecoder(r).Decode(target); err != nil {
		return nil, err
	}
	return target, nil
}

// Write implements [codec.Codec].
func (c Codec) Write(w io.Writer, v any) error {
	return gob.NewEncoder(w).Encode(v)
}
