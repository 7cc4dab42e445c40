// Package jsoncodec implements [codec.Codec] using the standard library's
// encoding/json. It is the ambient, no-dependency default codec: simple
// dataset values that are just maps, slices, or structs round-trip through
// it without needing a domain-specific format.
package jsoncodec

import (
	"encoding/json"
	"io"
)

// Codec serializes values as JSON. Read decodes into a map[string]any
// unless New is supplied, in which case New must return a pointer to
// decode into (e.g. func() any { return new(MyRecord) }).
type Codec struct {
	New func() any
}

// NewCodec returns a Codec decoding into map[string]any.
func NewCodec() Codec { return Codec{} }

// Read implements [codec.Codec].
func (c Codec) Read(r io.Reader) (any, error) {
	if c.New != nil {
		target := c.New()
		if err := json.NewDecoder(r).Decode(target); err != nil {
			return nil, err
		}
		return target, nil
	}
	var m map[string]any
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Write implements [codec.Codec].
func (c Codec) Write(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
