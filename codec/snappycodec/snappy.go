// Package snappycodec wraps another [codec.Codec] with snappy compression
// applied to its encoded bytes.
package snappycodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/databuild/databuild/codec"
)

// Codec compresses the output of an inner codec with snappy before it
// reaches the underlying stream, and decompresses before handing bytes to
// the inner codec on read.
type Codec struct {
	Inner codec.Codec
}

// Wrap returns a Codec that snappy-compresses inner's encoded form.
func Wrap(inner codec.Codec) Codec { return Codec{Inner: inner} }

// Read implements [codec.Codec].
func (c Codec) Read(r io.Reader) (any, error) {
	compressed, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snappycodec: decode: %w", err)
	}
	return c.Inner.Read(bytes.NewReader(raw))
}

// Write implements [codec.Codec].
func (c Codec) Write(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := c.Inner.Write(&buf, v); err != nil {
		return err
	}
	compressed := snappy.Encode(nil, buf.Bytes())
	_, err := w.Write(compressed)
	return err
}
