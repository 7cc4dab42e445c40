// Package protoenvelope implements [codec.Codec] for datasets whose value
// is a protobuf message, using google.golang.org/protobuf for marshaling.
package protoenvelope

import (
	"fmt"
	"io"

	"google.golang.org/protobuf/proto"
)

// Codec serializes a single proto.Message per blob. New must return a
// fresh, empty instance of the message type this codec handles.
type Codec struct {
	New func() proto.Message
}

// NewCodec returns a Codec for the message type produced by new.
func NewCodec(new func() proto.Message) Codec { return Codec{New: new} }

// Read implements [codec.Codec].
func (c Codec) Read(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	msg := c.New()
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("protoenvelope: unmarshal: %w", err)
	}
	return msg, nil
}

// Write implements [codec.Codec].
func (c Codec) Write(w io.Writer, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("protoenvelope: value of type %T is not a proto.Message", v)
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("protoenvelope: marshal: %w", err)
	}
	_, err = w.Write(data)
	return err
}
