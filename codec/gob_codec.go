package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

func init() {
	// Composite values that commonly travel inside []any parameters.
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// GobCodec is the default binary codec.
// Every payload carries its own type descriptions, so a frame can be decoded without any state
// from previous frames. Named types sent as parameters or return values must be registered on
// both sides with Register.
type GobCodec struct{}

// Register makes a concrete type known to GobCodec for use inside parameters and return values.
func Register(value any) {
	gob.Register(value)
}

func (c *GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("GobCodec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *GobCodec) Decode(data []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("GobCodec: decode: %w", err)
	}
	return nil
}

func (c *GobCodec) Type() CodecType {
	return CodecTypeGob
}
