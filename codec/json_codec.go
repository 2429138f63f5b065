package codec

import (
	"bytes"
	"encoding/json"
)

// JSONCodec frames requests and responses as JSON text.
// Numbers lose their Go type on the wire; Decode keeps them as json.Number so the
// converter can restore the declared width without precision loss.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (c *JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
