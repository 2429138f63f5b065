// Package codec converts Requests and Responses to and from frame payloads.
//
// The frame layer never looks inside a payload; a Codec decides its encoding. Client and
// server must agree on the codec out of band (both sides are configured with the same one).
package codec

import (
	"fmt"
	"strings"
)

type CodecType byte

const (
	CodecTypeGob   CodecType = 0
	CodecTypeJSON  CodecType = 1
	CodecTypeProto CodecType = 2
)

// Codec encodes and decodes *message.Request and *message.Response values.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Type() CodecType // 0=Gob, 1=JSON, 2=Proto
}

// Default is the codec used when none is configured.
var Default Codec = &GobCodec{}

func GetCodec(codecType CodecType) Codec {
	switch codecType {
	case CodecTypeJSON:
		return &JSONCodec{}
	case CodecTypeProto:
		return &ProtoCodec{}
	default:
		return &GobCodec{}
	}
}

// ParseCodecType maps a configuration name ("gob", "json", "proto") to a CodecType.
func ParseCodecType(name string) (CodecType, error) {
	switch strings.ToLower(name) {
	case "", "gob", "binary":
		return CodecTypeGob, nil
	case "json":
		return CodecTypeJSON, nil
	case "proto", "protobuf":
		return CodecTypeProto, nil
	}
	return 0, fmt.Errorf("codec: unknown codec %q", name)
}

func (t CodecType) String() string {
	switch t {
	case CodecTypeGob:
		return "gob"
	case CodecTypeJSON:
		return "json"
	case CodecTypeProto:
		return "proto"
	}
	return fmt.Sprintf("CodecType(%d)", byte(t))
}
