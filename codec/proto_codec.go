package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"ipc-service/message"
)

const (
	fieldContract   = "contractIdentifier"
	fieldMethod     = "methodName"
	fieldParameters = "parameters"
	fieldSucceeded  = "succeeded"
	fieldData       = "data"
	fieldFailure    = "failureMessage"
)

var errProtoTarget = errors.New("ProtoCodec: v must be *message.Request or *message.Response")

// ProtoCodec encodes messages as protobuf google.protobuf.Struct values.
//
// Struct is self-describing but only knows JSON-shaped values: every number travels as a
// double and structs travel as objects. Callers rely on the value converter to restore the
// declared Go types after decoding.
type ProtoCodec struct{}

func (c *ProtoCodec) Encode(v any) ([]byte, error) {
	var fields map[string]*structpb.Value

	switch msg := v.(type) {
	case *message.Request:
		params := make([]*structpb.Value, 0, len(msg.Parameters))
		for i, p := range msg.Parameters {
			pv, err := toValue(p)
			if err != nil {
				return nil, fmt.Errorf("ProtoCodec: parameter %d: %w", i, err)
			}
			params = append(params, pv)
		}
		fields = map[string]*structpb.Value{
			fieldContract:   structpb.NewStringValue(msg.Contract),
			fieldMethod:     structpb.NewStringValue(msg.Method),
			fieldParameters: structpb.NewListValue(&structpb.ListValue{Values: params}),
		}
	case *message.Response:
		data, err := toValue(msg.Data)
		if err != nil {
			return nil, fmt.Errorf("ProtoCodec: data: %w", err)
		}
		fields = map[string]*structpb.Value{
			fieldSucceeded: structpb.NewBoolValue(msg.Succeeded),
			fieldData:      data,
			fieldFailure:   structpb.NewStringValue(msg.Failure),
		}
	default:
		return nil, errProtoTarget
	}

	return proto.Marshal(&structpb.Struct{Fields: fields})
}

func (c *ProtoCodec) Decode(data []byte, v any) error {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("ProtoCodec: decode: %w", err)
	}
	fields := st.GetFields()

	switch msg := v.(type) {
	case *message.Request:
		msg.Contract = fields[fieldContract].GetStringValue()
		msg.Method = fields[fieldMethod].GetStringValue()
		msg.Parameters = nil
		for _, p := range fields[fieldParameters].GetListValue().GetValues() {
			msg.Parameters = append(msg.Parameters, p.AsInterface())
		}
	case *message.Response:
		msg.Succeeded = fields[fieldSucceeded].GetBoolValue()
		msg.Data = nil
		if d, ok := fields[fieldData]; ok {
			msg.Data = d.AsInterface()
		}
		msg.Failure = fields[fieldFailure].GetStringValue()
	default:
		return errProtoTarget
	}
	return nil
}

func (c *ProtoCodec) Type() CodecType {
	return CodecTypeProto
}

// toValue converts v to a structpb.Value. Values structpb does not accept directly (structs,
// typed slices and maps) are flattened through their JSON form first.
func toValue(v any) (*structpb.Value, error) {
	if pv, err := structpb.NewValue(v); err == nil {
		return pv, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return structpb.NewValue(generic)
}
