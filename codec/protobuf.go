package codec

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes proto.Message values. Encode and Decode reject any
// other type, since the index stores arbitrary values through one codec.
type Protobuf struct{}

func (Protobuf) Encode(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("protobuf codec: %T does not implement proto.Message", v)
	}
	return proto.Marshal(m)
}

func (Protobuf) Decode(b []byte, out any) error {
	m, ok := out.(proto.Message)
	if !ok {
		return fmt.Errorf("protobuf codec: %T does not implement proto.Message", out)
	}
	return proto.Unmarshal(b, m)
}
