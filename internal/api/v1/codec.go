package apiv1

import (
	"encoding/json"
	"fmt"
)

// CodecName replaces connect's protobuf JSON codec, so the Connect unary
// protocol carries these plain structs as application/json.
const CodecName = "json"

// JSONCodec implements connect.Codec with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return CodecName
}

func (JSONCodec) Marshal(message any) ([]byte, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(%T) > %w", message, err)
	}
	return data, nil
}

func (JSONCodec) Unmarshal(data []byte, message any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("json.Unmarshal(%T) > %w", message, err)
	}
	return nil
}
