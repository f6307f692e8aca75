package okeyrpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodec lets the OkeyService stream plain Intent/Event structs
// over gRPC without a protoc-generated pb.go: spec.md §6 only commits
// to a fan-out/intent contract, not a wire IDL, so a registered
// encoding.Codec satisfies transport without inventing one.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("okeyrpc: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
