package grpcapi

import (
	"encoding/json"
	"fmt"
)

// jsonCodecName is registered as the grpc wire codec name; clients must
// set the "grpc-encoding"/content-subtype to this value (lowercase, per
// the grpc spec) to talk to this service.
const jsonCodecName = "json"

// jsonCodec implements encoding.Codec (google.golang.org/grpc/encoding)
// using plain JSON instead of protobuf wire format. There is no .proto
// toolchain available in this environment to generate real protobuf
// stubs, so the service registers this codec and a hand-written
// grpc.ServiceDesc (service.go) instead — a documented gRPC extension
// point, not a workaround.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpcapi: json marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpcapi: json unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return jsonCodecName
}
