package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the content subtype of the service, sent as
// application/grpc+json.
const codecName = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

// codec encodes messages as JSON. The messages of the service are plain
// structs, no protobuf code is generated for them.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (codec) Name() string {
	return codecName
}
