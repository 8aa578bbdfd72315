// Package connectjson provides a plain-JSON codec so Connect handlers can
// exchange ordinary Go structs without protobuf definitions.
package connectjson

import (
	"encoding/json"

	"github.com/bufbuild/connect-go"
)

// Codec encodes and decodes stream messages as JSON.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

var _ connect.Codec = (*Codec)(nil)
