// Package yaml provides a YAML codec.
package yaml

import (
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/typedjson"
)

// yamlCodec implements typedjson.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() typedjson.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML. *typedjson.Object values keep their key order.
func (c *yamlCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
func (c *yamlCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
