// Package json provides a JSON codec backed by goccy/go-json.
package json

import (
	gojson "github.com/goccy/go-json"

	"github.com/zoobzio/typedjson"
)

// jsonCodec implements typedjson.Codec for JSON.
type jsonCodec struct{}

// New returns a JSON codec.
func New() typedjson.Codec {
	return &jsonCodec{}
}

// ContentType returns the MIME type for JSON.
func (c *jsonCodec) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON. *typedjson.Object values keep their key order.
func (c *jsonCodec) Marshal(v any) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal decodes JSON data into v. Decoding into *any yields a value tree
// whose objects are *typedjson.Object, preserving key order.
func (c *jsonCodec) Unmarshal(data []byte, v any) error {
	if p, ok := v.(*any); ok {
		tree, err := typedjson.Parse(data)
		if err != nil {
			return err
		}
		*p = tree
		return nil
	}
	return gojson.Unmarshal(data, v)
}
