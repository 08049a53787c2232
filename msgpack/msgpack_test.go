package msgpack

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/zoobzio/typedjson"
)

func TestNew(t *testing.T) {
	c := New()
	if c == nil {
		t.Error("New() should return non-nil codec")
	}
}

func TestContentType(t *testing.T) {
	c := New()
	if c.ContentType() != "application/msgpack" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/msgpack")
	}
}

func TestMarshal_ObjectKeepsOrder(t *testing.T) {
	o := typedjson.NewObject()
	o.Set("zeta", "1")
	o.Set("alpha", "2")

	data, err := New().Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeMapLen()
	if err != nil {
		t.Fatalf("DecodeMapLen() error: %v", err)
	}
	var keys []string
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		if err != nil {
			t.Fatalf("DecodeString() error: %v", err)
		}
		if _, err := dec.DecodeString(); err != nil {
			t.Fatalf("DecodeString() error: %v", err)
		}
		keys = append(keys, k)
	}
	if diff := cmp.Diff([]string{"zeta", "alpha"}, keys); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalUnmarshal_Tree(t *testing.T) {
	c := New()
	o := typedjson.NewObject()
	o.Set("name", "Bob")
	o.Set("tags", []any{"a", "b"})
	o.Set("admin", false)

	data, err := c.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := map[string]any{"name": "Bob", "tags": []any{"a", "b"}, "admin": false}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	var v any
	if err := New().Unmarshal([]byte{0xc1}, &v); err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}
