package yaml

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

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
	if c.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", c.ContentType(), "application/yaml")
	}
}

func TestMarshal_ObjectKeepsOrder(t *testing.T) {
	o := typedjson.NewObject()
	o.Set("zeta", "last-alphabetically")
	o.Set("alpha", []any{"x"})

	data, err := New().Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	out := string(data)
	z, a := strings.Index(out, "zeta:"), strings.Index(out, "alpha:")
	if z < 0 || a < 0 || z > a {
		t.Errorf("Marshal() = %q, want zeta before alpha", out)
	}
}

func TestMarshalUnmarshal_Tree(t *testing.T) {
	c := New()
	o := typedjson.NewObject()
	o.Set("name", "Bob")
	o.Set("tags", []any{"a", "b"})
	inner := typedjson.NewObject()
	inner.Set("ok", true)
	o.Set("inner", inner)

	data, err := c.Marshal(o)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var v any
	if err := c.Unmarshal(data, &v); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	want := map[string]any{
		"name":  "Bob",
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"ok": true},
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalNil(t *testing.T) {
	data, err := New().Marshal(nil)
	if err != nil {
		t.Fatalf("Marshal(nil) error: %v", err)
	}
	if strings.TrimSpace(string(data)) != "null" {
		t.Errorf("Marshal(nil) = %q, want %q", data, "null")
	}
}

func TestUnmarshal_Malformed(t *testing.T) {
	var v any
	if err := New().Unmarshal([]byte("key: [unclosed"), &v); err == nil {
		t.Error("Unmarshal(malformed) should return error")
	}
}
