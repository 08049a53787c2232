package typedjson

import (
	"reflect"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

// testCodec is a simple JSON codec for testing. Trees decode with ordered
// objects.
type testCodec struct{}

func (testCodec) ContentType() string { return "application/json" }

func (testCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (testCodec) Unmarshal(data []byte, v any) error {
	if p, ok := v.(*any); ok {
		tree, err := Parse(data)
		if err != nil {
			return err
		}
		*p = tree
		return nil
	}
	return json.Unmarshal(data, v)
}

// Pet is implemented by the animal subtypes.
type Pet interface {
	Sound() string
}

// Animal is the root of the test hierarchy.
type Animal struct {
	Name string `json:"name" typedjson:"required"`
	Legs int    `json:"legs"`
}

type Dog struct {
	Animal
	Breed string `json:"breed"`
}

func (*Dog) Sound() string { return "woof" }

type Cat struct {
	Animal
	Indoor bool `json:"indoor"`
}

func (*Cat) Sound() string { return "meow" }

// Shelter holds polymorphic members.
type Shelter struct {
	Title    string         `json:"title"`
	Pets     []Pet          `json:"pets"`
	Featured any            `json:"featured"`
	Opened   time.Time      `json:"opened"`
	Capacity map[string]int `json:"capacity"`
}

// newTestRegistry registers the animal hierarchy and Shelter.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, err := range []error{
		register[Animal](reg),
		register[Dog](reg, ExtendsOf[Animal]()),
		register[Cat](reg, ExtendsOf[Animal]()),
		register[Shelter](reg,
			WithKnownTypes(reflect.TypeFor[Dog](), reflect.TypeFor[Cat]()),
			WithMember("Featured", MemberType(func() Descriptor { return DescribeOf[Animal]() })),
		),
	} {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return reg
}

func register[T any](reg *Registry, opts ...TypeOption) error {
	_, err := Register[T](reg, opts...)
	return err
}

// collecting returns an engine whose handler records every error.
func collecting(reg *Registry, opts ...Option) (*Engine, *Errors) {
	errs := &Errors{}
	return New(reg, append([]Option{WithErrorHandler(Collect(errs))}, opts...)...), errs
}

// obj builds an ordered object from alternating keys and values.
func obj(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}
