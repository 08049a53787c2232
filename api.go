// Package typedjson converts between typed Go values and generic JSON value
// trees in both directions.
//
// A value tree is what a JSON parser produces: nil, bool, float64, string,
// []any and ordered objects (*Object). The Engine walks such a tree against a
// Descriptor and builds typed values from it, or walks typed values and
// builds a tree. Bytes never enter the engine; a Codec turns trees into JSON,
// YAML or MessagePack and back.
//
// # Descriptors
//
// A Descriptor names the shape expected at a position:
//
//	DescribeOf[int]()                          // concrete
//	ArrayOf(DescribeOf[string]())              // Array<string>
//	SetOf(DescribeOf[string]())                // Set<string>
//	MapOf(DescribeOf[string](), d, MapAsObject) // Map<string, ...>(object)
//
// Infer derives a descriptor from a Go type, so most callers never build one.
//
// # Registration
//
// Structs are registered once with their members and relations:
//
//	type Person struct {
//	    Name string `json:"name" typedjson:"required"`
//	}
//
//	type Employee struct {
//	    Person
//	    BadgeID string `json:"badgeId"`
//	}
//
//	reg := typedjson.NewRegistry()
//	typedjson.MustRegister[Person](reg)
//	typedjson.MustRegister[Employee](reg, typedjson.ExtendsOf[Person]())
//
// Member tags use the json name for the wire key and the typedjson tag for
// flags: required, emitDefault, preserveNull, mask=<type> and digest=<algo>.
//
// # Conversion
//
//	engine := typedjson.New(reg, typedjson.WithDiscriminator("type"))
//	tree, _ := engine.Serialize(&Employee{...}, typedjson.DescribeOf[Person]())
//	// {"name":"Bob","badgeId":"x1","type":"Employee"}
//
// A value whose runtime type differs from the declared one carries a type
// hint. Deserialization reads the hint back, checks it against the known
// types in scope and instantiates the subtype.
//
// # Errors
//
// Conversion errors are contained. Each failure is passed to the ErrorHandler
// and the failed value is treated as absent: an array keeps a zero element,
// an object drops the member. A handler that returns an error aborts the
// whole call. Use FailFast for strict conversion and Collect to gather every
// error.
//
// # Processors
//
// Processor binds a type to an engine and a codec:
//
//	proc, _ := typedjson.NewProcessor[*Person](engine, json.New())
//	data, _ := proc.Marshal(p)
//	p, _ = proc.Unmarshal(data)
package typedjson

// Codec encodes generic value trees to bytes and back. Implementations for
// JSON, YAML and MessagePack live in the json, yaml and msgpack subpackages.
type Codec interface {
	// ContentType returns the MIME type, e.g. "application/json".
	ContentType() string

	// Marshal encodes a value tree. Trees may contain *Object, which each
	// codec renders as an ordered map.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v, which is typically *any.
	Unmarshal(data []byte, v any) error
}

// BeforeSerializer is called before an instance is serialized when its type
// declares no named hook.
type BeforeSerializer interface {
	BeforeSerialize() error
}

// AfterDeserializer is called after an instance is deserialized when its
// type declares no named hook.
type AfterDeserializer interface {
	AfterDeserialize() error
}
