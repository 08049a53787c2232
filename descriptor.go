package typedjson

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// MapShape selects the wire representation of a map.
type MapShape int

const (
	// MapAsPairs encodes a map as a list of {"key": k, "value": v} objects.
	MapAsPairs MapShape = iota

	// MapAsObject encodes a map as an object keyed by the string form of the key.
	// Only valid when the key type serializes to a string.
	MapAsObject
)

func (s MapShape) String() string {
	if s == MapAsObject {
		return "object"
	}
	return "pairs"
}

// Descriptor describes the expected shape of a value: a concrete type or a
// generic container parameterised by nested descriptors.
//
// Descriptors are immutable and safe to share.
type Descriptor interface {
	fmt.Stringer
	descriptor()
}

// ConcreteDescriptor names a primitive, a built-in value type (time.Time,
// []byte, typed numeric slices) or a user struct/interface type.
type ConcreteDescriptor struct {
	Type reflect.Type
}

// ArrayDescriptor describes an ordered list of Elem.
type ArrayDescriptor struct {
	Elem Descriptor
}

// SetDescriptor describes an unordered collection of unique Elem.
type SetDescriptor struct {
	Elem Descriptor
}

// MapDescriptor describes a keyed collection.
type MapDescriptor struct {
	Key   Descriptor
	Value Descriptor
	Shape MapShape
}

func (ConcreteDescriptor) descriptor() {}
func (ArrayDescriptor) descriptor()    {}
func (SetDescriptor) descriptor()      {}
func (MapDescriptor) descriptor()      {}

func (d ConcreteDescriptor) String() string {
	if d.Type == nil {
		return "<nil>"
	}
	return d.Type.String()
}

func (d ArrayDescriptor) String() string { return "Array<" + d.Elem.String() + ">" }
func (d SetDescriptor) String() string   { return "Set<" + d.Elem.String() + ">" }

func (d MapDescriptor) String() string {
	return fmt.Sprintf("Map<%s, %s>(%s)", d.Key, d.Value, d.Shape)
}

var (
	typeAny   = reflect.TypeOf((*any)(nil)).Elem()
	typeTime  = reflect.TypeOf(time.Time{})
	typeBytes = reflect.TypeOf([]byte(nil))
	typeEmpty = reflect.TypeOf(struct{}{})
)

// Describe returns a concrete descriptor for t. Pointer types are normalised to
// their element type so that *T and T name the same class.
func Describe(t reflect.Type) Descriptor {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return ConcreteDescriptor{Type: t}
}

// DescribeOf returns a concrete descriptor for T.
func DescribeOf[T any]() Descriptor {
	return Describe(reflect.TypeFor[T]())
}

// ArrayOf wraps elem in an array descriptor.
func ArrayOf(elem Descriptor) Descriptor { return ArrayDescriptor{Elem: elem} }

// SetOf wraps elem in a set descriptor.
func SetOf(elem Descriptor) Descriptor { return SetDescriptor{Elem: elem} }

// MapOf builds a map descriptor with the given wire shape.
func MapOf(key, value Descriptor, shape MapShape) Descriptor {
	return MapDescriptor{Key: key, Value: value, Shape: shape}
}

// Dimensions builds an n-deep nested array descriptor around elem.
func Dimensions(elem Descriptor, n int) (Descriptor, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDimensions, n)
	}
	d := elem
	for i := 0; i < n; i++ {
		d = ArrayOf(d)
	}
	return d, nil
}

// EnumerateTypes returns every concrete type reachable from d, in discovery
// order and without duplicates.
func EnumerateTypes(d Descriptor) []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	var walk func(Descriptor)
	walk = func(d Descriptor) {
		switch d := d.(type) {
		case ConcreteDescriptor:
			if d.Type != nil && !seen[d.Type] {
				seen[d.Type] = true
				out = append(out, d.Type)
			}
		case ArrayDescriptor:
			walk(d.Elem)
		case SetDescriptor:
			walk(d.Elem)
		case MapDescriptor:
			walk(d.Key)
			walk(d.Value)
		}
	}
	walk(d)
	return out
}

// Infer derives a descriptor from a Go type. []byte and time.Time stay
// concrete; other slices become arrays, map[K]struct{} becomes a set,
// map[string]V becomes an object-shaped map and any other map a list of
// pairs.
func Infer(t reflect.Type) Descriptor {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ConcreteDescriptor{Type: typeAny}
	}
	if t == typeBytes || t == typeTime {
		return ConcreteDescriptor{Type: t}
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return ArrayOf(Infer(t.Elem()))
	case reflect.Map:
		if t.Elem() == typeEmpty {
			return SetOf(Infer(t.Key()))
		}
		shape := MapAsPairs
		if t.Key().Kind() == reflect.String {
			shape = MapAsObject
		}
		return MapOf(Infer(t.Key()), Infer(t.Elem()), shape)
	}
	return ConcreteDescriptor{Type: t}
}

// LazyDescriptor defers building a descriptor until first use so that
// mutually referencing types can name each other. The result is memoised.
type LazyDescriptor struct {
	once sync.Once
	fn   func() Descriptor
	d    Descriptor
}

// Lazy wraps fn in a memoised thunk.
func Lazy(fn func() Descriptor) *LazyDescriptor {
	return &LazyDescriptor{fn: fn}
}

// Resolve returns the descriptor, building it on first call.
func (l *LazyDescriptor) Resolve() Descriptor {
	l.once.Do(func() {
		if l.fn != nil {
			l.d = l.fn()
		}
	})
	return l.d
}

// validateDescriptor checks the structural constraints that cannot be
// expressed in the constructors.
func validateDescriptor(d Descriptor) error {
	switch d := d.(type) {
	case nil:
		return fmt.Errorf("%w: nil descriptor", ErrUnsupportedType)
	case ConcreteDescriptor:
		if d.Type == nil {
			return fmt.Errorf("%w: nil type", ErrUnsupportedType)
		}
	case ArrayDescriptor:
		return validateDescriptor(d.Elem)
	case SetDescriptor:
		return validateDescriptor(d.Elem)
	case MapDescriptor:
		if d.Shape == MapAsObject && !stringKeyed(d.Key) {
			return fmt.Errorf("%w: object-shaped map requires string keys, got %s", ErrShapeMismatch, d.Key)
		}
		if err := validateDescriptor(d.Key); err != nil {
			return err
		}
		return validateDescriptor(d.Value)
	}
	return nil
}

// stringKeyed reports whether values described by d serialize to strings.
func stringKeyed(d Descriptor) bool {
	c, ok := d.(ConcreteDescriptor)
	if !ok || c.Type == nil {
		return false
	}
	return c.Type.Kind() == reflect.String || c.Type == typeTime
}
