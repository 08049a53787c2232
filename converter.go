package typedjson

import (
	"reflect"
)

// DeserializeFallback converts raw through the generic engine using d. It is
// bound to the conversion in progress, so known types, options and the error
// handler of the surrounding call apply. A nil result means absent.
type DeserializeFallback func(raw any, d Descriptor) (any, error)

// SerializeFallback converts v through the generic engine using d.
type SerializeFallback func(v any, d Descriptor) (any, error)

// DeserializeFunc is a custom deserializer. It fully replaces the default
// strategy; its result is assigned without type validation beyond what Go
// assignment requires.
type DeserializeFunc func(raw any, fallback DeserializeFallback) (any, error)

// SerializeFunc is a custom serializer.
type SerializeFunc func(v any, fallback SerializeFallback) (any, error)

// Converter pairs a custom serializer and deserializer. Either may be nil, in
// which case the default strategy runs for that direction.
type Converter struct {
	Serialize   SerializeFunc
	Deserialize DeserializeFunc
}

// TypeResolver inspects a raw object and names the concrete type it encodes,
// or returns nil when it carries no usable hint.
type TypeResolver func(raw *Object, known *KnownTypes) reflect.Type

// TypeHintEmitter adds type hints to a serialized object. value is the
// instance being serialized and expected the statically expected type.
type TypeHintEmitter func(target *Object, value any, expected reflect.Type, known *KnownTypes)

// Initializer builds an instance from the staged member values (keyed by Go
// field name) and the raw object. The result must be a non-nil pointer to the
// expected type or one of its subtypes.
type Initializer func(staged map[string]any, raw *Object) (any, error)

// HookFunc is a static lifecycle hook.
type HookFunc func(v any) error

// DefaultDiscriminator is the property used for type hints unless configured.
const DefaultDiscriminator = "__type"

// DiscriminatorResolver returns a resolver reading the type name from key.
func DiscriminatorResolver(key string) TypeResolver {
	return func(raw *Object, known *KnownTypes) reflect.Type {
		v, ok := raw.Get(key)
		if !ok {
			return nil
		}
		name, ok := v.(string)
		if !ok || name == "" {
			return nil
		}
		t, _ := known.Lookup(name)
		return t
	}
}

// DiscriminatorEmitter returns an emitter writing the registered name of the
// runtime type under key whenever it differs from the expected type.
func DiscriminatorEmitter(key string) TypeHintEmitter {
	return func(target *Object, value any, expected reflect.Type, known *KnownTypes) {
		rt := baseType(reflect.TypeOf(value))
		if rt == nil || rt == baseType(expected) {
			return
		}
		if name, ok := known.NameOf(rt); ok {
			target.Set(key, name)
			return
		}
		target.Set(key, rt.Name())
	}
}

// isNilAny reports whether v is nil or holds a nil pointer, slice or map.
func isNilAny(v any) bool {
	return v == nil || isNil(reflect.ValueOf(v))
}
