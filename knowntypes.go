package typedjson

import (
	"reflect"
	"sort"
)

// KnownTypes maps discriminator names to types and back.
//
// A KnownTypes value is treated as immutable once handed to the engine:
// Merge returns a new registry instead of modifying the receiver, so a
// registry inherited from an outer object is never altered by an inner one.
type KnownTypes struct {
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewKnownTypes returns an empty registry.
func NewKnownTypes() *KnownTypes {
	return &KnownTypes{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Add registers t under name, replacing any previous binding of either.
// Pointer types are normalised to their element type.
func (k *KnownTypes) Add(name string, t reflect.Type) *KnownTypes {
	t = baseType(t)
	if old, ok := k.byName[name]; ok {
		delete(k.byType, old)
	}
	if old, ok := k.byType[t]; ok {
		delete(k.byName, old)
	}
	k.byName[name] = t
	k.byType[t] = name
	return k
}

// Lookup resolves a discriminator name.
func (k *KnownTypes) Lookup(name string) (reflect.Type, bool) {
	if k == nil {
		return nil, false
	}
	t, ok := k.byName[name]
	return t, ok
}

// NameOf returns the name t is registered under.
func (k *KnownTypes) NameOf(t reflect.Type) (string, bool) {
	if k == nil {
		return "", false
	}
	name, ok := k.byType[baseType(t)]
	return name, ok
}

// Len returns the number of bindings.
func (k *KnownTypes) Len() int {
	if k == nil {
		return 0
	}
	return len(k.byName)
}

// Names returns the registered names in sorted order.
func (k *KnownTypes) Names() []string {
	if k == nil {
		return nil
	}
	names := make([]string, 0, len(k.byName))
	for n := range k.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge returns a registry holding the bindings of k overlaid with those of
// other; on a name collision other wins. Merging the same registry twice
// yields the same result as merging once.
func (k *KnownTypes) Merge(other *KnownTypes) *KnownTypes {
	if other.Len() == 0 {
		if k == nil {
			return NewKnownTypes()
		}
		return k
	}
	out := NewKnownTypes()
	if k != nil {
		for n, t := range k.byName {
			out.Add(n, t)
		}
	}
	for _, n := range other.Names() {
		out.Add(n, other.byName[n])
	}
	return out
}

// Equal reports whether both registries hold the same bindings.
func (k *KnownTypes) Equal(other *KnownTypes) bool {
	if k.Len() != other.Len() {
		return false
	}
	if k == nil {
		return true
	}
	for n, t := range k.byName {
		if ot, ok := other.byName[n]; !ok || ot != t {
			return false
		}
	}
	return true
}

// knownTypesOf builds a registry from a list of types, naming each one after
// its registered metadata when available.
func knownTypesOf(reg *Registry, types ...reflect.Type) *KnownTypes {
	kt := NewKnownTypes()
	for _, t := range types {
		kt.Add(reg.nameOf(t), t)
	}
	return kt
}

func baseType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
