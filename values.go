package typedjson

import (
	"reflect"
)

// fit adapts v to dst: pointers are added or removed and same-kind named
// types are converted. A nil dst accepts v unchanged.
func fit(v reflect.Value, dst reflect.Type) (reflect.Value, bool) {
	if dst == nil {
		return v, true
	}
	if !v.IsValid() {
		return reflect.Zero(dst), true
	}
	vt := v.Type()
	switch {
	case vt.AssignableTo(dst):
		return v, true
	case vt.Kind() == reflect.Pointer && !v.IsNil() && vt.Elem().AssignableTo(dst):
		return v.Elem(), true
	case dst.Kind() == reflect.Pointer && vt.AssignableTo(dst.Elem()):
		p := reflect.New(dst.Elem())
		p.Elem().Set(v)
		return p, true
	case convertible(vt, dst):
		return v.Convert(dst), true
	case dst.Kind() == reflect.Pointer && convertible(vt, dst.Elem()):
		p := reflect.New(dst.Elem())
		p.Elem().Set(v.Convert(dst.Elem()))
		return p, true
	}
	return reflect.Value{}, false
}

// convertible limits reflect conversion to types of the same kind, or
// numeric to numeric, so that e.g. an int never becomes a one-rune string.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if from.Kind() == to.Kind() {
		return true
	}
	return isNumericKind(from.Kind()) && isNumericKind(to.Kind())
}

// canonicalType is the Go type produced for d when the destination does not
// constrain it. Structs become pointers, or any when registered subtypes
// may appear in their place.
func canonicalType(reg *Registry, d Descriptor) reflect.Type {
	switch d := d.(type) {
	case ConcreteDescriptor:
		t := d.Type
		if t == nil {
			return typeAny
		}
		if t.Kind() == reflect.Struct && t != typeTime {
			if hasSubtypes(reg, t) {
				return typeAny
			}
			return reflect.PointerTo(t)
		}
		return t
	case ArrayDescriptor:
		return reflect.SliceOf(canonicalType(reg, d.Elem))
	case SetDescriptor:
		key := canonicalType(reg, d.Elem)
		if !key.Comparable() {
			key = typeAny
		}
		return reflect.MapOf(key, typeEmpty)
	case MapDescriptor:
		key := canonicalType(reg, d.Key)
		if !key.Comparable() {
			key = typeAny
		}
		return reflect.MapOf(key, canonicalType(reg, d.Value))
	}
	return typeAny
}

func hasSubtypes(reg *Registry, t reflect.Type) bool {
	if reg == nil {
		return false
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.subtypes[t]) > 0
}

// hashable reports whether v may be used as a map key.
func hashable(v reflect.Value) bool {
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v.Type().Comparable() && v.Kind() != reflect.Interface
}

// fieldByIndex walks index without allocating. ok is false when an embedded
// pointer on the way is nil.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldForSet walks index, allocating nil embedded pointers.
func fieldForSet(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// isNil reports whether v holds no value.
func isNil(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// nullValue is the Go value for an explicit null at dst, or the invalid
// value when dst cannot hold nil.
func nullValue(dst reflect.Type) reflect.Value {
	if dst == nil {
		return reflect.Zero(typeAny)
	}
	switch dst.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return reflect.Zero(dst)
	}
	return reflect.Value{}
}

// exportedFields lists the fields of an unregistered struct that convert by
// runtime shape, with their wire names.
func exportedFields(t reflect.Type) []reflect.StructField {
	var out []reflect.StructField
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Tag.Get("json") == "-" {
			continue
		}
		if sf.Anonymous && baseType(sf.Type).Kind() == reflect.Struct {
			continue
		}
		out = append(out, sf)
	}
	return out
}
