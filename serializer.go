package typedjson

import (
	"fmt"
	"reflect"
	"sort"
)

// encoder runs one serialization call.
type encoder struct {
	cfg *callConfig
}

// convert renders v as described by desc. defined is false when the value is
// absent from the output. Errors are local to this position, as for decoding.
func (e *encoder) convert(v reflect.Value, desc Descriptor, f frame) (any, bool, error) {
	v, null := indirect(v)
	if null {
		return nil, ResolveOption(OptionPreserveNull, f.scopes...), nil
	}
	if err := validateDescriptor(desc); err != nil {
		return nil, false, newConversionError(ErrUnsupportedType, f.path, desc, err)
	}
	if err := e.checkInstance(v, desc, f.path); err != nil {
		return nil, false, err
	}

	switch desc := desc.(type) {
	case ConcreteDescriptor:
		return e.concrete(v, desc, f)
	case ArrayDescriptor:
		return e.array(v, desc, f)
	case SetDescriptor:
		return e.set(v, desc, f)
	case MapDescriptor:
		return e.mapping(v, desc, f)
	}
	return nil, false, newConversionError(ErrUnsupportedType, f.path, desc, nil)
}

// indirect strips pointers and interfaces. null is true when a nil is found
// on the way, or when v is a nil slice or map.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}, true
		}
		v = v.Elem()
	}
	if isNil(v) {
		return reflect.Value{}, true
	}
	return v, false
}

// checkInstance verifies that v, already indirected, is an instance of what
// desc expects.
func (e *encoder) checkInstance(v reflect.Value, desc Descriptor, path string) error {
	vt := v.Type()
	ok := true
	switch desc := desc.(type) {
	case ConcreteDescriptor:
		t := desc.Type
		if _, custom := e.cfg.converters[t]; custom {
			return nil
		}
		switch {
		case t == typeAny:
		case t.Kind() == reflect.Interface:
			ok = vt.Implements(t) || reflect.PointerTo(vt).Implements(t)
		case t == typeTime:
			ok = vt == typeTime
		case isByteSlice(t):
			ok = isByteSlice(vt)
		case isNumericSlice(t):
			ok = vt.Kind() == reflect.Slice && vt.Elem().Kind() == t.Elem().Kind()
		case isPrimitiveKind(t.Kind()):
			ok = vt.Kind() == t.Kind()
		case t.Kind() == reflect.Struct:
			ok = vt.Kind() == reflect.Struct && e.cfg.reg.IsSubtypeOf(vt, t)
		}
	case ArrayDescriptor:
		ok = vt.Kind() == reflect.Slice || vt.Kind() == reflect.Array
	case SetDescriptor, MapDescriptor:
		ok = vt.Kind() == reflect.Map
	}
	if !ok {
		return newConversionError(ErrShapeMismatch, path, desc, fmt.Errorf("got %s", vt))
	}
	return nil
}

func (e *encoder) concrete(v reflect.Value, desc ConcreteDescriptor, f frame) (any, bool, error) {
	t := desc.Type
	if c, ok := e.cfg.converters[t]; ok && c.Serialize != nil {
		return e.custom(c.Serialize, v, desc, f)
	}
	if out, ok, err := encodePrimitive(v, t, f.path, desc); ok {
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	switch {
	case t.Kind() == reflect.Interface && (v.Kind() != reflect.Struct || isValueType(v.Type())):
		return e.convert(v, Infer(v.Type()), f)
	case v.Kind() == reflect.Struct:
		return e.object(v, t, f)
	}
	return nil, false, newConversionError(ErrUnsupportedType, f.path, desc,
		fmt.Errorf("don't know how to serialize %s", v.Type()))
}

// object renders a struct. expected is the statically expected type, which
// may be a supertype or interface of the runtime type.
func (e *encoder) object(v reflect.Value, expected reflect.Type, f frame) (any, bool, error) {
	ptr := addressable(v)
	rt := ptr.Elem().Type()
	md, _ := e.cfg.reg.Lookup(rt)
	known := f.known.Merge(e.cfg.reg.KnownTypesFor(expected)).Merge(e.cfg.reg.KnownTypesFor(rt))

	var hook string
	if md != nil {
		hook = md.BeforeSerializeHook
	}
	if err := runHook(ptr, md, hook, beforeSerialize); err != nil {
		return nil, false, newConversionError(ErrHook, f.path, Describe(rt), err)
	}

	target := NewObject()
	if md.HasMembers() {
		for _, m := range md.Members {
			fv, ok := fieldByIndex(ptr.Elem(), m.Index)
			if !ok {
				continue
			}
			mf := frame{
				path:    childPath(f.path, m.Name),
				scopes:  e.cfg.scopes(md.Options, m.Options),
				known:   known,
				emitter: m.TypeHintEmitter,
			}
			var (
				out     any
				defined bool
				err     error
			)
			if m.Serializer != nil {
				out, defined, err = e.custom(m.Serializer, fv, m.Descriptor(), mf)
			} else {
				out, defined, err = e.convert(fv, m.Descriptor(), mf)
			}
			if err != nil {
				if abort := e.cfg.report(err); abort != nil {
					return nil, false, abort
				}
				continue
			}
			if !defined {
				if m.EmitDefault {
					if empty, ok := emptyContainer(fv, m.Descriptor()); ok {
						target.Set(m.Name, empty)
					}
				}
				continue
			}
			target.Set(m.Name, out)
		}
	} else {
		for _, sf := range exportedFields(rt) {
			fv, ok := fieldByIndex(ptr.Elem(), sf.Index)
			if !ok {
				continue
			}
			name := wireNameOf(sf)
			out, defined, err := e.convert(fv, Infer(sf.Type), f.at(childPath(f.path, name)))
			if err != nil {
				if abort := e.cfg.report(err); abort != nil {
					return nil, false, abort
				}
				continue
			}
			if defined {
				target.Set(name, out)
			}
		}
	}

	emitter := f.emitter
	if emitter == nil {
		emitter = e.cfg.callEmitter
	}
	if emitter == nil && md != nil {
		emitter = md.TypeHintEmitter
	}
	if emitter == nil {
		emitter = e.cfg.engineEmitter
	}
	emitter(target, ptr.Interface(), expected, known)
	return target, true, nil
}

// array renders a list. Every element is checked before any is converted:
// one element of the wrong type fails the whole list.
func (e *encoder) array(v reflect.Value, desc ArrayDescriptor, f frame) (any, bool, error) {
	n := v.Len()
	for i := 0; i < n; i++ {
		ev, null := indirect(v.Index(i))
		if null {
			continue
		}
		if err := e.checkInstance(ev, desc.Elem, indexPath(f.path, i)); err != nil {
			return nil, false, err
		}
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		o, defined, err := e.convert(v.Index(i), desc.Elem, f.at(indexPath(f.path, i)))
		if err != nil {
			if abort := e.cfg.report(err); abort != nil {
				return nil, false, abort
			}
			continue
		}
		if defined {
			out[i] = o
		}
	}
	return out, true, nil
}

// set renders a set as a list in sorted order. map[K]bool counts only true
// entries as members.
func (e *encoder) set(v reflect.Value, desc SetDescriptor, f frame) (any, bool, error) {
	keys := sortedKeys(v)
	flags := v.Type().Elem().Kind() == reflect.Bool
	out := make([]any, 0, len(keys))
	for i, k := range keys {
		if flags && !v.MapIndex(k).Bool() {
			continue
		}
		o, defined, err := e.convert(k, desc.Elem, f.at(indexPath(f.path, i)))
		if err != nil {
			if abort := e.cfg.report(err); abort != nil {
				return nil, false, abort
			}
			continue
		}
		if defined {
			out = append(out, o)
		}
	}
	return out, true, nil
}

// mapping renders a map in sorted key order, as an object or as a list of
// key/value pairs. Entries whose key renders as absent are dropped and
// reported.
func (e *encoder) mapping(v reflect.Value, desc MapDescriptor, f frame) (any, bool, error) {
	keys := sortedKeys(v)
	obj := NewObject()
	pairs := make([]any, 0, len(keys))
	for i, k := range keys {
		kf := f.at(indexPath(f.path, i))
		ko, kdef, err := e.convert(k, desc.Key, kf)
		if err == nil && (!kdef || ko == nil) {
			err = newConversionError(ErrShapeMismatch, kf.path, desc.Key, fmt.Errorf("map key renders as nothing"))
		}
		var name string
		if err == nil && desc.Shape == MapAsObject {
			s, ok := ko.(string)
			if !ok {
				err = newConversionError(ErrShapeMismatch, kf.path, desc.Key, fmt.Errorf("key rendered as %T", ko))
			}
			name = s
			kf = f.at(childPath(f.path, name))
		}
		if err != nil {
			if abort := e.cfg.report(err); abort != nil {
				return nil, false, abort
			}
			continue
		}

		vo, vdef, err := e.convert(v.MapIndex(k), desc.Value, kf)
		if err != nil {
			if abort := e.cfg.report(err); abort != nil {
				return nil, false, abort
			}
			continue
		}
		if desc.Shape == MapAsObject {
			if vdef {
				obj.Set(name, vo)
			}
			continue
		}
		pair := NewObject()
		pair.Set("key", ko)
		if vdef {
			pair.Set("value", vo)
		}
		pairs = append(pairs, pair)
	}
	if desc.Shape == MapAsObject {
		return obj, true, nil
	}
	return pairs, true, nil
}

// custom runs a user serializer with a fallback bound to this call. A nil
// result is treated as null.
func (e *encoder) custom(fn SerializeFunc, v reflect.Value, desc Descriptor, f frame) (any, bool, error) {
	fallback := func(val any, d Descriptor) (any, error) {
		out, defined, err := e.convert(reflect.ValueOf(val), d, f)
		if err != nil || !defined {
			return nil, err
		}
		return out, nil
	}
	var in any
	if v.IsValid() {
		in = v.Interface()
	}
	out, err := fn(in, fallback)
	if err != nil {
		return nil, false, wrapLocal(err, f.path, desc)
	}
	if out == nil {
		return nil, ResolveOption(OptionPreserveNull, f.scopes...), nil
	}
	return out, true, nil
}

// emptyContainer is the rendering of a nil slice or map member declared
// with EmitDefault.
func emptyContainer(v reflect.Value, desc Descriptor) (any, bool) {
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Map) || !v.IsNil() {
		return nil, false
	}
	if m, ok := desc.(MapDescriptor); ok && m.Shape == MapAsObject {
		return NewObject(), true
	}
	switch desc.(type) {
	case ArrayDescriptor, SetDescriptor, MapDescriptor:
		return []any{}, true
	}
	return nil, false
}

func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

// sortedKeys returns the keys of map v in a deterministic order.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return lessValue(keys[i], keys[j]) })
	return keys
}

func lessValue(a, b reflect.Value) bool {
	a, _ = indirect(a)
	b, _ = indirect(b)
	if !a.IsValid() || !b.IsValid() {
		return !a.IsValid() && b.IsValid()
	}
	if a.Kind() == b.Kind() {
		switch k := a.Kind(); {
		case k == reflect.String:
			return a.String() < b.String()
		case isIntKind(k):
			return a.Int() < b.Int()
		case isUintKind(k):
			return a.Uint() < b.Uint()
		case isFloatKind(k):
			return a.Float() < b.Float()
		case k == reflect.Bool:
			return !a.Bool() && b.Bool()
		}
	}
	return fmt.Sprint(a.Interface()) < fmt.Sprint(b.Interface())
}
