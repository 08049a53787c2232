package typedjson

import (
	"errors"
	"fmt"
	"reflect"
)

// decoder runs one deserialization call.
type decoder struct {
	cfg *callConfig
}

// convert turns raw into a value described by desc. present is false when
// the source had no value at this position. The result is invalid when the
// value is absent. dst, when non-nil, is the Go type the caller will store
// the result in.
//
// Errors returned here are local to this position: the caller reports them
// and treats the value as absent. Abort errors must be propagated unchanged.
func (d *decoder) convert(raw any, present bool, desc Descriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	if !present {
		return reflect.Value{}, nil
	}
	if raw == nil {
		if ResolveOption(OptionPreserveNull, f.scopes...) {
			return nullValue(dst), nil
		}
		return reflect.Value{}, nil
	}
	if err := validateDescriptor(desc); err != nil {
		return reflect.Value{}, newConversionError(ErrUnsupportedType, f.path, desc, err)
	}

	switch desc := desc.(type) {
	case ConcreteDescriptor:
		return d.concrete(raw, desc, dst, f)
	case ArrayDescriptor:
		return d.array(raw, desc, dst, f)
	case SetDescriptor:
		return d.set(raw, desc, dst, f)
	case MapDescriptor:
		return d.mapping(raw, desc, dst, f)
	}
	return reflect.Value{}, newConversionError(ErrUnsupportedType, f.path, desc, nil)
}

// place fits v into dst or reports a shape mismatch at f.path.
func (d *decoder) place(v reflect.Value, desc Descriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	if !v.IsValid() || dst == nil {
		return v, nil
	}
	out, ok := fit(v, dst)
	if !ok {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc,
			fmt.Errorf("cannot store %s in %s", v.Type(), dst))
	}
	return out, nil
}

func (d *decoder) concrete(raw any, desc ConcreteDescriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	t := desc.Type
	if c, ok := d.cfg.converters[t]; ok && c.Deserialize != nil {
		v, err := d.custom(c.Deserialize, raw, f)
		if err != nil {
			return reflect.Value{}, wrapLocal(err, f.path, desc)
		}
		return d.place(v, desc, dst, f)
	}

	if v, ok, err := decodePrimitive(raw, t, f.path, desc); ok {
		if err != nil {
			return reflect.Value{}, err
		}
		return d.place(v, desc, dst, f)
	}

	switch t.Kind() {
	case reflect.Struct:
		v, err := d.object(raw, t, f)
		if err != nil || !v.IsValid() {
			return v, err
		}
		return d.place(v, desc, dst, f)
	case reflect.Interface:
		return d.dynamic(raw, desc, dst, f)
	}
	return reflect.Value{}, newConversionError(ErrUnsupportedType, f.path, desc,
		fmt.Errorf("don't know how to deserialize %s", t))
}

// dynamic handles an interface-typed expectation. Objects are resolved via
// type hints; anything else is kept by runtime shape when t allows it.
func (d *decoder) dynamic(raw any, desc ConcreteDescriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	t := desc.Type
	if obj, ok := asObject(raw); ok {
		target, err := d.resolve(obj, t, f.known, f)
		if err != nil {
			return reflect.Value{}, err
		}
		if target != nil {
			v, err := d.object(obj, target, f)
			if err != nil || !v.IsValid() {
				return v, err
			}
			return d.place(v, desc, dst, f)
		}
	}
	if t != typeAny {
		v := d.untyped(raw)
		if !v.IsValid() || !v.Type().Implements(t) {
			return reflect.Value{}, newConversionError(ErrInvalidTypeHint, f.path, desc,
				fmt.Errorf("no concrete type for %s", t))
		}
		return d.place(v, desc, dst, f)
	}
	return d.place(d.untyped(raw), desc, dst, f)
}

// resolve returns the concrete type a raw object names, or nil when it names
// none. Invalid hints are reported and ignored.
func (d *decoder) resolve(obj *Object, expected reflect.Type, known *KnownTypes, f frame) (reflect.Type, error) {
	md, _ := d.cfg.reg.Lookup(expected)
	resolver := f.resolver
	if resolver == nil {
		resolver = d.cfg.callResolver
	}
	if resolver == nil && md != nil {
		resolver = md.TypeResolver
	}
	if resolver == nil {
		resolver = d.cfg.engineResolver
	}

	var target reflect.Type
	if resolver != nil {
		target = resolver(obj, known)
	} else {
		hint, ok := obj.Get(d.cfg.discriminator)
		if !ok {
			return nil, nil
		}
		name, _ := hint.(string)
		t, found := known.Lookup(name)
		if !found {
			err := newConversionError(ErrInvalidTypeHint, f.path, Describe(expected),
				fmt.Errorf("unknown type %q", name))
			return nil, d.cfg.report(err)
		}
		target = t
	}
	if target == nil {
		return nil, nil
	}
	if !d.cfg.reg.IsSubtypeOf(target, expected) {
		err := newConversionError(ErrInvalidTypeHint, f.path, Describe(expected),
			fmt.Errorf("%s is not a subtype", target))
		return nil, d.cfg.report(err)
	}
	return baseType(target), nil
}

// object converts a raw object into a *T for struct type expected, or a
// subtype named by its type hint.
func (d *decoder) object(raw any, expected reflect.Type, f frame) (reflect.Value, error) {
	obj, ok := asObject(raw)
	if !ok {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, Describe(expected),
			fmt.Errorf("got %T", raw))
	}

	known := f.known.Merge(d.cfg.reg.KnownTypesFor(expected))
	target, err := d.resolve(obj, expected, known, f)
	if err != nil {
		return reflect.Value{}, err
	}
	if target != nil && target != expected {
		expected = target
		known = known.Merge(d.cfg.reg.KnownTypesFor(target))
	}
	if expected.Kind() != reflect.Struct {
		return reflect.Value{}, newConversionError(ErrInvalidTypeHint, f.path, Describe(expected),
			fmt.Errorf("no concrete type for %s", expected))
	}

	md, _ := d.cfg.reg.Lookup(expected)
	if !md.HasMembers() {
		return d.shapeStruct(obj, expected, f)
	}

	type stagedValue struct {
		m *Member
		v reflect.Value
	}
	var staged []stagedValue
	for _, m := range md.Members {
		mf := frame{
			path:     childPath(f.path, m.Name),
			scopes:   d.cfg.scopes(md.Options, m.Options),
			known:    known,
			resolver: m.TypeResolver,
		}
		rv, present := obj.Get(m.Name)
		var (
			v   reflect.Value
			err error
		)
		if m.Deserializer != nil {
			if present {
				v, err = d.custom(m.Deserializer, rv, mf)
				if err != nil {
					err = wrapLocal(err, mf.path, m.Descriptor())
				} else {
					v, err = d.place(v, m.Descriptor(), m.FieldType, mf)
				}
			}
		} else {
			v, err = d.convert(rv, present, m.Descriptor(), m.FieldType, mf)
		}
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if !v.IsValid() {
			if m.Required {
				err := newConversionError(ErrMissingRequired, mf.path, m.Descriptor(), nil)
				if abort := d.cfg.report(err); abort != nil {
					return reflect.Value{}, abort
				}
			}
			continue
		}
		staged = append(staged, stagedValue{m: m, v: v})
	}

	var ptr reflect.Value
	if md.Initializer != nil {
		bag := make(map[string]any, len(staged))
		for _, s := range staged {
			bag[s.m.Key] = s.v.Interface()
		}
		inst, err := md.Initializer(bag, obj)
		if err != nil {
			return reflect.Value{}, newConversionError(ErrInvalidInitializer, f.path, Describe(expected), err)
		}
		iv := reflect.ValueOf(inst)
		if !iv.IsValid() || iv.Kind() != reflect.Pointer || iv.IsNil() ||
			!d.cfg.reg.IsSubtypeOf(iv.Type().Elem(), expected) {
			return reflect.Value{}, newConversionError(ErrInvalidInitializer, f.path, Describe(expected),
				fmt.Errorf("got %T", inst))
		}
		ptr = iv
	} else {
		ptr, err = d.cfg.reg.InstantiateBare(expected)
		if err != nil {
			return reflect.Value{}, newConversionError(ErrUnsupportedType, f.path, Describe(expected), err)
		}
		for _, s := range staged {
			fieldForSet(ptr.Elem(), s.m.Index).Set(s.v)
		}
	}

	if actual, ok := d.cfg.reg.Lookup(ptr.Type()); ok {
		md = actual
	}
	if err := runHook(ptr, md, md.AfterDeserializeHook, afterDeserialize); err != nil {
		if abort := d.cfg.report(newConversionError(ErrHook, f.path, Describe(expected), err)); abort != nil {
			return reflect.Value{}, abort
		}
	}
	return ptr, nil
}

// shapeStruct fills a struct without declared members from its exported
// fields, inferring each field's descriptor from its Go type.
func (d *decoder) shapeStruct(obj *Object, t reflect.Type, f frame) (reflect.Value, error) {
	ptr, err := d.cfg.reg.InstantiateBare(t)
	if err != nil {
		return reflect.Value{}, newConversionError(ErrUnsupportedType, f.path, Describe(t), err)
	}
	for _, sf := range exportedFields(t) {
		name := wireNameOf(sf)
		rv, present := obj.Get(name)
		ff := f.at(childPath(f.path, name))
		v, err := d.convert(rv, present, Infer(sf.Type), sf.Type, ff)
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if v.IsValid() {
			fieldForSet(ptr.Elem(), sf.Index).Set(v)
		}
	}
	if err := runHook(ptr, nil, "", afterDeserialize); err != nil {
		if abort := d.cfg.report(newConversionError(ErrHook, f.path, Describe(t), err)); abort != nil {
			return reflect.Value{}, abort
		}
	}
	return ptr, nil
}

// untyped copies raw by its runtime shape. Ordered objects become plain maps.
func (d *decoder) untyped(raw any) reflect.Value {
	if raw == nil {
		return reflect.Value{}
	}
	return reflect.ValueOf(Plain(raw))
}

// containerType is the Go type a container is built as before being fitted
// to dst.
func (d *decoder) containerType(dst reflect.Type, desc Descriptor) reflect.Type {
	if dst != nil && dst.Kind() == reflect.Pointer {
		dst = dst.Elem()
	}
	if dst == nil || dst.Kind() == reflect.Interface {
		return canonicalType(d.cfg.reg, desc)
	}
	return dst
}

func (d *decoder) array(raw any, desc ArrayDescriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	items, ok := asArray(raw)
	if !ok {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("got %T", raw))
	}
	st := d.containerType(dst, desc)
	var out reflect.Value
	switch st.Kind() {
	case reflect.Slice:
		out = reflect.MakeSlice(st, len(items), len(items))
	case reflect.Array:
		if st.Len() < len(items) {
			return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc,
				fmt.Errorf("%d elements do not fit %s", len(items), st))
		}
		out = reflect.New(st).Elem()
	default:
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("cannot store list in %s", st))
	}

	for i, item := range items {
		ef := f.at(indexPath(f.path, i))
		v, err := d.convert(item, true, desc.Elem, st.Elem(), ef)
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if v.IsValid() {
			out.Index(i).Set(v)
		}
	}
	return d.place(out, desc, dst, f)
}

func (d *decoder) set(raw any, desc SetDescriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	items, ok := asArray(raw)
	if !ok {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("got %T", raw))
	}
	mt := d.containerType(dst, desc)
	if mt.Kind() != reflect.Map || (mt.Elem() != typeEmpty && mt.Elem().Kind() != reflect.Bool) {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("cannot store set in %s", mt))
	}
	member := reflect.ValueOf(struct{}{})
	if mt.Elem().Kind() == reflect.Bool {
		member = reflect.ValueOf(true).Convert(mt.Elem())
	}

	out := reflect.MakeMapWithSize(mt, len(items))
	for i, item := range items {
		ef := f.at(indexPath(f.path, i))
		v, err := d.convert(item, true, desc.Elem, mt.Key(), ef)
		if err == nil && v.IsValid() && !hashable(v) {
			err = newConversionError(ErrShapeMismatch, ef.path, desc.Elem, fmt.Errorf("%s is not hashable", v.Type()))
		}
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if v.IsValid() && !isNil(v) {
			out.SetMapIndex(v, member)
		}
	}
	return d.place(out, desc, dst, f)
}

func (d *decoder) mapping(raw any, desc MapDescriptor, dst reflect.Type, f frame) (reflect.Value, error) {
	mt := d.containerType(dst, desc)
	if mt.Kind() != reflect.Map {
		return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("cannot store map in %s", mt))
	}

	type entry struct {
		key, value any
		hasValue   bool
		path       string
	}
	var entries []entry
	if desc.Shape == MapAsObject {
		obj, ok := asObject(raw)
		if !ok {
			return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("got %T", raw))
		}
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			entries = append(entries, entry{key: k, value: v, hasValue: true, path: childPath(f.path, k)})
		}
	} else {
		items, ok := asArray(raw)
		if !ok {
			return reflect.Value{}, newConversionError(ErrShapeMismatch, f.path, desc, fmt.Errorf("got %T", raw))
		}
		for i, item := range items {
			p := indexPath(f.path, i)
			pair, ok := asObject(item)
			if !ok {
				if abort := d.cfg.report(newConversionError(ErrShapeMismatch, p, desc, fmt.Errorf("entry is %T", item))); abort != nil {
					return reflect.Value{}, abort
				}
				continue
			}
			k, _ := pair.Get("key")
			v, hasValue := pair.Get("value")
			entries = append(entries, entry{key: k, value: v, hasValue: hasValue, path: p})
		}
	}

	out := reflect.MakeMapWithSize(mt, len(entries))
	for _, e := range entries {
		ef := f.at(e.path)
		k, err := d.convert(e.key, e.key != nil, desc.Key, mt.Key(), ef)
		if err == nil && k.IsValid() && !hashable(k) {
			err = newConversionError(ErrShapeMismatch, ef.path, desc.Key, fmt.Errorf("%s is not hashable", k.Type()))
		}
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if !k.IsValid() || isNil(k) {
			continue
		}
		v, err := d.convert(e.value, e.hasValue, desc.Value, mt.Elem(), ef)
		if err != nil {
			if abort := d.cfg.report(err); abort != nil {
				return reflect.Value{}, abort
			}
			continue
		}
		if !v.IsValid() {
			v = reflect.Zero(mt.Elem())
		}
		out.SetMapIndex(k, v)
	}
	return d.place(out, desc, dst, f)
}

// custom runs a user deserializer with a fallback bound to this call.
func (d *decoder) custom(fn DeserializeFunc, raw any, f frame) (reflect.Value, error) {
	fallback := func(raw any, desc Descriptor) (any, error) {
		v, err := d.convert(raw, true, desc, nil, f)
		if err != nil || !v.IsValid() {
			return nil, err
		}
		return v.Interface(), nil
	}
	out, err := fn(raw, fallback)
	if err != nil {
		return reflect.Value{}, err
	}
	if out == nil {
		return reflect.Value{}, nil
	}
	return reflect.ValueOf(out), nil
}

// wrapLocal attaches the position to an error produced by user code.
func wrapLocal(err error, path string, desc Descriptor) error {
	if isAbort(err) {
		return err
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return newConversionError(ErrShapeMismatch, path, desc, err)
}
