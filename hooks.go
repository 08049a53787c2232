package typedjson

import (
	"fmt"
	"reflect"
)

type hookKind int

const (
	beforeSerialize hookKind = iota
	afterDeserialize
)

// runHook runs the lifecycle hook named name on the instance ptr points to.
// A method of that name wins over a static hook. With no name, instances
// implementing BeforeSerializer or AfterDeserializer are called instead.
func runHook(ptr reflect.Value, md *Metadata, name string, kind hookKind) error {
	if name != "" {
		if m := ptr.MethodByName(name); m.IsValid() {
			return callHookMethod(m, name)
		}
		if md != nil {
			if fn, ok := md.StaticHooks[name]; ok {
				return fn(ptr.Interface())
			}
		}
		return fmt.Errorf("%s has no hook %q", ptr.Type(), name)
	}
	switch kind {
	case beforeSerialize:
		if h, ok := ptr.Interface().(BeforeSerializer); ok {
			return h.BeforeSerialize()
		}
	case afterDeserialize:
		if h, ok := ptr.Interface().(AfterDeserializer); ok {
			return h.AfterDeserialize()
		}
	}
	return nil
}

// callHookMethod calls a niladic hook method. A single error result is
// returned; other results are ignored.
func callHookMethod(m reflect.Value, name string) error {
	if m.Type().NumIn() != 0 {
		return fmt.Errorf("hook %q must take no arguments", name)
	}
	out := m.Call(nil)
	if len(out) == 1 && !isNil(out[0]) {
		if err, ok := out[0].Interface().(error); ok {
			return err
		}
	}
	return nil
}
