package typedjson

import (
	"reflect"
)

// Metadata is the immutable per-type record the engine consults at every
// class boundary. It is produced by Register and never modified afterwards.
type Metadata struct {
	// Type is the struct type described.
	Type reflect.Type

	// Name is the discriminator name the type is registered under.
	Name string

	// Parent is the type this one extends, if any.
	Parent reflect.Type

	// Members lists declared members in declaration order. Members inherited
	// from Parent come first.
	Members []*Member

	// KnownTypes holds the types declared as known on this type (including
	// those copied from Parent at registration time).
	KnownTypes *KnownTypes

	// TypeResolver overrides the engine resolver for values of this type.
	TypeResolver TypeResolver

	// TypeHintEmitter overrides the engine emitter for values of this type.
	TypeHintEmitter TypeHintEmitter

	// Initializer, when set, builds the instance from the staged members.
	Initializer Initializer

	// BeforeSerializeHook and AfterDeserializeHook name lifecycle hooks.
	// A method of that name on *Type is preferred over a static hook.
	BeforeSerializeHook  string
	AfterDeserializeHook string

	// StaticHooks holds hooks that are not methods of the type.
	StaticHooks map[string]HookFunc

	// Options are the type-scoped option overrides.
	Options *Options
}

// Member describes one declared member of a type.
type Member struct {
	// Key is the Go field name.
	Key string

	// Name is the wire name.
	Name string

	// Index is the reflect field index path, including promoted fields.
	Index []int

	// FieldType is the Go type of the field.
	FieldType reflect.Type

	Required    bool
	EmitDefault bool

	// Options are the member-scoped option overrides.
	Options *Options

	Serializer      SerializeFunc
	Deserializer    DeserializeFunc
	TypeResolver    TypeResolver
	TypeHintEmitter TypeHintEmitter

	typ *LazyDescriptor
}

// Descriptor returns the member's expected type, resolving it on first use.
func (m *Member) Descriptor() Descriptor {
	if m.typ == nil {
		return Infer(m.FieldType)
	}
	if d := m.typ.Resolve(); d != nil {
		return d
	}
	return Infer(m.FieldType)
}

// Member returns the member declared under the Go field name key.
func (md *Metadata) Member(key string) (*Member, bool) {
	for _, m := range md.Members {
		if m.Key == key {
			return m, true
		}
	}
	return nil, false
}

// HasMembers reports whether the type declares any members. Types without
// members are converted field-by-field by runtime shape.
func (md *Metadata) HasMembers() bool {
	return md != nil && len(md.Members) > 0
}

// clone returns a shallow copy suitable for building a subtype record.
func (md *Metadata) clone() *Metadata {
	cp := *md
	cp.Members = append([]*Member(nil), md.Members...)
	cp.KnownTypes = NewKnownTypes().Merge(md.KnownTypes)
	cp.StaticHooks = make(map[string]HookFunc, len(md.StaticHooks))
	for k, v := range md.StaticHooks {
		cp.StaticHooks[k] = v
	}
	return &cp
}

// withMember adds m, replacing an existing member with the same key in place
// so that overridden inherited members keep their declaration position.
func (md *Metadata) withMember(m *Member) {
	for i, existing := range md.Members {
		if existing.Key == m.Key {
			md.Members[i] = m
			return
		}
	}
	md.Members = append(md.Members, m)
}
