package typedjson

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

func init() {
	// Register the tags member scanning reads.
	sentinel.Tag("json")
	sentinel.Tag("typedjson")
}

// Registry holds type metadata for the process lifetime. Registration is
// expected at startup; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	types    map[reflect.Type]*Metadata
	names    map[string]reflect.Type
	subtypes map[reflect.Type][]reflect.Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:    make(map[reflect.Type]*Metadata),
		names:    make(map[string]reflect.Type),
		subtypes: make(map[reflect.Type][]reflect.Type),
	}
}

// Lookup returns the metadata registered for t (pointers are dereferenced).
func (r *Registry) Lookup(t reflect.Type) (*Metadata, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.types[baseType(t)]
	return md, ok
}

// LookupName returns the type registered under name.
func (r *Registry) LookupName(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.names[name]
	return t, ok
}

// IsSubtypeOf reports whether x equals y, extends y through registered
// parents, or (when y is an interface) has a pointer that implements y.
func (r *Registry) IsSubtypeOf(x, y reflect.Type) bool {
	x, y = baseType(x), baseType(y)
	if x == nil || y == nil {
		return false
	}
	if x == y {
		return true
	}
	if y.Kind() == reflect.Interface {
		return reflect.PointerTo(x).Implements(y) || x.Implements(y)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for cur := x; ; {
		md, ok := r.types[cur]
		if !ok || md.Parent == nil {
			return false
		}
		if md.Parent == y {
			return true
		}
		cur = md.Parent
	}
}

// InstantiateBare allocates a zero *T for struct type t.
func (r *Registry) InstantiateBare(t reflect.Type) (reflect.Value, error) {
	t = baseType(t)
	if t == nil || t.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	return reflect.New(t), nil
}

// KnownTypesFor returns the known types declared on t merged with every
// registered descendant of t, however deep.
func (r *Registry) KnownTypesFor(t reflect.Type) *KnownTypes {
	t = baseType(t)
	r.mu.RLock()
	md, ok := r.types[t]
	subs := r.descendants(t)
	r.mu.RUnlock()

	var kt *KnownTypes
	if ok {
		kt = md.KnownTypes
		kt = kt.Merge(knownTypesOf(r, t))
	}
	if len(subs) > 0 {
		kt = kt.Merge(knownTypesOf(r, subs...))
	}
	return kt
}

// descendants lists every registered subtype of t, breadth first. The caller
// holds r.mu.
func (r *Registry) descendants(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	seen := map[reflect.Type]bool{t: true}
	queue := []reflect.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, sub := range r.subtypes[cur] {
			if seen[sub] {
				continue
			}
			seen[sub] = true
			out = append(out, sub)
			queue = append(queue, sub)
		}
	}
	return out
}

// nameOf returns the registered name of t, falling back to the Go type name.
func (r *Registry) nameOf(t reflect.Type) string {
	t = baseType(t)
	if md, ok := r.Lookup(t); ok && md.Name != "" {
		return md.Name
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// TypeOption configures a registration.
type TypeOption func(*typeBuilder) error

// MemberOption configures one member.
type MemberOption func(*Member)

type typeBuilder struct {
	reg     *Registry
	typ     reflect.Type
	md      *Metadata
	parent  reflect.Type
	members []memberDecl
	known   []reflect.Type
}

type memberDecl struct {
	field string
	opts  []MemberOption
}

// Name sets the discriminator name. Defaults to the Go type name.
func Name(name string) TypeOption {
	return func(b *typeBuilder) error {
		b.md.Name = name
		return nil
	}
}

// Extends declares parent as the supertype. The parent must already be
// registered; its members and known types are copied now and later changes
// to the parent are not propagated.
func Extends(parent reflect.Type) TypeOption {
	return func(b *typeBuilder) error {
		b.parent = baseType(parent)
		return nil
	}
}

// ExtendsOf is the generic form of Extends.
func ExtendsOf[P any]() TypeOption {
	return Extends(reflect.TypeFor[P]())
}

// WithKnownTypes declares types that may appear wherever this type is expected.
func WithKnownTypes(types ...reflect.Type) TypeOption {
	return func(b *typeBuilder) error {
		b.known = append(b.known, types...)
		return nil
	}
}

// WithTypeResolver sets a type-scoped resolver.
func WithTypeResolver(fn TypeResolver) TypeOption {
	return func(b *typeBuilder) error {
		b.md.TypeResolver = fn
		return nil
	}
}

// WithTypeHintEmitter sets a type-scoped emitter.
func WithTypeHintEmitter(fn TypeHintEmitter) TypeOption {
	return func(b *typeBuilder) error {
		b.md.TypeHintEmitter = fn
		return nil
	}
}

// WithInitializer sets the instance initializer.
func WithInitializer(fn Initializer) TypeOption {
	return func(b *typeBuilder) error {
		b.md.Initializer = fn
		return nil
	}
}

// BeforeSerialize names the hook run before serialization.
func BeforeSerialize(name string) TypeOption {
	return func(b *typeBuilder) error {
		b.md.BeforeSerializeHook = name
		return nil
	}
}

// AfterDeserialize names the hook run after deserialization.
func AfterDeserialize(name string) TypeOption {
	return func(b *typeBuilder) error {
		b.md.AfterDeserializeHook = name
		return nil
	}
}

// StaticHook registers fn under name for use by BeforeSerialize or
// AfterDeserialize when the type has no method of that name.
func StaticHook(name string, fn HookFunc) TypeOption {
	return func(b *typeBuilder) error {
		b.md.StaticHooks[name] = fn
		return nil
	}
}

// WithTypeOptions sets the type-scoped option overrides.
func WithTypeOptions(o *Options) TypeOption {
	return func(b *typeBuilder) error {
		b.md.Options = o
		return nil
	}
}

// WithMember declares or overrides the member backed by the Go field named
// field. Promoted fields of embedded structs may be named directly.
func WithMember(field string, opts ...MemberOption) TypeOption {
	return func(b *typeBuilder) error {
		b.members = append(b.members, memberDecl{field: field, opts: opts})
		return nil
	}
}

// WireName sets the member's wire name.
func WireName(name string) MemberOption {
	return func(m *Member) { m.Name = name }
}

// Required marks the member as required on deserialization.
func Required() MemberOption {
	return func(m *Member) { m.Required = true }
}

// EmitDefault makes a nil slice or map member serialize as an empty container.
func EmitDefault() MemberOption {
	return func(m *Member) { m.EmitDefault = true }
}

// MemberType sets the member's descriptor lazily, allowing members to refer
// to types that are registered later or reference each other.
func MemberType(fn func() Descriptor) MemberOption {
	return func(m *Member) { m.typ = Lazy(fn) }
}

// MemberOptions sets the member-scoped option overrides.
func MemberOptions(o *Options) MemberOption {
	return func(m *Member) { m.Options = o }
}

// WithConverter installs a custom serializer and deserializer on the member.
func WithConverter(c Converter) MemberOption {
	return func(m *Member) {
		m.Serializer = c.Serialize
		m.Deserializer = c.Deserialize
	}
}

// MemberTypeResolver sets a member-scoped resolver.
func MemberTypeResolver(fn TypeResolver) MemberOption {
	return func(m *Member) { m.TypeResolver = fn }
}

// MemberTypeHintEmitter sets a member-scoped emitter.
func MemberTypeHintEmitter(fn TypeHintEmitter) MemberOption {
	return func(m *Member) { m.TypeHintEmitter = fn }
}

// Register records metadata for struct type T in r.
//
// Members are taken from exported fields carrying a json or typedjson tag,
// then from WithMember options. When Extends is given, the parent's members
// and known types are copied first and T becomes a known type of the parent.
func Register[T any](r *Registry, opts ...TypeOption) (*Metadata, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}

	b := &typeBuilder{
		reg: r,
		typ: t,
		md: &Metadata{
			Type:        t,
			Name:        t.Name(),
			StaticHooks: make(map[string]HookFunc),
			KnownTypes:  NewKnownTypes(),
		},
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	md, err := b.build(sentinel.Scan[T]())
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.types[t] = md
	r.names[md.Name] = t
	if md.Parent != nil {
		r.subtypes[md.Parent] = appendUnique(r.subtypes[md.Parent], t)
	}
	r.mu.Unlock()

	emitTypeRegistered(context.Background(), md.Name, len(md.Members))
	return md, nil
}

// MustRegister is like Register but panics on error. Intended for package
// initialisation.
func MustRegister[T any](r *Registry, opts ...TypeOption) *Metadata {
	md, err := Register[T](r, opts...)
	if err != nil {
		panic(err)
	}
	return md
}

func (b *typeBuilder) build(scanned sentinel.Metadata) (*Metadata, error) {
	md := b.md
	if b.parent != nil {
		parent, ok := b.reg.Lookup(b.parent)
		if !ok {
			return nil, fmt.Errorf("%w: parent %v of %v", ErrNotRegistered, b.parent, b.typ)
		}
		inherited := parent.clone()
		md.Parent = b.parent
		for _, pm := range inherited.Members {
			sf, ok := b.typ.FieldByName(pm.Key)
			if !ok || !sf.IsExported() {
				return nil, fmt.Errorf("%w: %v does not carry inherited field %q", ErrUnknownMember, b.typ, pm.Key)
			}
			m := *pm
			m.Index = sf.Index
			m.FieldType = sf.Type
			md.Members = append(md.Members, &m)
		}
		md.KnownTypes = inherited.KnownTypes
		if md.TypeResolver == nil {
			md.TypeResolver = parent.TypeResolver
		}
		if md.TypeHintEmitter == nil {
			md.TypeHintEmitter = parent.TypeHintEmitter
		}
		if md.Options == nil {
			md.Options = parent.Options
		}
		if md.BeforeSerializeHook == "" {
			md.BeforeSerializeHook = parent.BeforeSerializeHook
		}
		if md.AfterDeserializeHook == "" {
			md.AfterDeserializeHook = parent.AfterDeserializeHook
		}
		for name, fn := range inherited.StaticHooks {
			if _, ok := md.StaticHooks[name]; !ok {
				md.StaticHooks[name] = fn
			}
		}
	}

	for _, field := range scanned.Fields {
		m, ok, err := b.memberFromTags(field)
		if err != nil {
			return nil, err
		}
		if ok {
			md.withMember(m)
		}
	}

	for _, decl := range b.members {
		sf, ok := b.typ.FieldByName(decl.field)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("%w: %v has no exported field %q", ErrUnknownMember, b.typ, decl.field)
		}
		m, found := md.Member(decl.field)
		if found {
			cp := *m
			m = &cp
		} else {
			m = &Member{
				Key:       sf.Name,
				Name:      wireNameOf(sf),
				Index:     sf.Index,
				FieldType: sf.Type,
			}
		}
		for _, opt := range decl.opts {
			opt(m)
		}
		md.withMember(m)
	}

	for _, t := range b.known {
		md.KnownTypes.Add(b.reg.nameOf(t), t)
	}

	for _, hook := range []string{md.BeforeSerializeHook, md.AfterDeserializeHook} {
		if hook == "" {
			continue
		}
		if _, ok := reflect.PointerTo(b.typ).MethodByName(hook); ok {
			continue
		}
		if _, ok := md.StaticHooks[hook]; !ok {
			return nil, fmt.Errorf("%w: %v has no hook %q", ErrHook, b.typ, hook)
		}
	}
	return md, nil
}

// memberFromTags builds a member from a scanned field. Fields without a json
// or typedjson tag, embedded structs and json:"-" fields are skipped.
func (b *typeBuilder) memberFromTags(field sentinel.FieldMetadata) (*Member, bool, error) {
	jsonTag, hasJSON := field.Tags["json"]
	tjTag, hasTJ := field.Tags["typedjson"]
	if !hasJSON && !hasTJ {
		return nil, false, nil
	}
	if jsonTag == "-" || tjTag == "-" {
		return nil, false, nil
	}
	sf := b.typ.FieldByIndex(field.Index)
	if sf.Anonymous || !sf.IsExported() {
		return nil, false, nil
	}

	m := &Member{
		Key:       sf.Name,
		Name:      wireNameOf(sf),
		Index:     sf.Index,
		FieldType: sf.Type,
	}
	if err := applyMemberTag(m, tjTag); err != nil {
		return nil, false, fmt.Errorf("field %s: %w", sf.Name, err)
	}
	return m, true, nil
}

// applyMemberTag parses typedjson:"required,emitDefault,preserveNull=false,mask=email,digest=sha256".
func applyMemberTag(m *Member, tag string) error {
	if tag == "" {
		return nil
	}
	for _, part := range strings.Split(tag, ",") {
		key, val, hasVal := strings.Cut(strings.TrimSpace(part), "=")
		switch key {
		case "":
		case "required":
			m.Required = true
		case "emitDefault":
			m.EmitDefault = true
		case "preserveNull":
			b := !hasVal || val == "true"
			m.Options = &Options{PreserveNull: Bool(b)}
		case "mask":
			if !IsValidMaskType(MaskType(val)) {
				return fmt.Errorf("%w: mask type %q", ErrInvalidTag, val)
			}
			c := Masked(MaskType(val))
			m.Serializer, m.Deserializer = c.Serialize, c.Deserialize
		case "digest":
			h, ok := builtinHashers()[HashAlgo(val)]
			if !ok {
				return fmt.Errorf("%w: hash algorithm %q", ErrInvalidTag, val)
			}
			c := Digest(h)
			m.Serializer, m.Deserializer = c.Serialize, c.Deserialize
		default:
			return fmt.Errorf("%w: unknown option %q", ErrInvalidTag, key)
		}
	}
	return nil
}

// wireNameOf returns the json tag name of sf, or its Go name.
func wireNameOf(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("json"); ok {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

func appendUnique(list []reflect.Type, t reflect.Type) []reflect.Type {
	for _, x := range list {
		if x == t {
			return list
		}
	}
	return append(list, t)
}
