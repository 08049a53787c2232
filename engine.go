package typedjson

import (
	"context"
	"reflect"
	"sync"
	"time"
)

// Engine converts between typed Go values and generic JSON value trees using
// the metadata held in a Registry.
//
// Engines are safe for concurrent use. Configuration methods may be called at
// any time; each conversion snapshots the configuration when it starts, so a
// change never affects a call already in flight.
type Engine struct {
	reg *Registry

	mu            sync.RWMutex
	handler       ErrorHandler
	known         *KnownTypes
	options       *Options
	resolver      TypeResolver
	emitter       TypeHintEmitter
	discriminator string
	converters    map[reflect.Type]Converter
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithErrorHandler sets the engine-wide error handler. Defaults to LogErrors.
func WithErrorHandler(h ErrorHandler) Option {
	return func(e *Engine) { e.handler = h }
}

// WithGlobalKnownTypes sets the lowest-precedence known types.
func WithGlobalKnownTypes(kt *KnownTypes) Option {
	return func(e *Engine) { e.known = kt }
}

// WithGlobalOptions sets the global option scope.
func WithGlobalOptions(o *Options) Option {
	return func(e *Engine) { e.options = o }
}

// WithResolver replaces the default discriminator resolver.
func WithResolver(fn TypeResolver) Option {
	return func(e *Engine) { e.resolver = fn }
}

// WithEmitter replaces the default discriminator emitter.
func WithEmitter(fn TypeHintEmitter) Option {
	return func(e *Engine) { e.emitter = fn }
}

// WithDiscriminator sets the property name used by the default resolver and
// emitter. Defaults to DefaultDiscriminator.
func WithDiscriminator(key string) Option {
	return func(e *Engine) { e.discriminator = key }
}

// WithTypeConverter installs a converter used wherever t is expected.
func WithTypeConverter(t reflect.Type, c Converter) Option {
	return func(e *Engine) { e.converters[baseType(t)] = c }
}

// New creates an engine over reg.
func New(reg *Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:           reg,
		handler:       LogErrors,
		discriminator: DefaultDiscriminator,
		converters:    make(map[reflect.Type]Converter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine reads metadata from.
func (e *Engine) Registry() *Registry { return e.reg }

// SetErrorHandler replaces the error handler.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetErrorHandler(h ErrorHandler) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = h
	return e
}

// SetKnownTypes replaces the global known types.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetKnownTypes(kt *KnownTypes) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.known = kt
	return e
}

// SetOptions replaces the global option scope.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetOptions(o *Options) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.options = o
	return e
}

// SetTypeResolver replaces the engine resolver.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetTypeResolver(fn TypeResolver) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolver = fn
	return e
}

// SetTypeHintEmitter replaces the engine emitter.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetTypeHintEmitter(fn TypeHintEmitter) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitter = fn
	return e
}

// SetConverter installs a type converter.
// Returns the engine for chaining. Safe for concurrent use.
func (e *Engine) SetConverter(t reflect.Type, c Converter) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.converters[baseType(t)] = c
	return e
}

// CallOption configures a single conversion call.
type CallOption func(*callConfig)

// CallKnownTypes adds call-scoped known types, overriding global ones.
func CallKnownTypes(kt *KnownTypes) CallOption {
	return func(c *callConfig) { c.known = c.known.Merge(kt) }
}

// CallOptions sets the call option scope.
func CallOptions(o *Options) CallOption {
	return func(c *callConfig) { c.call = o }
}

// CallErrorHandler sets the error handler for this call only.
func CallErrorHandler(h ErrorHandler) CallOption {
	return func(c *callConfig) { c.handler = h }
}

// CallTypeResolver overrides type-declared resolvers for this call.
func CallTypeResolver(fn TypeResolver) CallOption {
	return func(c *callConfig) { c.callResolver = fn }
}

// CallTypeHintEmitter overrides type-declared emitters for this call.
func CallTypeHintEmitter(fn TypeHintEmitter) CallOption {
	return func(c *callConfig) { c.callEmitter = fn }
}

// callConfig is the frozen configuration of one conversion.
type callConfig struct {
	reg            *Registry
	handler        ErrorHandler
	known          *KnownTypes
	global, call   *Options
	engineResolver TypeResolver
	callResolver   TypeResolver
	engineEmitter  TypeHintEmitter
	callEmitter    TypeHintEmitter
	discriminator  string
	converters     map[reflect.Type]Converter
	errCount       int
}

// snapshot captures the engine configuration for one call.
func (e *Engine) snapshot(opts []CallOption) *callConfig {
	e.mu.RLock()
	cfg := &callConfig{
		reg:            e.reg,
		handler:        e.handler,
		known:          NewKnownTypes().Merge(e.known),
		global:         e.options,
		engineResolver: e.resolver,
		engineEmitter:  e.emitter,
		discriminator:  e.discriminator,
		converters:     make(map[reflect.Type]Converter, len(e.converters)),
	}
	for t, c := range e.converters {
		cfg.converters[t] = c
	}
	e.mu.RUnlock()

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.handler == nil {
		cfg.handler = LogErrors
	}
	if cfg.engineEmitter == nil {
		cfg.engineEmitter = DiscriminatorEmitter(cfg.discriminator)
	}
	return cfg
}

// report passes a contained error to the handler. A non-nil return means the
// handler rethrew and the whole conversion must unwind.
func (c *callConfig) report(err error) error {
	if isAbort(err) {
		return err
	}
	c.errCount++
	if herr := c.handler(err); herr != nil {
		return &abortError{err: herr}
	}
	return nil
}

// scopes returns the option scopes for a value, least specific first.
func (c *callConfig) scopes(more ...*Options) []*Options {
	return append([]*Options{c.global, c.call}, more...)
}

// frame carries the per-position state of a conversion.
type frame struct {
	path     string
	scopes   []*Options
	known    *KnownTypes
	resolver TypeResolver
	emitter  TypeHintEmitter
}

func (f frame) at(path string) frame {
	f.path = path
	return f
}

// Deserialize converts raw into a typed value described by root. A nil
// result with a nil error means the value was absent or its conversion failed
// and was reported to a handler that chose to continue.
func (e *Engine) Deserialize(raw any, root Descriptor, opts ...CallOption) (any, error) {
	v, err := e.deserialize(raw, root, nil, opts)
	if err != nil || !v.IsValid() {
		return nil, err
	}
	return v.Interface(), nil
}

// Serialize converts v into a generic value tree described by root.
func (e *Engine) Serialize(v any, root Descriptor, opts ...CallOption) (any, error) {
	cfg := e.snapshot(opts)
	ctx := context.Background()
	start := time.Now()
	name := root.String()
	emitSerializeStart(ctx, name)

	enc := &encoder{cfg: cfg}
	f := frame{scopes: cfg.scopes(), known: cfg.known}
	out, defined, err := enc.convert(reflect.ValueOf(v), root, f)
	if err != nil {
		if abort := cfg.report(err); abort != nil {
			err = unwrapAbort(abort)
			emitSerializeComplete(ctx, name, time.Since(start), cfg.errCount, err)
			return nil, err
		}
		out, defined = nil, false
	}
	emitSerializeComplete(ctx, name, time.Since(start), cfg.errCount, nil)
	if !defined {
		return nil, nil
	}
	return out, nil
}

func (e *Engine) deserialize(raw any, root Descriptor, dst reflect.Type, opts []CallOption) (reflect.Value, error) {
	cfg := e.snapshot(opts)
	ctx := context.Background()
	start := time.Now()
	name := root.String()
	emitDeserializeStart(ctx, name)

	dec := &decoder{cfg: cfg}
	f := frame{scopes: cfg.scopes(), known: cfg.known}
	v, err := dec.convert(raw, true, root, dst, f)
	if err != nil {
		if abort := cfg.report(err); abort != nil {
			err = unwrapAbort(abort)
			emitDeserializeComplete(ctx, name, time.Since(start), cfg.errCount, err)
			return reflect.Value{}, err
		}
		v = reflect.Value{}
	}
	emitDeserializeComplete(ctx, name, time.Since(start), cfg.errCount, nil)
	return v, nil
}

// Decode deserializes raw into T using the descriptor inferred from T, or
// root when given. It returns ErrAbsent when nothing was produced.
func Decode[T any](e *Engine, raw any, root Descriptor, opts ...CallOption) (T, error) {
	var zero T
	dst := reflect.TypeFor[T]()
	if root == nil {
		root = Infer(dst)
	}
	v, err := e.deserialize(raw, root, dst, opts)
	if err != nil {
		return zero, err
	}
	if !v.IsValid() {
		return zero, ErrAbsent
	}
	out, ok := fit(v, dst)
	if !ok {
		return zero, newConversionError(ErrShapeMismatch, "", root, nil)
	}
	return out.Interface().(T), nil
}

// Encode serializes v using the descriptor inferred from T, or root when given.
func Encode[T any](e *Engine, v T, root Descriptor, opts ...CallOption) (any, error) {
	if root == nil {
		root = Infer(reflect.TypeFor[T]())
	}
	return e.Serialize(v, root, opts...)
}
