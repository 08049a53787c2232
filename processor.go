package typedjson

import (
	"context"
	"fmt"
	"reflect"
)

// Processor binds a type to an engine and a codec. Marshal serializes a T to
// a value tree and encodes it; Unmarshal decodes bytes and deserializes the
// tree back into a T.
//
// Processors are safe for concurrent use.
type Processor[T any] struct {
	engine   *Engine
	codec    Codec
	root     Descriptor
	opts     []CallOption
	typeName string
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*processorConfig)

type processorConfig struct {
	root Descriptor
	opts []CallOption
}

// WithRoot sets the descriptor used for the root value. Defaults to the
// descriptor inferred from T.
func WithRoot(d Descriptor) ProcessorOption {
	return func(c *processorConfig) { c.root = d }
}

// WithCallOptions applies opts to every conversion the processor runs.
func WithCallOptions(opts ...CallOption) ProcessorOption {
	return func(c *processorConfig) { c.opts = append(c.opts, opts...) }
}

// NewProcessor creates a processor for T.
func NewProcessor[T any](engine *Engine, codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	if engine == nil {
		return nil, fmt.Errorf("processor: nil engine")
	}
	if codec == nil {
		return nil, fmt.Errorf("processor: nil codec")
	}
	cfg := processorConfig{root: Infer(reflect.TypeFor[T]())}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validateDescriptor(cfg.root); err != nil {
		return nil, err
	}

	p := &Processor[T]{
		engine:   engine,
		codec:    codec,
		root:     cfg.root,
		opts:     cfg.opts,
		typeName: cfg.root.String(),
	}
	emitProcessorCreated(context.Background(), codec.ContentType(), p.typeName)
	return p, nil
}

// Codec returns the processor's codec.
func (p *Processor[T]) Codec() Codec { return p.codec }

// Marshal serializes v and encodes the result.
func (p *Processor[T]) Marshal(v T, opts ...CallOption) ([]byte, error) {
	tree, err := p.engine.Serialize(v, p.root, p.callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	data, err := p.codec.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", p.codec.ContentType(), err)
	}
	emitProcessorData(context.Background(), SignalProcessorMarshal, p.codec.ContentType(), p.typeName, len(data))
	return data, nil
}

// Unmarshal decodes data and deserializes it into a T. It returns ErrAbsent
// when the document converts to nothing.
func (p *Processor[T]) Unmarshal(data []byte, opts ...CallOption) (T, error) {
	emitProcessorData(context.Background(), SignalProcessorUnmarshal, p.codec.ContentType(), p.typeName, len(data))
	var raw any
	if err := p.codec.Unmarshal(data, &raw); err != nil {
		var zero T
		return zero, fmt.Errorf("%s unmarshal: %w", p.codec.ContentType(), err)
	}
	return Decode[T](p.engine, raw, p.root, p.callOptions(opts)...)
}

func (p *Processor[T]) callOptions(extra []CallOption) []CallOption {
	if len(extra) == 0 {
		return p.opts
	}
	return append(append([]CallOption(nil), p.opts...), extra...)
}
