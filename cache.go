package typedjson

import (
	"reflect"
	"sync"
)

// cacheKey combines type, engine and codec for processor lookup.
type cacheKey struct {
	typ         reflect.Type
	engine      *Engine
	contentType string
}

var (
	processors   = make(map[cacheKey]any)
	processorsMu sync.RWMutex
)

// Use returns a cached processor or builds a new one. Processors are cached
// by type, engine and codec content type; options only apply when the
// processor is first built.
func Use[T any](engine *Engine, codec Codec, opts ...ProcessorOption) (*Processor[T], error) {
	key := cacheKey{typ: reflect.TypeFor[T](), engine: engine, contentType: codec.ContentType()}

	processorsMu.RLock()
	if cached, ok := processors[key]; ok {
		processorsMu.RUnlock()
		return cached.(*Processor[T]), nil
	}
	processorsMu.RUnlock()

	processorsMu.Lock()
	defer processorsMu.Unlock()
	if cached, ok := processors[key]; ok {
		return cached.(*Processor[T]), nil
	}
	p, err := NewProcessor[T](engine, codec, opts...)
	if err != nil {
		return nil, err
	}
	processors[key] = p
	return p, nil
}

// Reset clears the processor cache. Mostly useful for test isolation.
func Reset() {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors = make(map[cacheKey]any)
}
