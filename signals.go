package typedjson

import (
	"context"
	"errors"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for conversion events.
var (
	SignalTypeRegistered      = capitan.NewSignal("typedjson.type.registered", "Type metadata registered")
	SignalProcessorCreated    = capitan.NewSignal("typedjson.processor.created", "Processor instantiated")
	SignalProcessorMarshal    = capitan.NewSignal("typedjson.processor.marshal", "Value encoded by a processor")
	SignalProcessorUnmarshal  = capitan.NewSignal("typedjson.processor.unmarshal", "Document decoded by a processor")
	SignalDeserializeStart    = capitan.NewSignal("typedjson.deserialize.start", "Deserialization beginning")
	SignalDeserializeComplete = capitan.NewSignal("typedjson.deserialize.complete", "Deserialization finished")
	SignalSerializeStart      = capitan.NewSignal("typedjson.serialize.start", "Serialization beginning")
	SignalSerializeComplete   = capitan.NewSignal("typedjson.serialize.complete", "Serialization finished")
	SignalConversionError     = capitan.NewSignal("typedjson.conversion.error", "Value conversion failed")
)

// Keys for typed event data.
var (
	KeyTypeName    = capitan.NewStringKey("type_name")
	KeyContentType = capitan.NewStringKey("content_type")
	KeyPath        = capitan.NewStringKey("path")
	KeySize        = capitan.NewIntKey("size")
	KeyMemberCount = capitan.NewIntKey("member_count")
	KeyErrorCount  = capitan.NewIntKey("error_count")
	KeyDuration    = capitan.NewDurationKey("duration")
	KeyError       = capitan.NewErrorKey("error")
)

func emitTypeRegistered(ctx context.Context, typeName string, members int) {
	capitan.Emit(ctx, SignalTypeRegistered,
		KeyTypeName.Field(typeName),
		KeyMemberCount.Field(members),
	)
}

func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitProcessorData reports the encoded size of a document a processor
// produced or consumed.
func emitProcessorData(ctx context.Context, signal capitan.Signal, contentType, typeName string, size int) {
	capitan.Emit(ctx, signal,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
	)
}

func emitDeserializeStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalDeserializeStart, KeyTypeName.Field(typeName))
}

// emitDeserializeComplete emits an event when deserialization finishes.
// errs counts contained errors the handler chose to continue past.
func emitDeserializeComplete(ctx context.Context, typeName string, duration time.Duration, errs int, err error) {
	fields := completeFields(typeName, duration, errs)
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDeserializeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDeserializeComplete, fields...)
	}
}

func emitSerializeStart(ctx context.Context, typeName string) {
	capitan.Emit(ctx, SignalSerializeStart, KeyTypeName.Field(typeName))
}

// emitSerializeComplete emits an event when serialization finishes.
func emitSerializeComplete(ctx context.Context, typeName string, duration time.Duration, errs int, err error) {
	fields := completeFields(typeName, duration, errs)
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSerializeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSerializeComplete, fields...)
	}
}

func completeFields(typeName string, duration time.Duration, errs int) []capitan.Field {
	return []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
		KeyErrorCount.Field(errs),
	}
}

// emitConversionError emits a contained conversion error.
func emitConversionError(ctx context.Context, err error) {
	fields := []capitan.Field{KeyError.Field(err)}
	var ce *ConversionError
	if errors.As(err, &ce) {
		fields = append(fields, KeyPath.Field(renderPath(ce.Path)), KeyTypeName.Field(ce.Expected))
	}
	capitan.Error(ctx, SignalConversionError, fields...)
}
