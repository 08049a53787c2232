package typedjson

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrorHandler receives every contained conversion error. Returning nil lets
// the conversion continue with the failed value absent; returning an error
// aborts the whole call and makes the engine return that error.
type ErrorHandler func(err error) error

// LogErrors emits the error on SignalConversionError and continues. It is the
// default handler.
func LogErrors(err error) error {
	emitConversionError(context.Background(), err)
	return nil
}

// FailFast aborts on the first error.
func FailFast(err error) error {
	return err
}

// Collect appends every error to dst and continues. dst may be shared by
// concurrent calls.
func Collect(dst *Errors) ErrorHandler {
	var mu sync.Mutex
	return func(err error) error {
		mu.Lock()
		*dst = append(*dst, err)
		mu.Unlock()
		return nil
	}
}

// ZapErrorHandler logs each error as a warning and continues.
func ZapErrorHandler(logger *zap.Logger) ErrorHandler {
	return func(err error) error {
		fields := []zap.Field{zap.Error(err)}
		var ce *ConversionError
		if errors.As(err, &ce) {
			fields = append(fields,
				zap.String("path", renderPath(ce.Path)),
				zap.String("expected", ce.Expected),
			)
		}
		logger.Warn("typedjson conversion error", fields...)
		return nil
	}
}
