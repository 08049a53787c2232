package typedjson

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrShapeMismatch indicates the runtime shape of a value disagrees with its descriptor.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrMissingRequired indicates a required member was absent.
	ErrMissingRequired = errors.New("missing required member")

	// ErrInvalidTypeHint indicates a type hint named an unknown type or a type
	// that is not a subtype of the expected one.
	ErrInvalidTypeHint = errors.New("invalid type hint")

	// ErrInvalidInitializer indicates an initializer returned nil or an unrelated type.
	ErrInvalidInitializer = errors.New("invalid initializer result")

	// ErrUnsupportedType indicates no conversion strategy matches the value.
	ErrUnsupportedType = errors.New("don't know how to convert")

	// ErrInvalidDimensions indicates a non-positive dimension count.
	ErrInvalidDimensions = errors.New("dimensions must be at least 1")

	// ErrNotStruct indicates a registration for a non-struct type.
	ErrNotStruct = errors.New("type is not a struct")

	// ErrUnknownMember indicates a member option names a field the type does not have.
	ErrUnknownMember = errors.New("unknown member")

	// ErrInvalidTag indicates a typedjson struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrNotRegistered indicates a type required by a registration is missing from the registry.
	ErrNotRegistered = errors.New("type not registered")

	// ErrBinaryEncoding indicates a byte buffer cannot be represented as 16-bit code units.
	ErrBinaryEncoding = errors.New("binary encoding failed")

	// ErrAbsent indicates the root value converted to nothing.
	ErrAbsent = errors.New("conversion produced no value")

	// ErrHook indicates a lifecycle hook failed.
	ErrHook = errors.New("lifecycle hook failed")
)

// ConversionError reports a failure at a specific location in the value tree.
// It wraps a sentinel error with the JSON pointer of the value and the
// descriptor that was expected there.
type ConversionError struct {
	Err      error  // Underlying sentinel error (ErrShapeMismatch, etc.)
	Path     string // JSON pointer of the offending value, "" for the root
	Expected string // Descriptor expected at Path
	Cause    error  // Original error, if any
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Expected != "" {
		fmt.Fprintf(&b, " (expected %s)", e.Expected)
	}
	b.WriteString(" at ")
	b.WriteString(renderPath(e.Path))
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// newConversionError creates a ConversionError for a failure at path.
func newConversionError(sentinel error, path string, expected Descriptor, cause error) error {
	ce := &ConversionError{Err: sentinel, Path: path, Cause: cause}
	if expected != nil {
		ce.Expected = expected.String()
	}
	return ce
}

// Errors is a collection of conversion errors that implements error.
type Errors []error

// Error summarizes the first few errors.
func (es Errors) Error() string {
	if len(es) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(es), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(es[i].Error())
	}
	if len(es) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(es))
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (es Errors) Unwrap() []error { return es }

// abortError marks an error the handler chose to rethrow. It unwinds the
// whole conversion instead of being contained at element or member level.
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }
func (e *abortError) Unwrap() error { return e.err }

func isAbort(err error) bool {
	var ae *abortError
	return errors.As(err, &ae)
}

// unwrapAbort returns the error the handler produced.
func unwrapAbort(err error) error {
	var ae *abortError
	if errors.As(err, &ae) {
		return ae.err
	}
	return err
}

func renderPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// childPath appends a JSON pointer token to path.
func childPath(path, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return path + "/" + token
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s/%d", path, i)
}
