package typedjson

import (
	"errors"
	"strings"
	"testing"
)

func TestConversionError_Is(t *testing.T) {
	cause := errors.New("got string")
	err := newConversionError(ErrShapeMismatch, "/items/1", DescribeOf[int](), cause)

	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("ConversionError should unwrap to ErrShapeMismatch")
	}
	if !errors.Is(err, cause) {
		t.Error("ConversionError should unwrap to its cause")
	}
	if errors.Is(err, ErrMissingRequired) {
		t.Error("ConversionError should not match ErrMissingRequired")
	}

	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As should find *ConversionError")
	}
	if ce.Path != "/items/1" || ce.Expected != "int" {
		t.Errorf("ConversionError = %+v", ce)
	}
}

func TestConversionError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "full context",
			err:  newConversionError(ErrShapeMismatch, "/items/1", DescribeOf[int](), errors.New("got string")),
			want: "shape mismatch (expected int) at /items/1: got string",
		},
		{
			name: "root",
			err:  newConversionError(ErrAbsent, "", nil, nil),
			want: "conversion produced no value at /",
		},
		{
			name: "container",
			err:  newConversionError(ErrMissingRequired, "/name", ArrayOf(DescribeOf[string]()), nil),
			want: "missing required member (expected Array<string>) at /name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	var empty Errors
	if empty.Error() != "" {
		t.Errorf("empty Errors.Error() = %q", empty.Error())
	}

	es := Errors{
		newConversionError(ErrShapeMismatch, "/a", nil, nil),
		newConversionError(ErrMissingRequired, "/b", nil, nil),
		newConversionError(ErrInvalidTypeHint, "/c", nil, nil),
		newConversionError(ErrHook, "/d", nil, nil),
	}
	msg := es.Error()
	if !strings.Contains(msg, "at /a") || !strings.Contains(msg, "(total 4)") {
		t.Errorf("Error() = %q", msg)
	}
	if strings.Contains(msg, "at /d") {
		t.Errorf("Error() = %q, should truncate", msg)
	}
	if !errors.Is(es, ErrHook) {
		t.Error("Errors should unwrap to each member")
	}
}

func TestAbortError(t *testing.T) {
	cause := errors.New("stop")
	err := error(&abortError{err: cause})

	if !isAbort(err) {
		t.Error("isAbort() = false")
	}
	if isAbort(cause) {
		t.Error("isAbort(plain) = true")
	}
	if unwrapAbort(err) != cause {
		t.Error("unwrapAbort() should return the handler error")
	}
	if unwrapAbort(cause) != cause {
		t.Error("unwrapAbort(plain) should return its argument")
	}
}

func TestChildPath(t *testing.T) {
	tests := []struct {
		path, token, want string
	}{
		{"", "name", "/name"},
		{"/a", "b/c", "/a/b~1c"},
		{"/a", "m~n", "/a/m~0n"},
	}
	for _, tt := range tests {
		if got := childPath(tt.path, tt.token); got != tt.want {
			t.Errorf("childPath(%q, %q) = %q, want %q", tt.path, tt.token, got, tt.want)
		}
	}
	if got := indexPath("/items", 3); got != "/items/3" {
		t.Errorf("indexPath() = %q", got)
	}
}
