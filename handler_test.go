package typedjson

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogErrors(t *testing.T) {
	if err := LogErrors(errors.New("x")); err != nil {
		t.Errorf("LogErrors() = %v, want nil", err)
	}
}

func TestFailFast(t *testing.T) {
	cause := errors.New("x")
	if err := FailFast(cause); err != cause {
		t.Errorf("FailFast() = %v, want %v", err, cause)
	}
}

func TestCollect_Concurrent(t *testing.T) {
	var errs Errors
	h := Collect(&errs)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h(errors.New("x"))
		}()
	}
	wg.Wait()
	if len(errs) != 50 {
		t.Errorf("collected %d errors, want 50", len(errs))
	}
}

func TestZapErrorHandler(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	e := New(NewRegistry(), WithErrorHandler(ZapErrorHandler(zap.New(core))))

	got, err := Decode[[]int](e, []any{1.0, "two"}, nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Decode() = %v", got)
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/1" || fields["expected"] != "int" {
		t.Errorf("fields = %v", fields)
	}
	if entries[0].Message != "typedjson conversion error" {
		t.Errorf("message = %q", entries[0].Message)
	}
}

func TestZapErrorHandler_PlainError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := ZapErrorHandler(zap.New(core))

	if err := h(errors.New("plain")); err != nil {
		t.Errorf("handler returned %v", err)
	}
	fields := logs.All()[0].ContextMap()
	if _, ok := fields["path"]; ok {
		t.Error("plain errors should not carry a path")
	}
}
