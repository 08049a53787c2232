// Package testing provides fixtures and helpers for tests that use typedjson.
package testing

import (
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/typedjson"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestEncryptor returns an AES encryptor configured for testing.
func TestEncryptor(tb testing.TB) typedjson.Encryptor {
	tb.Helper()
	enc, err := typedjson.AES(TestKey())
	if err != nil {
		tb.Fatalf("AES() error: %v", err)
	}
	return enc
}

// Person is the root of a small class hierarchy.
type Person struct {
	Name string `json:"name" typedjson:"required"`
}

// Employee extends Person.
type Employee struct {
	Person
	BadgeID string `json:"badgeId"`
}

// Team holds polymorphic members: each element is a *Person or *Employee.
type Team struct {
	Title   string    `json:"title"`
	Lead    *Person   `json:"lead"`
	Members []any     `json:"members"`
	Formed  time.Time `json:"formed"`
}

// Account exercises the tag-driven converters.
type Account struct {
	ID       string              `json:"id" typedjson:"required"`
	Email    string              `json:"email" typedjson:"mask=email"`
	Password string              `json:"password" typedjson:"digest=sha256"`
	Tags     map[string]struct{} `json:"tags" typedjson:"emitDefault"`
}

// NewRegistry returns a registry with every fixture registered. Employee is
// registered under "Employee" as a subtype of Person.
func NewRegistry(tb testing.TB) *typedjson.Registry {
	tb.Helper()
	reg := typedjson.NewRegistry()
	register := func(err error) {
		if err != nil {
			tb.Fatalf("register fixture: %v", err)
		}
	}
	_, err := typedjson.Register[Person](reg)
	register(err)
	_, err = typedjson.Register[Employee](reg, typedjson.ExtendsOf[Person]())
	register(err)
	_, err = typedjson.Register[Team](reg,
		typedjson.WithMember("Members", typedjson.MemberType(func() typedjson.Descriptor {
			return typedjson.ArrayOf(typedjson.DescribeOf[Person]())
		})),
	)
	register(err)
	_, err = typedjson.Register[Account](reg)
	register(err)
	return reg
}

// Recorder is an error handler that records every error and continues.
type Recorder struct {
	mu   sync.Mutex
	errs []error
}

// Handle records err. Use it as a typedjson.ErrorHandler.
func (r *Recorder) Handle(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	return nil
}

// Errors returns a copy of the recorded errors.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Len returns the number of recorded errors.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}
