package typedjson

import (
	"reflect"
	"testing"
)

type label string

func TestFit(t *testing.T) {
	s := "x"
	tests := []struct {
		name string
		v    any
		dst  reflect.Type
		want any
		ok   bool
	}{
		{"same", "x", reflect.TypeFor[string](), "x", true},
		{"named", "x", reflect.TypeFor[label](), label("x"), true},
		{"numeric", int64(3), reflect.TypeFor[int32](), int32(3), true},
		{"interface", "x", reflect.TypeFor[any](), "x", true},
		{"int to string", 65, reflect.TypeFor[string](), nil, false},
		{"bool to int", true, reflect.TypeFor[int](), nil, false},
		{"deref", &s, reflect.TypeFor[string](), "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fit(reflect.ValueOf(tt.v), tt.dst)
			if ok != tt.ok {
				t.Fatalf("fit() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Interface() != tt.want {
				t.Errorf("fit() = %v, want %v", got.Interface(), tt.want)
			}
		})
	}

	p, ok := fit(reflect.ValueOf("y"), reflect.TypeFor[*label]())
	if !ok || *p.Interface().(*label) != "y" {
		t.Errorf("fit(*label) = %v, %v", p, ok)
	}
}

func TestCanonicalType(t *testing.T) {
	reg := newTestRegistry(t)
	tests := []struct {
		d    Descriptor
		want reflect.Type
	}{
		{DescribeOf[int](), reflect.TypeFor[int]()},
		{DescribeOf[Shelter](), reflect.TypeFor[*Shelter]()},
		{DescribeOf[Animal](), reflect.TypeFor[any]()},
		{ArrayOf(DescribeOf[Dog]()), reflect.TypeFor[[]*Dog]()},
		{SetOf(DescribeOf[string]()), reflect.TypeFor[map[string]struct{}]()},
		{SetOf(ArrayOf(DescribeOf[int]())), reflect.TypeFor[map[any]struct{}]()},
		{MapOf(DescribeOf[int](), DescribeOf[Cat](), MapAsPairs), reflect.TypeFor[map[int]*Cat]()},
	}
	for _, tt := range tests {
		if got := canonicalType(reg, tt.d); got != tt.want {
			t.Errorf("canonicalType(%s) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestExportedFields(t *testing.T) {
	type inner struct{ X int }
	type outer struct {
		inner
		A      int
		B      string `json:"-"`
		hidden int
		C      *inner
	}
	var names []string
	for _, sf := range exportedFields(reflect.TypeFor[outer]()) {
		names = append(names, sf.Name)
	}
	want := []string{"X", "A", "C"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("exportedFields() = %v, want %v", names, want)
	}
}
