package typedjson

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKnownTypes(t *testing.T) {
	kt := NewKnownTypes().
		Add("dog", reflect.TypeFor[*Dog]()).
		Add("cat", reflect.TypeFor[Cat]())

	if got, ok := kt.Lookup("dog"); !ok || got != reflect.TypeFor[Dog]() {
		t.Errorf("Lookup(dog) = %v, %v", got, ok)
	}
	if name, ok := kt.NameOf(reflect.TypeFor[*Cat]()); !ok || name != "cat" {
		t.Errorf("NameOf(*Cat) = %q, %v", name, ok)
	}
	if diff := cmp.Diff([]string{"cat", "dog"}, kt.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	kt.Add("hound", reflect.TypeFor[Dog]())
	if _, ok := kt.Lookup("dog"); ok {
		t.Error("rebinding a type should drop its old name")
	}
	if kt.Len() != 2 {
		t.Errorf("Len() = %d, want 2", kt.Len())
	}
}

func TestKnownTypes_Nil(t *testing.T) {
	var kt *KnownTypes
	if _, ok := kt.Lookup("x"); ok {
		t.Error("Lookup on nil should miss")
	}
	if _, ok := kt.NameOf(reflect.TypeFor[Dog]()); ok {
		t.Error("NameOf on nil should miss")
	}
	if kt.Len() != 0 || kt.Names() != nil {
		t.Error("nil registry should be empty")
	}
	if merged := kt.Merge(nil); merged == nil || merged.Len() != 0 {
		t.Error("Merge on nil should return an empty registry")
	}
}

func TestKnownTypes_Merge(t *testing.T) {
	outer := NewKnownTypes().Add("dog", reflect.TypeFor[Dog]())
	inner := NewKnownTypes().Add("cat", reflect.TypeFor[Cat]()).Add("animal", reflect.TypeFor[Animal]())

	once := outer.Merge(inner)
	twice := once.Merge(inner)
	if !once.Equal(twice) {
		t.Errorf("Merge is not idempotent: %v vs %v", once.Names(), twice.Names())
	}
	if diff := cmp.Diff([]string{"animal", "cat", "dog"}, once.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if outer.Len() != 1 {
		t.Errorf("Merge modified the receiver: %v", outer.Names())
	}
}

func TestKnownTypes_MergeCollision(t *testing.T) {
	a := NewKnownTypes().Add("pet", reflect.TypeFor[Dog]())
	b := NewKnownTypes().Add("pet", reflect.TypeFor[Cat]())

	got, _ := a.Merge(b).Lookup("pet")
	if got != reflect.TypeFor[Cat]() {
		t.Errorf("Lookup(pet) = %v, want Cat", got)
	}
}

func TestKnownTypes_Equal(t *testing.T) {
	a := NewKnownTypes().Add("dog", reflect.TypeFor[Dog]())
	b := NewKnownTypes().Add("dog", reflect.TypeFor[Dog]())
	c := NewKnownTypes().Add("dog", reflect.TypeFor[Cat]())
	var empty *KnownTypes

	if !a.Equal(b) {
		t.Error("equal registries reported different")
	}
	if a.Equal(c) {
		t.Error("different bindings reported equal")
	}
	if !empty.Equal(NewKnownTypes()) {
		t.Error("nil and empty should be equal")
	}
}

func TestRegistryKnownTypesFor(t *testing.T) {
	reg := newTestRegistry(t)

	kt := reg.KnownTypesFor(reflect.TypeFor[Animal]())
	if diff := cmp.Diff([]string{"Animal", "Cat", "Dog"}, kt.Names()); diff != "" {
		t.Errorf("KnownTypesFor(Animal) mismatch (-want +got):\n%s", diff)
	}

	kt = reg.KnownTypesFor(reflect.TypeFor[Shelter]())
	for _, name := range []string{"Dog", "Cat", "Shelter"} {
		if _, ok := kt.Lookup(name); !ok {
			t.Errorf("KnownTypesFor(Shelter) missing %s", name)
		}
	}
}

func TestRegistryKnownTypesFor_Transitive(t *testing.T) {
	reg := newTestRegistry(t)
	MustRegister[Puppy](reg, ExtendsOf[Dog]())

	tests := []struct {
		typ  reflect.Type
		want []string
	}{
		{reflect.TypeFor[Animal](), []string{"Animal", "Cat", "Dog", "Puppy"}},
		{reflect.TypeFor[Dog](), []string{"Dog", "Puppy"}},
		{reflect.TypeFor[Puppy](), []string{"Puppy"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, reg.KnownTypesFor(tt.typ).Names()); diff != "" {
			t.Errorf("KnownTypesFor(%s) mismatch (-want +got):\n%s", tt.typ.Name(), diff)
		}
	}
}
