package typedjson

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func memberNames(md *Metadata) []string {
	names := make([]string, len(md.Members))
	for i, m := range md.Members {
		names[i] = m.Name
	}
	return names
}

func TestRegister_Members(t *testing.T) {
	type profile struct {
		ID       string   `json:"id" typedjson:"required"`
		Nick     string   `json:"nick,omitempty"`
		Tags     []string `typedjson:"emitDefault"`
		Note     *string  `json:"note" typedjson:"preserveNull"`
		Internal string
		Skipped  string `json:"-"`
		hidden   string //nolint:unused
	}

	md, err := Register[profile](NewRegistry())
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "nick", "Tags", "note"}, memberNames(md)); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	id, _ := md.Member("ID")
	if !id.Required {
		t.Error("ID should be required")
	}
	tags, _ := md.Member("Tags")
	if !tags.EmitDefault {
		t.Error("Tags should emit default")
	}
	note, _ := md.Member("Note")
	if !ResolveOption(OptionPreserveNull, note.Options) {
		t.Error("Note should preserve null")
	}
	if md.Name != "profile" {
		t.Errorf("Name = %q, want profile", md.Name)
	}
}

func TestRegister_Extends(t *testing.T) {
	reg := newTestRegistry(t)

	md, ok := reg.Lookup(reflect.TypeFor[*Dog]())
	if !ok {
		t.Fatal("Dog not registered")
	}
	if diff := cmp.Diff([]string{"name", "legs", "breed"}, memberNames(md)); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	name, _ := md.Member("Name")
	if !name.Required {
		t.Error("inherited member should stay required")
	}
	if diff := cmp.Diff([]int{0, 0}, name.Index); diff != "" {
		t.Errorf("inherited member index mismatch (-want +got):\n%s", diff)
	}
	if md.Parent != reflect.TypeFor[Animal]() {
		t.Errorf("Parent = %v", md.Parent)
	}
}

func TestRegister_Options(t *testing.T) {
	type widget struct {
		Label string `json:"label"`
		Count int
	}
	reg := NewRegistry()
	md, err := Register[widget](reg,
		Name("gadget"),
		WithMember("Label", WireName("title"), Required()),
		WithMember("Count", EmitDefault()),
		WithTypeOptions(&Options{PreserveNull: Bool(true)}),
	)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if diff := cmp.Diff([]string{"title", "Count"}, memberNames(md)); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	label, _ := md.Member("Label")
	if !label.Required {
		t.Error("Label should be required")
	}
	if got, ok := reg.LookupName("gadget"); !ok || got != reflect.TypeFor[widget]() {
		t.Errorf("LookupName(gadget) = %v, %v", got, ok)
	}
	if !ResolveOption(OptionPreserveNull, md.Options) {
		t.Error("type options not recorded")
	}
}

func TestRegister_Errors(t *testing.T) {
	type parentless struct {
		A string `json:"a"`
	}
	type badTag struct {
		A string `json:"a" typedjson:"sometimes"`
	}
	type noHook struct {
		A string `json:"a"`
	}

	tests := []struct {
		name string
		reg  func(*Registry) error
		want error
	}{
		{"not a struct", func(r *Registry) error { _, err := Register[int](r); return err }, ErrNotStruct},
		{"unregistered parent", func(r *Registry) error {
			_, err := Register[parentless](r, ExtendsOf[Animal]())
			return err
		}, ErrNotRegistered},
		{"unknown member", func(r *Registry) error {
			_, err := Register[parentless](r, WithMember("Missing"))
			return err
		}, ErrUnknownMember},
		{"unexported member", func(r *Registry) error {
			_, err := Register[profileWithHidden](r, WithMember("hidden"))
			return err
		}, ErrUnknownMember},
		{"invalid tag", func(r *Registry) error { _, err := Register[badTag](r); return err }, ErrInvalidTag},
		{"missing hook", func(r *Registry) error {
			_, err := Register[noHook](r, AfterDeserialize("Validate"))
			return err
		}, ErrHook},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.reg(NewRegistry()); !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type profileWithHidden struct {
	Name   string `json:"name"`
	hidden string //nolint:unused
}

func TestRegister_InheritsHooks(t *testing.T) {
	type base struct {
		A string `json:"a"`
	}
	type derived struct {
		base
		B string `json:"b"`
	}
	calls := 0
	reg := NewRegistry()
	MustRegister[base](reg,
		StaticHook("count", func(any) error { calls++; return nil }),
		AfterDeserialize("count"),
	)
	md := MustRegister[derived](reg, ExtendsOf[base]())
	if md.AfterDeserializeHook != "count" {
		t.Errorf("AfterDeserializeHook = %q, want count", md.AfterDeserializeHook)
	}

	if _, err := Decode[derived](New(reg), obj("a", "x", "b", "y"), nil); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if calls != 1 {
		t.Errorf("hook called %d times, want 1", calls)
	}
}

func TestMustRegister_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRegister should panic on error")
		}
	}()
	MustRegister[string](NewRegistry())
}

func TestRegistry_IsSubtypeOf(t *testing.T) {
	reg := newTestRegistry(t)
	typ := func(v any) reflect.Type { return reflect.TypeOf(v) }
	pet := reflect.TypeFor[Pet]()

	tests := []struct {
		name string
		x, y reflect.Type
		want bool
	}{
		{"same", typ(Dog{}), typ(Dog{}), true},
		{"pointer", typ(&Dog{}), typ(Dog{}), true},
		{"child of parent", typ(Dog{}), typ(Animal{}), true},
		{"parent of child", typ(Animal{}), typ(Dog{}), false},
		{"siblings", typ(Cat{}), typ(Dog{}), false},
		{"interface", typ(Dog{}), pet, true},
		{"non implementer", typ(Animal{}), pet, false},
		{"nil", nil, typ(Dog{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.IsSubtypeOf(tt.x, tt.y); got != tt.want {
				t.Errorf("IsSubtypeOf(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRegistry_InstantiateBare(t *testing.T) {
	reg := newTestRegistry(t)
	v, err := reg.InstantiateBare(reflect.TypeFor[Dog]())
	if err != nil {
		t.Fatalf("InstantiateBare() error: %v", err)
	}
	if _, ok := v.Interface().(*Dog); !ok {
		t.Errorf("InstantiateBare() = %T, want *Dog", v.Interface())
	}
	if _, err := reg.InstantiateBare(reflect.TypeFor[int]()); !errors.Is(err, ErrNotStruct) {
		t.Errorf("InstantiateBare(int) error = %v, want ErrNotStruct", err)
	}
}
