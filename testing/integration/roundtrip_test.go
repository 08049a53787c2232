package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zoobzio/typedjson"
	"github.com/zoobzio/typedjson/json"
	"github.com/zoobzio/typedjson/msgpack"
	codectest "github.com/zoobzio/typedjson/testing"
	"github.com/zoobzio/typedjson/yaml"
)

func TestRoundTrip_JSON(t *testing.T) {
	testRoundTrip(t, json.New())
}

func TestRoundTrip_YAML(t *testing.T) {
	testRoundTrip(t, yaml.New())
}

func TestRoundTrip_MessagePack(t *testing.T) {
	testRoundTrip(t, msgpack.New())
}

func testRoundTrip(t *testing.T, c typedjson.Codec) {
	t.Helper()
	engine := typedjson.New(codectest.NewRegistry(t), typedjson.WithErrorHandler(typedjson.FailFast))
	proc, err := typedjson.NewProcessor[*codectest.Team](engine, c)
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	original := &codectest.Team{
		Title: "Platform",
		Lead:  &codectest.Person{Name: "Ann"},
		Members: []any{
			&codectest.Person{Name: "Bob"},
			&codectest.Employee{Person: codectest.Person{Name: "Cid"}, BadgeID: "x1"},
		},
		Formed: time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := proc.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	restored, err := proc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeHint_Discriminator(t *testing.T) {
	engine := typedjson.New(codectest.NewRegistry(t),
		typedjson.WithErrorHandler(typedjson.FailFast),
		typedjson.WithDiscriminator("type"),
	)
	codec := json.New()
	person := typedjson.DescribeOf[codectest.Person]()

	tree, err := engine.Serialize(&codectest.Employee{Person: codectest.Person{Name: "Bob"}, BadgeID: "x1"}, person)
	if err != nil {
		t.Fatalf("Serialize() error: %v", err)
	}
	data, err := codec.Marshal(tree)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if want := `{"name":"Bob","badgeId":"x1","type":"Employee"}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	got, err := engine.Deserialize(raw, person)
	if err != nil {
		t.Fatalf("Deserialize() error: %v", err)
	}
	emp, ok := got.(*codectest.Employee)
	if !ok || emp.Name != "Bob" || emp.BadgeID != "x1" {
		t.Errorf("Deserialize() = %#v, want *Employee", got)
	}
}

func TestAccount_OneWayConverters(t *testing.T) {
	engine := typedjson.New(codectest.NewRegistry(t), typedjson.WithErrorHandler(typedjson.FailFast))
	proc, err := typedjson.NewProcessor[*codectest.Account](engine, json.New())
	if err != nil {
		t.Fatalf("NewProcessor() error: %v", err)
	}

	data, err := proc.Marshal(&codectest.Account{ID: "1", Email: "alice@example.com", Password: "hello"})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"id":"1","email":"a***@example.com",` +
		`"password":"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824","tags":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	got, err := proc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got.Email != "a***@example.com" || len(got.Tags) != 0 {
		t.Errorf("Unmarshal() = %+v", got)
	}
}

func TestPartialFailure(t *testing.T) {
	rec := &codectest.Recorder{}
	engine := typedjson.New(codectest.NewRegistry(t), typedjson.WithErrorHandler(rec.Handle))
	proc, _ := typedjson.NewProcessor[*codectest.Team](engine, json.New())

	data := []byte(`{"title":"x","formed":"soon","members":[` +
		`{"name":"A"},{"badgeId":"b","__type":"Employee"},{"name":"C","__type":"Robot"}]}`)
	team, err := proc.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if team.Title != "x" || !team.Formed.IsZero() || len(team.Members) != 3 {
		t.Fatalf("Unmarshal() = %+v", team)
	}
	if e, ok := team.Members[1].(*codectest.Employee); !ok || e.BadgeID != "b" {
		t.Errorf("Members[1] = %#v, want *Employee", team.Members[1])
	}
	if p, ok := team.Members[2].(*codectest.Person); !ok || p.Name != "C" {
		t.Errorf("Members[2] = %#v, want *Person fallback", team.Members[2])
	}

	errs := rec.Errors()
	if len(errs) != 3 {
		t.Fatalf("recorded %d errors, want 3: %v", len(errs), errs)
	}
	for i, want := range []error{typedjson.ErrMissingRequired, typedjson.ErrInvalidTypeHint, typedjson.ErrShapeMismatch} {
		if !errors.Is(errs[i], want) {
			t.Errorf("errs[%d] = %v, want %v", i, errs[i], want)
		}
	}
}
