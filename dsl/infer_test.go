package dsl_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/dsl"
)

type inferAddress struct {
	City string `godm:"city,required"`
	Zip  string `godm:"zip,alias=postal_code"`
}

type inferUser struct {
	Name      string         `godm:"name,required"`
	Age       int            // untagged, infers as "age"
	CreatedAt time.Time      `godm:"created_at"`
	UID       uuid.UUID      `godm:"uid"`
	Raw       []byte         `godm:"raw"`
	Home      inferAddress   `godm:"home"`
	Tags      []string       `godm:"tags"`
	Meta      map[string]any `godm:"meta"`
	Log       []any          `godm:"log"`
	Nick      *string        `godm:"nick"`
	Secret    string         `godm:"-"`
	hidden    int
}

func TestInfer(t *testing.T) {
	s, err := dsl.Infer[inferUser]("User", godm.WithWarnExtra(false))
	if err != nil {
		t.Fatalf("infer: %v", err)
	}

	wantKinds := map[string]godm.Kind{
		"name":       godm.KindString,
		"age":        godm.KindInt,
		"created_at": godm.KindDateTime,
		"uid":        godm.KindID,
		"raw":        godm.KindBytes,
		"home":       godm.KindEmbedded,
		"tags":       godm.KindArray,
		"meta":       godm.KindDict,
		"log":        godm.KindList,
		"nick":       godm.KindString,
	}
	if len(s.Fields()) != len(wantKinds) {
		t.Fatalf("inferred %d fields, want %d", len(s.Fields()), len(wantKinds))
	}
	for fname, kind := range wantKinds {
		f, ok := s.FieldByName(fname)
		if !ok {
			t.Fatalf("missing field %q", fname)
		}
		if f.Kind() != kind {
			t.Fatalf("%s kind = %v, want %v", fname, f.Kind(), kind)
		}
	}
	if _, ok := s.FieldByName("secret"); ok {
		t.Fatal("skipped field was inferred")
	}
	if _, ok := s.FieldByName("hidden"); ok {
		t.Fatal("unexported field was inferred")
	}

	name, _ := s.FieldByName("name")
	if !name.Required() {
		t.Fatal("required flag lost")
	}
	tags, _ := s.FieldByName("tags")
	if tags.Elem().Kind() != godm.KindString {
		t.Fatalf("tags element = %v", tags.Elem().Kind())
	}

	home, _ := s.FieldByName("home")
	nested := home.Schema()
	if nested == nil || nested.Name() != "inferAddress" {
		t.Fatalf("nested schema = %v", nested)
	}
	if city, _ := nested.FieldByName("city"); city == nil || !city.Required() {
		t.Fatal("nested required flag lost")
	}
	if zip, ok := nested.FieldByKey("postal_code"); !ok || zip.Name() != "zip" {
		t.Fatal("nested alias lost")
	}
}

func TestInfer_CleanRoundTrip(t *testing.T) {
	s := dsl.MustInfer[inferUser]("User", godm.WithWarnExtra(false))

	data, err := s.Clean(map[string]any{
		"name":       "ann",
		"age":        41.0,
		"created_at": "2024-07-01T10:30:00Z",
		"uid":        "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		"home":       map[string]any{"city": "Kyoto", "postal_code": "600"},
	})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if data["age"] != int64(41) {
		t.Fatalf("age = %v (%T)", data["age"], data["age"])
	}
	if _, ok := data["created_at"].(time.Time); !ok {
		t.Fatalf("created_at = %T", data["created_at"])
	}
	if _, ok := data["uid"].(uuid.UUID); !ok {
		t.Fatalf("uid = %T", data["uid"])
	}
	home := data["home"].(map[string]any)
	if home["postal_code"] != "600" {
		t.Fatalf("home = %v", home)
	}
}

func TestInfer_Errors(t *testing.T) {
	type badFlag struct {
		X string `godm:"x,frobnicate"`
	}
	if _, err := dsl.Infer[badFlag]("Bad"); err == nil || !strings.Contains(err.Error(), "unknown tag flag") {
		t.Fatalf("err = %v", err)
	}

	type badChan struct {
		C chan int `godm:"c"`
	}
	if _, err := dsl.Infer[badChan]("Bad"); err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("err = %v", err)
	}

	if _, err := dsl.Infer[int]("Bad"); err == nil {
		t.Fatal("expected an error for a non-struct type")
	}
}
