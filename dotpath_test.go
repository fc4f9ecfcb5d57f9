package godm_test

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/godm-io/godm"
)

// pathSchema mirrors the shapes dot paths have to distinguish: scalars,
// dicts and plain lists with untyped contents, typed arrays, and arrays of
// embedded documents.
func pathSchema(logger *zap.Logger) *godm.Schema {
	opts := []godm.SchemaOption{godm.WithWarnExtra(false)}
	if logger != nil {
		opts = append(opts, godm.WithLogger(logger))
	}
	inner := godm.MustSchema("Inner", []godm.FieldDef{
		{Name: "f6", Kind: godm.KindString},
	}, opts...)
	return godm.MustSchema("Outer", []godm.FieldDef{
		{Name: "f1", Kind: godm.KindString},
		{Name: "f4", Kind: godm.KindDict},
		{Name: "f5", Kind: godm.KindList},
		{Name: "f7", Kind: godm.KindArray,
			Elem: &godm.FieldDef{Kind: godm.KindEmbedded, Schema: inner}},
		{Name: "f8", Kind: godm.KindArray, Elem: &godm.FieldDef{Kind: godm.KindInt}},
		{Name: "zip", Kind: godm.KindString, Key: "postal_code"},
	}, opts...)
}

func TestResolve_Paths(t *testing.T) {
	s := pathSchema(nil)

	resolves := []struct {
		path string
		kind godm.Kind
	}{
		{"f1", godm.KindString},
		{"f4", godm.KindDict},
		{"f4.a", godm.KindAny},
		{"f4.a.b.c", godm.KindAny},
		{"f5.0", godm.KindAny},
		{"f5.$", godm.KindAny},
		{"f5.$[]", godm.KindAny},
		{"f5.$[foobar]", godm.KindAny},
		{"f7", godm.KindArray},
		{"f7.0", godm.KindEmbedded},
		{"f7.0.f6", godm.KindString},
		{"f7.$.f6", godm.KindString},
		{"f7.$[].f6", godm.KindString},
		{"f7.$[elem].f6", godm.KindString},
		{"f8.3", godm.KindInt},
		{"postal_code", godm.KindString},
	}
	for _, c := range resolves {
		f, err := s.Resolve(c.path)
		if err != nil {
			t.Fatalf("Resolve(%q) err: %v", c.path, err)
		}
		if f.Kind() != c.kind {
			t.Fatalf("Resolve(%q) kind = %v, want %v", c.path, f.Kind(), c.kind)
		}
	}

	fails := []string{
		"f4.0",        // dict contents take identifiers, not indexes
		"f5.a",        // list contents take indexes only
		"f1.anything", // cannot descend into a scalar
		"f7.f6",       // array takes an index before the element field
		"f8.0.deeper", // cannot descend into an int element
		"f7.$[].$[x].f6",
		"f7.0.f6.0",
		"!!!",
		"f4.!!!",
		"f7..f6",
	}
	for _, path := range fails {
		_, err := s.Resolve(path)
		var pathErr *godm.PathError
		if !errors.As(err, &pathErr) {
			t.Fatalf("Resolve(%q) = %v, want PathError", path, err)
		}
	}
}

func TestResolve_UndeclaredSegmentWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := pathSchema(zap.New(core))

	f, err := s.Resolve("f7.0.undeclared")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if f.Kind() != godm.KindAny {
		t.Fatalf("kind = %v, want any", f.Kind())
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}

	// Declared names resolve by store key, so the declared name of an
	// aliased field is itself off-schema.
	logs.TakeAll()
	f, err = s.Resolve("zip")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if f.Kind() != godm.KindAny || logs.Len() != 1 {
		t.Fatalf("aliased declared name: kind=%v warnings=%d", f.Kind(), logs.Len())
	}
}
