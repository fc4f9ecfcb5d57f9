package jsonstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetPath(t *testing.T) {
	doc := map[string]any{
		"a":    map[string]any{"b": 1},
		"list": []any{[]any{"x"}},
	}

	if err := setPath(doc, "a.b", 2); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := setPath(doc, "a.c.d", 3); err != nil {
		t.Fatalf("set with intermediates: %v", err)
	}
	if err := setPath(doc, "list.0.1", "y"); err != nil {
		t.Fatalf("set nested array: %v", err)
	}
	want := map[string]any{
		"a":    map[string]any{"b": 2, "c": map[string]any{"d": 3}},
		"list": []any{[]any{"x", "y"}},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("doc (-want +got):\n%s", diff)
	}

	// Growing an inner array reinstalls the grown slice in its parent.
	if err := setPath(doc, "list.0.3", "z"); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if diff := cmp.Diff([]any{"x", "y", nil, "z"}, doc["list"].([]any)[0]); diff != "" {
		t.Fatalf("grown inner (-want +got):\n%s", diff)
	}

	// A null array slot becomes a map when the path descends through it.
	if err := setPath(doc, "list.0.2.k", 1); err != nil {
		t.Fatalf("descend through null: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"k": 1}, doc["list"].([]any)[0].([]any)[2]); diff != "" {
		t.Fatalf("null slot (-want +got):\n%s", diff)
	}

	for _, path := range []string{"a.b.deep", "list.x", "list.-1", "list.$", "a.$[e]"} {
		if err := setPath(doc, path, 1); err == nil {
			t.Fatalf("setPath(%q) accepted", path)
		}
	}
}

func TestDeletePath(t *testing.T) {
	doc := map[string]any{
		"a":    map[string]any{"b": 1, "c": 2},
		"list": []any{"x", "y"},
		"s":    "scalar",
	}

	if err := deletePath(doc, "a.b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := deletePath(doc, "list.0"); err != nil {
		t.Fatalf("delete element: %v", err)
	}
	// Missing paths and paths through scalars are no-ops.
	for _, path := range []string{"ghost.x", "a.ghost.y", "list.9", "list.x", "s.deep"} {
		if err := deletePath(doc, path); err != nil {
			t.Fatalf("deletePath(%q): %v", path, err)
		}
	}
	if err := deletePath(doc, "list.$"); err == nil {
		t.Fatal("positional delete accepted")
	}

	want := map[string]any{
		"a":    map[string]any{"c": 2},
		"list": []any{nil, "y"},
		"s":    "scalar",
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("doc (-want +got):\n%s", diff)
	}
}

func TestApplyUpdateCopies(t *testing.T) {
	src := map[string]any{"_id": "t1", "n": 1.0, "tags": []any{"a"}}
	out, err := applyUpdate(src, map[string]any{
		"$set":  map[string]any{"n": 2},
		"$push": map[string]any{"tags": "b"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if src["n"] != 1.0 || len(src["tags"].([]any)) != 1 {
		t.Fatalf("source mutated: %v", src)
	}
	if out["n"] != 2.0 || len(out["tags"].([]any)) != 2 {
		t.Fatalf("out = %v", out)
	}
}
