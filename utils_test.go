package godm

import "testing"

func TestPluralize(t *testing.T) {
	cases := map[string]string{
		"user":     "users",
		"post":     "posts",
		"category": "categories",
		"day":      "days",
		"bus":      "buses",
		"alias":    "aliases",
		"radius":   "radii",
		"match":    "matches",
		"dish":     "dishes",
		"person":   "people",
		"child":    "children",
		"index":    "indices",
		"deer":     "deer",
		"hero":     "heroes",
		"":         "",
	}
	for in, want := range cases {
		if got := pluralize(in); got != want {
			t.Fatalf("pluralize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShapeEqual(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{1, 1.0, true},
		{int64(5), float64(5), true},
		{1, 2, false},
		{"a", "a", true},
		{"a", 1, false},
		{map[string]any{"n": 1}, map[string]any{"n": 1.0}, true},
		{map[string]any{"n": 1}, map[string]any{"n": 1, "m": 2}, false},
		{[]any{1, "x"}, []any{1.0, "x"}, true},
		{[]any{1}, []any{1, 2}, false},
		{nil, nil, true},
		{nil, 0, false},
		{true, true, true},
		{map[string]any{"k": []any{map[string]any{"a": 1}}}, map[string]any{"k": []any{map[string]any{"a": 1.0}}}, true},
	}
	for _, c := range cases {
		if got := shapeEqual(c.a, c.b); got != c.want {
			t.Fatalf("shapeEqual(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestLookupDotted(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{
			"b": []any{
				map[string]any{"c": 42},
				"plain",
			},
		},
		"top": "x",
	}

	if v, ok := lookupDotted(data, "a.b.0.c"); !ok || v != 42 {
		t.Fatalf("a.b.0.c = %v, %v", v, ok)
	}
	if v, ok := lookupDotted(data, "a.b.1"); !ok || v != "plain" {
		t.Fatalf("a.b.1 = %v, %v", v, ok)
	}
	if v, ok := lookupDotted(data, "top"); !ok || v != "x" {
		t.Fatalf("top = %v, %v", v, ok)
	}
	for _, miss := range []string{"a.z", "a.b.5", "a.b.x", "top.deeper", "a.b.0.c.d"} {
		if _, ok := lookupDotted(data, miss); ok {
			t.Fatalf("expected %q to be absent", miss)
		}
	}
}

func TestDeepCopyValue(t *testing.T) {
	src := map[string]any{
		"list": []any{map[string]any{"n": 1}},
		"raw":  []byte("abc"),
	}
	cp := deepCopyValue(src).(map[string]any)

	cp["list"].([]any)[0].(map[string]any)["n"] = 99
	cp["raw"].([]byte)[0] = 'x'

	if src["list"].([]any)[0].(map[string]any)["n"] != 1 {
		t.Fatalf("nested map was shared")
	}
	if src["raw"].([]byte)[0] != 'a' {
		t.Fatalf("byte slice was shared")
	}
}

func TestParseIndex(t *testing.T) {
	if n, ok := parseIndex("12"); !ok || n != 12 {
		t.Fatalf("parseIndex(12) = %d, %v", n, ok)
	}
	for _, bad := range []string{"", "-1", "1a", "$", "1.5"} {
		if _, ok := parseIndex(bad); ok {
			t.Fatalf("parseIndex(%q) should fail", bad)
		}
	}
}

func TestHumpKey(t *testing.T) {
	cases := map[string]string{
		"expire_after_seconds": "expireAfterSeconds",
		"unique":               "unique",
		"partial_filter":       "partialFilter",
		"name":                 "name",
	}
	for in, want := range cases {
		if got := humpKey(in); got != want {
			t.Fatalf("humpKey(%q) = %q, want %q", in, got, want)
		}
	}
}
