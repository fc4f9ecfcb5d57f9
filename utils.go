package godm

import (
	"sort"
	"strings"
)

var aberrantPlurals = map[string]string{
	"appendix": "appendices", "barracks": "barracks", "cactus": "cacti",
	"child": "children", "criterion": "criteria", "deer": "deer",
	"echo": "echoes", "elf": "elves", "embargo": "embargoes",
	"focus": "foci", "fungus": "fungi", "goose": "geese",
	"hero": "heroes", "hoof": "hooves", "index": "indices",
	"knife": "knives", "leaf": "leaves", "life": "lives",
	"man": "men", "mouse": "mice", "nucleus": "nuclei",
	"person": "people", "phenomenon": "phenomena", "potato": "potatoes",
	"self": "selves", "syllabus": "syllabi", "tomato": "tomatoes",
	"torpedo": "torpedoes", "veto": "vetoes", "woman": "women",
}

func isVowel(c byte) bool {
	return c == 'a' || c == 'e' || c == 'i' || c == 'o' || c == 'u'
}

// pluralize returns the plural form of a lowercase singular word; collection
// names default to the pluralized schema name ("user" -> "users").
func pluralize(singular string) string {
	if singular == "" {
		return ""
	}
	if p, ok := aberrantPlurals[singular]; ok {
		return p
	}
	n := len(singular)
	root, suffix := singular, "s"
	switch {
	case n >= 2 && singular[n-1] == 'y' && !isVowel(singular[n-2]):
		root, suffix = singular[:n-1], "ies"
	case singular[n-1] == 's':
		switch {
		case n >= 2 && isVowel(singular[n-2]):
			if strings.HasSuffix(singular, "ius") {
				root, suffix = singular[:n-2], "i"
			} else {
				root, suffix = singular[:n-1], "ses"
			}
		default:
			suffix = "es"
		}
	case strings.HasSuffix(singular, "ch") || strings.HasSuffix(singular, "sh"):
		suffix = "es"
	}
	return root + suffix
}

// shapeEqual reports deep structural equality of two decoded values, with
// numbers compared across types (1 == 1.0). Index option comparison depends
// on this: options read back from a store may decode with different numeric
// types than the declared ones.
func shapeEqual(a, b any) bool {
	if na, ok := numericValue(a); ok {
		nb, ok2 := numericValue(b)
		return ok2 && na == nb
	}
	switch va := a.(type) {
	case map[string]any:
		vb, ok := b.(map[string]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for k, x := range va {
			y, ok := vb[k]
			if !ok || !shapeEqual(x, y) {
				return false
			}
		}
		return true
	case []any:
		vb, ok := b.([]any)
		if !ok || len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !shapeEqual(va[i], vb[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// deepCopyValue copies maps and slices recursively; scalars (including
// time.Time and uuid values) are returned as-is. Field defaults are
// materialized through this so a shared mutable default cannot leak
// between documents.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = deepCopyValue(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = deepCopyValue(x)
		}
		return out
	case []byte:
		out := make([]byte, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// lookupDotted reads a nested value at a dotted path ("a.b.2.c"); digits
// index into slices. The second result is false when any hop is absent.
func lookupDotted(data map[string]any, path string) (any, bool) {
	var cur any = data
	for _, seg := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, ok := parseIndex(seg)
			if !ok || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
