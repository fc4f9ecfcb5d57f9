package godm

import (
	"fmt"
	"strings"
)

// IndexKey is one component of a compound index key: a store field path and
// a direction, 1 ascending or -1 descending.
type IndexKey struct {
	Field string
	Order int
}

// Index declares one collection index: the ordered key plus creation options
// in their store spelling (unique, sparse, name, expireAfterSeconds, ...).
// Option keys written in snake_case are accepted and normalized.
type Index struct {
	Keys    []IndexKey
	Options map[string]any
}

// IndexOn declares an index over the given field paths in order. A leading
// '-' marks a descending component: IndexOn("email"), IndexOn("a", "-b").
func IndexOn(fields ...string) Index {
	keys := make([]IndexKey, 0, len(fields))
	for _, f := range fields {
		order := 1
		if strings.HasPrefix(f, "-") {
			order = -1
			f = f[1:]
		}
		keys = append(keys, IndexKey{Field: f, Order: order})
	}
	return Index{Keys: keys}
}

// With returns a copy of the index carrying an extra option.
func (ix Index) With(option string, value any) Index {
	opts := make(map[string]any, len(ix.Options)+1)
	for k, v := range ix.Options {
		opts[k] = v
	}
	opts[option] = value
	return Index{Keys: ix.Keys, Options: opts}
}

// Unique returns a copy of the index marked unique.
func (ix Index) Unique() Index { return ix.With("unique", true) }

// ExpireAfter returns a copy of the index with a TTL in seconds.
func (ix Index) ExpireAfter(seconds int64) Index { return ix.With("expireAfterSeconds", seconds) }

// Named returns a copy of the index with an explicit name.
func (ix Index) Named(name string) Index { return ix.With("name", name) }

// CanonicalName returns the store's default name for the index key,
// components joined as field_order: "a_1_b_-1".
func (ix Index) CanonicalName() string {
	parts := make([]string, 0, len(ix.Keys))
	for _, k := range ix.Keys {
		parts = append(parts, fmt.Sprintf("%s_%d", k.Field, k.Order))
	}
	return strings.Join(parts, "_")
}

// Name returns the explicit name option when set, the canonical name
// otherwise.
func (ix Index) Name() string {
	if n, ok := ix.Options["name"].(string); ok && n != "" {
		return n
	}
	return ix.CanonicalName()
}

func normalizeIndex(ix Index) (Index, error) {
	if len(ix.Keys) == 0 {
		return Index{}, fmt.Errorf("index has no keys")
	}
	keys := make([]IndexKey, len(ix.Keys))
	for i, k := range ix.Keys {
		if k.Field == "" {
			return Index{}, fmt.Errorf("index key %d has no field", i)
		}
		order := k.Order
		if order == 0 {
			order = 1
		}
		if order != 1 && order != -1 {
			return Index{}, fmt.Errorf("index key %q has order %d, want 1 or -1", k.Field, k.Order)
		}
		keys[i] = IndexKey{Field: k.Field, Order: order}
	}
	var opts map[string]any
	if len(ix.Options) > 0 {
		opts = make(map[string]any, len(ix.Options))
		for k, v := range ix.Options {
			opts[humpKey(k)] = v
		}
		for _, reserved := range []string{"key", "v", "ns"} {
			if _, has := opts[reserved]; has {
				return Index{}, fmt.Errorf("index option %q is reserved", reserved)
			}
		}
	}
	return Index{Keys: keys, Options: opts}, nil
}

// humpKey converts a snake_case option name to the store's camelCase form:
// expire_after_seconds becomes expireAfterSeconds. Names without
// underscores pass through.
func humpKey(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}
	parts := strings.Split(k, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// indexKeysFromRaw parses the key shape a store driver lists: an ordered
// slice of single-entry maps, with orders possibly decoded as floats.
func indexKeysFromRaw(raw any) ([]IndexKey, error) {
	entry := func(m map[string]any, keys []IndexKey) ([]IndexKey, error) {
		for _, f := range sortedKeys(m) {
			n, ok := numericValue(m[f])
			if !ok {
				return nil, fmt.Errorf("index key %q has non-numeric order %v", f, m[f])
			}
			keys = append(keys, IndexKey{Field: f, Order: int(n)})
		}
		return keys, nil
	}
	switch t := raw.(type) {
	case []IndexKey:
		return t, nil
	case []map[string]any:
		var keys []IndexKey
		var err error
		for _, m := range t {
			if keys, err = entry(m, keys); err != nil {
				return nil, err
			}
		}
		return keys, nil
	case []any:
		var keys []IndexKey
		var err error
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("index key entry %T is not a map", item)
			}
			if keys, err = entry(m, keys); err != nil {
				return nil, err
			}
		}
		return keys, nil
	case map[string]any:
		return entry(t, nil)
	default:
		return nil, fmt.Errorf("cannot parse index key %T", raw)
	}
}

// rawIndexKeys renders the driver-facing key shape: ordered single-entry
// maps.
func rawIndexKeys(keys []IndexKey) []map[string]any {
	out := make([]map[string]any, len(keys))
	for i, k := range keys {
		out[i] = map[string]any{k.Field: k.Order}
	}
	return out
}
