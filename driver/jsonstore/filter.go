package jsonstore

import (
	"strconv"
	"strings"
)

// matchDoc evaluates a filter against one document. Filters follow the
// store's query shape: literal values compare for equality, maps whose keys
// all start with $ are operator conditions, and field names may be dotted
// paths. Supported operators: $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin,
// $exists, plus $and, $or, $nor at the top level. Equality against an array
// field also matches any of its elements. Unknown operators match nothing.
func matchDoc(doc map[string]any, filter map[string]any) bool {
	for key, cond := range filter {
		switch key {
		case "$and":
			clauses, ok := filterList(cond)
			if !ok {
				return false
			}
			for _, clause := range clauses {
				if !matchDoc(doc, clause) {
					return false
				}
			}
		case "$or":
			clauses, ok := filterList(cond)
			if !ok {
				return false
			}
			matched := false
			for _, clause := range clauses {
				if matchDoc(doc, clause) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		case "$nor":
			clauses, ok := filterList(cond)
			if !ok {
				return false
			}
			for _, clause := range clauses {
				if matchDoc(doc, clause) {
					return false
				}
			}
		default:
			val, exists := lookupPath(doc, key)
			if cm, ok := operatorCondition(cond); ok {
				if !evalCondition(val, exists, cm) {
					return false
				}
				continue
			}
			if !exists || !fieldEquals(val, cond) {
				return false
			}
		}
	}
	return true
}

func filterList(cond any) ([]map[string]any, bool) {
	items, ok := cond.([]any)
	if !ok || len(items) == 0 {
		return nil, false
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

// operatorCondition reports whether a filter value is an operator document:
// a non-empty map whose keys all start with $.
func operatorCondition(cond any) (map[string]any, bool) {
	m, ok := cond.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func evalCondition(val any, exists bool, cond map[string]any) bool {
	for op, want := range cond {
		switch op {
		case "$eq":
			if !exists || !fieldEquals(val, want) {
				return false
			}
		case "$ne":
			if exists && fieldEquals(val, want) {
				return false
			}
		case "$gt", "$gte", "$lt", "$lte":
			if !exists {
				return false
			}
			rel, ok := compareValues(val, want)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				if rel <= 0 {
					return false
				}
			case "$gte":
				if rel < 0 {
					return false
				}
			case "$lt":
				if rel >= 0 {
					return false
				}
			case "$lte":
				if rel > 0 {
					return false
				}
			}
		case "$in":
			items, ok := want.([]any)
			if !ok || !exists {
				return false
			}
			found := false
			for _, item := range items {
				if fieldEquals(val, item) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case "$nin":
			items, ok := want.([]any)
			if !ok {
				return false
			}
			if exists {
				for _, item := range items {
					if fieldEquals(val, item) {
						return false
					}
				}
			}
		case "$exists":
			if exists != truthy(want) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// fieldEquals is the store's equality: deep equality, or membership when the
// field holds an array and the wanted value does not.
func fieldEquals(val, want any) bool {
	if valuesEqual(val, want) {
		return true
	}
	items, ok := val.([]any)
	if !ok {
		return false
	}
	if _, wantArray := want.([]any); wantArray {
		return false
	}
	for _, item := range items {
		if valuesEqual(item, want) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, av := range ta {
			bv, has := tb[k]
			if !has || !valuesEqual(av, bv) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !valuesEqual(ta[i], tb[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// compareValues orders two values when they are both numbers or both
// strings. RFC3339 timestamps order correctly as strings.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toNumber(a); ok {
		fb, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, ok := a.(string)
	if !ok {
		return 0, false
	}
	sb, ok := b.(string)
	if !ok {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	default:
		return 0, false
	}
}

func toFloat(v any) float64 {
	f, _ := toNumber(v)
	return f
}

func truthy(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := toNumber(v); ok {
		return f != 0
	}
	return false
}

// lookupPath reads a dotted path, digits indexing into arrays.
func lookupPath(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
