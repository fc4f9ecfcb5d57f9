package jsonstore

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/godm-io/godm/codec"
)

// applyUpdate applies an operator document to a copy of doc and returns the
// result. Operators run in name order, their paths in path order. The
// positional placeholders $ and $[...] need query context a standalone
// store does not keep, so paths here take literal indexes only.
func applyUpdate(doc map[string]any, ops map[string]any) (map[string]any, error) {
	out := copyValue(doc).(map[string]any)

	opNames := make([]string, 0, len(ops))
	for op := range ops {
		opNames = append(opNames, op)
	}
	sort.Strings(opNames)

	for _, op := range opNames {
		args, ok := ops[op].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("jsonstore: %s takes a document, got %T", op, ops[op])
		}
		paths := make([]string, 0, len(args))
		for p := range args {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, path := range paths {
			if err := applyOperator(out, op, path, args[path]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func applyOperator(doc map[string]any, op, path string, arg any) error {
	switch op {
	case "$set":
		nv, err := normalizeValue(arg)
		if err != nil {
			return err
		}
		return setPath(doc, path, nv)

	case "$unset":
		return deletePath(doc, path)

	case "$inc", "$mul":
		by, ok := toNumber(arg)
		if !ok {
			return fmt.Errorf("jsonstore: %s %s: non-numeric argument %T", op, path, arg)
		}
		cur, exists := lookupPath(doc, path)
		var base float64
		if exists {
			f, ok := toNumber(cur)
			if !ok {
				return fmt.Errorf("jsonstore: %s %s: field is not numeric", op, path)
			}
			base = f
		}
		if op == "$inc" {
			return setPath(doc, path, base+by)
		}
		// $mul on a missing field leaves zero behind.
		return setPath(doc, path, base*by)

	case "$min", "$max":
		nv, err := normalizeValue(arg)
		if err != nil {
			return err
		}
		cur, exists := lookupPath(doc, path)
		if exists {
			rel, ok := compareValues(nv, cur)
			if !ok {
				return nil
			}
			if op == "$min" && rel >= 0 {
				return nil
			}
			if op == "$max" && rel <= 0 {
				return nil
			}
		}
		return setPath(doc, path, nv)

	case "$currentDate":
		return setPath(doc, path, codec.FormatTime(time.Now()))

	case "$push":
		return applyPush(doc, path, arg, false)

	case "$addToSet":
		return applyPush(doc, path, arg, true)

	case "$pop":
		dir, ok := toNumber(arg)
		if !ok || (dir != 1 && dir != -1) {
			return fmt.Errorf("jsonstore: $pop %s: argument must be 1 or -1", path)
		}
		cur, exists := lookupPath(doc, path)
		if !exists {
			return nil
		}
		list, ok := cur.([]any)
		if !ok {
			return fmt.Errorf("jsonstore: $pop %s: field is not an array", path)
		}
		if len(list) == 0 {
			return nil
		}
		if dir == 1 {
			return setPath(doc, path, list[:len(list)-1])
		}
		return setPath(doc, path, list[1:])

	case "$pull":
		cur, exists := lookupPath(doc, path)
		if !exists {
			return nil
		}
		list, ok := cur.([]any)
		if !ok {
			return fmt.Errorf("jsonstore: $pull %s: field is not an array", path)
		}
		nv, err := normalizeValue(arg)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			if pullMatches(item, nv) {
				continue
			}
			kept = append(kept, item)
		}
		return setPath(doc, path, kept)

	case "$pullAll":
		values, ok := arg.([]any)
		if !ok {
			return fmt.Errorf("jsonstore: $pullAll %s takes an array, got %T", path, arg)
		}
		cur, exists := lookupPath(doc, path)
		if !exists {
			return nil
		}
		list, ok := cur.([]any)
		if !ok {
			return fmt.Errorf("jsonstore: $pullAll %s: field is not an array", path)
		}
		nvs, err := normalizeValue(values)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(list))
		for _, item := range list {
			drop := false
			for _, want := range nvs.([]any) {
				if valuesEqual(item, want) {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, item)
			}
		}
		return setPath(doc, path, kept)

	case "$rename":
		newPath, ok := arg.(string)
		if !ok || newPath == "" {
			return fmt.Errorf("jsonstore: $rename %s takes a path string", path)
		}
		cur, exists := lookupPath(doc, path)
		if !exists {
			return nil
		}
		if err := deletePath(doc, path); err != nil {
			return err
		}
		return setPath(doc, newPath, cur)

	default:
		return fmt.Errorf("jsonstore: unsupported operator %s", op)
	}
}

func applyPush(doc map[string]any, path string, arg any, dedupe bool) error {
	cur, exists := lookupPath(doc, path)
	var list []any
	if exists {
		l, ok := cur.([]any)
		if !ok {
			return fmt.Errorf("jsonstore: push to %s: field is not an array", path)
		}
		list = l
	}

	var values []any
	if m, ok := arg.(map[string]any); ok {
		if each, has := m["$each"]; has {
			for k := range m {
				if k != "$each" {
					return fmt.Errorf("jsonstore: push to %s: unsupported modifier %s", path, k)
				}
			}
			items, ok := each.([]any)
			if !ok {
				return fmt.Errorf("jsonstore: push to %s: $each takes an array, got %T", path, each)
			}
			values = items
		}
	}
	if values == nil {
		values = []any{arg}
	}

	for _, v := range values {
		nv, err := normalizeValue(v)
		if err != nil {
			return err
		}
		if dedupe {
			present := false
			for _, item := range list {
				if valuesEqual(item, nv) {
					present = true
					break
				}
			}
			if present {
				continue
			}
		}
		list = append(list, nv)
	}
	return setPath(doc, path, list)
}

// pullMatches applies $pull's per-element test: an operator condition when
// one is given, plain equality otherwise.
func pullMatches(item, want any) bool {
	if cm, ok := operatorCondition(want); ok {
		return evalCondition(item, true, cm)
	}
	return valuesEqual(item, want)
}

// setPath writes a dotted path, creating intermediate maps. Writing past
// the end of an array pads it with nulls, like the store's $set does.
func setPath(doc map[string]any, path string, v any) error {
	segs := strings.Split(path, ".")
	var cur any = doc
	for n, seg := range segs {
		if isPositional(seg) {
			return fmt.Errorf("jsonstore: positional %s in %s is not supported", seg, path)
		}
		last := n == len(segs)-1
		switch t := cur.(type) {
		case map[string]any:
			if last {
				t[seg] = v
				return nil
			}
			next, ok := t[seg]
			if !ok {
				nm := map[string]any{}
				t[seg] = nm
				cur = nm
				continue
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 {
				return fmt.Errorf("jsonstore: %q is not an array index in %s", seg, path)
			}
			if i >= len(t) {
				grown := append(t, make([]any, i+1-len(t))...)
				// The grown slice must land back in the parent.
				if err := setPath(doc, strings.Join(segs[:n], "."), any(grown)); err != nil {
					return err
				}
				t = grown
			}
			if last {
				t[i] = v
				return nil
			}
			if t[i] == nil {
				nm := map[string]any{}
				t[i] = nm
				cur = nm
				continue
			}
			cur = t[i]
		default:
			return fmt.Errorf("jsonstore: cannot create %s: %q is not a container", path, seg)
		}
	}
	return nil
}

// deletePath removes a dotted path. Removing an array element leaves null
// in its place, matching $unset on array members. Missing paths are no-ops.
func deletePath(doc map[string]any, path string) error {
	segs := strings.Split(path, ".")
	var cur any = doc
	for n, seg := range segs {
		if isPositional(seg) {
			return fmt.Errorf("jsonstore: positional %s in %s is not supported", seg, path)
		}
		last := n == len(segs)-1
		switch t := cur.(type) {
		case map[string]any:
			if last {
				delete(t, seg)
				return nil
			}
			next, ok := t[seg]
			if !ok {
				return nil
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil
			}
			if last {
				t[i] = nil
				return nil
			}
			cur = t[i]
		default:
			return nil
		}
	}
	return nil
}

func isPositional(seg string) bool {
	return seg == "$" || (strings.HasPrefix(seg, "$[") && strings.HasSuffix(seg, "]"))
}
