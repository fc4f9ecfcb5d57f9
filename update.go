package godm

import "fmt"

// CleanUpdate rewrites an update document so the values it carries are in
// canonical form and the paths it names agree with the schema. The input is
// never mutated; rewritten operators get fresh maps. Updates that are not
// documents, such as aggregation pipelines, pass through untouched, and so
// do operators the schema has no opinion about. With bypass set, values are
// still converted but not validated.
//
// Per operator:
//
//	$set                 convert and validate each value through its path
//	$push, $addToSet     path must land on a list; typed arrays convert the
//	                     pushed value, or every $each member
//	$pop, $pull, $pullAll: path must land on a list
//	$inc, $mul           path must land on a numeric field
//	$currentDate         path must land on a datetime field
//	$min, $max, $rename, $unset: path must parse
func (s *Schema) CleanUpdate(update any, bypass bool) (any, error) {
	m, ok := update.(map[string]any)
	if !ok {
		return update, nil
	}
	out := make(map[string]any, len(m))
	for _, op := range sortedKeys(m) {
		raw := m[op]
		switch op {
		case "$set":
			nd, err := s.cleanSet(op, raw, bypass)
			if err != nil {
				return nil, err
			}
			out[op] = nd
		case "$push", "$addToSet":
			nd, err := s.cleanPush(op, raw, bypass)
			if err != nil {
				return nil, err
			}
			out[op] = nd
		case "$pop", "$pull", "$pullAll":
			if err := s.checkOperatorPaths(op, raw, Kind.IsList, "list"); err != nil {
				return nil, err
			}
			out[op] = raw
		case "$inc", "$mul":
			if err := s.checkOperatorPaths(op, raw, Kind.IsNumeric, "numeric"); err != nil {
				return nil, err
			}
			out[op] = raw
		case "$currentDate":
			isDateTime := func(k Kind) bool { return k == KindDateTime }
			if err := s.checkOperatorPaths(op, raw, isDateTime, "datetime"); err != nil {
				return nil, err
			}
			out[op] = raw
		case "$min", "$max", "$rename", "$unset":
			if err := s.checkOperatorPaths(op, raw, nil, ""); err != nil {
				return nil, err
			}
			out[op] = raw
		default:
			out[op] = raw
		}
	}
	return out, nil
}

func (s *Schema) cleanSet(op string, raw any, bypass bool) (map[string]any, error) {
	doc, err := operatorDoc(op, raw)
	if err != nil {
		return nil, err
	}
	nd := make(map[string]any, len(doc))
	for _, notation := range sortedKeys(doc) {
		f, err := s.Resolve(notation)
		if err != nil {
			return nil, err
		}
		nv, tag, err := f.convert(doc[notation])
		if err != nil {
			return nil, rebaseIssues(err, notation)
		}
		if !bypass {
			if err := f.validate(nv, tag); err != nil {
				return nil, rebaseIssues(err, notation)
			}
		}
		if IsMissing(nv) {
			nv = nil
		}
		nd[notation] = nv
	}
	return nd, nil
}

func (s *Schema) cleanPush(op string, raw any, bypass bool) (map[string]any, error) {
	doc, err := operatorDoc(op, raw)
	if err != nil {
		return nil, err
	}
	nd := make(map[string]any, len(doc))
	for _, notation := range sortedKeys(doc) {
		value := doc[notation]
		f, err := s.Resolve(notation)
		if err != nil {
			return nil, err
		}
		if !f.kind.IsList() {
			return nil, Issues{{Path: notation, Code: CodeInvalidOperator,
				Message: fmt.Sprintf("%s field does not take %s", f.kind, op)}}
		}
		if f.kind != KindArray {
			// A plain list carries no element shape to enforce.
			nd[notation] = value
			continue
		}
		if em, ok := value.(map[string]any); ok {
			if each, has := em["$each"]; has {
				items, ok := each.([]any)
				if !ok {
					return nil, Issues{{Path: notation, Code: CodeInvalidType,
						Message: fmt.Sprintf("$each takes an array, got %T", each)}}
				}
				converted := make([]any, len(items))
				for i, item := range items {
					nv, err := f.elem.cleanAt(item, bypass, fmt.Sprintf("%s.%d", notation, i))
					if err != nil {
						return nil, err
					}
					converted[i] = nv
				}
				ne := make(map[string]any, len(em))
				for k, v := range em {
					ne[k] = v
				}
				ne["$each"] = converted
				nd[notation] = ne
				continue
			}
		}
		nv, err := f.elem.cleanAt(value, bypass, notation)
		if err != nil {
			return nil, err
		}
		nd[notation] = nv
	}
	return nd, nil
}

// cleanAt converts and conditionally validates one value, rebasing issues
// onto the given dotted path.
func (f *Field) cleanAt(v any, bypass bool, path string) (any, error) {
	nv, tag, err := f.convert(v)
	if err != nil {
		return nil, rebaseIssues(err, path)
	}
	if !bypass {
		if err := f.validate(nv, tag); err != nil {
			return nil, rebaseIssues(err, path)
		}
	}
	if IsMissing(nv) {
		nv = nil
	}
	return nv, nil
}

func (s *Schema) checkOperatorPaths(op string, raw any, want func(Kind) bool, wantName string) error {
	doc, err := operatorDoc(op, raw)
	if err != nil {
		return err
	}
	for _, notation := range sortedKeys(doc) {
		f, err := s.Resolve(notation)
		if err != nil {
			return err
		}
		if want != nil && !want(f.kind) {
			return Issues{{Path: notation, Code: CodeInvalidOperator,
				Message: fmt.Sprintf("%s field does not take %s, want %s", f.kind, op, wantName)}}
		}
	}
	return nil
}

func operatorDoc(op string, raw any) (map[string]any, error) {
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, Issues{{Path: op, Code: CodeInvalidOperator,
			Message: fmt.Sprintf("%s takes a document, got %T", op, raw)}}
	}
	return doc, nil
}
