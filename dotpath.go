package godm

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// anyField is the untyped descriptor a resolution degrades to once the path
// leaves declared territory. It converts nothing and accepts everything.
var anyField = &Field{kind: KindAny}

// Resolve walks a dotted store path against the schema and returns the field
// descriptor the path lands on. Paths into dict and plain list contents
// degrade to an untyped descriptor; paths that contradict the declared shape
// return a PathError. Array segments accept element indexes and the update
// placeholders $ and $[...].
func (s *Schema) Resolve(path string) (*Field, error) {
	cur := &Field{kind: KindEmbedded, schema: s}
	for _, seg := range strings.Split(path, ".") {
		if cur.kind == KindAny {
			return anyField, nil
		}
		if cur.kind == KindDict {
			if isIdentifier(seg) {
				return anyField, nil
			}
			return nil, &PathError{Path: path, Segment: seg, Reason: "cannot follow dict contents with " + segWord(seg)}
		}
		if cur.kind == KindList {
			if isDigits(seg) || isArrayPlaceholder(seg) {
				return anyField, nil
			}
			return nil, &PathError{Path: path, Segment: seg, Reason: "list takes an index or placeholder"}
		}
		switch {
		case isIdentifier(seg):
			if cur.kind != KindEmbedded {
				return nil, &PathError{Path: path, Segment: seg, Reason: "cannot descend into " + cur.kind.String()}
			}
			f, ok := cur.schema.byKey[seg]
			if !ok {
				cur.schema.logger.Warn("path segment not declared in schema, did you misspell it?",
					zap.String("schema", cur.schema.name), zap.String("path", path), zap.String("segment", seg))
				return anyField, nil
			}
			cur = f
		case isDigits(seg) || isArrayPlaceholder(seg):
			if cur.kind != KindArray {
				return nil, &PathError{Path: path, Segment: seg, Reason: "index or placeholder after " + cur.kind.String()}
			}
			cur = cur.elem
		default:
			return nil, &PathError{Path: path, Segment: seg, Reason: "not a valid identifier"}
		}
	}
	return cur, nil
}

func segWord(seg string) string {
	if isDigits(seg) || isArrayPlaceholder(seg) {
		return "an index"
	}
	return "segment " + seg
}

// isIdentifier mirrors the identifier rule update paths use for map keys:
// a letter or underscore followed by letters, digits, or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isArrayPlaceholder reports the update placeholders $, $[] and $[name].
func isArrayPlaceholder(s string) bool {
	return s == "$" || (strings.HasPrefix(s, "$[") && strings.HasSuffix(s, "]"))
}
