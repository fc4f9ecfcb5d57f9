package godm

import (
	"fmt"
	"strconv"
)

// ConvertFunc transforms a raw value during conversion. Converters run after
// kind coercion, in the order they were attached.
type ConvertFunc func(v any) (any, error)

// ValidateFunc checks a converted value during validation. A non-nil error
// rejects the value; returning Issues keeps the issue paths.
type ValidateFunc func(v any) error

// FieldDef is the declarative specification the schema builder consumes: one
// (name, shape) pair plus the per-field options. The dsl package assembles
// these fluently; manifests and struct inference produce them directly.
type FieldDef struct {
	Name string
	Kind Kind

	// Key is the store-facing key; empty means Name.
	Key      string
	Required bool

	// Default and DefaultFunc materialize a value for absent input. Default
	// values are deep-copied on materialization.
	Default     any
	DefaultFunc func() any
	HasDefault  bool

	Converters []ConvertFunc
	Validators []ValidateFunc

	// Built-in constraints: MinLen/MaxLen apply to string kinds, Min/Max to
	// numeric kinds.
	MinLen, MaxLen *int
	Min, Max       *float64

	// Elem describes the element of a KindArray field.
	Elem *FieldDef
	// Schema is the nested schema of a KindEmbedded field.
	Schema *Schema
}

// Field is one built schema slot: the descriptor a document routes every
// read, write, and dot-path resolution through. Fields are created by
// NewSchema and immutable after.
type Field struct {
	name     string
	key      string
	kind     Kind
	required bool

	defaultValue any
	defaultFunc  func() any
	hasDefault   bool

	converters []ConvertFunc
	validators []ValidateFunc

	minLen, maxLen *int
	min, max       *float64

	elem   *Field  // KindArray
	schema *Schema // KindEmbedded
}

func newField(def FieldDef, schemaName string) (*Field, error) {
	f := &Field{
		name:         def.Name,
		key:          def.Key,
		kind:         def.Kind,
		required:     def.Required,
		defaultValue: def.Default,
		defaultFunc:  def.DefaultFunc,
		hasDefault:   def.HasDefault || def.DefaultFunc != nil,
		converters:   def.Converters,
		validators:   def.Validators,
		minLen:       def.MinLen,
		maxLen:       def.MaxLen,
		min:          def.Min,
		max:          def.Max,
	}
	if f.key == "" {
		f.key = f.name
	}
	switch def.Kind {
	case KindEmbedded:
		if def.Schema == nil {
			return nil, definitionErrf(schemaName, def.Name, "embedded field needs a schema")
		}
		f.schema = def.Schema
	case KindArray:
		if def.Elem == nil {
			return nil, definitionErrf(schemaName, def.Name, "array field needs an element descriptor")
		}
		elem, err := newField(*def.Elem, schemaName)
		if err != nil {
			return nil, err
		}
		f.elem = elem
	default:
		if _, ok := kindNames[def.Kind]; !ok {
			return nil, definitionErrf(schemaName, def.Name, "unknown field kind %d", int(def.Kind))
		}
	}
	return f, nil
}

// Name returns the declared field name.
func (f *Field) Name() string { return f.name }

// Key returns the store-facing key, which differs from Name when aliased.
func (f *Field) Key() string { return f.key }

// Kind returns the field's kind.
func (f *Field) Kind() Kind { return f.kind }

// Required reports whether validation rejects an absent value.
func (f *Field) Required() bool { return f.required }

// Elem returns the element descriptor of an array field, or nil.
func (f *Field) Elem() *Field { return f.elem }

// Schema returns the nested schema of an embedded field, or nil.
func (f *Field) Schema() *Schema { return f.schema }

// HasDefault reports whether an absent value is filled in during conversion.
func (f *Field) HasDefault() bool { return f.hasDefault }

// MinLen returns the minimum length constraint, or nil when unconstrained.
func (f *Field) MinLen() *int { return f.minLen }

// MaxLen returns the maximum length constraint, or nil when unconstrained.
func (f *Field) MaxLen() *int { return f.maxLen }

// Min returns the lower numeric bound, or nil when unconstrained.
func (f *Field) Min() *float64 { return f.min }

// Max returns the upper numeric bound, or nil when unconstrained.
func (f *Field) Max() *float64 { return f.max }

// Innermost unwraps nested array descriptors to the ultimate element. For
// non-array fields it returns the field itself.
func (f *Field) Innermost() *Field {
	cur := f
	for cur.kind == KindArray {
		cur = cur.elem
	}
	return cur
}

// cleanTag records which parts of a converted value were taken from already
// materialized documents and therefore skip re-validation. It travels
// alongside the clean data, never inside it.
type cleanTag struct {
	self   bool
	fields map[string]*cleanTag // embedded: by declared field name
	elems  map[int]*cleanTag    // array: by element index
}

func (t *cleanTag) field(name string) *cleanTag {
	if t == nil {
		return nil
	}
	return t.fields[name]
}

func (t *cleanTag) elem(i int) *cleanTag {
	if t == nil {
		return nil
	}
	return t.elems[i]
}

func (t *cleanTag) pre() bool { return t != nil && t.self }

// convert coerces a raw value into the field's canonical form. Missing
// materializes the default when one exists and passes through otherwise; nil
// passes through for every kind. Issue paths are field-local; callers rebase
// them onto the full dotted path.
func (f *Field) convert(v any) (any, *cleanTag, error) {
	if IsMissing(v) {
		if !f.hasDefault {
			return Missing, nil, nil
		}
		if f.defaultFunc != nil {
			v = f.defaultFunc()
		} else {
			v = deepCopyValue(f.defaultValue)
		}
	}

	var (
		out any
		tag *cleanTag
		err error
	)
	switch f.kind {
	case KindEmbedded:
		out, tag, err = f.convertEmbedded(v)
	case KindArray:
		out, tag, err = f.convertArray(v)
	default:
		out, err = f.kind.coerce(v)
		if err != nil {
			return nil, nil, Issues{{Code: CodeInvalidType, Message: err.Error(), Hint: "expected " + f.kind.String()}}
		}
	}
	if err != nil {
		return nil, nil, err
	}

	for _, fn := range f.converters {
		out, err = fn(out)
		if err != nil {
			return nil, nil, rebaseIssues(err, "")
		}
	}
	return out, tag, nil
}

func (f *Field) convertEmbedded(v any) (any, *cleanTag, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil, nil
	case *Document:
		if t.schema != f.schema {
			return nil, nil, Issues{{Code: CodeInvalidType,
				Message: fmt.Sprintf("document of schema %q where %q expected", t.schema.name, f.schema.name)}}
		}
		// Conversion and validation already ran when the instance was built.
		return t.data, &cleanTag{self: true}, nil
	case map[string]any:
		return f.schema.convertMap(t)
	default:
		return nil, nil, Issues{{Code: CodeInvalidType, Message: fmt.Sprintf("cannot convert %T to embedded document", v)}}
	}
}

func (f *Field) convertArray(v any) (any, *cleanTag, error) {
	if v == nil {
		return nil, nil, nil
	}
	src, ok := v.([]any)
	if !ok {
		return nil, nil, Issues{{Code: CodeInvalidType, Message: fmt.Sprintf("cannot convert %T to array", v)}}
	}
	out := make([]any, len(src))
	var tag *cleanTag
	var iss Issues
	for i, item := range src {
		ev, etag, err := f.elem.convert(item)
		if err != nil {
			if sub, ok := AsIssues(rebaseIssues(err, strconv.Itoa(i))); ok {
				iss = AppendIssues(iss, sub...)
			}
			continue
		}
		if IsMissing(ev) {
			ev = nil
		}
		out[i] = ev
		if etag != nil {
			if tag == nil {
				tag = &cleanTag{elems: map[int]*cleanTag{}}
			}
			tag.elems[i] = etag
		}
	}
	if len(iss) > 0 {
		return nil, nil, iss
	}
	return out, tag, nil
}

// validate checks a converted (or store-loaded) value. An absent value is an
// error only for required fields; nil satisfies every kind. The tag marks
// subtrees that skip re-validation.
func (f *Field) validate(v any, tag *cleanTag) error {
	if IsMissing(v) {
		if f.required {
			return Issues{{Code: CodeRequired, Message: "required field missing"}}
		}
		return nil
	}
	if tag.pre() {
		return nil
	}

	switch f.kind {
	case KindEmbedded:
		if v == nil {
			break
		}
		m, ok := v.(map[string]any)
		if !ok {
			return Issues{{Code: CodeInvalidType, Message: fmt.Sprintf("expected embedded document, got %T", v)}}
		}
		return f.schema.validateMap(m, tag)
	case KindArray:
		if v == nil {
			break
		}
		src, ok := v.([]any)
		if !ok {
			return Issues{{Code: CodeInvalidType, Message: fmt.Sprintf("expected array, got %T", v)}}
		}
		var iss Issues
		for i, item := range src {
			if err := f.elem.validate(item, tag.elem(i)); err != nil {
				if sub, ok := AsIssues(rebaseIssues(err, strconv.Itoa(i))); ok {
					iss = AppendIssues(iss, sub...)
				}
			}
		}
		if len(iss) > 0 {
			return iss
		}
	default:
		if !f.kind.matches(v) {
			return Issues{{Code: CodeInvalidType,
				Message: fmt.Sprintf("expected %s, got %T", f.kind, v), Hint: "expected " + f.kind.String()}}
		}
		if err := f.checkConstraints(v); err != nil {
			return err
		}
	}

	for _, fn := range f.validators {
		if err := fn(v); err != nil {
			iss, ok := AsIssues(err)
			if !ok {
				iss = Issues{{Code: CodeValidatorRejected, Message: err.Error(), Cause: err}}
			}
			return iss
		}
	}
	return nil
}

func (f *Field) checkConstraints(v any) error {
	if s, ok := v.(string); ok {
		if f.minLen != nil && len(s) < *f.minLen {
			return Issues{{Code: CodeTooShort, Message: fmt.Sprintf("length %d below minimum %d", len(s), *f.minLen)}}
		}
		if f.maxLen != nil && len(s) > *f.maxLen {
			return Issues{{Code: CodeTooLong, Message: fmt.Sprintf("length %d above maximum %d", len(s), *f.maxLen)}}
		}
	}
	if n, ok := numericValue(v); ok {
		if f.min != nil && n < *f.min {
			return Issues{{Code: CodeTooSmall, Message: fmt.Sprintf("%v below minimum %v", n, *f.min)}}
		}
		if f.max != nil && n > *f.max {
			return Issues{{Code: CodeTooBig, Message: fmt.Sprintf("%v above maximum %v", n, *f.max)}}
		}
	}
	return nil
}

// clean runs convert then validate in one step; the field-local issue paths
// are left for the caller to rebase.
func (f *Field) clean(v any, bypass bool) (any, error) {
	out, tag, err := f.convert(v)
	if err != nil {
		return nil, err
	}
	if !bypass {
		if err := f.validate(out, tag); err != nil {
			return nil, err
		}
	}
	return out, nil
}
