// Package dsl is the fluent way to declare schemas. It assembles the field
// definitions the core builder consumes, keeping declaration order:
//
//	user, err := dsl.Schema("User").
//		Field("name", dsl.String().Required().MaxLen(50)).
//		Field("age", dsl.Int().Min(0)).
//		Field("tags", dsl.Array(dsl.String())).
//		Index(godm.IndexOn("name").Unique()).
//		Build()
//
// Struct inference lives in Infer for callers that prefer tagged structs.
package dsl

import (
	"go.uber.org/zap"

	"github.com/godm-io/godm"
)

// FieldSpec is one field under construction. The helpers String, Int,
// Array, Embedded and friends create it; the chain methods refine it.
type FieldSpec struct {
	def godm.FieldDef
}

// Any declares an untyped field: no coercion, everything validates.
func Any() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindAny}} }

// String declares a string field.
func String() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindString}} }

// Int declares an integer field.
func Int() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindInt}} }

// Float declares a float field.
func Float() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindFloat}} }

// Bool declares a boolean field.
func Bool() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindBool}} }

// Bytes declares a binary field; strings coerce via base64.
func Bytes() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindBytes}} }

// DateTime declares a timestamp field; strings coerce via RFC3339 and
// numbers as unix seconds.
func DateTime() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindDateTime}} }

// ID declares a document id field; strings coerce via UUID parsing.
func ID() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindID}} }

// Dict declares a free-form map field. Paths into it resolve untyped.
func Dict() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindDict}} }

// List declares a free-form list field with no element shape.
func List() *FieldSpec { return &FieldSpec{def: godm.FieldDef{Kind: godm.KindList}} }

// Embedded declares a nested document field with its own schema.
func Embedded(s *godm.Schema) *FieldSpec {
	return &FieldSpec{def: godm.FieldDef{Kind: godm.KindEmbedded, Schema: s}}
}

// Array declares a typed array whose elements follow elem.
func Array(elem *FieldSpec) *FieldSpec {
	def := elem.def
	return &FieldSpec{def: godm.FieldDef{Kind: godm.KindArray, Elem: &def}}
}

// Required marks the field required.
func (f *FieldSpec) Required() *FieldSpec {
	f.def.Required = true
	return f
}

// Alias sets the store-facing key.
func (f *FieldSpec) Alias(key string) *FieldSpec {
	f.def.Key = key
	return f
}

// Default sets a value materialized when the field is absent.
func (f *FieldSpec) Default(v any) *FieldSpec {
	f.def.Default = v
	f.def.HasDefault = true
	return f
}

// DefaultFunc sets a generator called for each absent value.
func (f *FieldSpec) DefaultFunc(fn func() any) *FieldSpec {
	f.def.DefaultFunc = fn
	return f
}

// Convert appends a converter run after kind coercion.
func (f *FieldSpec) Convert(fn godm.ConvertFunc) *FieldSpec {
	f.def.Converters = append(f.def.Converters, fn)
	return f
}

// Validate appends a validator.
func (f *FieldSpec) Validate(fn godm.ValidateFunc) *FieldSpec {
	f.def.Validators = append(f.def.Validators, fn)
	return f
}

// MinLen bounds a string's length from below.
func (f *FieldSpec) MinLen(n int) *FieldSpec {
	f.def.MinLen = &n
	return f
}

// MaxLen bounds a string's length from above.
func (f *FieldSpec) MaxLen(n int) *FieldSpec {
	f.def.MaxLen = &n
	return f
}

// Min bounds a numeric field from below.
func (f *FieldSpec) Min(v float64) *FieldSpec {
	f.def.Min = &v
	return f
}

// Max bounds a numeric field from above.
func (f *FieldSpec) Max(v float64) *FieldSpec {
	f.def.Max = &v
	return f
}

// SchemaBuilder accumulates a schema declaration.
type SchemaBuilder struct {
	name string
	defs []godm.FieldDef
	opts []godm.SchemaOption
}

// Schema starts a schema declaration.
func Schema(name string) *SchemaBuilder {
	return &SchemaBuilder{name: name}
}

// Field appends a field. Declaration order is kept for serialization.
func (b *SchemaBuilder) Field(name string, spec *FieldSpec) *SchemaBuilder {
	def := spec.def
	def.Name = name
	b.defs = append(b.defs, def)
	return b
}

// Index declares collection indexes.
func (b *SchemaBuilder) Index(indexes ...godm.Index) *SchemaBuilder {
	b.opts = append(b.opts, godm.WithIndexes(indexes...))
	return b
}

// WarnExtra toggles warnings for undeclared input keys.
func (b *SchemaBuilder) WarnExtra(on bool) *SchemaBuilder {
	b.opts = append(b.opts, godm.WithWarnExtra(on))
	return b
}

// Collection overrides the derived collection name.
func (b *SchemaBuilder) Collection(name string) *SchemaBuilder {
	b.opts = append(b.opts, godm.WithCollection(name))
	return b
}

// Logger sets the schema logger.
func (b *SchemaBuilder) Logger(l *zap.Logger) *SchemaBuilder {
	b.opts = append(b.opts, godm.WithLogger(l))
	return b
}

// Build constructs the immutable schema.
func (b *SchemaBuilder) Build() (*godm.Schema, error) {
	return godm.NewSchema(b.name, b.defs, b.opts...)
}

// MustBuild is Build that panics on definition errors, for package-level
// schema variables.
func (b *SchemaBuilder) MustBuild() *godm.Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
