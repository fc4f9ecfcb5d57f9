// Package manifest loads schema declarations from YAML, the shape the godm
// CLI works with. A manifest declares schemas in order; later schemas may
// embed earlier ones by name.
//
//	schemas:
//	  - name: User
//	    collection: users
//	    fields:
//	      - {name: name, kind: string, required: true, max_len: 50}
//	      - {name: age, kind: int, min: 0}
//	      - name: home
//	        kind: embedded
//	        schema: Address
//	      - name: tags
//	        kind: array
//	        elem: {kind: string}
//	    indexes:
//	      - key: [name]
//	        unique: true
package manifest

import (
	"fmt"
	"os"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/codec"
)

// File is the top-level YAML document.
type File struct {
	Schemas []SchemaSpec `yaml:"schemas"`
}

// SchemaSpec declares one schema.
type SchemaSpec struct {
	Name       string      `yaml:"name"`
	Collection string      `yaml:"collection,omitempty"`
	WarnExtra  *bool       `yaml:"warn_extra,omitempty"`
	Fields     []FieldSpec `yaml:"fields"`
	Indexes    []IndexSpec `yaml:"indexes,omitempty"`
}

// FieldSpec declares one field. Embedded fields reference an earlier schema
// by name or carry an inline field list; array fields describe their
// element in elem.
type FieldSpec struct {
	Name     string      `yaml:"name"`
	Kind     string      `yaml:"kind"`
	Alias    string      `yaml:"alias,omitempty"`
	Required bool        `yaml:"required,omitempty"`
	Default  any         `yaml:"default,omitempty"`
	MinLen   *int        `yaml:"min_len,omitempty"`
	MaxLen   *int        `yaml:"max_len,omitempty"`
	Min      *float64    `yaml:"min,omitempty"`
	Max      *float64    `yaml:"max,omitempty"`
	Elem     *FieldSpec  `yaml:"elem,omitempty"`
	Schema   string      `yaml:"schema,omitempty"`
	Fields   []FieldSpec `yaml:"fields,omitempty"`
}

// IndexSpec declares one index: key paths with an optional leading '-' for
// descending, and creation options inline.
type IndexSpec struct {
	Key     []string       `yaml:"key"`
	Options map[string]any `yaml:",inline"`
}

// Manifest holds the built schemas in declaration order.
type Manifest struct {
	schemas []*godm.Schema
	byName  map[string]*godm.Schema
}

// Load reads and builds a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return m, nil
}

// Parse builds a manifest from YAML bytes.
func Parse(raw []byte) (*Manifest, error) {
	var file File
	if err := codec.YAML.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if len(file.Schemas) == 0 {
		return nil, fmt.Errorf("no schemas declared")
	}

	m := &Manifest{byName: map[string]*godm.Schema{}}
	for _, spec := range file.Schemas {
		if _, dup := m.byName[spec.Name]; dup {
			return nil, fmt.Errorf("schema %q declared twice", spec.Name)
		}
		s, err := m.buildSchema(spec)
		if err != nil {
			return nil, err
		}
		m.schemas = append(m.schemas, s)
		m.byName[spec.Name] = s
	}
	return m, nil
}

// Schemas returns the built schemas in declaration order.
func (m *Manifest) Schemas() []*godm.Schema {
	out := make([]*godm.Schema, len(m.schemas))
	copy(out, m.schemas)
	return out
}

// Schema looks a built schema up by name.
func (m *Manifest) Schema(name string) (*godm.Schema, bool) {
	s, ok := m.byName[name]
	return s, ok
}

func (m *Manifest) buildSchema(spec SchemaSpec) (*godm.Schema, error) {
	defs := make([]godm.FieldDef, 0, len(spec.Fields))
	for _, fs := range spec.Fields {
		def, err := m.buildField(spec.Name, fs)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	var opts []godm.SchemaOption
	if spec.Collection != "" {
		opts = append(opts, godm.WithCollection(spec.Collection))
	}
	if spec.WarnExtra != nil {
		opts = append(opts, godm.WithWarnExtra(*spec.WarnExtra))
	}
	if len(spec.Indexes) > 0 {
		indexes := make([]godm.Index, 0, len(spec.Indexes))
		for _, is := range spec.Indexes {
			ix := godm.IndexOn(is.Key...)
			for opt, v := range is.Options {
				ix = ix.With(opt, v)
			}
			indexes = append(indexes, ix)
		}
		opts = append(opts, godm.WithIndexes(indexes...))
	}
	return godm.NewSchema(spec.Name, defs, opts...)
}

func (m *Manifest) buildField(schemaName string, fs FieldSpec) (godm.FieldDef, error) {
	kind, ok := kindNames[fs.Kind]
	if !ok {
		return godm.FieldDef{}, fmt.Errorf("schema %q field %q: unknown kind %q", schemaName, fs.Name, fs.Kind)
	}
	def := godm.FieldDef{
		Name:     fs.Name,
		Kind:     kind,
		Key:      fs.Alias,
		Required: fs.Required,
		MinLen:   fs.MinLen,
		MaxLen:   fs.MaxLen,
		Min:      fs.Min,
		Max:      fs.Max,
	}
	if fs.Default != nil {
		def.Default = fs.Default
		def.HasDefault = true
	}
	switch kind {
	case godm.KindEmbedded:
		nested, err := m.embeddedSchema(schemaName, fs)
		if err != nil {
			return godm.FieldDef{}, err
		}
		def.Schema = nested
	case godm.KindArray:
		if fs.Elem == nil {
			return godm.FieldDef{}, fmt.Errorf("schema %q field %q: array needs elem", schemaName, fs.Name)
		}
		elem, err := m.buildField(schemaName, *fs.Elem)
		if err != nil {
			return godm.FieldDef{}, err
		}
		def.Elem = &elem
	}
	return def, nil
}

func (m *Manifest) embeddedSchema(schemaName string, fs FieldSpec) (*godm.Schema, error) {
	switch {
	case fs.Schema != "" && len(fs.Fields) > 0:
		return nil, fmt.Errorf("schema %q field %q: schema reference and inline fields are exclusive", schemaName, fs.Name)
	case fs.Schema != "":
		nested, ok := m.byName[fs.Schema]
		if !ok {
			return nil, fmt.Errorf("schema %q field %q: unknown schema %q, declare it first", schemaName, fs.Name, fs.Schema)
		}
		return nested, nil
	case len(fs.Fields) > 0:
		defs := make([]godm.FieldDef, 0, len(fs.Fields))
		for _, nested := range fs.Fields {
			def, err := m.buildField(schemaName, nested)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
		return godm.NewSchema(schemaName+"."+fs.Name, defs)
	default:
		return nil, fmt.Errorf("schema %q field %q: embedded needs schema or fields", schemaName, fs.Name)
	}
}

var kindNames = map[string]godm.Kind{
	"any":      godm.KindAny,
	"string":   godm.KindString,
	"int":      godm.KindInt,
	"float":    godm.KindFloat,
	"bool":     godm.KindBool,
	"bytes":    godm.KindBytes,
	"datetime": godm.KindDateTime,
	"id":       godm.KindID,
	"dict":     godm.KindDict,
	"list":     godm.KindList,
	"embedded": godm.KindEmbedded,
	"array":    godm.KindArray,
}
