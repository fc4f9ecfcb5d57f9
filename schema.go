package godm

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Schema is the immutable, ordered description of one document shape. It is
// built once at registration time and shared by every document, collection,
// and update path that uses it; concurrent readers need no locking.
type Schema struct {
	name       string
	collection string
	fields     []*Field
	byName     map[string]*Field
	byKey      map[string]*Field
	indexes    []Index
	warnExtra  bool
	logger     *zap.Logger
}

type schemaConfig struct {
	aliases    map[string]string
	required   []string
	converters map[string][]ConvertFunc
	validators map[string][]ValidateFunc
	indexes    []Index
	warnExtra  *bool
	logger     *zap.Logger
	collection string
}

// SchemaOption adjusts schema-wide settings at build time.
type SchemaOption func(*schemaConfig)

// WithAliases maps declared field names to store-facing keys.
func WithAliases(aliases map[string]string) SchemaOption {
	return func(c *schemaConfig) {
		if c.aliases == nil {
			c.aliases = map[string]string{}
		}
		for name, key := range aliases {
			c.aliases[name] = key
		}
	}
}

// WithRequired marks the named fields as required.
func WithRequired(names ...string) SchemaOption {
	return func(c *schemaConfig) { c.required = append(c.required, names...) }
}

// WithConverters attaches extra converters to the named fields.
func WithConverters(converters map[string]ConvertFunc) SchemaOption {
	return func(c *schemaConfig) {
		if c.converters == nil {
			c.converters = map[string][]ConvertFunc{}
		}
		for name, fn := range converters {
			c.converters[name] = append(c.converters[name], fn)
		}
	}
}

// WithValidators attaches extra validators to the named fields.
func WithValidators(validators map[string]ValidateFunc) SchemaOption {
	return func(c *schemaConfig) {
		if c.validators == nil {
			c.validators = map[string][]ValidateFunc{}
		}
		for name, fn := range validators {
			c.validators[name] = append(c.validators[name], fn)
		}
	}
}

// WithIndexes declares the indexes the schema's collection should carry.
func WithIndexes(indexes ...Index) SchemaOption {
	return func(c *schemaConfig) { c.indexes = append(c.indexes, indexes...) }
}

// WithWarnExtra controls warnings for input keys the schema does not declare.
// The default is on.
func WithWarnExtra(on bool) SchemaOption {
	return func(c *schemaConfig) { c.warnExtra = &on }
}

// WithLogger sets the schema's logger, overriding the package default.
func WithLogger(l *zap.Logger) SchemaOption {
	return func(c *schemaConfig) { c.logger = l }
}

// WithCollection overrides the derived collection name.
func WithCollection(name string) SchemaOption {
	return func(c *schemaConfig) { c.collection = name }
}

// NewSchema builds a schema from an ordered field list. Field order is
// preserved for serialization and iteration. Definition problems return a
// DefinitionError.
func NewSchema(name string, defs []FieldDef, opts ...SchemaOption) (*Schema, error) {
	if name == "" {
		return nil, definitionErrf("", "", "schema name is empty")
	}
	var cfg schemaConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	byDef := make(map[string]int, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, definitionErrf(name, "", "field %d has no name", i)
		}
		if _, dup := byDef[def.Name]; dup {
			return nil, definitionErrf(name, def.Name, "duplicate field name")
		}
		byDef[def.Name] = i
	}
	applyNamed := func(kind string, names []string, apply func(*FieldDef)) error {
		for _, n := range names {
			i, ok := byDef[n]
			if !ok {
				return definitionErrf(name, n, "%s references undeclared field", kind)
			}
			apply(&defs[i])
		}
		return nil
	}
	for alias, key := range cfg.aliases {
		if err := applyNamed("alias", []string{alias}, func(d *FieldDef) { d.Key = key }); err != nil {
			return nil, err
		}
	}
	if err := applyNamed("required", cfg.required, func(d *FieldDef) { d.Required = true }); err != nil {
		return nil, err
	}
	for fname, fns := range cfg.converters {
		fns := fns
		if err := applyNamed("converter", []string{fname}, func(d *FieldDef) {
			d.Converters = append(d.Converters, fns...)
		}); err != nil {
			return nil, err
		}
	}
	for fname, fns := range cfg.validators {
		fns := fns
		if err := applyNamed("validator", []string{fname}, func(d *FieldDef) {
			d.Validators = append(d.Validators, fns...)
		}); err != nil {
			return nil, err
		}
	}

	s := &Schema{
		name:       name,
		collection: cfg.collection,
		fields:     make([]*Field, 0, len(defs)),
		byName:     make(map[string]*Field, len(defs)),
		byKey:      make(map[string]*Field, len(defs)),
		warnExtra:  true,
		logger:     cfg.logger,
	}
	if cfg.warnExtra != nil {
		s.warnExtra = *cfg.warnExtra
	}
	if s.logger == nil {
		s.logger = Logger()
	}
	for _, def := range defs {
		f, err := newField(def, name)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byKey[f.key]; dup {
			return nil, definitionErrf(name, f.name, "duplicate store key %q", f.key)
		}
		s.fields = append(s.fields, f)
		s.byName[f.name] = f
		s.byKey[f.key] = f
	}
	for _, idx := range cfg.indexes {
		norm, err := normalizeIndex(idx)
		if err != nil {
			return nil, definitionErrf(name, "", "bad index: %v", err)
		}
		s.indexes = append(s.indexes, norm)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for package-level declarations.
func MustSchema(name string, defs []FieldDef, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, defs, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// CollectionName returns the explicit collection name, or the lowercased
// plural of the schema name.
func (s *Schema) CollectionName() string {
	if s.collection != "" {
		return s.collection
	}
	return pluralize(strings.ToLower(s.name))
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldByName looks a field up by declared name.
func (s *Schema) FieldByName(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldByKey looks a field up by store-facing key.
func (s *Schema) FieldByKey(key string) (*Field, bool) {
	f, ok := s.byKey[key]
	return f, ok
}

// Indexes returns the declared indexes in normalized form.
func (s *Schema) Indexes() []Index {
	out := make([]Index, len(s.indexes))
	copy(out, s.indexes)
	return out
}

// Clean converts then validates a raw map, returning the canonical data.
// Declared fields are coerced, defaults materialized, and undeclared keys
// passed through unchanged. Aliased fields are read under their store key
// or, failing that, their declared name; the output always uses store keys.
func (s *Schema) Clean(raw map[string]any) (map[string]any, error) {
	out, tag, err := s.convertMap(raw)
	if err != nil {
		return nil, err
	}
	if err := s.validateMap(out, tag); err != nil {
		return nil, err
	}
	return out, nil
}

// Convert runs the conversion half only, skipping validation. Inserting
// store-bound data that is known good uses this as the bypass path.
func (s *Schema) Convert(raw map[string]any) (map[string]any, error) {
	out, _, err := s.convertMap(raw)
	return out, err
}

// Validate checks already-converted data against the schema.
func (s *Schema) Validate(data map[string]any) error {
	return s.validateMap(data, nil)
}

func (s *Schema) convertMap(m map[string]any) (map[string]any, *cleanTag, error) {
	out := make(map[string]any, len(m))
	var tag *cleanTag
	var iss Issues
	for _, f := range s.fields {
		// Aliased fields accept either key on input: the store key (data
		// coming back from the store) or the declared name (caller input).
		raw, present := m[f.key]
		if !present {
			raw, present = m[f.name]
		}
		v, ftag, err := f.convert(orMissing(raw, present))
		if err != nil {
			if sub, ok := AsIssues(rebaseIssues(err, f.name)); ok {
				iss = AppendIssues(iss, sub...)
			} else {
				return nil, nil, err
			}
			continue
		}
		if IsMissing(v) {
			continue
		}
		out[f.key] = v
		if ftag != nil {
			if tag == nil {
				tag = &cleanTag{fields: map[string]*cleanTag{}}
			}
			tag.fields[f.name] = ftag
		}
	}
	for k, v := range m {
		if _, declared := s.byKey[k]; declared {
			continue
		}
		if _, declared := s.byName[k]; declared {
			continue
		}
		out[k] = v
	}
	if len(iss) > 0 {
		return nil, nil, iss
	}
	return out, tag, nil
}

func (s *Schema) validateMap(m map[string]any, tag *cleanTag) error {
	var iss Issues
	for _, f := range s.fields {
		v, present := m[f.key]
		if err := f.validate(orMissing(v, present), tag.field(f.name)); err != nil {
			if sub, ok := AsIssues(rebaseIssues(err, f.name)); ok {
				iss = AppendIssues(iss, sub...)
			} else {
				return err
			}
		}
	}
	s.warnExtras(m)
	if len(iss) > 0 {
		return iss
	}
	return nil
}

func (s *Schema) warnExtras(m map[string]any) {
	if !s.warnExtra {
		return
	}
	var extras []string
	for k := range m {
		if k == "_id" {
			continue
		}
		if _, declared := s.byKey[k]; !declared {
			extras = append(extras, k)
		}
	}
	if len(extras) == 0 {
		return
	}
	sort.Strings(extras)
	for _, k := range extras {
		s.logger.Warn("field not declared in schema",
			zap.String("schema", s.name), zap.String("key", k))
	}
}
