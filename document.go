package godm

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/godm-io/godm/codec"
)

// State is a document's lifecycle position. It decides what Save and Delete
// are allowed to do.
type State int

const (
	// StateNew marks an instance built locally that the store has never seen.
	StateNew State = iota
	// StateStored marks an instance that corresponds to a stored document.
	StateStored
	// StateDeleted marks an instance whose stored document was removed.
	StateDeleted
)

var stateNames = map[State]string{
	StateNew:     "new",
	StateStored:  "stored",
	StateDeleted: "deleted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Document is one typed instance over a clean data map. Reads and writes go
// through the schema's fields; writes are tracked so Save can emit a minimal
// update. A Document is not safe for concurrent mutation.
type Document struct {
	schema   *Schema
	data     map[string]any
	state    State
	trk      tracker
	children map[string]*Document
}

// New builds a document from raw input via the schema's convert and validate
// pipeline. The result starts in StateNew.
func New(s *Schema, raw map[string]any) (*Document, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	data, err := s.Clean(raw)
	if err != nil {
		return nil, err
	}
	return &Document{schema: s, data: data, state: StateNew}, nil
}

// Load wraps data that came from the store. No conversion or validation
// runs; the result starts in StateStored.
func Load(s *Schema, data map[string]any) *Document {
	if data == nil {
		data = map[string]any{}
	}
	return &Document{schema: s, data: data, state: StateStored}
}

func newChild(s *Schema, data map[string]any, state State) *Document {
	return &Document{schema: s, data: data, state: state}
}

// Schema returns the document's schema.
func (d *Document) Schema() *Schema { return d.schema }

// State returns the document's lifecycle state.
func (d *Document) State() State { return d.state }

func (d *Document) setState(s State) { d.state = s }

// PK returns the primary key and whether one is set.
func (d *Document) PK() (any, bool) {
	v, ok := d.data["_id"]
	return v, ok
}

func (d *Document) setPK(id any) { d.data["_id"] = id }

// Get returns the stored value for a declared name, or the raw value for an
// undeclared key. The second result reports presence.
func (d *Document) Get(name string) (any, bool) {
	key := name
	if f, ok := d.schema.byName[name]; ok {
		key = f.key
	}
	v, ok := d.data[key]
	return v, ok
}

// Set converts and validates v through the named field, stores it, and marks
// the path modified. Setting an undeclared key stores the value raw, with
// the same warning the clean pipeline gives.
func (d *Document) Set(name string, v any) error {
	f, declared := d.schema.byName[name]
	if !declared {
		if d.schema.warnExtra && name != "_id" {
			d.schema.logger.Warn("field not declared in schema",
				zap.String("schema", d.schema.name), zap.String("key", name))
		}
		d.store(name, v)
		return nil
	}
	out, err := f.clean(v, false)
	if err != nil {
		return rebaseIssues(err, f.name)
	}
	if IsMissing(out) {
		return d.Unset(name)
	}
	d.store(f.key, out)
	return nil
}

func (d *Document) store(key string, v any) {
	d.data[key] = v
	d.trk.markSet(key)
	d.dropChildren(key)
}

// Unset removes the value at a declared name or raw key and marks the path
// deleted.
func (d *Document) Unset(name string) error {
	key := name
	if f, ok := d.schema.byName[name]; ok {
		key = f.key
	}
	delete(d.data, key)
	d.trk.markUnset(key)
	d.dropChildren(key)
	return nil
}

func (d *Document) dropChildren(key string) {
	if d.children == nil {
		return
	}
	prefix := key + "."
	for k := range d.children {
		if k == key || strings.HasPrefix(k, prefix) {
			delete(d.children, k)
		}
	}
}

// Doc returns the nested document for an embedded field. The wrapper shares
// the parent's underlying map, so writes through it stay visible to the
// parent and feed the combined change set.
func (d *Document) Doc(name string) (*Document, error) {
	f, ok := d.schema.byName[name]
	if !ok {
		return nil, definitionErrf(d.schema.name, name, "field not declared")
	}
	if f.kind != KindEmbedded {
		return nil, definitionErrf(d.schema.name, name, "field is %s, not embedded", f.kind)
	}
	if c, ok := d.child(f.key); ok {
		return c, nil
	}
	m, ok := d.data[f.key].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("godm: %s.%s holds no document", d.schema.name, name)
	}
	c := newChild(f.schema, m, d.state)
	d.putChild(f.key, c)
	return c, nil
}

// DocAt returns the nested document wrapping one element of an array field
// whose elements are embedded documents.
func (d *Document) DocAt(name string, i int) (*Document, error) {
	f, ok := d.schema.byName[name]
	if !ok {
		return nil, definitionErrf(d.schema.name, name, "field not declared")
	}
	if f.kind != KindArray || f.elem.kind != KindEmbedded {
		return nil, definitionErrf(d.schema.name, name, "field is not an array of embedded documents")
	}
	cacheKey := fmt.Sprintf("%s.%d", f.key, i)
	if c, ok := d.child(cacheKey); ok {
		return c, nil
	}
	list, ok := d.data[f.key].([]any)
	if !ok {
		return nil, fmt.Errorf("godm: %s.%s holds no array", d.schema.name, name)
	}
	if i < 0 || i >= len(list) {
		return nil, fmt.Errorf("godm: %s.%s index %d out of range", d.schema.name, name, i)
	}
	m, ok := list[i].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("godm: %s.%s[%d] holds no document", d.schema.name, name, i)
	}
	c := newChild(f.elem.schema, m, d.state)
	d.putChild(cacheKey, c)
	return c, nil
}

func (d *Document) child(key string) (*Document, bool) {
	c, ok := d.children[key]
	return c, ok
}

func (d *Document) putChild(key string, c *Document) {
	if d.children == nil {
		d.children = map[string]*Document{}
	}
	d.children[key] = c
}

// Map returns a deep copy of the document's data.
func (d *Document) Map() map[string]any {
	return deepCopyValue(d.data).(map[string]any)
}

// Bind decodes the document's data into out, typically a struct pointer with
// json tags matching the store keys.
func (d *Document) Bind(out any) error {
	raw, err := codec.JSON.Marshal(d.data)
	if err != nil {
		return err
	}
	return codec.JSON.Unmarshal(raw, out)
}

// MarshalJSON writes _id first when present, then the declared fields in
// schema order, then undeclared keys sorted.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(k string, v any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := codec.JSON.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := codec.JSON.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(vb)
		return nil
	}
	if id, ok := d.data["_id"]; ok {
		if err := write("_id", id); err != nil {
			return nil, err
		}
	}
	for _, f := range d.schema.fields {
		v, ok := d.data[f.key]
		if !ok {
			continue
		}
		if err := write(f.key, v); err != nil {
			return nil, err
		}
	}
	var extras []string
	for k := range d.data {
		if k == "_id" {
			continue
		}
		if _, declared := d.schema.byKey[k]; !declared {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		if err := write(k, d.data[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
