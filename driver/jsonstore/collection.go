package jsonstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/godm-io/godm/codec"
	"github.com/godm-io/godm/driver"
)

// collection holds one named document set: the documents in insertion order
// plus the index descriptors. All driver methods deep-copy on the way in
// and out, so callers never share memory with the store.
type collection struct {
	store *Store
	name  string

	mu      sync.RWMutex
	docs    []map[string]any
	indexes []map[string]any
}

func newCollection(s *Store, name string, data collectionData) *collection {
	c := &collection{store: s, name: name, docs: data.Documents, indexes: data.Indexes}
	if c.docs == nil {
		c.docs = []map[string]any{}
	}
	if len(c.indexes) == 0 {
		c.indexes = []map[string]any{{
			"v":    2,
			"key":  []any{map[string]any{"_id": 1}},
			"name": "_id_",
		}}
	}
	return c
}

func (c *collection) Name() string { return c.name }

func (c *collection) snapshot() collectionData {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data := collectionData{
		Documents: make([]map[string]any, len(c.docs)),
		Indexes:   make([]map[string]any, len(c.indexes)),
	}
	for i, d := range c.docs {
		data.Documents[i] = copyValue(d).(map[string]any)
	}
	for i, ix := range c.indexes {
		data.Indexes[i] = copyValue(ix).(map[string]any)
	}
	return data
}

func (c *collection) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.store.isClosed() {
		return fmt.Errorf("jsonstore: store is closed")
	}
	return nil
}

// normalizeDoc settles a document into its JSON shape via an encode round
// trip, which also severs it from the caller's memory.
func normalizeDoc(doc map[string]any) (map[string]any, error) {
	raw, err := codec.JSON.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("jsonstore: encode document: %w", err)
	}
	var out map[string]any
	if err := codec.JSON.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("jsonstore: decode document: %w", err)
	}
	return out, nil
}

func normalizeValue(v any) (any, error) {
	raw, err := codec.JSON.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonstore: encode value: %w", err)
	}
	var out any
	if err := codec.JSON.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("jsonstore: decode value: %w", err)
	}
	return out, nil
}

// normalizeFilter settles filter values into the same JSON shape documents
// take, so native-typed filters compare against stored values.
func normalizeFilter(filter map[string]any) (map[string]any, error) {
	if filter == nil {
		return nil, nil
	}
	return normalizeDoc(filter)
}

func (c *collection) Insert(ctx context.Context, doc map[string]any) (any, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	nd, err := normalizeDoc(doc)
	if err != nil {
		return nil, err
	}
	id, has := nd["_id"]
	if !has {
		id = uuid.NewString()
		nd["_id"] = id
	}
	c.mu.Lock()
	for _, d := range c.docs {
		if valuesEqual(d["_id"], id) {
			c.mu.Unlock()
			return nil, fmt.Errorf("jsonstore: duplicate _id %v in %s", id, c.name)
		}
	}
	c.docs = append(c.docs, nd)
	c.mu.Unlock()
	if err := c.store.persist(ctx); err != nil {
		return nil, err
	}
	return id, nil
}

func (c *collection) Replace(ctx context.Context, filter, doc map[string]any) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	nd, err := normalizeDoc(doc)
	if err != nil {
		return 0, err
	}
	nf, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	matched := int64(0)
	for i, d := range c.docs {
		if !matchDoc(d, nf) {
			continue
		}
		// The stored primary key survives a replace.
		if id, has := d["_id"]; has {
			nd["_id"] = id
		}
		c.docs[i] = nd
		matched = 1
		break
	}
	c.mu.Unlock()
	if matched == 0 {
		return 0, nil
	}
	return matched, c.store.persist(ctx)
}

func (c *collection) Update(ctx context.Context, filter map[string]any, update any, multi bool) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	ops, ok := update.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("jsonstore: unsupported update %T, want an operator document", update)
	}
	nf, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	matched := int64(0)
	for i, d := range c.docs {
		if !matchDoc(d, nf) {
			continue
		}
		matched++
		nd, err := applyUpdate(d, ops)
		if err != nil {
			c.mu.Unlock()
			return 0, err
		}
		c.docs[i] = nd
		if !multi {
			break
		}
	}
	c.mu.Unlock()
	if matched == 0 {
		return 0, nil
	}
	return matched, c.store.persist(ctx)
}

func (c *collection) Delete(ctx context.Context, filter map[string]any, multi bool) (int64, error) {
	if err := c.ready(ctx); err != nil {
		return 0, err
	}
	nf, err := normalizeFilter(filter)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	deleted := int64(0)
	kept := c.docs[:0]
	for _, d := range c.docs {
		if (multi || deleted == 0) && matchDoc(d, nf) {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	c.docs = kept
	c.mu.Unlock()
	if deleted == 0 {
		return 0, nil
	}
	return deleted, c.store.persist(ctx)
}

func (c *collection) Find(ctx context.Context, filter map[string]any) ([]map[string]any, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	nf, err := normalizeFilter(filter)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []map[string]any
	for _, d := range c.docs {
		if matchDoc(d, nf) {
			out = append(out, copyValue(d).(map[string]any))
		}
	}
	return out, nil
}

func (c *collection) ListIndexes(ctx context.Context) ([]map[string]any, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]map[string]any, len(c.indexes))
	for i, ix := range c.indexes {
		out[i] = copyValue(ix).(map[string]any)
	}
	return out, nil
}

func (c *collection) CreateIndex(ctx context.Context, keys []map[string]any, options map[string]any) (string, error) {
	if err := c.ready(ctx); err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("jsonstore: index needs keys")
	}
	rawKeys := make([]any, 0, len(keys))
	var nameParts []string
	for _, entry := range keys {
		ne, err := normalizeValue(entry)
		if err != nil {
			return "", err
		}
		em := ne.(map[string]any)
		rawKeys = append(rawKeys, em)
		for f, order := range em {
			nameParts = append(nameParts, fmt.Sprintf("%s_%d", f, int(toFloat(order))))
		}
	}
	name := strings.Join(nameParts, "_")
	if n, ok := options["name"].(string); ok && n != "" {
		name = n
	}

	descriptor := map[string]any{"v": 2, "key": rawKeys, "name": name}
	for k, v := range options {
		if k == "name" || k == "key" {
			continue
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return "", err
		}
		descriptor[k] = nv
	}

	c.mu.Lock()
	for _, ix := range c.indexes {
		if ix["name"] == name {
			c.mu.Unlock()
			return "", fmt.Errorf("jsonstore: index %q already exists in %s", name, c.name)
		}
	}
	c.indexes = append(c.indexes, descriptor)
	c.mu.Unlock()
	return name, c.store.persist(ctx)
}

func (c *collection) DropIndex(ctx context.Context, name string) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	if name == "_id_" {
		return fmt.Errorf("jsonstore: cannot drop _id_")
	}
	c.mu.Lock()
	found := false
	kept := c.indexes[:0]
	for _, ix := range c.indexes {
		if ix["name"] == name {
			found = true
			continue
		}
		kept = append(kept, ix)
	}
	c.indexes = kept
	c.mu.Unlock()
	if !found {
		return driver.ErrIndexNotFound
	}
	return c.store.persist(ctx)
}

func (c *collection) ModifyIndexOption(ctx context.Context, name string, option map[string]any) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	found := false
	for _, ix := range c.indexes {
		if ix["name"] != name {
			continue
		}
		found = true
		for k, v := range option {
			nv, err := normalizeValue(v)
			if err != nil {
				c.mu.Unlock()
				return err
			}
			ix[k] = nv
		}
		break
	}
	c.mu.Unlock()
	if !found {
		return driver.ErrIndexNotFound
	}
	return c.store.persist(ctx)
}
