package godm

import (
	"context"

	"go.uber.org/zap"

	"github.com/godm-io/godm/driver"
)

// Collection binds a schema to one driver collection. Every operation that
// moves data toward the store routes it through the schema first; data
// coming back is wrapped without re-validation.
type Collection struct {
	schema *Schema
	col    driver.Collection
	logger *zap.Logger
}

type writeConfig struct {
	bypass bool
}

// WriteOption adjusts one write operation.
type WriteOption func(*writeConfig)

// Bypass skips validation on a write. Values are still converted to their
// canonical form.
func Bypass() WriteOption {
	return func(c *writeConfig) { c.bypass = true }
}

func applyWriteOptions(opts []WriteOption) writeConfig {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Name returns the underlying collection name.
func (c *Collection) Name() string { return c.col.Name() }

// Schema returns the bound schema.
func (c *Collection) Schema() *Schema { return c.schema }

// Driver returns the underlying driver collection for operations the typed
// surface does not cover.
func (c *Collection) Driver() driver.Collection { return c.col }

func (c *Collection) cleanDoc(raw map[string]any, cfg writeConfig) (map[string]any, error) {
	if cfg.bypass {
		return c.schema.Convert(raw)
	}
	return c.schema.Clean(raw)
}

// InsertOne cleans raw input through the schema and stores it. The returned
// document is in stored state with its primary key set.
func (c *Collection) InsertOne(ctx context.Context, raw map[string]any, opts ...WriteOption) (*Document, error) {
	cfg := applyWriteOptions(opts)
	data, err := c.cleanDoc(raw, cfg)
	if err != nil {
		return nil, err
	}
	id, err := c.col.Insert(ctx, data)
	if err != nil {
		return nil, err
	}
	doc := Load(c.schema, data)
	doc.setPK(id)
	return doc, nil
}

// InsertMany cleans and stores each input in order, stopping at the first
// failure.
func (c *Collection) InsertMany(ctx context.Context, raws []map[string]any, opts ...WriteOption) ([]*Document, error) {
	cfg := applyWriteOptions(opts)
	docs := make([]*Document, 0, len(raws))
	for _, raw := range raws {
		data, err := c.cleanDoc(raw, cfg)
		if err != nil {
			return docs, err
		}
		id, err := c.col.Insert(ctx, data)
		if err != nil {
			return docs, err
		}
		doc := Load(c.schema, data)
		doc.setPK(id)
		docs = append(docs, doc)
	}
	return docs, nil
}

// FindOne returns the first document matching filter, or driver.ErrNotFound.
func (c *Collection) FindOne(ctx context.Context, filter map[string]any) (*Document, error) {
	results, err := c.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, driver.ErrNotFound
	}
	return Load(c.schema, results[0]), nil
}

// Find returns every document matching filter.
func (c *Collection) Find(ctx context.Context, filter map[string]any) ([]*Document, error) {
	results, err := c.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	docs := make([]*Document, len(results))
	for i, data := range results {
		docs[i] = Load(c.schema, data)
	}
	return docs, nil
}

// Count returns how many documents match filter.
func (c *Collection) Count(ctx context.Context, filter map[string]any) (int64, error) {
	results, err := c.col.Find(ctx, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(results)), nil
}

// ReplaceOne cleans the replacement and overwrites one matching document.
func (c *Collection) ReplaceOne(ctx context.Context, filter, replacement map[string]any, opts ...WriteOption) (int64, error) {
	cfg := applyWriteOptions(opts)
	data, err := c.cleanDoc(replacement, cfg)
	if err != nil {
		return 0, err
	}
	return c.col.Replace(ctx, filter, data)
}

// UpdateOne rewrites the update document through the schema and applies it
// to one matching document.
func (c *Collection) UpdateOne(ctx context.Context, filter map[string]any, update any, opts ...WriteOption) (int64, error) {
	cfg := applyWriteOptions(opts)
	clean, err := c.schema.CleanUpdate(update, cfg.bypass)
	if err != nil {
		return 0, err
	}
	return c.col.Update(ctx, filter, clean, false)
}

// UpdateMany rewrites the update document through the schema and applies it
// to every matching document.
func (c *Collection) UpdateMany(ctx context.Context, filter map[string]any, update any, opts ...WriteOption) (int64, error) {
	cfg := applyWriteOptions(opts)
	clean, err := c.schema.CleanUpdate(update, cfg.bypass)
	if err != nil {
		return 0, err
	}
	return c.col.Update(ctx, filter, clean, true)
}

// DeleteOne removes one matching document.
func (c *Collection) DeleteOne(ctx context.Context, filter map[string]any) (int64, error) {
	return c.col.Delete(ctx, filter, false)
}

// DeleteMany removes every matching document.
func (c *Collection) DeleteMany(ctx context.Context, filter map[string]any) (int64, error) {
	return c.col.Delete(ctx, filter, true)
}

// Save writes a document according to its state. A new document is
// inserted. A stored document becomes a minimal update built from the
// tracked changes: $set entries read their current values at the dotted
// paths, $unset entries name the removed ones. A stored document with no
// tracked changes is a no-op. Wholesale slice mutation through Get cannot
// be tracked; use SaveFull for that.
func (c *Collection) Save(ctx context.Context, doc *Document) error {
	return c.save(ctx, doc, false)
}

// SaveFull inserts a new document, or replaces the stored document wholly
// instead of building a minimal update.
func (c *Collection) SaveFull(ctx context.Context, doc *Document) error {
	return c.save(ctx, doc, true)
}

func (c *Collection) save(ctx context.Context, doc *Document, full bool) error {
	switch doc.State() {
	case StateNew:
		id, err := c.col.Insert(ctx, doc.data)
		if err != nil {
			return err
		}
		doc.setPK(id)
		doc.setState(StateStored)
		doc.ClearChanges()
		return nil

	case StateStored:
		pk, ok := doc.PK()
		if !ok {
			return lifecycleErrf("save", doc.State(), "document has no primary key")
		}
		if full {
			if _, err := c.col.Replace(ctx, map[string]any{"_id": pk}, doc.data); err != nil {
				return err
			}
			doc.ClearChanges()
			return nil
		}
		modified, deleted := doc.Changes()
		if len(modified) == 0 && len(deleted) == 0 {
			return nil
		}
		update := map[string]any{}
		if len(modified) > 0 {
			set := make(map[string]any, len(modified))
			for _, path := range modified {
				v, _ := lookupDotted(doc.data, path)
				set[path] = v
			}
			update["$set"] = set
		}
		if len(deleted) > 0 {
			unset := make(map[string]any, len(deleted))
			for _, path := range deleted {
				unset[path] = ""
			}
			update["$unset"] = unset
		}
		if _, err := c.col.Update(ctx, map[string]any{"_id": pk}, update, false); err != nil {
			return err
		}
		doc.ClearChanges()
		return nil

	default:
		return lifecycleErrf("save", doc.State(), "document has been deleted")
	}
}

// Delete removes the document's stored counterpart and marks the instance
// deleted. Deleting an instance the store never saw is an error.
func (c *Collection) Delete(ctx context.Context, doc *Document) error {
	if doc.State() == StateNew {
		return lifecycleErrf("delete", doc.State(), "document was never saved")
	}
	pk, ok := doc.PK()
	if !ok {
		return lifecycleErrf("delete", doc.State(), "document has no primary key")
	}
	if _, err := c.col.Delete(ctx, map[string]any{"_id": pk}, false); err != nil {
		return err
	}
	doc.setState(StateDeleted)
	doc.ClearChanges()
	return nil
}

// IndexPlan diffs the schema's declared indexes against the collection's.
func (c *Collection) IndexPlan(ctx context.Context) (IndexPlan, error) {
	listed, err := c.col.ListIndexes(ctx)
	if err != nil {
		return IndexPlan{}, err
	}
	return PlanIndexes(c.schema.Indexes(), listed)
}

// EnsureIndexes reconciles the collection's indexes with the schema's
// declarations: missing indexes are created, undeclared ones dropped, TTL
// drift adjusted in place, and other option drift resolved by rebuild.
// Running it again right after is a no-op.
func (c *Collection) EnsureIndexes(ctx context.Context) error {
	plan, err := c.IndexPlan(ctx)
	if err != nil {
		return err
	}
	return c.ApplyIndexPlan(ctx, plan)
}

// ApplyIndexPlan executes a plan produced by IndexPlan.
func (c *Collection) ApplyIndexPlan(ctx context.Context, plan IndexPlan) error {
	for _, ix := range plan.Create {
		name, err := c.col.CreateIndex(ctx, rawIndexKeys(ix.Keys), ix.Options)
		if err != nil {
			return err
		}
		c.logger.Info("index created", zap.String("collection", c.Name()), zap.String("index", name))
	}
	for _, name := range plan.Drop {
		if err := c.col.DropIndex(ctx, name); err != nil {
			return err
		}
		c.logger.Info("index dropped", zap.String("collection", c.Name()), zap.String("index", name))
	}
	for _, m := range plan.Modify {
		if err := c.col.ModifyIndexOption(ctx, m.Name, m.Option); err != nil {
			return err
		}
		c.logger.Info("index option modified", zap.String("collection", c.Name()), zap.String("index", m.Name))
	}
	for _, r := range plan.Recreate {
		if err := c.col.DropIndex(ctx, r.DropName); err != nil {
			return err
		}
		name, err := c.col.CreateIndex(ctx, rawIndexKeys(r.Create.Keys), r.Create.Options)
		if err != nil {
			return err
		}
		c.logger.Info("index recreated", zap.String("collection", c.Name()),
			zap.String("dropped", r.DropName), zap.String("index", name))
	}
	return nil
}
