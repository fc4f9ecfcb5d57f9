package godm

import (
	"sort"
	"strings"
)

// tracker records field-level writes at one document level. Paths are store
// keys. A key is in at most one set: marking it modified removes it from the
// deleted set and vice versa.
type tracker struct {
	modified map[string]struct{}
	deleted  map[string]struct{}
}

func (t *tracker) markSet(key string) {
	if t.modified == nil {
		t.modified = map[string]struct{}{}
	}
	delete(t.deleted, key)
	t.modified[key] = struct{}{}
}

func (t *tracker) markUnset(key string) {
	if t.deleted == nil {
		t.deleted = map[string]struct{}{}
	}
	delete(t.modified, key)
	t.deleted[key] = struct{}{}
}

func (t *tracker) reset() {
	t.modified = nil
	t.deleted = nil
}

func (t *tracker) empty() bool {
	return len(t.modified) == 0 && len(t.deleted) == 0
}

// Changes returns the dotted store paths modified and deleted since the last
// clear, combining changes made through nested documents. A path reassigned
// or removed wholesale supersedes anything tracked beneath it. Both slices
// come back sorted.
func (d *Document) Changes() (modified, deleted []string) {
	mod, del := d.combineChanges()
	modified = make([]string, 0, len(mod))
	for p := range mod {
		modified = append(modified, p)
	}
	deleted = make([]string, 0, len(del))
	for p := range del {
		deleted = append(deleted, p)
	}
	sort.Strings(modified)
	sort.Strings(deleted)
	return modified, deleted
}

func (d *Document) combineChanges() (map[string]struct{}, map[string]struct{}) {
	mod := make(map[string]struct{}, len(d.trk.modified))
	for k := range d.trk.modified {
		mod[k] = struct{}{}
	}
	del := make(map[string]struct{}, len(d.trk.deleted))
	for k := range d.trk.deleted {
		del[k] = struct{}{}
	}
	for cacheKey, child := range d.children {
		top := cacheKey
		if i := strings.IndexByte(top, '.'); i >= 0 {
			top = top[:i]
		}
		if _, wholesale := d.trk.modified[top]; wholesale {
			continue
		}
		if _, wholesale := d.trk.deleted[top]; wholesale {
			continue
		}
		cm, cd := child.combineChanges()
		for p := range cm {
			mod[cacheKey+"."+p] = struct{}{}
		}
		for p := range cd {
			del[cacheKey+"."+p] = struct{}{}
		}
	}
	return mod, del
}

// Dirty reports whether the document or any nested document carries tracked
// changes.
func (d *Document) Dirty() bool {
	if !d.trk.empty() {
		return true
	}
	for _, c := range d.children {
		if c.Dirty() {
			return true
		}
	}
	return false
}

// ClearChanges forgets every tracked change, recursively. Save calls it
// after a successful write.
func (d *Document) ClearChanges() {
	d.trk.reset()
	for _, c := range d.children {
		c.ClearChanges()
	}
}
