package godm

import "fmt"

// IndexModify is a planned in-place option change on an existing index,
// applied through the store's index-option command rather than a rebuild.
// Only the TTL option qualifies.
type IndexModify struct {
	Name   string
	Option map[string]any
}

// IndexRecreate is a planned drop of an existing index followed by creation
// of its declared replacement.
type IndexRecreate struct {
	DropName string
	Create   Index
}

// IndexPlan is the difference between a schema's declared indexes and what
// the store currently has. Applying an empty plan is a no-op, and applying
// the same plan twice converges: the second run plans nothing.
type IndexPlan struct {
	Create   []Index
	Drop     []string
	Modify   []IndexModify
	Recreate []IndexRecreate
	Keep     []string
}

// Empty reports whether the plan changes anything.
func (p IndexPlan) Empty() bool {
	return len(p.Create) == 0 && len(p.Drop) == 0 && len(p.Modify) == 0 && len(p.Recreate) == 0
}

// PlanIndexes diffs declared indexes against a store's index listing.
// Declared and listed indexes pair up by the canonical name of their key,
// so a renamed index with the same key is an option change, not a new
// index. The primary key index _id_ is never touched. Options are compared
// structurally with numeric values equal across types; the TTL option is
// handled apart so a pure TTL change becomes an in-place modify when both
// sides carry one.
func PlanIndexes(declared []Index, listed []map[string]any) (IndexPlan, error) {
	var plan IndexPlan

	newByCanon := make(map[string]Index, len(declared))
	for _, ix := range declared {
		norm, err := normalizeIndex(ix)
		if err != nil {
			return IndexPlan{}, err
		}
		newByCanon[norm.CanonicalName()] = norm
	}
	oldByCanon := make(map[string]map[string]any, len(listed))
	for _, raw := range listed {
		keys, err := indexKeysFromRaw(raw["key"])
		if err != nil {
			return IndexPlan{}, err
		}
		oldByCanon[Index{Keys: keys}.CanonicalName()] = raw
	}

	for _, canon := range sortedKeys(newByCanon) {
		if _, exists := oldByCanon[canon]; !exists {
			plan.Create = append(plan.Create, newByCanon[canon])
		}
	}
	for _, canon := range sortedKeys(oldByCanon) {
		if _, declared := newByCanon[canon]; declared {
			continue
		}
		name := listedName(oldByCanon[canon], canon)
		if name == "_id_" {
			continue
		}
		plan.Drop = append(plan.Drop, name)
	}

	for _, canon := range sortedKeys(newByCanon) {
		old, exists := oldByCanon[canon]
		if !exists {
			continue
		}
		nix := newByCanon[canon]

		newOpts := make(map[string]any, len(nix.Options)+1)
		for k, v := range nix.Options {
			newOpts[k] = v
		}
		if _, named := newOpts["name"]; !named {
			newOpts["name"] = canon
		}
		oldOpts := make(map[string]any, len(old))
		for k, v := range old {
			switch k {
			case "key", "v", "ns":
			default:
				oldOpts[k] = v
			}
		}
		newTTL, oldTTL := newOpts["expireAfterSeconds"], oldOpts["expireAfterSeconds"]
		delete(newOpts, "expireAfterSeconds")
		delete(oldOpts, "expireAfterSeconds")

		sameOptions := shapeEqual(newOpts, oldOpts)
		switch {
		case sameOptions && ttlEqual(newTTL, oldTTL):
			plan.Keep = append(plan.Keep, listedName(old, canon))
		case sameOptions && newTTL != nil && oldTTL != nil:
			plan.Modify = append(plan.Modify, IndexModify{
				Name:   fmt.Sprint(newOpts["name"]),
				Option: map[string]any{"expireAfterSeconds": newTTL},
			})
		default:
			create := Index{Keys: nix.Keys, Options: newOpts}
			if newTTL != nil {
				create = create.With("expireAfterSeconds", newTTL)
			}
			plan.Recreate = append(plan.Recreate, IndexRecreate{
				DropName: listedName(old, canon),
				Create:   create,
			})
		}
	}
	return plan, nil
}

func listedName(raw map[string]any, canon string) string {
	if n, ok := raw["name"].(string); ok && n != "" {
		return n
	}
	return canon
}

func ttlEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return shapeEqual(a, b)
}
