package godm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/driver"
	"github.com/godm-io/godm/driver/jsonstore"
)

func accountSchema() *godm.Schema {
	return godm.MustSchema("Account", []godm.FieldDef{
		{Name: "name", Kind: godm.KindString, Required: true},
		{Name: "balance", Kind: godm.KindInt, Min: floatPtr(0)},
		{Name: "tags", Kind: godm.KindArray, Elem: &godm.FieldDef{Kind: godm.KindString}},
	}, godm.WithIndexes(godm.IndexOn("name").Unique(), godm.IndexOn("-balance")))
}

func openAccounts(t *testing.T) *godm.Collection {
	t.Helper()
	store, err := jsonstore.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	db := godm.Open(store)
	t.Cleanup(func() {
		if err := db.Close(context.Background()); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return db.Collection(accountSchema())
}

func TestCollection_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	doc, err := accounts.InsertOne(ctx, map[string]any{"name": "ann", "balance": 30.0})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if doc.State() != godm.StateStored {
		t.Fatalf("state = %v", doc.State())
	}
	if _, ok := doc.PK(); !ok {
		t.Fatal("inserted document has no primary key")
	}
	if v, _ := doc.Get("balance"); v != int64(30) {
		t.Fatalf("balance = %v (%T)", v, v)
	}

	// Invalid input never reaches the store.
	_, err = accounts.InsertOne(ctx, map[string]any{"balance": 1})
	var issues godm.Issues
	if !errors.As(err, &issues) || issues[0].Code != godm.CodeRequired {
		t.Fatalf("expected a required issue, got %v", err)
	}
	if n, _ := accounts.Count(ctx, nil); n != 1 {
		t.Fatalf("count = %d", n)
	}

	if _, err := accounts.InsertMany(ctx, []map[string]any{
		{"name": "bob", "balance": 10},
		{"name": "cat", "balance": 20},
	}); err != nil {
		t.Fatalf("insert many: %v", err)
	}

	// Stored values come back in their JSON shape.
	found, err := accounts.FindOne(ctx, map[string]any{"name": "ann"})
	if err != nil {
		t.Fatalf("find one: %v", err)
	}
	if v, _ := found.Get("balance"); v != 30.0 {
		t.Fatalf("stored balance = %v (%T)", v, v)
	}

	if _, err := accounts.FindOne(ctx, map[string]any{"name": "nobody"}); !errors.Is(err, driver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	docs, err := accounts.Find(ctx, map[string]any{"balance": map[string]any{"$gte": 20}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("found %d documents", len(docs))
	}
}

func TestCollection_SaveLifecycle(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	doc, err := godm.New(accounts.Schema(), map[string]any{"name": "ann", "balance": 5, "tags": []any{"a"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if doc.State() != godm.StateNew {
		t.Fatalf("state = %v", doc.State())
	}

	if err := accounts.Save(ctx, doc); err != nil {
		t.Fatalf("first save: %v", err)
	}
	pk, ok := doc.PK()
	if !ok || doc.State() != godm.StateStored || doc.Dirty() {
		t.Fatalf("after save: pk=%v state=%v dirty=%v", pk, doc.State(), doc.Dirty())
	}

	// No tracked changes, no write.
	if err := accounts.Save(ctx, doc); err != nil {
		t.Fatalf("idle save: %v", err)
	}

	if err := doc.Set("balance", 6.0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := doc.Unset("tags"); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if err := accounts.Save(ctx, doc); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if doc.Dirty() {
		t.Fatal("still dirty after save")
	}

	stored, err := accounts.FindOne(ctx, map[string]any{"_id": pk})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := map[string]any{"_id": pk, "name": "ann", "balance": 6.0}
	if diff := cmp.Diff(want, stored.Map()); diff != "" {
		t.Fatalf("stored document (-want +got):\n%s", diff)
	}
}

func TestCollection_SaveFull(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	doc, err := accounts.InsertOne(ctx, map[string]any{"name": "ann", "tags": []any{"a"}})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	// In-place slice mutation through Get leaves no tracked change, so a
	// minimal save would miss it.
	tags, _ := doc.Get("tags")
	tags.([]any)[0] = "b"
	if doc.Dirty() {
		t.Fatal("slice mutation should not be tracked")
	}
	if err := accounts.SaveFull(ctx, doc); err != nil {
		t.Fatalf("save full: %v", err)
	}

	stored, err := accounts.FindOne(ctx, map[string]any{"name": "ann"})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, _ := stored.Get("tags"); !cmp.Equal([]any{"b"}, v) {
		t.Fatalf("tags = %v", v)
	}
}

func TestCollection_LifecycleErrors(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)
	var lcErr *godm.LifecycleError

	// Deleting a document the store never saw.
	doc, err := godm.New(accounts.Schema(), map[string]any{"name": "x"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := accounts.Delete(ctx, doc); !errors.As(err, &lcErr) {
		t.Fatalf("delete new: %v", err)
	}

	// A stored document without a primary key cannot be written back.
	orphan := godm.Load(accounts.Schema(), map[string]any{"name": "y"})
	if err := accounts.Save(ctx, orphan); !errors.As(err, &lcErr) {
		t.Fatalf("save without pk: %v", err)
	}

	// Saving after delete.
	doc, err = accounts.InsertOne(ctx, map[string]any{"name": "z"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := accounts.Delete(ctx, doc); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if doc.State() != godm.StateDeleted {
		t.Fatalf("state = %v", doc.State())
	}
	if err := accounts.Save(ctx, doc); !errors.As(err, &lcErr) {
		t.Fatalf("save deleted: %v", err)
	}
	if n, _ := accounts.Count(ctx, nil); n != 0 {
		t.Fatalf("count = %d", n)
	}
}

func TestCollection_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	for _, raw := range []map[string]any{
		{"name": "ann", "balance": 10},
		{"name": "bob", "balance": 20},
		{"name": "cat", "balance": 30},
	} {
		if _, err := accounts.InsertOne(ctx, raw); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	matched, err := accounts.UpdateOne(ctx, map[string]any{"name": "ann"},
		map[string]any{"$inc": map[string]any{"balance": 5}})
	if err != nil {
		t.Fatalf("update one: %v", err)
	}
	if matched != 1 {
		t.Fatalf("matched = %d", matched)
	}
	stored, err := accounts.FindOne(ctx, map[string]any{"name": "ann"})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, _ := stored.Get("balance"); v != 15.0 {
		t.Fatalf("balance = %v (%T)", v, v)
	}

	// The update document is validated against the schema first.
	var issues godm.Issues
	_, err = accounts.UpdateOne(ctx, map[string]any{"name": "ann"},
		map[string]any{"$inc": map[string]any{"name": 1}})
	if !errors.As(err, &issues) || issues[0].Code != godm.CodeInvalidOperator {
		t.Fatalf("expected invalid_operator, got %v", err)
	}

	matched, err = accounts.UpdateMany(ctx, nil,
		map[string]any{"$set": map[string]any{"tags": []any{"seen"}}})
	if err != nil || matched != 3 {
		t.Fatalf("update many: matched=%d err=%v", matched, err)
	}

	matched, err = accounts.ReplaceOne(ctx, map[string]any{"name": "bob"},
		map[string]any{"name": "bob", "balance": 0})
	if err != nil || matched != 1 {
		t.Fatalf("replace: matched=%d err=%v", matched, err)
	}

	n, err := accounts.DeleteOne(ctx, map[string]any{"name": "cat"})
	if err != nil || n != 1 {
		t.Fatalf("delete one: n=%d err=%v", n, err)
	}
	n, err = accounts.DeleteMany(ctx, nil)
	if err != nil || n != 2 {
		t.Fatalf("delete many: n=%d err=%v", n, err)
	}
}

func TestCollection_Bypass(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	// Bypass skips validation but still converts.
	doc, err := accounts.InsertOne(ctx, map[string]any{"balance": -5.0}, godm.Bypass())
	if err != nil {
		t.Fatalf("bypass insert: %v", err)
	}
	if v, _ := doc.Get("balance"); v != int64(-5) {
		t.Fatalf("balance = %v (%T)", v, v)
	}
}

func TestCollection_EnsureIndexes(t *testing.T) {
	ctx := context.Background()
	accounts := openAccounts(t)

	plan, err := accounts.IndexPlan(ctx)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Create) != 2 || len(plan.Drop) != 0 {
		t.Fatalf("initial plan = %+v", plan)
	}

	if err := accounts.EnsureIndexes(ctx); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	plan, err = accounts.IndexPlan(ctx)
	if err != nil {
		t.Fatalf("replan: %v", err)
	}
	if !plan.Empty() {
		t.Fatalf("plan after ensure = %+v", plan)
	}

	listed, err := accounts.Driver().ListIndexes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	names := make([]string, len(listed))
	for i, ix := range listed {
		names[i] = ix["name"].(string)
	}
	if diff := cmp.Diff([]string{"_id_", "balance_-1", "name_1"}, names); diff != "" {
		t.Fatalf("index names (-want +got):\n%s", diff)
	}
}
