package godm_test

import (
	"bytes"
	"fmt"
	"strconv"
	"testing"

	"github.com/godm-io/godm"
	"github.com/godm-io/godm/codec"
)

// ---- Helpers ----

func benchOrderSchema(tb testing.TB) *godm.Schema {
	tb.Helper()
	item, err := godm.NewSchema("Item", []godm.FieldDef{
		{Name: "sku", Kind: godm.KindString, Required: true},
		{Name: "qty", Kind: godm.KindInt},
		{Name: "price", Kind: godm.KindFloat},
		{Name: "meta", Kind: godm.KindDict},
	}, godm.WithWarnExtra(false))
	if err != nil {
		tb.Fatalf("schema build failed: %v", err)
	}
	s, err := godm.NewSchema("Order", []godm.FieldDef{
		{Name: "ref", Kind: godm.KindString, Required: true},
		{Name: "items", Kind: godm.KindArray, Elem: &godm.FieldDef{Kind: godm.KindEmbedded, Schema: item}},
	}, godm.WithWarnExtra(false))
	if err != nil {
		tb.Fatalf("schema build failed: %v", err)
	}
	return s
}

func smallOrderRaw() map[string]any {
	return map[string]any{
		"ref": "ord_1",
		"items": []any{
			map[string]any{"sku": "s_1", "qty": 2.0, "price": 9.5},
		},
	}
}

// generateOrderJSON returns one order document whose items array holds
// numItems objects of the form:
// {"sku":"s_0","qty":0,"price":0.5,"meta":{"score":0},"k0":"v0",...}
func generateOrderJSON(numItems, extraFields int) []byte {
	var buf bytes.Buffer
	buf.Grow(numItems * (64 + extraFields*16))
	buf.WriteString(`{"ref":"ord_bulk","items":[`)
	for i := 0; i < numItems; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		fmt.Fprintf(&buf, "\"sku\":\"s_%d\",", i)
		fmt.Fprintf(&buf, "\"qty\":%d,", i)
		fmt.Fprintf(&buf, "\"price\":%d.5,", i)
		fmt.Fprintf(&buf, "\"meta\":{\"score\":%d}", i)
		// extras pass through untyped
		for k := 0; k < extraFields; k++ {
			buf.WriteByte(',')
			buf.WriteByte('"')
			buf.WriteString("k")
			buf.WriteString(strconv.Itoa(k))
			buf.WriteString("\":\"v")
			buf.WriteString(strconv.Itoa(i))
			buf.WriteString("_")
			buf.WriteString(strconv.Itoa(k))
			buf.WriteString("\"")
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]}")
	return buf.Bytes()
}

// ---- Micro benchmarks (small inputs) ----

func Benchmark_Clean_Order_Small(b *testing.B) {
	s := benchOrderSchema(b)
	raw := smallOrderRaw()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Clean(raw); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Document_New_Small(b *testing.B) {
	s := benchOrderSchema(b)
	raw := smallOrderRaw()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := godm.New(s, raw); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_CleanUpdate_Set_Small(b *testing.B) {
	s := benchOrderSchema(b)
	update := map[string]any{
		"$set": map[string]any{
			"ref":           "ord_2",
			"items.0.qty":   5.0,
			"items.0.price": 12.5,
		},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.CleanUpdate(update, false); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Resolve_ArrayPath(b *testing.B) {
	s := benchOrderSchema(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Resolve("items.$.price"); err != nil {
			b.Fatal(err)
		}
	}
}

// ---- Macro benchmarks (bulk documents) ----

// 10k items with 8 extra fields each ~ O(1-2MB) depending on numbers
const (
	bulkItems     = 10000
	bulkExtraKeys = 8
)

func Benchmark_Clean_Order_Bulk_JSONBytes(b *testing.B) {
	s := benchOrderSchema(b)
	data := generateOrderJSON(bulkItems, bulkExtraKeys)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var raw map[string]any
		if err := codec.JSON.Unmarshal(data, &raw); err != nil {
			b.Fatal(err)
		}
		if _, err := s.Clean(raw); err != nil {
			b.Fatal(err)
		}
	}
}

// ---- Baseline: decode without cleaning ----

func Benchmark_codecJSON_Unmarshal_Bulk(b *testing.B) {
	data := generateOrderJSON(bulkItems, bulkExtraKeys)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var raw map[string]any
		if err := codec.JSON.Unmarshal(data, &raw); err != nil {
			b.Fatal(err)
		}
	}
}
