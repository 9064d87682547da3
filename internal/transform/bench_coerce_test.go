package transform

import (
	"testing"

	"stageload/internal/schema"
	"stageload/pkg/records"
)

func BenchmarkRow(b *testing.B) {
	c := schema.Contract{
		Name: "trips",
		Fields: []schema.Field{
			{Name: "ride_id", Type: schema.TypeString},
			{Name: "duration", Type: schema.TypeInteger},
			{Name: "distance_km", Type: schema.TypeFloat},
			{Name: "started_at", Type: schema.TypeTimestamp},
		},
	}
	co, err := New(c, Options{})
	if err != nil {
		b.Fatalf("new: %v", err)
	}
	rec := records.Record{
		"ride_id":     "A1B2C3",
		"duration":    "987",
		"distance_km": "3.42",
		"started_at":  "2024-06-01 08:05:13",
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ferr := co.Row(rec); ferr != nil {
			b.Fatalf("row: %v", ferr)
		}
	}
}

func BenchmarkLookupPath(b *testing.B) {
	doc := map[string]any{
		"city": map[string]any{"coord": map[string]any{"lat": 50.08}},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := Lookup(doc, "city.coord.lat"); !ok {
			b.Fatal("path miss")
		}
	}
}
