package transform

import "testing"

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"city": map[string]any{
			"name":  "Praha",
			"coord": map[string]any{"lat": 50.08, "lon": 14.42},
		},
		"weather": []any{
			map[string]any{"main": "Rain"},
			map[string]any{"main": "Drizzle"},
		},
		"null": nil,
	}

	cases := []struct {
		path  string
		want  any
		found bool
	}{
		{"city.name", "Praha", true},
		{"city.coord.lat", 50.08, true},
		{"weather.0.main", "Rain", true},
		{"weather.1.main", "Drizzle", true},
		{"weather.2.main", nil, false},
		{"city.population", nil, false},
		{"city.name.first", nil, false},
		{"null", nil, true},
		{"missing.deep.path", nil, false},
	}
	for _, tc := range cases {
		got, ok := Lookup(doc, tc.path)
		if ok != tc.found {
			t.Fatalf("%s: found=%v want %v", tc.path, ok, tc.found)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.path, got, tc.want)
		}
	}
}

func TestLookupNonNumericIndex(t *testing.T) {
	doc := map[string]any{"list": []any{"a"}}
	if _, ok := Lookup(doc, "list.first"); ok {
		t.Fatal("non-numeric index into array should not resolve")
	}
}
