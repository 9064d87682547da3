package json_test

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"stageload/internal/parser"
	pjson "stageload/internal/parser/json"
)

func TestDecodeNDJSON(t *testing.T) {
	in := `{"id":1,"name":"a"}
{"id":2,"name":"b"}
`
	d := pjson.NewDecoder(strings.NewReader(in), pjson.Options{})

	rec, err := d.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got := rec["name"]; got != "a" {
		t.Fatalf("name=%v want a", got)
	}
	// Numbers stay json.Number until coercion decides their type.
	if _, ok := rec["id"].(json.Number); !ok {
		t.Fatalf("id is %T, want json.Number", rec["id"])
	}

	if _, err := d.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}

func TestNestedValuesPreserved(t *testing.T) {
	in := `{"city":{"name":"Praha","coord":{"lat":50.08,"lon":14.42}},"weather":[{"main":"Rain"}]}`
	d := pjson.NewDecoder(strings.NewReader(in), pjson.Options{})
	rec, err := d.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	city, ok := rec["city"].(map[string]any)
	if !ok {
		t.Fatalf("city is %T, want map", rec["city"])
	}
	if _, ok := city["coord"].(map[string]any); !ok {
		t.Fatalf("coord is %T, want map", city["coord"])
	}
	if _, ok := rec["weather"].([]any); !ok {
		t.Fatalf("weather is %T, want slice", rec["weather"])
	}
}

func TestMalformedLineResyncs(t *testing.T) {
	in := `{"ok":1}
{"broken": tru
{"ok":2}
`
	d := pjson.NewDecoder(strings.NewReader(in), pjson.Options{})

	if _, err := d.Next(); err != nil {
		t.Fatalf("row 1: %v", err)
	}
	_, err := d.Next()
	var re *parser.RowError
	if !errors.As(err, &re) {
		t.Fatalf("row 2: want RowError, got %v", err)
	}
	rec, err := d.Next()
	if err != nil {
		t.Fatalf("row 3: %v", err)
	}
	if rec["ok"].(json.Number).String() != "2" {
		t.Fatalf("ok=%v want 2", rec["ok"])
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}

func TestNonObjectTopLevel(t *testing.T) {
	d := pjson.NewDecoder(strings.NewReader("[1,2,3]\n"), pjson.Options{})
	_, err := d.Next()
	if !parser.IsRowError(err) {
		t.Fatalf("want RowError for array top-level, got %v", err)
	}
}

func TestBlankLinesSkipped(t *testing.T) {
	in := "\n\n{\"x\":1}\n\n"
	d := pjson.NewDecoder(strings.NewReader(in), pjson.Options{})
	if _, err := d.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := d.Next(); err != io.EOF {
		t.Fatalf("want EOF, got %v", err)
	}
}
