// Package transform implements the type coercion layer: it turns untyped
// decoder records into typed rows matching a schema contract.
//
// Per field, coercion (a) resolves the source value, following a dotted path
// into nested JSON when the contract declares one, (b) casts it to the
// declared type, and (c) applies the declared unit normalization after a
// successful numeric cast — never before, so a non-numeric source value
// fails coercion instead of silently producing a nonsense offset result.
package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stageload/internal/schema"
	"stageload/pkg/records"
)

// defaultLayouts are tried in order for Timestamp fields when the contract
// does not declare per-field layouts.
var defaultLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// defaultDateLayouts are tried in order for Date fields.
var defaultDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// FieldErrorKind classifies a per-field coercion failure.
type FieldErrorKind int

const (
	// KindCoercion means the value does not match the declared type or its
	// unit transform could not apply.
	KindCoercion FieldErrorKind = iota
	// KindSchema means a non-nullable field resolved to missing/null.
	KindSchema
)

// FieldError describes why a field (and therefore its row) was rejected.
type FieldError struct {
	Field  string
	Kind   FieldErrorKind
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Options configures a Coercer beyond what the contract declares.
type Options struct {
	// Layouts overrides the default timestamp layouts for fields without
	// per-field layouts.
	Layouts []string

	// DateLayouts overrides the default date layouts.
	DateLayouts []string
}

// Coercer casts decoder records to a contract's declared types. It is
// immutable after New and safe for concurrent use.
type Coercer struct {
	contract schema.Contract
	opt      Options
	units    map[string]UnitFunc
}

// New builds a Coercer for the contract. Unknown transform names are
// reported here rather than per row.
func New(c schema.Contract, opt Options) (*Coercer, error) {
	units := make(map[string]UnitFunc)
	for _, f := range c.Fields {
		if f.Transform == "" {
			continue
		}
		fn, ok := LookupUnit(f.Transform)
		if !ok {
			return nil, fmt.Errorf("transform: field %q: unknown transform %q", f.Name, f.Transform)
		}
		if f.Type != schema.TypeFloat && f.Type != schema.TypeInteger {
			return nil, fmt.Errorf("transform: field %q: transform %q requires a numeric type, got %s", f.Name, f.Transform, f.Type)
		}
		units[f.Name] = fn
	}
	return &Coercer{contract: c, opt: opt, units: units}, nil
}

// Row coerces one record into a typed row aligned to the contract's field
// order. Values are int64, float64, string, time.Time, or nil for nullable
// absences. The first failing field aborts the row.
func (c *Coercer) Row(rec records.Record) ([]any, *FieldError) {
	row := make([]any, len(c.contract.Fields))
	for i, f := range c.contract.Fields {
		v, ferr := c.Field(rec, f)
		if ferr != nil {
			return nil, ferr
		}
		row[i] = v
	}
	return row, nil
}

// Field coerces a single field. A missing or null source value yields nil
// for nullable fields and a KindSchema error otherwise.
func (c *Coercer) Field(rec records.Record, f schema.Field) (any, *FieldError) {
	raw, found := c.resolve(rec, f)
	if !found || raw == nil || isEmptyString(raw) {
		if f.Nullable {
			return nil, nil
		}
		return nil, &FieldError{Field: f.Name, Kind: KindSchema, Reason: "required field missing or null"}
	}

	v, err := coerceValue(raw, f, c.opt)
	if err != nil {
		return nil, &FieldError{Field: f.Name, Kind: KindCoercion, Reason: err.Error()}
	}

	if fn, ok := c.units[f.Name]; ok {
		switch n := v.(type) {
		case float64:
			v = fn(n)
		case int64:
			// Integer fields keep integer results; the transform runs in
			// float space and is truncated back.
			v = int64(fn(float64(n)))
		}
	}
	return v, nil
}

// resolve locates the raw source value: by dotted path when declared,
// otherwise by the field's own name.
func (c *Coercer) resolve(rec records.Record, f schema.Field) (any, bool) {
	if f.Path != "" {
		return Lookup(map[string]any(rec), f.Path)
	}
	v, ok := rec[f.Name]
	return v, ok
}

// coerceValue casts raw to the declared type.
func coerceValue(raw any, f schema.Field, opt Options) (any, error) {
	switch f.Type {
	case schema.TypeString:
		return asString(raw), nil

	case schema.TypeInteger:
		return toInt64(raw)

	case schema.TypeFloat:
		return toFloat64(raw)

	case schema.TypeTimestamp:
		layouts := f.Layouts
		if len(layouts) == 0 {
			layouts = opt.Layouts
		}
		if len(layouts) == 0 {
			layouts = defaultLayouts
		}
		return toTime(raw, layouts)

	case schema.TypeDate:
		layouts := f.Layouts
		if len(layouts) == 0 {
			layouts = opt.DateLayouts
		}
		if len(layouts) == 0 {
			layouts = defaultDateLayouts
		}
		t, err := toTime(raw, layouts)
		if err != nil {
			return nil, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return nil, fmt.Errorf("unsupported field type %s", f.Type)
}

func toInt64(raw any) (int64, error) {
	switch t := raw.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int64(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		return 0, fmt.Errorf("%q is not an integer", t.String())
	case string:
		s := strings.TrimSpace(t)
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", t)
		}
		return i, nil
	}
	return 0, fmt.Errorf("type %T is not integer-convertible", raw)
}

func toFloat64(raw any) (float64, error) {
	switch t := raw.(type) {
	case float64:
		return t, nil
	case int64:
		return float64(t), nil
	case int:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t.String())
		}
		return f, nil
	case string:
		s := strings.TrimSpace(t)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("type %T is not float-convertible", raw)
}

// toTime parses raw using the layouts in order; the first match wins. All
// parses are anchored to UTC so no caller-supplied timestamp is
// reinterpreted in a different zone.
func toTime(raw any, layouts []string) (time.Time, error) {
	switch t := raw.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range layouts {
			if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%q matches none of %d configured time layouts", t, len(layouts))
	}
	return time.Time{}, fmt.Errorf("type %T is not time-convertible", raw)
}

func asString(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
