// Package schema declares target record shapes for loads: field names,
// semantic types, nullability, and the per-field extraction and normalization
// settings the coercion layer needs.
//
// A Contract is immutable once registered; loads never mutate it. The
// Registry is frozen at construction and is safe for concurrent reads by any
// number of parallel loads.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the semantic type of a contract field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeFloat
	TypeTimestamp
	TypeDate
)

var typeNames = map[FieldType]string{
	TypeString:    "string",
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
}

// String returns the canonical lowercase name used in pipeline configs.
func (t FieldType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseType maps a config type name to a FieldType. Common aliases used by
// hand-written pipeline files are accepted ("int", "text", "real", ...).
func ParseType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "varchar":
		return TypeString, nil
	case "integer", "int", "int64":
		return TypeInteger, nil
	case "float", "real", "double", "number":
		return TypeFloat, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	}
	return TypeString, fmt.Errorf("schema: unknown field type %q", s)
}

// MarshalJSON encodes the type as its canonical name.
func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name, accepting the same aliases as ParseType.
func (t *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ft, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = ft
	return nil
}

// Field describes one column of a contract.
type Field struct {
	// Name is the canonical field name, also the sink column name.
	Name string `json:"name"`

	// Type is the declared semantic type the raw value is coerced to.
	Type FieldType `json:"type"`

	// Nullable permits a missing or null source value. A non-nullable field
	// that resolves to null rejects the whole row.
	Nullable bool `json:"nullable,omitempty"`

	// Path optionally names a dotted/indexed path into a nested source
	// document (e.g. "city.coord.lat", "weather.0.main"). When empty the
	// field is read from the record key equal to Name.
	Path string `json:"path,omitempty"`

	// Layouts are the time layouts tried in order for Timestamp/Date fields.
	// When empty, the coercion layer's defaults apply.
	Layouts []string `json:"layouts,omitempty"`

	// Transform optionally names a unit normalization (e.g.
	// "kelvin_to_celsius") applied after successful numeric coercion.
	Transform string `json:"transform,omitempty"`
}

// Contract is an ordered sequence of fields with unique names. It identifies
// a target table shape and never changes during a load.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Validate checks structural invariants: at least one field, non-empty unique
// names.
func (c Contract) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("schema: contract %q has no fields", c.Name)
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for i, f := range c.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema: contract %q field %d has empty name", c.Name, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: contract %q has duplicate field %q", c.Name, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Columns returns the field names in declaration order.
func (c Contract) Columns() []string {
	cols := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		cols[i] = f.Name
	}
	return cols
}

// FieldIndex returns the position of the named field, or -1.
func (c Contract) FieldIndex(name string) int {
	for i, f := range c.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Registry is a frozen name→Contract lookup built once at startup. Reads are
// lock-free; the map is never mutated after New returns.
type Registry struct {
	contracts map[string]Contract
}

// NewRegistry validates each contract and freezes them into a Registry.
func NewRegistry(contracts ...Contract) (*Registry, error) {
	m := make(map[string]Contract, len(contracts))
	for _, c := range contracts {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("schema: contract with empty name")
		}
		if _, dup := m[c.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate contract %q", c.Name)
		}
		m[c.Name] = c
	}
	return &Registry{contracts: m}, nil
}

// Lookup returns the named contract.
func (r *Registry) Lookup(name string) (Contract, bool) {
	c, ok := r.contracts[name]
	return c, ok
}

// Names returns the registered contract names in unspecified order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		out = append(out, name)
	}
	return out
}
