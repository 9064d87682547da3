// Package records defines the untyped row representation shared by decoders,
// the coercion layer, and the loader.
//
// A Record maps field names to raw values as produced by a format decoder:
// strings for delimited text, and string/json.Number/bool/map/slice for JSON
// documents. Records are ephemeral; they live for one row and are never
// persisted. Only the coerced, typed form of an accepted row reaches a sink.
package records

// Record is an untyped field mapping for a single input row. Nested JSON
// objects and arrays are preserved as map[string]any and []any values so the
// coercion layer can extract them by path.
type Record map[string]any

// Clone returns a shallow copy of r. Nested values are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the field exists and is non-nil.
func (r Record) Has(name string) bool {
	v, ok := r[name]
	return ok && v != nil
}

// String returns the string value for name, or "" when the field is absent,
// nil, or not a string.
func (r Record) String(name string) string {
	if v, ok := r[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
