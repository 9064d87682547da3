// Package config defines the JSON-serializable pipeline model for loads.
//
// A pipeline file names the input source, the decoder, the target contract,
// and the destination sink. Configuration is explicit: a decoded Pipeline is
// passed to each load/query call and nothing in this package keeps
// process-wide state. Decoding uses the standard library, with a light
// Options helper for the free-form decoder settings.
//
// Example (trimmed):
//
//	{
//	  "job":     "weather",
//	  "source":  { "kind": "file", "file": { "path": "testdata/weather.ndjson" } },
//	  "decoder": { "kind": "json" },
//	  "contract": { "name": "weather", "fields": [
//	    { "name": "city", "type": "string", "path": "city.name" },
//	    { "name": "temp_c", "type": "float", "path": "main.temp",
//	      "transform": "kelvin_to_celsius" }
//	  ]},
//	  "sink":    { "kind": "sqlite", "dsn": "stage.db", "table": "weather",
//	               "auto_create": true }
//	}
package config

import (
	"encoding/json"

	"stageload/internal/schema"
	"stageload/internal/sink"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run for metrics labeling and log lines.
	Job string `json:"job"`

	// Source describes where input bytes come from.
	Source Source `json:"source"`

	// Decoder configures how raw bytes become records.
	Decoder Decoder `json:"decoder"`

	// Contract declares the target record shape.
	Contract schema.Contract `json:"contract"`

	// Sink selects and configures the destination.
	Sink sink.Config `json:"sink"`

	// Load tunes the loader.
	Load Load `json:"load"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind"`

	// File carries options for the "file" kind.
	File SourceFile `json:"file"`

	// HTTP carries options for the "http" kind.
	HTTP SourceHTTP `json:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	// URL is the object URL to fetch.
	URL string `json:"url"`

	// Headers are added to the request, e.g. auth tokens.
	Headers map[string]string `json:"headers,omitempty"`

	// InsecureSkipVerify disables TLS verification.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`
}

// Decoder selects how the source bytes are decoded into records.
type Decoder struct {
	// Kind selects the decoder implementation: "csv" or "json".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the decoder. For CSV,
	// typical keys are comma (string), record_delim (string), has_header
	// (bool), skip_rows (int), trim_space (bool), lazy_quotes (bool),
	// header_map (object). For JSON: max_doc_bytes (int).
	Options Options `json:"options"`
}

// Load tunes the loader for this pipeline.
type Load struct {
	// BatchSize is the sink flush size. Zero means the loader default.
	BatchSize int `json:"batch_size,omitempty"`

	// MaxErrors bounds the recorded rejection reasons. Zero means the
	// loader default.
	MaxErrors int `json:"max_errors,omitempty"`

	// Replace truncates the sink before loading (replace-then-load).
	Replace bool `json:"replace,omitempty"`

	// TimestampLayouts overrides the default timestamp input layouts for
	// fields without per-field layouts.
	TimestampLayouts []string `json:"timestamp_layouts,omitempty"`

	// DateLayouts overrides the default date input layouts.
	DateLayouts []string `json:"date_layouts,omitempty"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns the provided default
// when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so that type is accepted and cast.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def. Useful for
// single-character settings such as the CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// with string values; non-string values are ignored. Returns an empty map
// otherwise.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON makes a null "options" object decode to a non-nil, empty
// Options map. An absent key leaves the map nil, which the typed accessors
// handle.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
