package transform

import "strings"

// UnitFunc is a declared per-field unit normalization. It runs only after a
// value has successfully coerced to a numeric type.
type UnitFunc func(float64) float64

// builtinUnits are the unit normalizations a contract may name.
var builtinUnits = map[string]UnitFunc{
	"kelvin_to_celsius":     func(v float64) float64 { return v - 273.15 },
	"celsius_to_kelvin":     func(v float64) float64 { return v + 273.15 },
	"fahrenheit_to_celsius": func(v float64) float64 { return (v - 32) * 5 / 9 },
	"mps_to_kmh":            func(v float64) float64 { return v * 3.6 },
	"identity":              func(v float64) float64 { return v },
}

// LookupUnit resolves a transform name declared in a contract.
func LookupUnit(name string) (UnitFunc, bool) {
	fn, ok := builtinUnits[strings.ToLower(strings.TrimSpace(name))]
	return fn, ok
}

// UnitNames returns the available transform names, for config validation
// messages. Order is unspecified.
func UnitNames() []string {
	names := make([]string, 0, len(builtinUnits))
	for n := range builtinUnits {
		names = append(names, n)
	}
	return names
}
