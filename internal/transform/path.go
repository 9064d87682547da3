package transform

import (
	"strconv"
	"strings"
)

// Lookup walks a dotted/indexed path through nested JSON values. Segments
// address object keys; a segment that parses as a non-negative integer also
// addresses an array element ("weather.0.main"). It returns (nil, false)
// when any intermediate segment is absent or of the wrong shape; it never
// panics.
func Lookup(root any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
