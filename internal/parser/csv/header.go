package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// foldASCII strips combining marks so headers like "Důvod" or "Señal" fold to
// plain ASCII before the lowercase/underscore normalization.
var foldASCII = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// normalizeHeaders produces canonical column keys: the HeaderMap wins when it
// names a source header, otherwise the header is diacritics-folded,
// lowercased, and spaces become underscores.
func normalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if headerMap != nil {
			if m, ok := headerMap[c]; ok && m != "" {
				res[i] = m
				continue
			}
		}
		if folded, _, err := transform.String(foldASCII, c); err == nil {
			c = folded
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}
