package match

import (
	"strings"
	"unicode"
)

// typeSuffixes are dropped from type names before comparing them, longest
// first so "rows" wins over "row".
var typeSuffixes = []string{"entry", "rows", "data", "row"}

// NormalizeIdent folds case and drops separators, so "Item_Row", "item-row"
// and "ItemRow" all become "itemrow".
func NormalizeIdent(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		if isSeparator(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// NormalizeTypeName normalizes a type name and drops one common suffix of
// row types. A name made only of the suffix is kept.
func NormalizeTypeName(s string) string {
	n := NormalizeIdent(s)
	for _, suffix := range typeSuffixes {
		if trimmed, ok := strings.CutSuffix(n, suffix); ok && trimmed != "" {
			return trimmed
		}
	}

	return n
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}
