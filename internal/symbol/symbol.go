// Package symbol derives source-level identifiers from asset paths.
package symbol

import "strings"

// DigitPrefix is prepended when a sanitized name would start with a digit.
const DigitPrefix = "f_"

// Sanitize maps a relative path to an identifier made of [0-9a-z_].
// Every character outside [0-9A-Za-z_] becomes a single underscore.
func Sanitize(rel string) string {
	var b strings.Builder
	b.Grow(len(rel) + len(DigitPrefix))

	for _, r := range rel {
		if isIdentRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}

	name := b.String()
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = DigitPrefix + name
	}
	return strings.ToLower(name)
}

func isIdentRune(r rune) bool {
	return (r >= '0' && r <= '9') ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		r == '_'
}
