package rules

import (
	"strings"
	"unicode"
)

// Transform is a case transform applied to display names.
type Transform string

const (
	TransformKeep  Transform = "keep"
	TransformUpper Transform = "upper"
	TransformLower Transform = "lower"
	TransformTitle Transform = "title"
)

// Valid reports whether t is a known transform.
func (t Transform) Valid() bool {
	switch t {
	case TransformKeep, TransformUpper, TransformLower, TransformTitle:
		return true
	}
	return false
}

// TransformName applies a case transform. Unknown modes keep the name.
func TransformName(name string, mode Transform) string {
	switch mode {
	case TransformUpper:
		return strings.ToUpper(name)
	case TransformLower:
		return strings.ToLower(name)
	case TransformTitle:
		return titleCase(name)
	default:
		return name
	}
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
// A word starts after any non-letter, so "asia-south" becomes "Asia-South".
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
