package domain

import (
	"strings"
	"unicode"
)

// untitledSlug stands in for titles with no word characters.
const untitledSlug = "untitled"

// Slugify converts a title into a lowercase, hyphen-joined path segment.
// Characters other than letters, digits, underscores and whitespace are
// dropped, and runs of whitespace or hyphens collapse to a single hyphen.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingDash = true
		}
	}
	if b.Len() == 0 {
		return untitledSlug
	}
	return b.String()
}
