package services

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultSlug is used when a title has no slug-able characters at all.
const DefaultSlug = "project"

// DeriveSlug turns a title into its URL form: lowercase, punctuation dropped,
// whitespace and hyphen runs folded into single hyphens, no hyphen at either
// end. Word characters are ASCII letters, digits and underscore.
func DeriveSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case isSlugWordRune(r):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		}
	}

	if b.Len() == 0 {
		return DefaultSlug
	}
	return b.String()
}

func isSlugWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

// slugCandidate returns the n-th candidate for base: base, base-2, base-3, ...
func slugCandidate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
