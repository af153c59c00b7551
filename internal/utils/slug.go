package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultSlugMaxLength = 190

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugHyphens  = regexp.MustCompile(`[\s_]+`)
	slugCollapse = regexp.MustCompile(`-{2,}`)
)

// Slugify turns an arbitrary string into a URL-safe slug: diacritics are
// stripped, the result is lowercased, anything that is not a word character,
// space, or hyphen is removed, and whitespace runs collapse to single
// hyphens. maxLength <= 0 falls back to DefaultSlugMaxLength. Slugify is
// idempotent: Slugify(Slugify(x)) == Slugify(x).
func Slugify(input string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSlugMaxLength
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, input)
	if err != nil {
		folded = input
	}
	s := strings.ToLower(folded)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugHyphens.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLength {
		s = strings.Trim(s[:maxLength], "-")
	}
	return s
}
