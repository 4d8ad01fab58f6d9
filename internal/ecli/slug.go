package ecli

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// germanReplacer transliterates German letters before generic diacritic
// removal, following the usual ae/oe/ue/ss convention.
var germanReplacer = strings.NewReplacer(
	"ä", "ae", "Ä", "ae",
	"ö", "oe", "Ö", "oe",
	"ü", "ue", "Ü", "ue",
	"ß", "ss",
)

// deaccent strips combining marks after NFD decomposition (é -> e).
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts text to a lowercase URL-safe slug: German transliteration,
// diacritic removal, non-alphanumerics collapsed to single hyphens.
func Slugify(s string) string {
	s = germanReplacer.Replace(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
