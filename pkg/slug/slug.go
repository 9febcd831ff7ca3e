package slug

import (
	"regexp"
	"strings"
)

const maxLength = 80

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Folds the accented Latin letters common in film titles.
	accents = strings.NewReplacer(
		"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
		"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
		"ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
		"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o",
		"ù", "u", "ú", "u", "û", "u", "ü", "u", "ý", "y", "ÿ", "y",
		"ß", "ss", "æ", "ae", "œ", "oe", "ğ", "g", "ş", "s",
		"&", " and ",
	)
)

// Generate turns a title into a lowercase, hyphen-separated slug of at most
// 80 characters, e.g. "Amélie & Me: Part II" -> "amelie-and-me-part-ii".
func Generate(title string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(title)))
	s = strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
	if len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}
