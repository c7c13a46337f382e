package slug

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	transliterate = strings.NewReplacer(
		"á", "a", "à", "a", "ä", "a", "â", "a",
		"é", "e", "è", "e", "ë", "e", "ê", "e",
		"í", "i", "ì", "i", "ï", "i", "î", "i",
		"ó", "o", "ò", "o", "ö", "o", "ô", "o",
		"ú", "u", "ù", "u", "ü", "u", "û", "u",
		"ñ", "n", "ç", "c",
	)
)

// Generate turns a display name into a URL-safe slug:
// "Auriculares Inalámbricos Ñandú" becomes "auriculares-inalambricos-nandu".
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = transliterate.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix appends a short disambiguator to a slug.
func WithSuffix(slug, suffix string) string {
	if suffix == "" {
		return slug
	}
	if slug == "" {
		return suffix
	}
	return fmt.Sprintf("%s-%s", slug, suffix)
}
