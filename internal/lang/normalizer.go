package lang

import (
	"strings"

	"golang.org/x/text/language"
)

// Und is the sentinel media language code for unknown or empty tags.
const Und = "und"

// mediaCodes maps canonical user-facing tags to the 3-letter codes that
// media containers expect. Keys are canonical (see Normalize).
var mediaCodes = map[string]string{
	"pt-br": "por",
	"pt":    "por",
	"en":    "eng",
	"es":    "spa",
	"ja":    "jpn",
	"zh":    "chi",
	"fr":    "fre",
	"de":    "ger",
	"it":    "ita",
	"ru":    "rus",
	"ko":    "kor",
}

// Normalize lowercases a language tag, trades underscores for hyphens and
// trims surrounding whitespace, producing the canonical lookup key.
func Normalize(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

// ToMediaCode resolves a user-facing language tag to a 3-letter media code.
// Lookup order: the fixed table by canonical key, the table again by primary
// subtag, a 3-character key passed through verbatim, and finally a padded
// code built by repeating the subtag's last character.
//
// The padding fallback has no linguistic basis; it keeps the function total
// for tags missing from the table, at the cost of producing made-up codes.
// Extend mediaCodes rather than relying on it.
func ToMediaCode(tag string) string {
	key := Normalize(tag)
	if key == "" {
		return Und
	}

	if code, ok := mediaCodes[key]; ok {
		return code
	}

	primary := key
	if i := strings.Index(key, "-"); i >= 0 {
		primary = key[:i]
	}
	if code, ok := mediaCodes[primary]; ok {
		return code
	}

	switch {
	case len(primary) == 3:
		return primary
	case len(primary) > 3:
		return primary[:3]
	case len(primary) == 0:
		return Und
	default:
		last := primary[len(primary)-1:]
		for len(primary) < 3 {
			primary += last
		}
		return primary
	}
}

// SanitizeForFilename reduces a tag to a filesystem-safe token made of
// [a-z0-9-] only, falling back to "und" when nothing survives.
func SanitizeForFilename(tag string) string {
	key := Normalize(tag)

	var b strings.Builder
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return Und
	}
	return b.String()
}

// Tag parses a user-facing tag into an x/text language tag, Und on failure.
func Tag(tag string) language.Tag {
	key := Normalize(tag)
	if key == "" {
		return language.Und
	}
	return language.All.Make(key)
}

// Same reports whether two tags normalize to the same media code.
func Same(a, b string) bool {
	return ToMediaCode(a) == ToMediaCode(b)
}
