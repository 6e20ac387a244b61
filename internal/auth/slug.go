package auth

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const apiKeyPrefix = "ey_"

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Slugify lowercases s, strips diacritics and joins the remaining
// alphanumeric runs with dashes: "Suporte Técnico" -> "suporte-tecnico".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.Trim(nonSlugChars.ReplaceAllString(folded, "-"), "-")
}

// ValidSlug reports whether s only contains lowercase letters, digits and dashes.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// NewAPIKey returns "ey_" followed by 16 random bytes in hex.
func NewAPIKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(buf), nil
}
