package content

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// fingerprintPrefixRunes bounds how much body text feeds the fingerprint, so
// trailing boilerplate (related links, footers) does not defeat dedup.
const fingerprintPrefixRunes = 2000

// Fingerprint returns a stable sha256 hex digest over the normalized title
// and a prefix of the normalized body text.
func Fingerprint(title, text string) string {
	normalized := Normalize(title) + "\n" + truncateRunes(Normalize(text), fingerprintPrefixRunes)

	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Normalize applies NFKC normalization, lower-cases and collapses whitespace.
func Normalize(s string) string {
	normalized := norm.NFKC.String(s)
	normalized = strings.ToLower(normalized)
	return strings.Join(strings.Fields(normalized), " ")
}

// Tokens splits normalized text into alphanumeric tokens, dropping
// punctuation. Used for title-overlap comparisons.
func Tokens(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, Normalize(s))

	return strings.Fields(cleaned)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
