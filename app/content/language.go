package content

import (
	"strings"

	"golang.org/x/text/language"
)

// ParseLanguage maps a provider language tag ("en", "en-US", "es-MX") onto a
// supported pipeline language.
func ParseLanguage(tag string) (Language, bool) {
	if tag == "" {
		return "", false
	}

	parsed, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", false
	}

	base, _ := parsed.Base()
	switch base.String() {
	case "en":
		return LanguageEnglish, true
	case "es":
		return LanguageSpanish, true
	}

	return "", false
}

// detectSampleTokens bounds how much text the detector inspects.
const detectSampleTokens = 400

var englishStopwords = map[string]bool{
	"the": true, "and": true, "of": true, "to": true, "in": true,
	"is": true, "that": true, "for": true, "with": true, "was": true,
	"are": true, "this": true, "have": true, "from": true, "not": true,
	"but": true, "they": true, "has": true, "will": true, "would": true,
	"been": true, "were": true, "their": true, "which": true, "about": true,
	"after": true, "more": true, "who": true, "when": true, "also": true,
}

var spanishStopwords = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "de": true,
	"del": true, "que": true, "y": true, "en": true, "un": true,
	"una": true, "es": true, "se": true, "por": true, "con": true,
	"para": true, "su": true, "al": true, "lo": true, "como": true,
	"más": true, "pero": true, "sus": true, "le": true, "ya": true,
	"este": true, "ha": true, "porque": true, "esta": true, "entre": true,
	"cuando": true, "muy": true, "sin": true, "sobre": true, "también": true,
	"fue": true, "había": true, "años": true, "hasta": true, "desde": true,
}

// DetectLanguage guesses EN or ES from stopword frequency. Returns false when
// neither language produces enough signal to decide.
func DetectLanguage(text string) (Language, bool) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) > detectSampleTokens {
		tokens = tokens[:detectSampleTokens]
	}

	englishHits := 0
	spanishHits := 0
	for _, token := range tokens {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if englishStopwords[token] {
			englishHits++
		}
		if spanishStopwords[token] {
			spanishHits++
		}
	}

	const minHits = 3
	switch {
	case englishHits >= minHits && englishHits > spanishHits:
		return LanguageEnglish, true
	case spanishHits >= minHits && spanishHits > englishHits:
		return LanguageSpanish, true
	}

	return "", false
}
