package filter

import (
	"strings"
	"time"

	"github.com/loqui-app/news-harvester/app/content"
)

// Validator runs the structural checks a raw item must pass before entering
// the pipeline. Validation failure is an expected outcome reported as a
// reason code, never an error.
type Validator struct {
	minWords         int
	qualityThreshold float64
	languages        []content.Language
	now              func() time.Time
}

func NewValidator(minWords int, qualityThreshold float64, languages []content.Language) *Validator {
	return &Validator{
		minWords:         minWords,
		qualityThreshold: qualityThreshold,
		languages:        languages,
		now:              time.Now,
	}
}

// Validate checks the raw item and, on success, returns a new value with the
// fingerprint, quality score and acquisition timestamp populated. On
// rejection it returns a zero item and the reason code.
func (v *Validator) Validate(raw content.Item) (content.Item, string) {
	if raw.Title == "" || raw.URL == "" || strings.TrimSpace(raw.RawText) == "" {
		return content.Item{}, ReasonMissingField
	}

	if content.WordCount(raw.RawText) < v.minWords {
		return content.Item{}, ReasonMinLength
	}

	lang := raw.Language
	if lang == "" {
		detected, ok := content.DetectLanguage(raw.RawText)
		if !ok {
			return content.Item{}, ReasonLanguageMismatch
		}
		lang = detected
	}
	if !v.languageAllowed(lang) {
		return content.Item{}, ReasonLanguageMismatch
	}

	score := QualityScore(raw.Title, raw.RawText)
	if score < v.qualityThreshold {
		return content.Item{}, ReasonLowQuality
	}

	item := raw
	item.Language = lang
	item.QualityScore = score
	item.Fingerprint = content.Fingerprint(raw.Title, raw.RawText)
	item.AcquiredAt = v.now().UTC()

	return item, ""
}

func (v *Validator) languageAllowed(lang content.Language) bool {
	for _, allowed := range v.languages {
		if allowed == lang {
			return true
		}
	}
	return false
}

// QualityScore is a deterministic heuristic in [0,1] built from structural
// signals only: body length, sentence shape, and markup/shouting noise.
func QualityScore(title, text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	const (
		lengthWeight      = 0.35
		sentenceWeight    = 0.35
		cleanlinessWeight = 0.30
	)

	score := lengthWeight*lengthScore(len(words)) +
		sentenceWeight*sentenceScore(text, len(words)) +
		cleanlinessWeight*cleanlinessScore(words)

	return clamp01(score)
}

// lengthScore saturates at 400 words: anything at or above reads as a full
// article, shorter bodies scale down linearly.
func lengthScore(words int) float64 {
	score := float64(words) / 400
	if score > 1 {
		return 1
	}
	return score
}

func sentenceScore(text string, words int) float64 {
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	if sentences == 0 {
		return 0
	}

	avg := float64(words) / float64(sentences)
	switch {
	case avg < 5:
		return avg / 5
	case avg > 40:
		return 40 / avg
	}
	return 1
}

func cleanlinessScore(words []string) float64 {
	links := 0
	shouting := 0
	for _, word := range words {
		if strings.HasPrefix(word, "http://") || strings.HasPrefix(word, "https://") {
			links++
		}
		if len(word) > 3 && word == strings.ToUpper(word) && word != strings.ToLower(word) {
			shouting++
		}
	}

	score := 1.0

	if links > 2 {
		score -= 0.1 * float64(links-2)
	}

	shoutRatio := float64(shouting) / float64(len(words))
	score -= 2 * shoutRatio

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
