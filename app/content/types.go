package content

import (
	"strings"
	"time"
)

type SourceType string

const (
	SourceRSS    SourceType = "rss"
	SourceAPI    SourceType = "api"
	SourceScrape SourceType = "scrape"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageSpanish Language = "es"
)

// Item is the unit passed through the acquisition pipeline. Items are treated
// as immutable values: enrichment returns a new Item, it never edits in place.
type Item struct {
	SourceType      SourceType
	SourceName      string
	URL             string
	Title           string
	RawText         string
	Language        Language
	TopicCategory   string
	GeographicFocus string
	Fingerprint     string
	AcquiredAt      time.Time
	QualityScore    float64
}

// WithTopic returns a copy of the item carrying the classification result.
func (i Item) WithTopic(topic, geo string) Item {
	i.TopicCategory = topic
	i.GeographicFocus = geo
	return i
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}
