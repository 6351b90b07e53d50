package sources

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/loqui-app/news-harvester/app/content"
)

// RSSAdapter fetches items from an RSS/Atom feed. When the feed only carries
// a summary and extraction is enabled, it fetches the article page and runs
// readability; items still below the minimum word count after that are
// dropped at the boundary so summaries never enter the pipeline.
type RSSAdapter struct {
	name      string
	feedURL   string
	languages []content.Language
	extract   bool
	minWords  int
	client    *http.Client
	parser    *gofeed.Parser
	extractor *Extractor
	userAgent string
}

func NewRSSAdapter(config *Config, languages []content.Language, deps Deps) *RSSAdapter {
	return &RSSAdapter{
		name:      config.Name,
		feedURL:   config.RSS.URL,
		languages: languages,
		extract:   config.RSS.ExtractContent,
		minWords:  deps.MinWordCount,
		client:    deps.HTTPClient,
		parser:    gofeed.NewParser(),
		extractor: deps.Extractor,
		userAgent: deps.UserAgent,
	}
}

func (a *RSSAdapter) Name() string {
	return a.name
}

func (a *RSSAdapter) Kind() Kind {
	return KindRSS
}

func (a *RSSAdapter) Languages() []content.Language {
	return a.languages
}

func (a *RSSAdapter) Fetch(ctx context.Context, lang content.Language, maxItems int) ([]content.Item, error) {
	if !supportsLanguage(a.languages, lang) {
		return nil, nil
	}

	data, _, err := fetchURL(ctx, a.client, a.feedURL, a.userAgent, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", a.name, err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", a.name, err)
	}

	feedLang, feedLangKnown := content.ParseLanguage(feed.Language)

	var errs []error
	items := make([]content.Item, 0, maxItems)
	for _, feedItem := range feed.Items {
		if len(items) >= maxItems {
			break
		}
		if feedItem.Link == "" || feedItem.Title == "" {
			continue
		}
		if feedLangKnown && feedLang != lang {
			continue
		}

		body := htmlToText(cmp.Or(feedItem.Content, feedItem.Description))

		if content.WordCount(body) < a.minWords && a.extract {
			extracted, err := a.extractBody(ctx, feedItem.Link)
			if err != nil {
				errs = append(errs, fmt.Errorf("extract %s: %w", feedItem.Link, err))
			} else {
				body = extracted
			}
		}

		if content.WordCount(body) < a.minWords {
			slog.Debug("Feed item below minimum word count, dropped at adapter boundary",
				"source", a.name, "url", feedItem.Link, "words", content.WordCount(body))
			continue
		}

		items = append(items, content.Item{
			SourceType: content.SourceRSS,
			SourceName: a.name,
			URL:        feedItem.Link,
			Title:      feedItem.Title,
			RawText:    body,
			Language:   lang,
		})
	}

	return items, errors.Join(errs...)
}

func (a *RSSAdapter) extractBody(ctx context.Context, pageURL string) (string, error) {
	page, _, err := fetchURL(ctx, a.client, pageURL, a.userAgent, nil)
	if err != nil {
		return "", err
	}

	_, text, err := a.extractor.Run(page, pageURL)
	if err != nil {
		return "", err
	}

	return text, nil
}

// htmlToText strips markup from feed-provided HTML fragments.
func htmlToText(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}

func supportsLanguage(languages []content.Language, lang content.Language) bool {
	for _, supported := range languages {
		if supported == lang {
			return true
		}
	}
	return false
}
