package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/loqui-app/news-harvester/app/content"
)

// ScrapeAdapter is the fallback source: it collects article links from a
// section index page via a CSS selector and extracts each article body with
// readability. A shared rate limiter keeps scraping polite; pages for one
// source are fetched sequentially.
type ScrapeAdapter struct {
	name      string
	indexURL  string
	selector  string
	maxLinks  int
	languages []content.Language
	client    *http.Client
	extractor *Extractor
	limiter   *rate.Limiter
	userAgent string
}

func NewScrapeAdapter(config *Config, languages []content.Language, deps Deps) *ScrapeAdapter {
	return &ScrapeAdapter{
		name:      config.Name,
		indexURL:  config.Scrape.IndexURL,
		selector:  config.Scrape.LinkSelector,
		maxLinks:  config.Scrape.MaxLinks,
		languages: languages,
		client:    deps.HTTPClient,
		extractor: deps.Extractor,
		limiter:   deps.ScrapeLimiter,
		userAgent: deps.UserAgent,
	}
}

func (a *ScrapeAdapter) Name() string {
	return a.name
}

func (a *ScrapeAdapter) Kind() Kind {
	return KindScrape
}

func (a *ScrapeAdapter) Languages() []content.Language {
	return a.languages
}

func (a *ScrapeAdapter) Fetch(ctx context.Context, lang content.Language, maxItems int) ([]content.Item, error) {
	if !supportsLanguage(a.languages, lang) {
		return nil, nil
	}

	links, err := a.collectLinks(ctx)
	if err != nil {
		return nil, err
	}

	limit := maxItems
	if a.maxLinks < limit {
		limit = a.maxLinks
	}
	if len(links) > limit {
		links = links[:limit]
	}

	var errs []error
	items := make([]content.Item, 0, len(links))
	for _, link := range links {
		if err := a.wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}

		page, _, err := fetchURL(ctx, a.client, link, a.userAgent, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch %s: %w", link, err))
			continue
		}

		title, text, err := a.extractor.Run(page, link)
		if err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", link, err))
			continue
		}

		items = append(items, content.Item{
			SourceType: content.SourceScrape,
			SourceName: a.name,
			URL:        link,
			Title:      title,
			RawText:    text,
			Language:   lang,
		})
	}

	return items, errors.Join(errs...)
}

func (a *ScrapeAdapter) collectLinks(ctx context.Context) ([]string, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}

	data, _, err := fetchURL(ctx, a.client, a.indexURL, a.userAgent, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index %s: %w", a.name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse index %s: %w", a.name, err)
	}

	base, err := url.Parse(a.indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index URL for %s: %w", a.name, err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find(a.selector).Each(func(_ int, selection *goquery.Selection) {
		href, ok := selection.Attr("href")
		if !ok || href == "" {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		link := resolved.String()

		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links, nil
}

func (a *ScrapeAdapter) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
