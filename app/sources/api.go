package sources

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/loqui-app/news-harvester/app/content"
)

// QuotaObserver receives the provider's own rate-limit accounting when a
// response carries it, so the quota tracker can follow the provider's
// numbers instead of relying on local counting alone.
type QuotaObserver func(provider string, used, limit int64)

// APIAdapter talks to a commercial news API with a newsdata.io-shaped JSON
// contract: a paged article list filtered by language and query, keyed by an
// X-API-Key header.
type APIAdapter struct {
	name      string
	endpoint  string
	apiKey    string
	query     string
	pageSize  int
	languages []content.Language
	client    *http.Client
	observer  QuotaObserver
	userAgent string
}

type apiResponse struct {
	Status  string       `json:"status"`
	Results []apiArticle `json:"results"`
}

type apiArticle struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	Content     string   `json:"content"`
	Language    string   `json:"language"`
	Country     []string `json:"country"`
	Category    []string `json:"category"`
}

func NewAPIAdapter(config *Config, languages []content.Language, deps Deps) *APIAdapter {
	return &APIAdapter{
		name:      config.Name,
		endpoint:  config.API.Endpoint,
		apiKey:    config.API.APIKey,
		query:     config.API.Query,
		pageSize:  config.API.PageSize,
		languages: languages,
		client:    deps.HTTPClient,
		observer:  deps.QuotaObserver,
		userAgent: deps.UserAgent,
	}
}

func (a *APIAdapter) Name() string {
	return a.name
}

func (a *APIAdapter) Kind() Kind {
	return KindAPI
}

func (a *APIAdapter) Languages() []content.Language {
	return a.languages
}

func (a *APIAdapter) Fetch(ctx context.Context, lang content.Language, maxItems int) ([]content.Item, error) {
	if !supportsLanguage(a.languages, lang) {
		return nil, nil
	}

	requestURL, err := a.buildURL(lang, maxItems)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{"X-API-Key": a.apiKey}
	data, respHeaders, err := fetchURL(ctx, a.client, requestURL, a.userAgent, headers)
	a.reportQuota(respHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", a.name, err)
	}

	var response apiResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", a.name, err)
	}
	if response.Status != "" && response.Status != "success" {
		return nil, fmt.Errorf("provider %s returned status %q", a.name, response.Status)
	}

	var errs []error
	items := make([]content.Item, 0, len(response.Results))
	for _, article := range response.Results {
		if len(items) >= maxItems {
			break
		}

		if article.Link == "" || article.Title == "" {
			errs = append(errs, fmt.Errorf("malformed article from %s: missing title or link", a.name))
			continue
		}

		itemLang := lang
		if parsed, ok := content.ParseLanguage(article.Language); ok {
			itemLang = parsed
		}
		if itemLang != lang {
			continue
		}

		geo := ""
		if len(article.Country) > 0 {
			geo = article.Country[0]
		}

		items = append(items, content.Item{
			SourceType:      content.SourceAPI,
			SourceName:      a.name,
			URL:             article.Link,
			Title:           article.Title,
			RawText:         htmlToText(cmp.Or(article.Content, article.Description)),
			Language:        itemLang,
			GeographicFocus: geo,
		})
	}

	return items, errors.Join(errs...)
}

func (a *APIAdapter) buildURL(lang content.Language, maxItems int) (string, error) {
	parsed, err := url.Parse(a.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint for %s: %w", a.name, err)
	}

	size := a.pageSize
	if maxItems < size {
		size = maxItems
	}

	query := parsed.Query()
	query.Set("language", string(lang))
	query.Set("size", strconv.Itoa(size))
	if a.query != "" {
		query.Set("q", a.query)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// reportQuota forwards X-RateLimit headers, when present, to the quota
// tracker via the observer callback.
func (a *APIAdapter) reportQuota(headers http.Header) {
	if a.observer == nil || headers == nil {
		return
	}

	limit, err := strconv.ParseInt(headers.Get("X-RateLimit-Limit"), 10, 64)
	if err != nil || limit <= 0 {
		return
	}
	remaining, err := strconv.ParseInt(headers.Get("X-RateLimit-Remaining"), 10, 64)
	if err != nil || remaining < 0 {
		return
	}

	a.observer(a.name, limit-remaining, limit)
}
