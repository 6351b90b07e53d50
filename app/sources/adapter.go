package sources

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Deps carries the shared collaborators adapters are built with.
type Deps struct {
	HTTPClient    *http.Client
	Extractor     *Extractor
	UserAgent     string
	MinWordCount  int
	ScrapeLimiter *rate.Limiter
	QuotaObserver QuotaObserver
}

// NewAdapter builds the adapter matching the config's kind. The source kinds
// form a closed set; configuration selects one typed implementation per
// source at startup.
func NewAdapter(config *Config, deps Deps) (Adapter, error) {
	languages, err := config.ParsedLanguages()
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", config.Name, err)
	}

	switch config.Kind {
	case KindRSS:
		return NewRSSAdapter(config, languages, deps), nil
	case KindAPI:
		return NewAPIAdapter(config, languages, deps), nil
	case KindScrape:
		return NewScrapeAdapter(config, languages, deps), nil
	}

	return nil, fmt.Errorf("source %s: unknown kind %q", config.Name, config.Kind)
}

// BuildAdapters constructs adapters for all enabled sources in stable order.
func BuildAdapters(configCache *ConfigCache, deps Deps) ([]Adapter, error) {
	configs := configCache.GetEnabledConfigs()

	adapters := make([]Adapter, 0, len(configs))
	for _, config := range configs {
		adapter, err := NewAdapter(config, deps)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}

	return adapters, nil
}
