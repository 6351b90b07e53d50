package sources

import (
	"context"
	"fmt"

	"github.com/loqui-app/news-harvester/app/content"
)

type Kind string

const (
	KindRSS    Kind = "rss"
	KindAPI    Kind = "api"
	KindScrape Kind = "scrape"
)

// Adapter fetches raw candidate items from one provider and maps them into
// content.Item values. Adapters own provider I/O only; quota, dedup and
// diversity decisions belong to the orchestrator's filter chain.
//
// Fetch returns the items it managed to collect together with any error: a
// single malformed item never aborts the whole fetch.
type Adapter interface {
	Name() string
	Kind() Kind
	Languages() []content.Language
	Fetch(ctx context.Context, lang content.Language, maxItems int) ([]content.Item, error)
}

// Configuration types, one YAML file per source in the sources directory.

type Config struct {
	Name      string         // Derived from filename (without .yml extension)
	Kind      Kind           `yaml:"kind"`
	Languages []string       `yaml:"languages"`
	Settings  ConfigSettings `yaml:"settings"`
	Quota     ConfigQuota    `yaml:"quota"`

	RSS    *RSSConfig    `yaml:"rss"`
	API    *APIConfig    `yaml:"api"`
	Scrape *ScrapeConfig `yaml:"scrape"`
}

type ConfigSettings struct {
	Enabled  bool `yaml:"enabled"`
	MaxItems int  `yaml:"max_items"`
	Timeout  int  `yaml:"timeout"` // seconds
}

// ConfigQuota caps how often this provider may be called. Zero means no
// limit for that window.
type ConfigQuota struct {
	Daily   int64 `yaml:"daily"`
	Monthly int64 `yaml:"monthly"`
}

type RSSConfig struct {
	URL            string `yaml:"url"`
	ExtractContent bool   `yaml:"extract_content"` // fetch article page when the feed only carries a summary
}

type APIConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Query    string `yaml:"query"`
	PageSize int    `yaml:"page_size"`
}

type ScrapeConfig struct {
	IndexURL     string `yaml:"index_url"`
	LinkSelector string `yaml:"link_selector"`
	MaxLinks     int    `yaml:"max_links"`
}

// ParsedLanguages maps the config's language tags onto pipeline languages.
func (c *Config) ParsedLanguages() ([]content.Language, error) {
	languages := make([]content.Language, 0, len(c.Languages))
	for _, tag := range c.Languages {
		lang, ok := content.ParseLanguage(tag)
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", tag)
		}
		languages = append(languages, lang)
	}
	return languages, nil
}
