package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSourceConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".yml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigCacheLoadValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	content := `
kind: rss
languages:
  - en
  - es

settings:
  enabled: true
  max_items: 25
  timeout: 15

quota:
  daily: 100
  monthly: 2000

rss:
  url: "https://example.com/feed.xml"
  extract_content: true
`
	writeSourceConfig(t, tempDir, "test", content)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	if configCache.GetConfigCount() != 1 {
		t.Errorf("Expected 1 config, got %d", configCache.GetConfigCount())
	}

	config, err := configCache.GetConfig("test")
	if err != nil {
		t.Fatal(err)
	}

	if config.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", config.Name)
	}
	if config.Kind != KindRSS {
		t.Errorf("Expected kind rss, got '%s'", config.Kind)
	}
	if config.RSS == nil || config.RSS.URL != "https://example.com/feed.xml" {
		t.Errorf("Unexpected rss config: %+v", config.RSS)
	}
	if !config.RSS.ExtractContent {
		t.Error("Expected extract_content to be true")
	}
	if config.Settings.MaxItems != 25 {
		t.Errorf("Expected max items 25, got %d", config.Settings.MaxItems)
	}
	if config.Quota.Daily != 100 || config.Quota.Monthly != 2000 {
		t.Errorf("Unexpected quota: %+v", config.Quota)
	}
	if len(config.Languages) != 2 {
		t.Errorf("Expected 2 languages, got %d", len(config.Languages))
	}
}

func TestConfigCacheLoadConfigWithDefaults(t *testing.T) {
	tempDir := t.TempDir()

	content := `
kind: api
languages:
  - en

settings:
  enabled: true

api:
  endpoint: "https://api.example.com/v1/news"
  api_key: "secret"
`
	writeSourceConfig(t, tempDir, "minimal", content)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	config, err := configCache.GetConfig("minimal")
	if err != nil {
		t.Fatal(err)
	}

	if config.Settings.MaxItems != 20 {
		t.Errorf("Expected default max items 20, got %d", config.Settings.MaxItems)
	}
	if config.Settings.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Settings.Timeout)
	}
	if config.API.PageSize != 10 {
		t.Errorf("Expected default page size 10, got %d", config.API.PageSize)
	}
	if config.Quota.Daily != 0 {
		t.Errorf("Expected unlimited daily quota, got %d", config.Quota.Daily)
	}
}

func TestConfigCacheInvalidConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing-url",
			content: `
kind: rss
languages: [en]
settings:
  enabled: true
`,
			wantErr: "rss.url",
		},
		{
			name: "missing-api-key",
			content: `
kind: api
languages: [en]
api:
  endpoint: "https://api.example.com/v1/news"
`,
			wantErr: "api_key",
		},
		{
			name: "missing-selector",
			content: `
kind: scrape
languages: [es]
scrape:
  index_url: "https://example.com/portada"
`,
			wantErr: "link_selector",
		},
		{
			name: "unknown-kind",
			content: `
kind: ftp
languages: [en]
`,
			wantErr: "unknown source kind",
		},
		{
			name: "no-languages",
			content: `
kind: rss
rss:
  url: "https://example.com/feed.xml"
`,
			wantErr: "language",
		},
		{
			name: "unsupported-language",
			content: `
kind: rss
languages: [fr]
rss:
  url: "https://example.com/feed.xml"
`,
			wantErr: "unsupported language",
		},
		{
			name: "negative-quota",
			content: `
kind: rss
languages: [en]
quota:
  daily: -1
rss:
  url: "https://example.com/feed.xml"
`,
			wantErr: "non-negative",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSourceConfig(t, tempDir, tc.name, tc.content)

			configCache := NewConfigCache(tempDir)
			err := configCache.Run()
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConfigCacheGetEnabledConfigs(t *testing.T) {
	tempDir := t.TempDir()

	enabled := `
kind: rss
languages: [en]
settings:
  enabled: true
rss:
  url: "https://example.com/feed.xml"
`
	disabled := `
kind: rss
languages: [en]
settings:
  enabled: false
rss:
  url: "https://example.com/other.xml"
`
	writeSourceConfig(t, tempDir, "zeta", enabled)
	writeSourceConfig(t, tempDir, "alpha", enabled)
	writeSourceConfig(t, tempDir, "paused", disabled)

	configCache := NewConfigCache(tempDir)
	if err := configCache.Run(); err != nil {
		t.Fatal(err)
	}

	configs := configCache.GetEnabledConfigs()
	if len(configs) != 2 {
		t.Fatalf("Expected 2 enabled configs, got %d", len(configs))
	}
	if configs[0].Name != "alpha" || configs[1].Name != "zeta" {
		t.Errorf("Expected stable name order [alpha zeta], got [%s %s]", configs[0].Name, configs[1].Name)
	}
}

func TestConfigCacheMissingDirectory(t *testing.T) {
	configCache := NewConfigCache(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := configCache.Run(); err != nil {
		t.Errorf("Expected missing directory to be tolerated, got %v", err)
	}
	if configCache.GetConfigCount() != 0 {
		t.Errorf("Expected 0 configs, got %d", configCache.GetConfigCount())
	}
}
