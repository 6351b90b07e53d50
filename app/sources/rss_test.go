package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loqui-app/news-harvester/app/content"
)

const articlePage = `
<!DOCTYPE html>
<html>
<head>
	<title>Extracted Article Title</title>
</head>
<body>
	<header><nav>Navigation</nav></header>
	<main>
		<article>
			<h1>Extracted Article Title</h1>
			<p>This is the main content of the article. It contains several paragraphs of meaningful
			text that should be extracted by the readability algorithm without the surrounding
			navigation and advertisement noise.</p>
			<p>This is another paragraph with more content. The readability algorithm should identify
			this as the main content area and extract it properly, keeping the word count well above
			the adapter's minimum.</p>
			<p>Here is some more substantial content to ensure the extraction threshold is met. This
			paragraph adds further context and information that would be valuable to readers of the
			article.</p>
		</article>
	</main>
	<footer><p>Copyright 2026</p></footer>
</body>
</html>
`

func rssTestDeps(minWords int) Deps {
	return Deps{
		HTTPClient:   http.DefaultClient,
		Extractor:    NewExtractor(),
		UserAgent:    "news-harvester-test/1.0",
		MinWordCount: minWords,
	}
}

func rssConfig(name, feedURL string, extract bool) *Config {
	return &Config{
		Name: name,
		Kind: KindRSS,
		RSS:  &RSSConfig{URL: feedURL, ExtractContent: extract},
	}
}

func feedXML(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<link>https://example.com</link>
<language>en</language>
` + items + `
</channel>
</rss>`
}

func fullContentItem(n int) string {
	words := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("word%d%d", n, i))
	}
	return fmt.Sprintf(`<item>
<title>Full story number %d</title>
<link>https://example.com/articles/%d</link>
<description><![CDATA[<p>%s</p>]]></description>
</item>`, n, n, strings.Join(words, " "))
}

func TestRSSAdapterFetchFullContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML(fullContentItem(1)+fullContentItem(2)))
	}))
	defer server.Close()

	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL, false),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(10))

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Title != "Full story number 1" {
		t.Errorf("Unexpected title: %s", items[0].Title)
	}
	if items[0].SourceType != content.SourceRSS || items[0].SourceName != "test-feed" {
		t.Errorf("Unexpected source fields: %s %s", items[0].SourceType, items[0].SourceName)
	}
	if items[0].Language != content.LanguageEnglish {
		t.Errorf("Expected language en, got %s", items[0].Language)
	}
	if strings.Contains(items[0].RawText, "<p>") {
		t.Errorf("Expected markup to be stripped, got %q", items[0].RawText)
	}
	if content.WordCount(items[0].RawText) != 40 {
		t.Errorf("Expected 40 words, got %d", content.WordCount(items[0].RawText))
	}
}

func TestRSSAdapterFetchExtractsSummaryOnlyItems(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		item := fmt.Sprintf(`<item>
<title>Summary only story</title>
<link>%s/articles/summary</link>
<description>Short teaser text.</description>
</item>`, server.URL)
		fmt.Fprint(w, feedXML(item))
	})
	mux.HandleFunc("/articles/summary", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage)
	})

	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL+"/feed.xml", true),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(30))

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if !strings.Contains(items[0].RawText, "main content of the article") {
		t.Errorf("Expected the extracted article body, got %q", items[0].RawText)
	}
	if strings.Contains(items[0].RawText, "Navigation") {
		t.Errorf("Expected navigation chrome to be excluded, got %q", items[0].RawText)
	}
}

func TestRSSAdapterDropsItemsBelowMinimumWordCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := `<item>
<title>Teaser only</title>
<link>https://example.com/articles/teaser</link>
<description>Just a few words.</description>
</item>`
		fmt.Fprint(w, feedXML(item+fullContentItem(1)))
	}))
	defer server.Close()

	// Extraction disabled: the summary-only item must be dropped at the
	// adapter boundary instead of entering the pipeline.
	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL, false),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(10))

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Full story number 1" {
		t.Errorf("Expected only the full story to survive, got %s", items[0].Title)
	}
}

func TestRSSAdapterRespectsMaxItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items strings.Builder
		for i := 1; i <= 8; i++ {
			items.WriteString(fullContentItem(i))
		}
		fmt.Fprint(w, feedXML(items.String()))
	}))
	defer server.Close()

	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL, false),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(10))

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Errorf("Expected 3 items, got %d", len(items))
	}
}

func TestRSSAdapterSkipsFeedInOtherLanguage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedXML(fullContentItem(1)))
	}))
	defer server.Close()

	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL, false),
		[]content.Language{content.LanguageEnglish, content.LanguageSpanish}, rssTestDeps(10))

	// The feed declares <language>en</language>, so a Spanish pass yields
	// nothing.
	items, err := adapter.Fetch(context.Background(), content.LanguageSpanish, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("Expected 0 items for the Spanish pass, got %d", len(items))
	}
}

func TestRSSAdapterFetchErrorOnServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewRSSAdapter(rssConfig("test-feed", server.URL, false),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(10))

	_, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected a 502 to classify as transient, got %v", err)
	}
}

func TestRSSAdapterUnsupportedLanguage(t *testing.T) {
	adapter := NewRSSAdapter(rssConfig("test-feed", "https://example.com/feed.xml", false),
		[]content.Language{content.LanguageEnglish}, rssTestDeps(10))

	items, err := adapter.Fetch(context.Background(), content.LanguageSpanish, 20)
	if err != nil {
		t.Fatal(err)
	}
	if items != nil {
		t.Errorf("Expected no fetch for an unsupported language, got %v", items)
	}
}
