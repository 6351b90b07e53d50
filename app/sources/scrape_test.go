package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/loqui-app/news-harvester/app/content"
)

func scrapeConfig(name, indexURL string, maxLinks int) *Config {
	return &Config{
		Name: name,
		Kind: KindScrape,
		Scrape: &ScrapeConfig{
			IndexURL:     indexURL,
			LinkSelector: "a.headline",
			MaxLinks:     maxLinks,
		},
	}
}

func scrapeArticlePage(title string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
	<header><nav>Navigation</nav></header>
	<article>
		<h1>%s</h1>
		<p>This is the main content of the article. It contains several paragraphs of meaningful
		text that should be extracted by the readability algorithm without the surrounding
		navigation noise.</p>
		<p>This is another paragraph with more content. The readability algorithm should identify
		this as the main content area and extract it properly for the scrape adapter.</p>
		<p>Here is some more substantial content to ensure the extraction threshold is met. This
		paragraph adds further context and information that would be valuable to readers.</p>
	</article>
	<footer><p>Copyright 2026</p></footer>
</body>
</html>`, title, title)
}

func TestScrapeAdapterFetch(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/portada", func(w http.ResponseWriter, r *http.Request) {
		// Relative links, one duplicate, one link outside the selector.
		fmt.Fprint(w, `
<html><body>
	<a class="headline" href="/articles/one">Story one</a>
	<a class="headline" href="/articles/two">Story two</a>
	<a class="headline" href="/articles/one">Story one again</a>
	<a class="other" href="/articles/three">Not an article link</a>
</body></html>`)
	})
	mux.HandleFunc("/articles/one", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scrapeArticlePage("First scraped story"))
	})
	mux.HandleFunc("/articles/two", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scrapeArticlePage("Second scraped story"))
	})

	adapter := NewScrapeAdapter(scrapeConfig("scrape-test", server.URL+"/portada", 10),
		[]content.Language{content.LanguageSpanish}, Deps{
			HTTPClient:    http.DefaultClient,
			Extractor:     NewExtractor(),
			UserAgent:     "news-harvester-test/1.0",
			ScrapeLimiter: rate.NewLimiter(rate.Inf, 1),
		})

	items, err := adapter.Fetch(context.Background(), content.LanguageSpanish, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].URL != server.URL+"/articles/one" {
		t.Errorf("Expected resolved absolute URL, got %s", items[0].URL)
	}
	if items[0].SourceType != content.SourceScrape || items[0].SourceName != "scrape-test" {
		t.Errorf("Unexpected source fields: %s %s", items[0].SourceType, items[0].SourceName)
	}
	if items[0].Language != content.LanguageSpanish {
		t.Errorf("Expected language es, got %s", items[0].Language)
	}
	if !strings.Contains(items[0].RawText, "main content of the article") {
		t.Errorf("Expected the extracted article body, got %q", items[0].RawText)
	}
	if items[1].Title != "Second scraped story" {
		t.Errorf("Unexpected second title: %s", items[1].Title)
	}
}

func TestScrapeAdapterMaxLinks(t *testing.T) {
	var articleRequests atomic.Int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/portada", func(w http.ResponseWriter, r *http.Request) {
		var links strings.Builder
		for i := 0; i < 6; i++ {
			fmt.Fprintf(&links, `<a class="headline" href="/articles/%d">Story %d</a>`, i, i)
		}
		fmt.Fprintf(w, "<html><body>%s</body></html>", links.String())
	})
	mux.HandleFunc("/articles/", func(w http.ResponseWriter, r *http.Request) {
		articleRequests.Add(1)
		fmt.Fprint(w, scrapeArticlePage("Story "+r.URL.Path))
	})

	adapter := NewScrapeAdapter(scrapeConfig("scrape-test", server.URL+"/portada", 2),
		[]content.Language{content.LanguageEnglish}, Deps{
			HTTPClient:    http.DefaultClient,
			Extractor:     NewExtractor(),
			UserAgent:     "news-harvester-test/1.0",
			ScrapeLimiter: rate.NewLimiter(rate.Inf, 1),
		})

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err != nil {
		t.Fatal(err)
	}

	if len(items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(items))
	}
	if got := articleRequests.Load(); got != 2 {
		t.Errorf("Expected 2 article page fetches, got %d", got)
	}
}

func TestScrapeAdapterPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/portada", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `
<html><body>
	<a class="headline" href="/articles/broken">Broken story</a>
	<a class="headline" href="/articles/good">Good story</a>
</body></html>`)
	})
	mux.HandleFunc("/articles/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/articles/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scrapeArticlePage("Good story"))
	})

	adapter := NewScrapeAdapter(scrapeConfig("scrape-test", server.URL+"/portada", 10),
		[]content.Language{content.LanguageEnglish}, Deps{
			HTTPClient:    http.DefaultClient,
			Extractor:     NewExtractor(),
			UserAgent:     "news-harvester-test/1.0",
			ScrapeLimiter: rate.NewLimiter(rate.Inf, 1),
		})

	items, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err == nil {
		t.Fatal("Expected the broken page to be reported")
	}

	// One dead link never costs the rest of the batch.
	if len(items) != 1 || items[0].Title != "Good story" {
		t.Errorf("Expected the good story to survive, got %v", items)
	}
}

func TestScrapeAdapterIndexFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewScrapeAdapter(scrapeConfig("scrape-test", server.URL+"/portada", 10),
		[]content.Language{content.LanguageEnglish}, Deps{
			HTTPClient:    http.DefaultClient,
			Extractor:     NewExtractor(),
			UserAgent:     "news-harvester-test/1.0",
			ScrapeLimiter: rate.NewLimiter(rate.Inf, 1),
		})

	_, err := adapter.Fetch(context.Background(), content.LanguageEnglish, 20)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected a 503 to classify as transient, got %v", err)
	}
}
