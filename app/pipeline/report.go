package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loqui-app/news-harvester/app/database"
)

// reportBuilder accumulates cycle telemetry under a mutex; adapter workers
// and the filtering loop write to it concurrently. finalize produces the
// immutable database.Report snapshot.
type reportBuilder struct {
	mu        sync.Mutex
	id        string
	trigger   string
	startedAt time.Time

	fetched        int
	validated      int
	deduped        int
	accepted       int
	skippedQuota   int
	providerErrors int
	rejections     map[string]int
	providers      map[string]database.ProviderStats
	errors         []string
}

func newReportBuilder(trigger string) *reportBuilder {
	return &reportBuilder{
		id:         uuid.NewString(),
		trigger:    trigger,
		startedAt:  time.Now().UTC(),
		rejections: make(map[string]int),
		providers:  make(map[string]database.ProviderStats),
	}
}

func (b *reportBuilder) recordFetch(provider string, items int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.fetched += items
	stats := b.providers[provider]
	stats.Calls++
	stats.Items += items
	b.providers[provider] = stats
}

func (b *reportBuilder) recordProviderError(provider string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.providerErrors++
	stats := b.providers[provider]
	stats.Errors++
	b.providers[provider] = stats
	b.errors = append(b.errors, fmt.Sprintf("provider %s: %v", provider, err))
}

func (b *reportBuilder) recordSkippedQuota(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.skippedQuota++
	stats := b.providers[provider]
	stats.SkippedQuota++
	b.providers[provider] = stats
}

func (b *reportBuilder) recordValidated() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validated++
}

func (b *reportBuilder) recordDeduplicated() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deduped++
}

func (b *reportBuilder) recordAccepted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accepted++
}

func (b *reportBuilder) recordRejection(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejections[reason]++
}

func (b *reportBuilder) recordError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, err.Error())
}

func (b *reportBuilder) finalize(status string) *database.Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	finishedAt := time.Now().UTC()

	rejections := make(map[string]int, len(b.rejections))
	for reason, count := range b.rejections {
		rejections[reason] = count
	}
	providers := make(map[string]database.ProviderStats, len(b.providers))
	for provider, stats := range b.providers {
		providers[provider] = stats
	}
	errs := make([]string, len(b.errors))
	copy(errs, b.errors)

	return &database.Report{
		ID:             b.id,
		Trigger:        b.trigger,
		Status:         status,
		StartedAt:      b.startedAt,
		FinishedAt:     finishedAt,
		DurationMS:     finishedAt.Sub(b.startedAt).Milliseconds(),
		Fetched:        b.fetched,
		Validated:      b.validated,
		Deduped:        b.deduped,
		Accepted:       b.accepted,
		SkippedQuota:   b.skippedQuota,
		ProviderErrors: b.providerErrors,
		Rejections:     rejections,
		Providers:      providers,
		Errors:         errs,
	}
}
