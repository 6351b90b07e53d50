package pipeline

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqui-app/news-harvester/app/analysis"
	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/database"
	"github.com/loqui-app/news-harvester/app/filter"
	"github.com/loqui-app/news-harvester/app/sources"
)

// Orchestrator cycle states.
const (
	StateIdle       = "idle"
	StateLocking    = "locking"
	StateFetching   = "fetching"
	StateFiltering  = "filtering"
	StateFinalizing = "finalizing"
)

// Config carries the orchestrator's runtime knobs.
type Config struct {
	Languages        []content.Language
	MaxConcurrent    int
	FetchTimeout     time.Duration
	FetchRetries     int
	MaxItemsPerFetch int
}

// Orchestrator runs one acquisition cycle at a time: acquire the cycle lock,
// fetch from all adapters with bounded parallelism, push every raw item
// through Validator -> Deduplicator -> Classifier -> Diversity, hand the
// accepted items to analysis, persist the report, release the lock.
type Orchestrator struct {
	cfg       Config
	lock      *CycleLock
	quota     *filter.QuotaTracker
	validator *filter.Validator
	dedup     *filter.Deduplicator
	diversity *filter.DiversityEngine
	adapters  []sources.Adapter
	classify  content.Classifier
	enqueuer  analysis.Enqueuer
	reports   database.ReportRepository

	state  atomic.Value // string
	latest atomic.Pointer[database.Report]
}

func NewOrchestrator(cfg Config, lock *CycleLock, quota *filter.QuotaTracker,
	validator *filter.Validator, dedup *filter.Deduplicator, diversity *filter.DiversityEngine,
	adapters []sources.Adapter, classify content.Classifier, enqueuer analysis.Enqueuer,
	reports database.ReportRepository) *Orchestrator {

	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MaxItemsPerFetch <= 0 {
		cfg.MaxItemsPerFetch = 20
	}

	o := &Orchestrator{
		cfg:       cfg,
		lock:      lock,
		quota:     quota,
		validator: validator,
		dedup:     dedup,
		diversity: diversity,
		adapters:  adapters,
		classify:  classify,
		enqueuer:  enqueuer,
		reports:   reports,
	}
	o.state.Store(StateIdle)

	return o
}

func (o *Orchestrator) State() string {
	return o.state.Load().(string)
}

func (o *Orchestrator) Running() bool {
	return o.State() != StateIdle
}

// LatestReport returns the most recently finalized report, nil before the
// first cycle completes.
func (o *Orchestrator) LatestReport() *database.Report {
	return o.latest.Load()
}

// RunCycle executes one acquisition cycle and always returns a finalized
// report, including for skipped and aborted cycles.
func (o *Orchestrator) RunCycle(ctx context.Context, trigger string) *database.Report {
	o.state.Store(StateLocking)
	defer o.state.Store(StateIdle)

	rb := newReportBuilder(trigger)

	token, ok, err := o.lock.Acquire(ctx)
	if err != nil {
		slog.Error("Cycle lock acquisition failed", "error", err)
		rb.recordError(err)
		return o.finish(rb, database.StatusAborted)
	}
	if !ok {
		slog.Info("Acquisition cycle already in progress, skipping", "trigger", trigger)
		return o.finish(rb, database.StatusSkipped)
	}

	slog.Info("Acquisition cycle started", "trigger", trigger, "adapters", len(o.adapters))

	cycleCtx, cancelCycle := context.WithCancel(ctx)
	defer cancelCycle()

	var lockLost atomic.Bool
	renewDone := make(chan struct{})
	go o.renewLoop(cycleCtx, cancelCycle, token, &lockLost, renewDone)

	o.state.Store(StateFetching)
	raw := o.fetchAll(cycleCtx, rb)

	o.state.Store(StateFiltering)
	accepted := o.filterAll(cycleCtx, rb, raw)

	o.state.Store(StateFinalizing)

	// Accepted items are handed off even when the cycle is aborting;
	// nothing past Filtering gets lost.
	handoffCtx, cancelHandoff := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancelHandoff()
	o.handoff(handoffCtx, rb, accepted)

	cancelCycle()
	<-renewDone

	status := database.StatusCompleted
	if lockLost.Load() {
		status = database.StatusAborted
		rb.recordError(ErrLockLost)
	} else {
		if ctx.Err() != nil {
			status = database.StatusAborted
		}

		releaseCtx, cancelRelease := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := o.lock.Release(releaseCtx, token); err != nil {
			slog.Warn("Cycle lock release failed", "error", err)
		}
		cancelRelease()
	}

	report := o.finish(rb, status)
	slog.Info("Acquisition cycle finished",
		"status", report.Status,
		"duration_ms", report.DurationMS,
		"fetched", report.Fetched,
		"validated", report.Validated,
		"deduped", report.Deduped,
		"accepted", report.Accepted,
		"skipped_quota", report.SkippedQuota,
		"provider_errors", report.ProviderErrors)

	return report
}

// renewLoop keeps the lease alive for long cycles. A failed renewal aborts
// the cycle: with no valid lock the pipeline must not keep working.
func (o *Orchestrator) renewLoop(ctx context.Context, cancel context.CancelFunc,
	token string, lockLost *atomic.Bool, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(o.lock.Lease() / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.lock.Renew(ctx, token); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("Cycle lock renewal failed, aborting cycle", "error", err)
				lockLost.Store(true)
				cancel()
				return
			}
			slog.Debug("Cycle lock renewed")
		}
	}
}

type fetchJob struct {
	adapter sources.Adapter
	lang    content.Language
}

// fetchAll runs all (adapter, language) jobs through a fixed-size worker
// pool. Each job consults the quota tracker first and retries transient
// provider errors with jittered exponential backoff.
func (o *Orchestrator) fetchAll(ctx context.Context, rb *reportBuilder) []content.Item {
	var jobs []fetchJob
	for _, adapter := range o.adapters {
		for _, lang := range o.cfg.Languages {
			if supportsLanguage(adapter, lang) {
				jobs = append(jobs, fetchJob{adapter: adapter, lang: lang})
			}
		}
	}
	if len(jobs) == 0 {
		return nil
	}

	workers := o.cfg.MaxConcurrent
	if len(jobs) < workers {
		workers = len(jobs)
	}

	jobsCh := make(chan fetchJob)
	resultsCh := make(chan []content.Item)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsCh {
				// Stop launching provider calls once the cycle is cancelled.
				if ctx.Err() != nil {
					continue
				}
				resultsCh <- o.runFetchJob(ctx, rb, job)
			}
		}()
	}

	go func() {
		for _, job := range jobs {
			jobsCh <- job
		}
		close(jobsCh)
		wg.Wait()
		close(resultsCh)
	}()

	var raw []content.Item
	for items := range resultsCh {
		raw = append(raw, items...)
	}

	return raw
}

func (o *Orchestrator) runFetchJob(ctx context.Context, rb *reportBuilder, job fetchJob) []content.Item {
	provider := job.adapter.Name()

	if !o.quota.Allow(ctx, provider) {
		slog.Info("Provider quota exhausted, skipping fetch", "provider", provider, "language", job.lang)
		rb.recordSkippedQuota(provider)
		return nil
	}

	items, err := o.fetchWithRetry(ctx, job)
	rb.recordFetch(provider, len(items))
	if err != nil {
		slog.Warn("Provider fetch failed", "provider", provider, "language", job.lang, "items", len(items), "error", err)
		rb.recordProviderError(provider, err)
	} else {
		slog.Debug("Provider fetch completed", "provider", provider, "language", job.lang, "items", len(items))
	}

	return items
}

func (o *Orchestrator) fetchWithRetry(ctx context.Context, job fetchJob) ([]content.Item, error) {
	var lastErr error

	for attempt := 0; attempt <= o.cfg.FetchRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoffDelay(attempt)); err != nil {
				return nil, lastErr
			}
			slog.Debug("Retrying provider fetch", "provider", job.adapter.Name(), "attempt", attempt)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
		items, err := job.adapter.Fetch(attemptCtx, job.lang, o.cfg.MaxItemsPerFetch)
		cancel()

		if err == nil {
			return items, nil
		}
		// Partial results count: the call reached the provider, so the
		// per-item failures are reported without retrying the whole fetch.
		if len(items) > 0 {
			return items, err
		}
		if !sources.IsTransient(err) || ctx.Err() != nil {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay returns an exponential delay (base 1s, factor 2) with jitter.
func backoffDelay(attempt int) time.Duration {
	base := time.Second << uint(attempt-1)
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type bucketKey struct {
	lang  content.Language
	topic string
}

// filterAll runs every raw item through the filter chain in fixed order:
// cheapest, most certain rejection first. Survivors are grouped by
// (language, topic) so the diversity engine can order same-topic candidates
// by source rotation before the hard cap applies.
func (o *Orchestrator) filterAll(ctx context.Context, rb *reportBuilder, raw []content.Item) []content.Item {
	buckets := make(map[bucketKey][]content.Item)
	var order []bucketKey

	for _, rawItem := range raw {
		if ctx.Err() != nil {
			break
		}

		item, reason := o.validator.Validate(rawItem)
		if reason != "" {
			slog.Debug("Item rejected by validator", "url", rawItem.URL, "reason", reason)
			rb.recordRejection(reason)
			continue
		}
		rb.recordValidated()

		dup, err := o.dedup.IsDuplicate(ctx, item)
		if err != nil {
			// Prefer a false negative over dropping a possibly new story.
			slog.Warn("Duplicate check failed, treating item as new", "url", item.URL, "error", err)
			dup = false
		}
		if !dup {
			recorded, err := o.dedup.Record(ctx, item)
			if err != nil {
				slog.Warn("Fingerprint recording failed", "url", item.URL, "error", err)
			} else if !recorded {
				dup = true
			}
		}
		if dup {
			slog.Debug("Item rejected as duplicate", "url", item.URL)
			rb.recordRejection(filter.ReasonDuplicate)
			continue
		}
		rb.recordDeduplicated()

		topic, geo := o.classify(item.Title, item.RawText, item.Language)
		item = item.WithTopic(topic, geo)

		key := bucketKey{lang: item.Language, topic: item.TopicCategory}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].lang != order[j].lang {
			return order[i].lang < order[j].lang
		}
		return order[i].topic < order[j].topic
	})

	var accepted []content.Item
	seenGeos := make(map[string]bool)
	for _, key := range order {
		if ctx.Err() != nil {
			break
		}

		for _, item := range o.diversity.OrderCandidates(ctx, buckets[key], seenGeos) {
			ok, err := o.diversity.RecordAccepted(ctx, item)
			if err != nil {
				// Fail closed: without a working counter the cap cannot
				// be guaranteed, so the item is not accepted.
				slog.Warn("Diversity check failed, rejecting item", "url", item.URL, "error", err)
				rb.recordRejection(filter.ReasonTopicCap)
				continue
			}
			if !ok {
				slog.Debug("Item rejected by topic cap",
					"url", item.URL, "language", item.Language, "topic", item.TopicCategory)
				rb.recordRejection(filter.ReasonTopicCap)
				continue
			}

			rb.recordAccepted()
			if item.GeographicFocus != "" {
				seenGeos[item.GeographicFocus] = true
			}
			accepted = append(accepted, item)
		}
	}

	return accepted
}

// handoff enqueues accepted items for downstream analysis. Enqueue failures
// are recorded but never abort the cycle.
func (o *Orchestrator) handoff(ctx context.Context, rb *reportBuilder, accepted []content.Item) {
	for _, item := range accepted {
		if err := o.enqueuer.Enqueue(ctx, item); err != nil {
			slog.Warn("Analysis handoff failed", "url", item.URL, "error", err)
			rb.recordError(err)
		}
	}
}

func (o *Orchestrator) finish(rb *reportBuilder, status string) *database.Report {
	report := rb.finalize(status)
	o.latest.Store(report)

	if o.reports != nil {
		if err := o.reports.SaveReport(report); err != nil {
			slog.Error("Failed to persist acquisition report", "report_id", report.ID, "error", err)
		}
	}

	return report
}

func supportsLanguage(adapter sources.Adapter, lang content.Language) bool {
	for _, supported := range adapter.Languages() {
		if supported == lang {
			return true
		}
	}
	return false
}
