package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loqui-app/news-harvester/app/store"
)

// QuotaLimits holds the configured call budget per window for one provider.
// A missing or zero entry means the window is unlimited.
type QuotaLimits map[Window]int64

// QuotaUsage is the read-side view of one provider window, used by the admin
// API.
type QuotaUsage struct {
	Window Window `json:"window"`
	Used   int64  `json:"used"`
	Limit  int64  `json:"limit"`
}

// QuotaTracker gates provider calls against daily and monthly budgets. The
// counters live in the shared store under keys that expire at the window
// boundary, so resets need no scheduled job. Increment-and-check is a single
// atomic operation.
type QuotaTracker struct {
	store  store.Store
	mu     sync.RWMutex
	limits map[string]QuotaLimits
	now    func() time.Time
}

func NewQuotaTracker(s store.Store, limits map[string]QuotaLimits) *QuotaTracker {
	if limits == nil {
		limits = make(map[string]QuotaLimits)
	}
	return &QuotaTracker{
		store:  s,
		limits: limits,
		now:    time.Now,
	}
}

// TryConsume atomically takes one unit of the provider's budget for the
// window. Unlimited windows always allow. On store failure the call is
// denied, so a degraded store never lets the pipeline overrun a paid quota.
func (q *QuotaTracker) TryConsume(ctx context.Context, provider string, window Window) bool {
	limit := q.limit(provider, window)
	if limit <= 0 {
		return true
	}

	now := q.now().UTC()
	allowed, err := q.store.IncrWithCap(ctx, quotaKey(provider, window, now), limit, windowTTL(window, now))
	if err != nil {
		slog.Warn("Quota check failed, denying provider call", "provider", provider, "window", window, "error", err)
		return false
	}

	return allowed
}

// Allow consumes one unit from every configured window for the provider.
func (q *QuotaTracker) Allow(ctx context.Context, provider string) bool {
	for _, window := range []Window{WindowDaily, WindowMonthly} {
		if !q.TryConsume(ctx, provider, window) {
			return false
		}
	}
	return true
}

// Sync overwrites the local counter and limit with the provider's own
// rate-limit accounting.
func (q *QuotaTracker) Sync(ctx context.Context, provider string, window Window, used, limit int64) {
	if limit <= 0 {
		return
	}

	q.mu.Lock()
	if q.limits[provider] == nil {
		q.limits[provider] = make(QuotaLimits)
	}
	q.limits[provider][window] = limit
	q.mu.Unlock()

	now := q.now().UTC()
	err := q.store.Set(ctx, quotaKey(provider, window, now), fmt.Sprintf("%d", used), windowTTL(window, now))
	if err != nil {
		slog.Warn("Failed to sync provider quota", "provider", provider, "window", window, "error", err)
		return
	}

	slog.Debug("Provider quota synced", "provider", provider, "window", window, "used", used, "limit", limit)
}

// Usage reports current counters for the provider's configured windows.
func (q *QuotaTracker) Usage(ctx context.Context, provider string) []QuotaUsage {
	now := q.now().UTC()

	var usage []QuotaUsage
	for _, window := range []Window{WindowDaily, WindowMonthly} {
		limit := q.limit(provider, window)
		if limit <= 0 {
			continue
		}

		used, err := q.store.GetInt(ctx, quotaKey(provider, window, now))
		if err != nil {
			slog.Warn("Failed to read quota counter", "provider", provider, "window", window, "error", err)
			continue
		}

		usage = append(usage, QuotaUsage{Window: window, Used: used, Limit: limit})
	}

	return usage
}

func (q *QuotaTracker) limit(provider string, window Window) int64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.limits[provider][window]
}

func quotaKey(provider string, window Window, now time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s", provider, window, periodStamp(window, now))
}

func periodStamp(window Window, now time.Time) string {
	if window == WindowMonthly {
		return now.Format("2006-01")
	}
	return now.Format("2006-01-02")
}

// windowTTL returns the time left until the window's UTC boundary.
func windowTTL(window Window, now time.Time) time.Duration {
	var boundary time.Time
	if window == WindowMonthly {
		boundary = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	} else {
		boundary = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
	return boundary.Sub(now)
}
