package filter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/store"
)

const (
	// topicCounterTTL keeps daily counters around past their day so a
	// cycle straddling midnight still sees them.
	topicCounterTTL = 48 * time.Hour
	// rotationTTL bounds how long a source's last-accepted timestamp is
	// remembered for rotation ordering.
	rotationTTL = 7 * 24 * time.Hour
)

// DiversityEngine enforces the per-language, per-topic, per-day acceptance
// caps and biases acceptance order toward sources that have not filled a
// topic slot recently. The cap is hard; rotation and geography are
// preferences.
type DiversityEngine struct {
	store      store.Store
	caps       map[string]int64
	defaultCap int64
	now        func() time.Time
}

func NewDiversityEngine(s store.Store, caps map[string]int64, defaultCap int64) *DiversityEngine {
	if caps == nil {
		caps = make(map[string]int64)
	}
	return &DiversityEngine{
		store:      s,
		caps:       caps,
		defaultCap: defaultCap,
		now:        time.Now,
	}
}

// ShouldAccept is a read-only probe of the topic counter. The binding check
// happens in RecordAccepted; this exists for callers that want to skip work
// on items that are already hopeless.
func (e *DiversityEngine) ShouldAccept(ctx context.Context, item content.Item) (bool, error) {
	count, err := e.store.GetInt(ctx, e.topicKey(item))
	if err != nil {
		return false, fmt.Errorf("failed to read topic counter: %w", err)
	}
	return count < e.CapFor(item.TopicCategory), nil
}

// RecordAccepted atomically takes one slot of the topic's daily cap. Returns
// false when the cap is reached; that rejection is final regardless of item
// quality.
func (e *DiversityEngine) RecordAccepted(ctx context.Context, item content.Item) (bool, error) {
	accepted, err := e.store.IncrWithCap(ctx, e.topicKey(item), e.CapFor(item.TopicCategory), topicCounterTTL)
	if err != nil {
		return false, fmt.Errorf("failed to increment topic counter: %w", err)
	}
	if !accepted {
		return false, nil
	}

	timestamp := strconv.FormatInt(e.now().UnixNano(), 10)
	err = e.store.Set(ctx, e.rotationKey(item), timestamp, rotationTTL)
	if err != nil {
		slog.Warn("Failed to record source rotation timestamp",
			"source", item.SourceName, "topic", item.TopicCategory, "error", err)
	}

	return true, nil
}

// OrderCandidates sorts same-topic candidates for acceptance: sources least
// recently accepted for this topic come first, and among rotation ties a
// geographic focus not yet seen this cycle is preferred. The sort is stable,
// so otherwise-equal items keep their fetch order.
func (e *DiversityEngine) OrderCandidates(ctx context.Context, items []content.Item, seenGeos map[string]bool) []content.Item {
	if len(items) < 2 {
		return items
	}

	lastAccepted := make(map[string]int64, len(items))
	for _, item := range items {
		if _, ok := lastAccepted[item.SourceName]; ok {
			continue
		}
		value, err := e.store.GetInt(ctx, e.rotationKey(item))
		if err != nil {
			slog.Warn("Failed to read rotation timestamp", "source", item.SourceName, "error", err)
			value = 0
		}
		lastAccepted[item.SourceName] = value
	}

	ordered := make([]content.Item, len(items))
	copy(ordered, items)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if lastAccepted[a.SourceName] != lastAccepted[b.SourceName] {
			return lastAccepted[a.SourceName] < lastAccepted[b.SourceName]
		}

		aFresh := a.GeographicFocus != "" && !seenGeos[a.GeographicFocus]
		bFresh := b.GeographicFocus != "" && !seenGeos[b.GeographicFocus]
		return aFresh && !bFresh
	})

	return ordered
}

func (e *DiversityEngine) CapFor(topic string) int64 {
	if cap, ok := e.caps[topic]; ok {
		return cap
	}
	return e.defaultCap
}

func (e *DiversityEngine) topicKey(item content.Item) string {
	date := e.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("diversity:%s:%s:%s", item.Language, item.TopicCategory, date)
}

func (e *DiversityEngine) rotationKey(item content.Item) string {
	return fmt.Sprintf("rotation:%s:%s:%s", item.Language, item.TopicCategory, item.SourceName)
}
