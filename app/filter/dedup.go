package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/store"
)

// Deduplicator rejects items whose content fingerprint was already accepted
// inside the retention window. The fingerprint set lives in the shared store,
// so dedup is consistent across cycles and across worker processes.
//
// A secondary title-overlap check catches the same story republished by a
// second outlet. It only fires on high-confidence matches; when in doubt the
// item passes (false negatives are preferred over false positives).
type Deduplicator struct {
	store     store.Store
	retention time.Duration

	// near-duplicate tuning
	titleThreshold float64
	minTitleTokens int
	recentTitles   int64
}

func NewDeduplicator(s store.Store, retention time.Duration) *Deduplicator {
	return &Deduplicator{
		store:          s,
		retention:      retention,
		titleThreshold: 0.8,
		minTitleTokens: 4,
		recentTitles:   200,
	}
}

// IsDuplicate reports whether the item's fingerprint is already known, or
// whether its title overlaps a recently accepted title closely enough to be
// the same story.
func (d *Deduplicator) IsDuplicate(ctx context.Context, item content.Item) (bool, error) {
	exists, err := d.store.Exists(ctx, fingerprintKey(item.Fingerprint))
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	if exists {
		return true, nil
	}

	return d.isNearDuplicate(ctx, item)
}

// Record marks the item's fingerprint as seen. Returns false when the
// fingerprint was already present, which makes recording idempotent even
// when two workers race on the same story.
func (d *Deduplicator) Record(ctx context.Context, item content.Item) (bool, error) {
	recorded, err := d.store.SetNX(ctx, fingerprintKey(item.Fingerprint), "1", d.retention)
	if err != nil {
		return false, fmt.Errorf("failed to record fingerprint: %w", err)
	}
	if !recorded {
		return false, nil
	}

	tokens := content.Tokens(item.Title)
	if len(tokens) >= d.minTitleTokens {
		err := d.store.PushCapped(ctx, titlesKey(item.Language), strings.Join(tokens, " "), d.recentTitles, d.retention)
		if err != nil {
			return true, fmt.Errorf("failed to record title: %w", err)
		}
	}

	return true, nil
}

func (d *Deduplicator) isNearDuplicate(ctx context.Context, item content.Item) (bool, error) {
	tokens := content.Tokens(item.Title)
	if len(tokens) < d.minTitleTokens {
		// Too little signal to judge; let it pass.
		return false, nil
	}

	recent, err := d.store.Range(ctx, titlesKey(item.Language))
	if err != nil {
		return false, fmt.Errorf("failed to read recent titles: %w", err)
	}

	candidate := tokenSet(tokens)
	for _, title := range recent {
		seen := tokenSet(strings.Fields(title))
		if jaccard(candidate, seen) >= d.titleThreshold {
			return true, nil
		}
	}

	return false, nil
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[token] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func fingerprintKey(fingerprint string) string {
	return "fingerprint:" + fingerprint
}

func titlesKey(lang content.Language) string {
	return "recent_titles:" + string(lang)
}
