package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/store"
)

// Enqueuer hands accepted items to the downstream analysis service. The
// contract is fire-and-forget: the pipeline never waits for analysis
// results.
type Enqueuer interface {
	Enqueue(ctx context.Context, item content.Item) error
}

// itemPayload is the wire shape pushed onto the analysis queue.
type itemPayload struct {
	SourceType      string    `json:"source_type"`
	SourceName      string    `json:"source_name"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	RawText         string    `json:"raw_text"`
	Language        string    `json:"language"`
	TopicCategory   string    `json:"topic_category"`
	GeographicFocus string    `json:"geographic_focus,omitempty"`
	Fingerprint     string    `json:"fingerprint"`
	AcquiredAt      time.Time `json:"acquired_at"`
	QualityScore    float64   `json:"quality_score"`
}

// queueMaxLen caps the handoff queue so a stalled consumer cannot grow it
// without bound.
const queueMaxLen = 10000

// QueueEnqueuer pushes JSON-encoded items onto a list in the shared store,
// where the analysis workers pop them.
type QueueEnqueuer struct {
	store store.Store
	key   string
}

func NewQueueEnqueuer(s store.Store, key string) *QueueEnqueuer {
	return &QueueEnqueuer{store: s, key: key}
}

func (e *QueueEnqueuer) Enqueue(ctx context.Context, item content.Item) error {
	payload, err := json.Marshal(itemPayload{
		SourceType:      string(item.SourceType),
		SourceName:      item.SourceName,
		URL:             item.URL,
		Title:           item.Title,
		RawText:         item.RawText,
		Language:        string(item.Language),
		TopicCategory:   item.TopicCategory,
		GeographicFocus: item.GeographicFocus,
		Fingerprint:     item.Fingerprint,
		AcquiredAt:      item.AcquiredAt,
		QualityScore:    item.QualityScore,
	})
	if err != nil {
		return fmt.Errorf("failed to encode item: %w", err)
	}

	if err := e.store.PushCapped(ctx, e.key, string(payload), queueMaxLen, 0); err != nil {
		return fmt.Errorf("failed to enqueue item for analysis: %w", err)
	}

	slog.Debug("Item enqueued for analysis",
		"url", item.URL, "language", item.Language, "topic", item.TopicCategory)

	return nil
}

// NopEnqueuer is used when no analysis queue is configured.
type NopEnqueuer struct{}

func (NopEnqueuer) Enqueue(ctx context.Context, item content.Item) error {
	slog.Debug("Analysis queue not configured, dropping accepted item", "url", item.URL)
	return nil
}
