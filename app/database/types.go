package database

import (
	"time"
)

// Cycle outcome values.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusSkipped   = "skipped"
)

// Cycle trigger values.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Report is the per-cycle acquisition summary. It is assembled during a
// cycle and immutable once finalized.
type Report struct {
	ID             string                   `json:"id"`
	Trigger        string                   `json:"trigger"`
	Status         string                   `json:"status"`
	StartedAt      time.Time                `json:"started_at"`
	FinishedAt     time.Time                `json:"finished_at"`
	DurationMS     int64                    `json:"duration_ms"`
	Fetched        int                      `json:"fetched"`
	Validated      int                      `json:"validated"`
	Deduped        int                      `json:"deduped"`
	Accepted       int                      `json:"accepted"`
	SkippedQuota   int                      `json:"skipped_quota"`
	ProviderErrors int                      `json:"provider_errors"`
	Rejections     map[string]int           `json:"rejections"`
	Providers      map[string]ProviderStats `json:"providers"`
	Errors         []string                 `json:"errors"`
}

// ProviderStats aggregates one provider's activity inside a cycle.
type ProviderStats struct {
	Calls        int `json:"calls"`
	Items        int `json:"items"`
	Errors       int `json:"errors"`
	SkippedQuota int `json:"skipped_quota"`
}
