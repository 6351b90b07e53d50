package pipeline

import (
	"testing"
	"time"

	"github.com/loqui-app/news-harvester/app/analysis"
	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/database"
	"github.com/loqui-app/news-harvester/app/filter"
	"github.com/loqui-app/news-harvester/app/store"
)

func newIdleOrchestrator() *Orchestrator {
	memory := store.NewMemory()

	cfg := Config{Languages: []content.Language{content.LanguageEnglish}}

	return NewOrchestrator(cfg, NewCycleLock(memory, time.Minute),
		filter.NewQuotaTracker(memory, nil),
		filter.NewValidator(100, 0.6, []content.Language{content.LanguageEnglish}),
		filter.NewDeduplicator(memory, 30*24*time.Hour),
		filter.NewDiversityEngine(memory, nil, 10),
		nil, content.KeywordClassifier(), analysis.NopEnqueuer{}, nil)
}

func waitForReport(t *testing.T, orchestrator *Orchestrator) *database.Report {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if report := orchestrator.LatestReport(); report != nil {
			return report
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("Timed out waiting for a cycle report")
	return nil
}

func TestSchedulerRunsImmediately(t *testing.T) {
	orchestrator := newIdleOrchestrator()
	scheduler := NewScheduler(orchestrator, time.Hour)

	scheduler.Start()
	report := waitForReport(t, orchestrator)
	scheduler.Stop()

	if report.Trigger != database.TriggerScheduled {
		t.Errorf("Expected scheduled trigger, got %s", report.Trigger)
	}
	if report.Status != database.StatusCompleted {
		t.Errorf("Expected completed status, got %s", report.Status)
	}
}

func TestSchedulerTriggerNow(t *testing.T) {
	orchestrator := newIdleOrchestrator()
	scheduler := NewScheduler(orchestrator, time.Hour)

	if !scheduler.TriggerNow() {
		t.Fatal("Expected manual trigger to start a cycle")
	}

	report := waitForReport(t, orchestrator)
	scheduler.Stop()

	if report.Trigger != database.TriggerManual {
		t.Errorf("Expected manual trigger, got %s", report.Trigger)
	}
}

func TestSchedulerTriggerNowAfterStop(t *testing.T) {
	scheduler := NewScheduler(newIdleOrchestrator(), time.Hour)
	scheduler.Stop()

	if scheduler.TriggerNow() {
		t.Error("Expected manual trigger to be refused after stop")
	}
}
