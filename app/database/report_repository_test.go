package database

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) ReportRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	return NewReportRepository(db)
}

func sampleReport(id string, startedAt time.Time) *Report {
	return &Report{
		ID:             id,
		Trigger:        TriggerScheduled,
		Status:         StatusCompleted,
		StartedAt:      startedAt,
		FinishedAt:     startedAt.Add(time.Minute),
		DurationMS:     60000,
		Fetched:        15,
		Validated:      13,
		Deduped:        12,
		Accepted:       10,
		SkippedQuota:   1,
		ProviderErrors: 1,
		Rejections:     map[string]int{"min_length": 2, "duplicate": 1, "topic_cap_reached": 2},
		Providers: map[string]ProviderStats{
			"feed-a": {Calls: 1, Items: 10},
			"api-b":  {Calls: 1, Items: 5, Errors: 0},
		},
		Errors: []string{"provider scrape-c: HTTP error: 503 Service Unavailable"},
	}
}

func TestSaveAndGetLatestReport(t *testing.T) {
	repo := newTestRepo(t)

	started := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	if err := repo.SaveReport(sampleReport("report-1", started)); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveReport(sampleReport("report-2", started.Add(4*time.Hour))); err != nil {
		t.Fatal(err)
	}

	latest, err := repo.GetLatestReport()
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil {
		t.Fatal("Expected a latest report")
	}
	if latest.ID != "report-2" {
		t.Errorf("Expected latest report to be report-2, got %s", latest.ID)
	}

	if latest.Fetched != 15 || latest.Validated != 13 || latest.Deduped != 12 {
		t.Errorf("Unexpected stage counts: fetched=%d validated=%d deduped=%d",
			latest.Fetched, latest.Validated, latest.Deduped)
	}
	if latest.Rejections["min_length"] != 2 {
		t.Errorf("Expected min_length rejection count 2, got %d", latest.Rejections["min_length"])
	}
	if latest.Providers["feed-a"].Items != 10 {
		t.Errorf("Expected feed-a items 10, got %d", latest.Providers["feed-a"].Items)
	}
	if len(latest.Errors) != 1 {
		t.Errorf("Expected 1 error entry, got %d", len(latest.Errors))
	}
	if !latest.StartedAt.Equal(started.Add(4 * time.Hour)) {
		t.Errorf("Unexpected started_at: %v", latest.StartedAt)
	}
}

func TestGetLatestReportEmpty(t *testing.T) {
	repo := newTestRepo(t)

	latest, err := repo.GetLatestReport()
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("Expected nil report on empty table, got %v", latest)
	}
}

func TestGetRecentReports(t *testing.T) {
	repo := newTestRepo(t)

	started := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		report := sampleReport("report-"+string(rune('a'+i)), started.Add(time.Duration(i)*time.Hour))
		if err := repo.SaveReport(report); err != nil {
			t.Fatal(err)
		}
	}

	reports, err := repo.GetRecentReports(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}
	if reports[0].ID != "report-e" {
		t.Errorf("Expected newest report first, got %s", reports[0].ID)
	}
}

func TestPruneReports(t *testing.T) {
	repo := newTestRepo(t)

	old := sampleReport("report-old", time.Now().UTC().AddDate(0, 0, -120))
	recent := sampleReport("report-recent", time.Now().UTC().Add(-time.Hour))
	if err := repo.SaveReport(old); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveReport(recent); err != nil {
		t.Fatal(err)
	}

	pruned, err := repo.PruneReports(90)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned report, got %d", pruned)
	}

	reports, err := repo.GetRecentReports(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 || reports[0].ID != "report-recent" {
		t.Errorf("Expected only the recent report to remain, got %v", reports)
	}
}
