package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type reportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) SaveReport(report *Report) error {
	rejections, providers, errs, err := encodeReportColumns(report)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO reports (
			id, trigger_kind, status, started_at, finished_at, duration_ms,
			fetched, validated, deduped, accepted, skipped_quota, provider_errors,
			rejections, providers, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.ID, report.Trigger, report.Status,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		report.DurationMS,
		report.Fetched, report.Validated, report.Deduped, report.Accepted,
		report.SkippedQuota, report.ProviderErrors,
		rejections, providers, errs)

	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

func (r *reportRepository) GetLatestReport() (*Report, error) {
	row := r.db.QueryRow(`
		SELECT id, trigger_kind, status, started_at, finished_at, duration_ms,
			fetched, validated, deduped, accepted, skipped_quota, provider_errors,
			rejections, providers, errors
		FROM reports
		ORDER BY started_at DESC
		LIMIT 1
	`)

	report, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	return report, nil
}

func (r *reportRepository) GetRecentReports(limit int) ([]*Report, error) {
	rows, err := r.db.Query(`
		SELECT id, trigger_kind, status, started_at, finished_at, duration_ms,
			fetched, validated, deduped, accepted, skipped_quota, provider_errors,
			rejections, providers, errors
		FROM reports
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return reports, nil
}

func (r *reportRepository) PruneReports(keepDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays).Format(time.RFC3339Nano)

	result, err := r.db.Exec(`DELETE FROM reports WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned reports: %w", err)
	}

	return pruned, nil
}

func encodeReportColumns(report *Report) (string, string, string, error) {
	rejections, err := json.Marshal(report.Rejections)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode rejections: %w", err)
	}

	providers, err := json.Marshal(report.Providers)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode providers: %w", err)
	}

	errs := report.Errors
	if errs == nil {
		errs = []string{}
	}
	encoded, err := json.Marshal(errs)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode errors: %w", err)
	}

	return string(rejections), string(providers), string(encoded), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*Report, error) {
	var report Report
	var startedAt, finishedAt string
	var rejections, providers, errs string

	err := row.Scan(&report.ID, &report.Trigger, &report.Status,
		&startedAt, &finishedAt, &report.DurationMS,
		&report.Fetched, &report.Validated, &report.Deduped, &report.Accepted,
		&report.SkippedQuota, &report.ProviderErrors,
		&rejections, &providers, &errs)
	if err != nil {
		return nil, err
	}

	if report.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at: %w", err)
	}
	if report.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
		return nil, fmt.Errorf("invalid finished_at: %w", err)
	}

	if err := json.Unmarshal([]byte(rejections), &report.Rejections); err != nil {
		return nil, fmt.Errorf("invalid rejections column: %w", err)
	}
	if err := json.Unmarshal([]byte(providers), &report.Providers); err != nil {
		return nil, fmt.Errorf("invalid providers column: %w", err)
	}
	if err := json.Unmarshal([]byte(errs), &report.Errors); err != nil {
		return nil, fmt.Errorf("invalid errors column: %w", err)
	}

	return &report, nil
}
