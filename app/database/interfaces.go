package database

// ReportRepository persists acquisition reports and serves them back to the
// admin API.
type ReportRepository interface {
	SaveReport(report *Report) error
	GetLatestReport() (*Report, error)
	GetRecentReports(limit int) ([]*Report, error)
	PruneReports(keepDays int) (int64, error)
}
