package api

import (
	"github.com/loqui-app/news-harvester/app/database"
	"github.com/loqui-app/news-harvester/app/filter"
	"github.com/loqui-app/news-harvester/app/pipeline"
	"github.com/loqui-app/news-harvester/app/sources"
	"github.com/loqui-app/news-harvester/app/store"
)

type SchedulerInterface interface {
	TriggerNow() bool
}

var _ SchedulerInterface = (*pipeline.Scheduler)(nil)

type OrchestratorInterface interface {
	State() string
	LatestReport() *database.Report
}

var _ OrchestratorInterface = (*pipeline.Orchestrator)(nil)

type Handler struct {
	configCache  *sources.ConfigCache
	reportRepo   database.ReportRepository
	scheduler    SchedulerInterface
	orchestrator OrchestratorInterface
	quota        *filter.QuotaTracker
	store        store.Store
}
