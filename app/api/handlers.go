package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loqui-app/news-harvester/app/database"
	"github.com/loqui-app/news-harvester/app/filter"
	"github.com/loqui-app/news-harvester/app/sources"
	"github.com/loqui-app/news-harvester/app/store"
)

func NewHandler(configCache *sources.ConfigCache, reportRepo database.ReportRepository,
	scheduler SchedulerInterface, orchestrator OrchestratorInterface,
	quota *filter.QuotaTracker, s store.Store) *Handler {
	return &Handler{
		configCache:  configCache,
		reportRepo:   reportRepo,
		scheduler:    scheduler,
		orchestrator: orchestrator,
		quota:        quota,
		store:        s,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":      time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_sources": h.configCache.GetConfigCount(),
	}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		slog.Error("Store health check failed", "error", err)
		health["store"] = "unreachable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["store"] = "ok"

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStatus(c *gin.Context) {
	status := map[string]interface{}{
		"state": h.orchestrator.State(),
	}

	if report := h.orchestrator.LatestReport(); report != nil {
		status["last_cycle"] = report
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIListReports(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	reports, err := h.reportRepo.GetRecentReports(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_reports", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"reports": reports,
		"total":   len(reports),
	})
}

// APITrigger starts a manual acquisition cycle. The cycle runs in the
// background; clients poll /status or /api/reports for the outcome.
func (h *Handler) APITrigger(c *gin.Context) {
	if !h.scheduler.TriggerNow() {
		c.JSON(http.StatusConflict, gin.H{"error": "Acquisition cycle already running"})
		return
	}

	slog.Info("Manual acquisition cycle triggered")
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	list := make([]map[string]interface{}, 0, len(configs))
	for _, config := range configs {
		info := map[string]interface{}{
			"name":      config.Name,
			"kind":      config.Kind,
			"languages": config.Languages,
			"enabled":   config.Settings.Enabled,
			"max_items": config.Settings.MaxItems,
		}

		if usage := h.quota.Usage(c.Request.Context(), config.Name); len(usage) > 0 {
			info["quota"] = usage
		}

		list = append(list, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}
