package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/loqui-app/news-harvester/app/analysis"
	"github.com/loqui-app/news-harvester/app/api"
	"github.com/loqui-app/news-harvester/app/cfg"
	"github.com/loqui-app/news-harvester/app/content"
	"github.com/loqui-app/news-harvester/app/database"
	"github.com/loqui-app/news-harvester/app/filter"
	"github.com/loqui-app/news-harvester/app/pipeline"
	"github.com/loqui-app/news-harvester/app/sources"
	"github.com/loqui-app/news-harvester/app/store"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting News Harvester", "version", appCfg.Version)

	// Acquisition report database
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	reportRepo := database.NewReportRepository(db)
	if pruned, err := reportRepo.PruneReports(appCfg.ReportKeepDays); err != nil {
		slog.Warn("Failed to prune old reports", "error", err)
	} else if pruned > 0 {
		slog.Info("Pruned old acquisition reports", "count", pruned, "keep_days", appCfg.ReportKeepDays)
	}

	// Shared pipeline state store
	pipelineStore, err := buildStore(appCfg)
	if err != nil {
		slog.Error("Failed to connect to store", "addr", appCfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer pipelineStore.Close()

	// Source configurations
	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "dir", appCfg.SourcesDir, "count", configCache.GetConfigCount())

	languages, err := parseLanguages(appCfg.Languages)
	if err != nil {
		slog.Error("Invalid language configuration", "error", err)
		os.Exit(1)
	}

	// Filter chain
	quota := filter.NewQuotaTracker(pipelineStore, quotaLimits(configCache))
	validator := filter.NewValidator(appCfg.MinWordCount, appCfg.QualityThreshold, languages)
	dedup := filter.NewDeduplicator(pipelineStore, time.Duration(appCfg.RetentionDays)*24*time.Hour)
	diversity := filter.NewDiversityEngine(pipelineStore, topicCaps(appCfg), int64(appCfg.DefaultTopicCap))

	// Source adapters
	deps := sources.Deps{
		HTTPClient:    &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second},
		Extractor:     sources.NewExtractor(),
		UserAgent:     appCfg.UserAgent,
		MinWordCount:  appCfg.MinWordCount,
		ScrapeLimiter: rate.NewLimiter(rate.Limit(appCfg.ScrapeRPS), 1),
		QuotaObserver: func(provider string, used, limit int64) {
			quota.Sync(context.Background(), provider, filter.WindowDaily, used, limit)
		},
	}
	adapters, err := sources.BuildAdapters(configCache, deps)
	if err != nil {
		slog.Error("Failed to build source adapters", "error", err)
		os.Exit(1)
	}
	slog.Info("Source adapters ready", "count", len(adapters))

	var enqueuer analysis.Enqueuer = analysis.NopEnqueuer{}
	if appCfg.AnalysisQueueKey != "" {
		enqueuer = analysis.NewQueueEnqueuer(pipelineStore, appCfg.AnalysisQueueKey)
	}

	// Orchestrator and scheduler
	lock := pipeline.NewCycleLock(pipelineStore, time.Duration(appCfg.LockLease)*time.Second)
	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Languages:        languages,
		MaxConcurrent:    appCfg.MaxConcurrent,
		FetchTimeout:     time.Duration(appCfg.FetchTimeout) * time.Second,
		FetchRetries:     appCfg.FetchRetries,
		MaxItemsPerFetch: appCfg.MaxItemsPerFetch,
	}, lock, quota, validator, dedup, diversity, adapters,
		content.KeywordClassifier(), enqueuer, reportRepo)

	scheduler := pipeline.NewScheduler(orchestrator, time.Duration(appCfg.CycleInterval)*time.Second)
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	apiHandler := api.NewHandler(configCache, reportRepo, scheduler, orchestrator, quota, pipelineStore)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "api_enabled", appCfg.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer, which waits for a running cycle.
	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildStore connects to Redis when configured, otherwise falls back to the
// in-process store. The fallback is single-instance only: quota counters, the
// cycle lock and fingerprints are not shared across processes without Redis.
func buildStore(appCfg *cfg.Cfg) (store.Store, error) {
	if appCfg.RedisAddr == "" {
		slog.Warn("REDIS_ADDR not set, using in-process store (single instance only)")
		return store.NewMemory(), nil
	}

	redisStore, err := store.NewRedis(appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to Redis", "addr", appCfg.RedisAddr, "db", appCfg.RedisDB)

	return redisStore, nil
}

func parseLanguages(tags []string) ([]content.Language, error) {
	languages := make([]content.Language, 0, len(tags))
	for _, tag := range tags {
		lang, ok := content.ParseLanguage(tag)
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", tag)
		}
		languages = append(languages, lang)
	}
	if len(languages) == 0 {
		return nil, fmt.Errorf("at least one language is required")
	}
	return languages, nil
}

// quotaLimits builds the per-provider call budgets from source configs.
func quotaLimits(configCache *sources.ConfigCache) map[string]filter.QuotaLimits {
	limits := make(map[string]filter.QuotaLimits)
	for name, config := range configCache.GetConfigs() {
		providerLimits := make(filter.QuotaLimits)
		if config.Quota.Daily > 0 {
			providerLimits[filter.WindowDaily] = config.Quota.Daily
		}
		if config.Quota.Monthly > 0 {
			providerLimits[filter.WindowMonthly] = config.Quota.Monthly
		}
		if len(providerLimits) > 0 {
			limits[name] = providerLimits
		}
	}
	return limits
}

func topicCaps(appCfg *cfg.Cfg) map[string]int64 {
	caps := make(map[string]int64, len(appCfg.TopicCaps))
	for topic, cap := range appCfg.TopicCaps {
		caps[topic] = int64(cap)
	}
	return caps
}
