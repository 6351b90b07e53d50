package cfg

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Shared state store configuration
	RedisAddr     string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for shared pipeline state (empty: in-process store)"`
	RedisPassword string `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	RedisDB       int    `long:"redis-db" env:"REDIS_DB" default:"0" description:"Redis database number"`

	// Acquisition log database
	DBPath string `long:"db-path" env:"DB_PATH" default:"./harvester.db" description:"SQLite database file for acquisition reports"`

	// Application configuration
	SourcesDir       string  `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port             string  `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey     string  `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Languages        string  `long:"languages" env:"LANGUAGES" default:"en,es" description:"Comma-separated acquisition languages"`
	CycleInterval    int     `long:"cycle-interval" env:"CYCLE_INTERVAL" default:"14400" description:"Acquisition cycle interval in seconds"`
	MaxConcurrent    int     `long:"max-concurrent" env:"MAX_CONCURRENT" default:"5" description:"Maximum concurrent source fetches per cycle"`
	FetchTimeout     int     `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-fetch timeout in seconds"`
	FetchRetries     int     `long:"fetch-retries" env:"FETCH_RETRIES" default:"3" description:"Retry attempts for transient fetch errors"`
	MaxItemsPerFetch int     `long:"max-items" env:"MAX_ITEMS" default:"20" description:"Maximum items requested per source fetch"`
	MinWordCount     int     `long:"min-words" env:"MIN_WORDS" default:"300" description:"Minimum article body word count"`
	QualityThreshold float64 `long:"quality-threshold" env:"QUALITY_THRESHOLD" default:"0.6" description:"Minimum quality score for acceptance"`
	RetentionDays    int     `long:"fingerprint-retention" env:"FINGERPRINT_RETENTION" default:"30" description:"Fingerprint retention window in days"`
	LockLease        int     `long:"lock-lease" env:"LOCK_LEASE" default:"600" description:"Cycle lock lease in seconds"`
	TopicCaps        string  `long:"topic-caps" env:"TOPIC_CAPS" default:"politics=4,business=4,general=5" description:"Per-topic daily acceptance caps (topic=n, comma-separated)"`
	DefaultTopicCap  int     `long:"default-topic-cap" env:"DEFAULT_TOPIC_CAP" default:"4" description:"Daily cap for topics not listed in topic-caps"`
	ScrapeRPS        float64 `long:"scrape-rps" env:"SCRAPE_RPS" default:"1" description:"Request rate limit for scraping sources (requests/second)"`
	AnalysisQueueKey string  `long:"analysis-queue" env:"ANALYSIS_QUEUE" default:"analysis:queue" description:"Queue key for downstream analysis handoff"`
	ReportKeepDays   int     `long:"report-keep-days" env:"REPORT_KEEP_DAYS" default:"90" description:"Days of acquisition reports to retain"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"NewsHarvester/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	topicCaps, err := parseTopicCaps(raw.TopicCaps)
	if err != nil {
		return nil, fmt.Errorf("failed to parse topic caps: %w", err)
	}

	cfg := &Cfg{
		RedisAddr:        raw.RedisAddr,
		RedisPassword:    raw.RedisPassword,
		RedisDB:          raw.RedisDB,
		DBPath:           raw.DBPath,
		SourcesDir:       raw.SourcesDir,
		Port:             raw.Port,
		APIAccessKey:     raw.APIAccessKey,
		Languages:        splitList(raw.Languages),
		CycleInterval:    raw.CycleInterval,
		MaxConcurrent:    raw.MaxConcurrent,
		FetchTimeout:     raw.FetchTimeout,
		FetchRetries:     raw.FetchRetries,
		MaxItemsPerFetch: raw.MaxItemsPerFetch,
		MinWordCount:     raw.MinWordCount,
		QualityThreshold: raw.QualityThreshold,
		RetentionDays:    raw.RetentionDays,
		LockLease:        raw.LockLease,
		TopicCaps:        topicCaps,
		DefaultTopicCap:  raw.DefaultTopicCap,
		ScrapeRPS:        raw.ScrapeRPS,
		AnalysisQueueKey: raw.AnalysisQueueKey,
		ReportKeepDays:   raw.ReportKeepDays,
		UserAgent:        raw.UserAgent,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func parseTopicCaps(raw string) (map[string]int, error) {
	caps := make(map[string]int)
	for _, pair := range splitList(raw) {
		topic, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid topic cap %q, expected topic=n", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid cap value in %q", pair)
		}
		caps[strings.ToLower(strings.TrimSpace(topic))] = n
	}
	return caps, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
