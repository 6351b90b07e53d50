package cfg

type Cfg struct {
	// Shared state store configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Acquisition log database
	DBPath string

	// Application configuration
	SourcesDir       string
	Port             string
	APIAccessKey     string
	Languages        []string
	CycleInterval    int
	MaxConcurrent    int
	FetchTimeout     int
	FetchRetries     int
	MaxItemsPerFetch int
	MinWordCount     int
	QualityThreshold float64
	RetentionDays    int
	LockLease        int
	TopicCaps        map[string]int
	DefaultTopicCap  int
	ScrapeRPS        float64
	AnalysisQueueKey string
	ReportKeepDays   int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
