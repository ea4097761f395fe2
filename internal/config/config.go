package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Alibaba    AlibabaConfig    `yaml:"alibaba" mapstructure:"alibaba"`
	Aliexpress AliexpressConfig `yaml:"aliexpress" mapstructure:"aliexpress"`
	Rescrape   RescrapeConfig   `yaml:"rescrape" mapstructure:"rescrape"`
	Ingest     IngestConfig     `yaml:"ingest" mapstructure:"ingest"`
	Topoff     TopoffConfig     `yaml:"topoff" mapstructure:"topoff"`
	Taxonomy   TaxonomyConfig   `yaml:"taxonomy" mapstructure:"taxonomy"`
	Images     ImagesConfig     `yaml:"images" mapstructure:"images"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// FetchConfig configures the marketplace fetch layer.
type FetchConfig struct {
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSecond    float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	Limit            int     `yaml:"limit" mapstructure:"limit"`
}

// SearchConfig configures the search pipeline.
type SearchConfig struct {
	CacheTTLMins    int `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
	DefaultPageSize int `yaml:"default_page_size" mapstructure:"default_page_size"`
}

// AlibabaConfig holds the Alibaba adapter settings.
type AlibabaConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AliexpressConfig holds the AliExpress adapter settings. RenderURL
// points at a headless rendering proxy and may be empty.
type AliexpressConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	RenderURL string `yaml:"render_url" mapstructure:"render_url"`
}

// RescrapeConfig holds re-scrape service credentials.
type RescrapeConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key" mapstructure:"key"`
}

// IngestConfig configures the batch enrichment runner.
type IngestConfig struct {
	ProgressPath         string `yaml:"progress_path" mapstructure:"progress_path"`
	BatchSize            int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency          int    `yaml:"concurrency" mapstructure:"concurrency"`
	MinAttrs             int    `yaml:"min_attrs" mapstructure:"min_attrs"`
	BlockThreshold       int    `yaml:"block_threshold" mapstructure:"block_threshold"`
	CooldownMins         int    `yaml:"cooldown_mins" mapstructure:"cooldown_mins"`
	BatchDelaySecs       int    `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	RateLimitBackoffSecs int    `yaml:"rate_limit_backoff_secs" mapstructure:"rate_limit_backoff_secs"`
}

// TopoffConfig configures the category coverage job.
type TopoffConfig struct {
	TargetPerLeaf  int `yaml:"target_per_leaf" mapstructure:"target_per_leaf"`
	TermsPerLeaf   int `yaml:"terms_per_leaf" mapstructure:"terms_per_leaf"`
	PerQueryLimit  int `yaml:"per_query_limit" mapstructure:"per_query_limit"`
	QueryDelaySecs int `yaml:"query_delay_secs" mapstructure:"query_delay_secs"`
}

// TaxonomyConfig points at the category taxonomy file.
type TaxonomyConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ImagesConfig configures the local thumbnail mirror. An empty dir
// disables it.
type ImagesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "catalog.db")
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.rate_per_second", 2.0)
	v.SetDefault("fetch.circuit_threshold", 5)
	v.SetDefault("fetch.circuit_reset_secs", 30)
	v.SetDefault("fetch.limit", 60)
	v.SetDefault("search.cache_ttl_mins", 5)
	v.SetDefault("search.default_page_size", 20)
	v.SetDefault("alibaba.base_url", "https://m.alibaba.com")
	v.SetDefault("aliexpress.base_url", "https://www.aliexpress.com")
	v.SetDefault("ingest.progress_path", "ingest-progress.json")
	v.SetDefault("ingest.batch_size", 20)
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.min_attrs", 10)
	v.SetDefault("ingest.block_threshold", 15)
	v.SetDefault("ingest.cooldown_mins", 30)
	v.SetDefault("ingest.batch_delay_secs", 2)
	v.SetDefault("ingest.rate_limit_backoff_secs", 60)
	v.SetDefault("topoff.target_per_leaf", 50)
	v.SetDefault("topoff.terms_per_leaf", 8)
	v.SetDefault("topoff.per_query_limit", 40)
	v.SetDefault("topoff.query_delay_secs", 3)
	v.SetDefault("taxonomy.path", "taxonomy.yaml")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a given command mode depends on. Modes are
// "search", "serve", "ingest", "topoff", "export", "import" and "migrate".
func (c *Config) Validate(mode string) error {
	var problems []string

	needsStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	if c.Fetch.TimeoutSecs <= 0 {
		problems = append(problems, "fetch.timeout_secs must be > 0")
	}

	switch mode {
	case "search":
		// Search alone runs without a store.
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		needsStore()
	case "ingest":
		needsStore()
		if c.Rescrape.BaseURL == "" {
			problems = append(problems, "rescrape.base_url is required")
		}
		if c.Ingest.BatchSize < 1 || c.Ingest.BatchSize > 100 {
			problems = append(problems, "ingest.batch_size must be between 1 and 100")
		}
		if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 16 {
			problems = append(problems, "ingest.concurrency must be between 1 and 16")
		}
		if c.Ingest.BlockThreshold < 1 {
			problems = append(problems, "ingest.block_threshold must be >= 1")
		}
	case "topoff":
		needsStore()
		if c.Taxonomy.Path == "" {
			problems = append(problems, "taxonomy.path is required")
		}
	case "export", "import", "migrate":
		needsStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
