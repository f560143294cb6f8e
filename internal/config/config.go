// Package config loads and validates brandprobe configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	DB        DBConfig        `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Wizard    WizardConfig    `mapstructure:"wizard"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// ProbeConfig configures logo reachability checks.
type ProbeConfig struct {
	TimeoutMs  int     `mapstructure:"timeout_ms"`
	RPSPerHost float64 `mapstructure:"rps_per_host"`
	Burst      int     `mapstructure:"burst"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	MaxParallel        int    `mapstructure:"max_parallel"`
	NavTimeoutSeconds  int    `mapstructure:"nav_timeout_seconds"`
	PromotionThreshold int    `mapstructure:"promotion_threshold"`
	ExecPath           string `mapstructure:"exec_path"`
}

// ExtractorConfig overrides the built-in extraction tables. Empty values keep the defaults.
type ExtractorConfig struct {
	DefaultColor     string   `mapstructure:"default_color"`
	PlaceholderLogo  string   `mapstructure:"placeholder_logo"`
	FaviconService   string   `mapstructure:"favicon_service"`
	LogoServices     []string `mapstructure:"logo_services"`
	IconPaths        []string `mapstructure:"icon_paths"`
	CSSColorPatterns []string `mapstructure:"css_color_patterns"`
	MaxAlternatives  int      `mapstructure:"max_alternatives"`
	KnownBrandsFile  string   `mapstructure:"known_brands_file"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// DBConfig controls access to the Postgres cache.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// RedisConfig controls access to the Redis cache.
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// StorageConfig selects where HTML snapshots are written.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for event publication. An empty project uses the in-memory publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// JobsConfig sizes the batch warm-up pipeline.
type JobsConfig struct {
	Concurrency       int `mapstructure:"concurrency"`
	QueueDepth        int `mapstructure:"queue_depth"`
	MaxURLs           int `mapstructure:"max_urls"`
	MaxAttempts       int `mapstructure:"max_attempts"`
	URLTimeoutSeconds int `mapstructure:"url_timeout_seconds"`
}

// WizardConfig controls review session lifetime.
type WizardConfig struct {
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes"`
}

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Storage backends.
const (
	StorageNone   = "none"
	StorageMemory = "memory"
	StorageLocal  = "local"
	StorageGCS    = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRANDPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.respect_robots", false)
	v.SetDefault("http.max_body_bytes", 5<<20)
	v.SetDefault("probe.timeout_ms", 3000)
	v.SetDefault("probe.rps_per_host", 5.0)
	v.SetDefault("probe.burst", 5)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 0)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("extractor.default_color", "")
	v.SetDefault("extractor.placeholder_logo", "")
	v.SetDefault("extractor.favicon_service", "")
	v.SetDefault("extractor.max_alternatives", 0)
	v.SetDefault("extractor.known_brands_file", "")
	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl_seconds", 7*24*3600)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "website_data")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "brandprobe:site:")
	v.SetDefault("storage.backend", StorageNone)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "")
	v.SetDefault("storage.prefix", "snapshots")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("jobs.concurrency", 2)
	v.SetDefault("jobs.queue_depth", 64)
	v.SetDefault("jobs.max_urls", 100)
	v.SetDefault("jobs.max_attempts", 2)
	v.SetDefault("jobs.url_timeout_seconds", 45)
	v.SetDefault("wizard.session_ttl_minutes", 30)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Probe.TimeoutMs <= 0 {
		return fmt.Errorf("probe.timeout_ms must be > 0")
	}
	if c.Probe.RPSPerHost < 0 {
		return fmt.Errorf("probe.rps_per_host must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Extractor.MaxAlternatives < 0 {
		return fmt.Errorf("extractor.max_alternatives must be >= 0")
	}
	switch c.Cache.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when cache.backend is postgres")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url must be set when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be one of memory, postgres, redis")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must be >= 0")
	}
	switch c.Storage.Backend {
	case StorageNone, StorageMemory:
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.backend is local")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.backend is gcs")
		}
	default:
		return fmt.Errorf("storage.backend must be one of none, memory, local, gcs")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("jobs.concurrency must be > 0")
	}
	if c.Jobs.QueueDepth <= 0 {
		return fmt.Errorf("jobs.queue_depth must be > 0")
	}
	if c.Jobs.MaxURLs <= 0 {
		return fmt.Errorf("jobs.max_urls must be > 0")
	}
	if c.Wizard.SessionTTLMinutes <= 0 {
		return fmt.Errorf("wizard.session_ttl_minutes must be > 0")
	}
	return nil
}

// RequestTimeout is the per-request budget enforced by the API.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// FetchTimeout bounds a page fetch.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ProbeTimeout bounds a single logo probe.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMs) * time.Millisecond
}

// CacheTTL is how long cached records stay fresh. Zero keeps them forever.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// SessionTTL is the idle lifetime of a wizard session.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Wizard.SessionTTLMinutes) * time.Minute
}

// URLTimeout bounds one batch extraction attempt.
func (c Config) URLTimeout() time.Duration {
	return time.Duration(c.Jobs.URLTimeoutSeconds) * time.Second
}
