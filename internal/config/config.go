package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"pricenotifier/internal/model"
	"pricenotifier/pkg/validate"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	PriceAPI  PriceAPIConfig
	Scheduler SchedulerConfig
	Region    RegionConfig
	Cache     CacheConfig
	Storage   StorageConfig
	Notify    NotifyConfig
	Auth      AuthConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"pricenotifier"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// PriceAPIConfig holds market board API settings.
type PriceAPIConfig struct {
	Endpoint  string        `envconfig:"PRICE_API_ENDPOINT" default:"https://universalis.app/api/v2" validate:"url"`
	Timeout   time.Duration `envconfig:"PRICE_API_TIMEOUT" default:"15s" validate:"gt=0"`
	BatchSize int           `envconfig:"PRICE_API_BATCH_SIZE" default:"10" validate:"gte=1,lte=100"`

	BreakerEnabled      bool          `envconfig:"PRICE_API_BREAKER_ENABLED" default:"true"`
	BreakerMinRequests  uint32        `envconfig:"PRICE_API_BREAKER_MIN_REQUESTS" default:"5"`
	BreakerFailureRatio float64       `envconfig:"PRICE_API_BREAKER_FAILURE_RATIO" default:"0.6" validate:"gt=0,lte=1"`
	BreakerOpenTimeout  time.Duration `envconfig:"PRICE_API_BREAKER_OPEN_TIMEOUT" default:"60s"`
}

// SchedulerConfig holds the initial scheduler settings. Persisted settings
// take precedence once a snapshot exists.
type SchedulerConfig struct {
	IntervalMinutes int  `envconfig:"SCHEDULER_INTERVAL_MINUTES" default:"30" validate:"gte=5,lte=120"`
	Enabled         bool `envconfig:"SCHEDULER_ENABLED" default:"true"`
	IgnoreTax       bool `envconfig:"SCHEDULER_IGNORE_TAX" default:"true"`
	SameQualityOnly bool `envconfig:"SCHEDULER_SAME_QUALITY_ONLY" default:"true"`
	SpamLimit       int  `envconfig:"SCHEDULER_SPAM_LIMIT" default:"5" validate:"gte=0"`
}

// Settings converts the scheduler configuration into runtime settings.
func (s *SchedulerConfig) Settings() model.Settings {
	return model.Settings{
		IntervalMinutes:  s.IntervalMinutes,
		SchedulerEnabled: s.Enabled,
		IgnoreTax:        s.IgnoreTax,
		SameQualityOnly:  s.SameQualityOnly,
		SpamLimit:        s.SpamLimit,
	}
}

// RegionConfig holds region lookup settings.
type RegionConfig struct {
	Default string        `envconfig:"REGION_DEFAULT" default:""`
	TTL     time.Duration `envconfig:"REGION_TTL" default:"0s"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory" validate:"oneof=memory redis"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds snapshot storage settings.
type StorageConfig struct {
	Type             string        `envconfig:"STORAGE_TYPE" default:"sqlite" validate:"oneof=sqlite postgres mysql file"`
	Path             string        `envconfig:"STORAGE_PATH" default:"./data/watchlist.db"`
	AutosaveInterval time.Duration `envconfig:"STORAGE_AUTOSAVE_INTERVAL" default:"5m"`

	// PostgreSQL and MySQL settings. A zero port selects the backend's default.
	Host     string `envconfig:"STORAGE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORAGE_DB_PORT" default:"0" validate:"gte=0,lte=65535"`
	Name     string `envconfig:"STORAGE_DB_NAME" default:"pricenotifier"`
	User     string `envconfig:"STORAGE_DB_USER" default:"postgres"`
	Password string `envconfig:"STORAGE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORAGE_DB_SSLMODE" default:"disable"`
}

// NotifyConfig holds notification surface settings.
type NotifyConfig struct {
	Log          bool   `envconfig:"NOTIFY_LOG" default:"true"`
	WebhookURL   string `envconfig:"NOTIFY_WEBHOOK_URL" default:"" validate:"omitempty,url"`
	RedisChannel string `envconfig:"NOTIFY_REDIS_CHANNEL" default:""`
	RedisListKey string `envconfig:"NOTIFY_REDIS_LIST_KEY" default:"pricenotifier:alerts:recent"`
	RedisMaxLen  int64  `envconfig:"NOTIFY_REDIS_MAX_LEN" default:"100" validate:"gte=0"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `envconfig:"API_KEYS" default:""`
}

// Keys returns the configured keys without blanks.
func (a *AuthConfig) Keys() []string {
	keys := make([]string, 0, len(a.APIKeys))
	for _, k := range a.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StorageConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, s.DBPort(), s.Name, s.SSLMode)
}

// DBPort returns the configured database port, or 3306 for mysql and 5432
// otherwise when none is set.
func (s *StorageConfig) DBPort() int {
	switch {
	case s.Port != 0:
		return s.Port
	case s.Type == "mysql":
		return 3306
	default:
		return 5432
	}
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Cache.Type == "redis" || c.Notify.RedisChannel != ""
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
