package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Ledger     LedgerConfig
	Matching   MatchingConfig
	Comparison ComparisonConfig
	Cascade    CascadeConfig
	Estimator  EstimatorConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig controls the console and rotating file log outputs
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty disables the file output
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// StorageConfig selects where ledger records and purchase history live
type StorageConfig struct {
	Type        string `mapstructure:"type"` // "memory", "redis" or "postgres"
	RedisURL    string `mapstructure:"redis_url"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// LedgerConfig holds price ledger configuration
type LedgerConfig struct {
	DecayDays  float64 `mapstructure:"decay_days"`
	MaxRetries int     `mapstructure:"max_retries"`
}

// MatchingConfig holds fuzzy matching thresholds (0-100)
type MatchingConfig struct {
	MinSimilarity      int `mapstructure:"min_similarity"`
	MaxResults         int `mapstructure:"max_results"`
	DuplicateThreshold int `mapstructure:"duplicate_threshold"`
}

// ComparisonConfig holds size matching tolerances as fractions
type ComparisonConfig struct {
	SizeTolerance  float64 `mapstructure:"size_tolerance"`
	ExactTolerance float64 `mapstructure:"exact_tolerance"`
}

// CascadeConfig holds the fixed confidences of the history tiers
type CascadeConfig struct {
	PersonalConfidence     float64 `mapstructure:"personal_confidence"`
	CrowdsourcedConfidence float64 `mapstructure:"crowdsourced_confidence"`
}

// EstimatorConfig holds AI price estimator configuration. An empty BaseURL
// disables the estimation pass.
type EstimatorConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// PRICELENS_STORAGE_TYPE overrides storage.type
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("storage.type", StorageMemory)
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("ledger.decay_days", 30)
	v.SetDefault("ledger.max_retries", 5)

	v.SetDefault("matching.min_similarity", 50)
	v.SetDefault("matching.max_results", 10)
	v.SetDefault("matching.duplicate_threshold", 85)

	v.SetDefault("comparison.size_tolerance", 0.20)
	v.SetDefault("comparison.exact_tolerance", 0.01)

	v.SetDefault("cascade.personal_confidence", 0.8)
	v.SetDefault("cascade.crowdsourced_confidence", 0.6)

	v.SetDefault("estimator.base_url", "")
	v.SetDefault("estimator.api_key", "")
	v.SetDefault("estimator.requests_per_second", 2)
	v.SetDefault("estimator.timeout", "15s")
	v.SetDefault("estimator.cache_ttl", "24h")

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if _, err := zerolog.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("unknown log level %q", config.Log.Level)
	}

	switch config.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if config.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required when storage type is 'redis' (set PRICELENS_STORAGE_REDIS_URL)")
		}
	case StoragePostgres:
		if config.Storage.PostgresDSN == "" {
			return fmt.Errorf("postgres DSN is required when storage type is 'postgres' (set PRICELENS_STORAGE_POSTGRES_DSN)")
		}
	default:
		return fmt.Errorf("storage type must be 'memory', 'redis' or 'postgres', got: %s", config.Storage.Type)
	}

	if config.Ledger.DecayDays <= 0 {
		return fmt.Errorf("ledger decay_days must be positive, got: %v", config.Ledger.DecayDays)
	}
	if config.Ledger.MaxRetries < 1 {
		return fmt.Errorf("ledger max_retries must be at least 1, got: %d", config.Ledger.MaxRetries)
	}

	m := config.Matching
	if m.MinSimilarity < 0 || m.MinSimilarity > 100 || m.DuplicateThreshold < 0 || m.DuplicateThreshold > 100 {
		return fmt.Errorf("matching thresholds must be within 0-100")
	}
	if m.MaxResults < 1 {
		return fmt.Errorf("matching max_results must be at least 1, got: %d", m.MaxResults)
	}

	c := config.Comparison
	if c.SizeTolerance <= 0 || c.SizeTolerance >= 1 {
		return fmt.Errorf("comparison size_tolerance must be within (0,1), got: %v", c.SizeTolerance)
	}
	if c.ExactTolerance <= 0 || c.ExactTolerance > c.SizeTolerance {
		return fmt.Errorf("comparison exact_tolerance must be within (0,size_tolerance], got: %v", c.ExactTolerance)
	}

	for name, v := range map[string]float64{
		"personal_confidence":     config.Cascade.PersonalConfidence,
		"crowdsourced_confidence": config.Cascade.CrowdsourcedConfidence,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("cascade %s must be within (0,1], got: %v", name, v)
		}
	}

	if config.RateLimit.PerIP < 1 {
		return fmt.Errorf("ratelimit per_ip must be at least 1, got: %d", config.RateLimit.PerIP)
	}

	return nil
}

// loadEnvFile exports the variables of ./.env that are not already set in
// the environment. A missing file is not an error.
func loadEnvFile() error {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
