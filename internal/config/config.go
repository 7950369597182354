package config

import (
	"os"
	"strconv"
	"time"

	"rubik/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Session   SessionConfig
	Search    SearchConfig
	Media     MediaConfig
	Log       LogConfig
	Profiling ProfilingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL            string
	MaxOpenConns   int
	ConnectTimeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	GinMode     string
	CSRFEnabled bool
}

// SessionConfig controls where sessions live and how the cookie is issued
type SessionConfig struct {
	Backend      string // "memory" or "redis"
	RedisURL     string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// SearchConfig holds the outbound search provider and title fetch settings
type SearchConfig struct {
	BaseURL      string
	Lang         string
	NumResults   int
	Stop         int
	Pause        time.Duration
	TitleTimeout time.Duration
	UserAgent    string
}

// MediaConfig holds where uploaded profile pictures are written
type MediaConfig struct {
	Root string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string
	Environment string
}

// ProfilingConfig holds the ops server settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig
	config.Server = *loadServerConfig()
	config.Session = *loadSessionConfig()
	config.Search = *loadSearchConfig()
	config.Media = MediaConfig{Root: getEnvOrDefault("MEDIA_ROOT", "./media")}
	config.Log = LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Environment: getEnvOrDefault("APP_ENV", "development"),
	}
	config.Profiling = ProfilingConfig{
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", true),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:            url,
		MaxOpenConns:   getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnectTimeout: getEnvDurationOrDefault("DB_CONNECT_TIMEOUT", 30*time.Second),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:        getEnvOrDefault("PORT", "8080"),
		GinMode:     getEnvOrDefault("GIN_MODE", "debug"),
		CSRFEnabled: getEnvBoolOrDefault("CSRF_ENABLED", true),
	}
}

func loadSessionConfig() *SessionConfig {
	return &SessionConfig{
		Backend:      getEnvOrDefault("SESSION_BACKEND", SessionBackendMemory),
		RedisURL:     getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		TTL:          getEnvDurationOrDefault("SESSION_TTL", 14*24*time.Hour),
		CookieName:   getEnvOrDefault("SESSION_COOKIE_NAME", "sessionid"),
		CookieSecure: getEnvBoolOrDefault("SESSION_COOKIE_SECURE", false),
	}
}

func loadSearchConfig() *SearchConfig {
	return &SearchConfig{
		BaseURL:      getEnvOrDefault("SEARCH_BASE_URL", "https://www.google.com/search"),
		Lang:         getEnvOrDefault("SEARCH_LANG", "en"),
		NumResults:   getEnvIntOrDefault("SEARCH_NUM_RESULTS", 20),
		Stop:         getEnvIntOrDefault("SEARCH_STOP", 20),
		Pause:        getEnvDurationOrDefault("SEARCH_PAUSE", time.Second),
		TitleTimeout: getEnvDurationOrDefault("TITLE_TIMEOUT", 5*time.Second),
		UserAgent: getEnvOrDefault("SEARCH_USER_AGENT",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	switch config.Session.Backend {
	case SessionBackendMemory:
	case SessionBackendRedis:
		if config.Session.RedisURL == "" {
			return errors.ConfigInvalid("REDIS_URL is required for the redis session backend")
		}
	default:
		return errors.ConfigInvalid("SESSION_BACKEND must be memory or redis")
	}
	if config.Search.NumResults <= 0 || config.Search.Stop <= 0 {
		return errors.ConfigInvalid("search result bounds must be positive")
	}
	if config.Session.TTL <= 0 {
		return errors.ConfigInvalid("SESSION_TTL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
