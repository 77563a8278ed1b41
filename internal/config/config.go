package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string `validate:"omitempty,ip|hostname"`
	Port string `validate:"required,numeric"`

	// Database snapshot
	GeoIPDir    string `validate:"required"`
	GeoIPDBFile string `validate:"required"`

	// External updater
	UpdaterCommand  string `validate:"required"`
	UpdaterArgs     []string
	UpdaterTimeout  time.Duration `validate:"gte=0"`
	RefreshInterval time.Duration `validate:"gt=0"`
	UpdateOnStart   bool

	// Snapshot file watcher
	WatchDB       bool
	WatchDebounce time.Duration `validate:"gte=0"`

	// Record cache
	CacheType string        `validate:"oneof=none memory redis"`
	CacheSize int           `validate:"gt=0"`
	CacheTTL  time.Duration `validate:"gte=0"`

	// Redis configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	// Refresh history (MySQL DSN, empty disables it)
	RefreshHistoryDSN string

	// Logging
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogPretty bool
	LogFile   string
}

// Load reads configuration from environment variables
// with sensible defaults
func Load() *Config {
	// Load .env file if it exists (for local development)
	// In production/Docker, environment variables are set directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}

	return &Config{
		Host: getEnv("HOST", "0.0.0.0"),
		Port: getEnv("PORT", "5003"),

		GeoIPDir:    getEnv("GEOIP_DIR", "/usr/share/GeoIP"),
		GeoIPDBFile: getEnv("GEOIP_DB_FILE", "GeoLite2-City.mmdb"),

		UpdaterCommand:  getEnv("UPDATER_COMMAND", "/usr/bin/entry.sh"),
		UpdaterArgs:     strings.Fields(getEnv("UPDATER_ARGS", "")),
		UpdaterTimeout:  getEnvAsDuration("UPDATER_TIMEOUT", 0),
		RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 24*time.Hour),
		UpdateOnStart:   getEnvAsBool("UPDATE_ON_START", true),

		WatchDB:       getEnvAsBool("WATCH_DB", false),
		WatchDebounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),

		CacheType: strings.ToLower(getEnv("CACHE_TYPE", "none")),
		CacheSize: getEnvAsInt("CACHE_SIZE", 10000),
		CacheTTL:  getEnvAsDuration("CACHE_TTL", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		RefreshHistoryDSN: getEnv("REFRESH_HISTORY_DSN", ""),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr is the address the HTTP server binds to
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// DBPath is the full path of the database snapshot file
func (c *Config) DBPath() string {
	return filepath.Join(c.GeoIPDir, c.GeoIPDBFile)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer
// Returns default if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean
// Accepts everything strconv.ParseBool does; returns default otherwise
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration reads an environment variable as a time.Duration ("24h", "90s")
// Returns default if not set or invalid
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
