package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cesargomez89/downtil/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port          string
	DBPath        string
	DownloadsDir  string
	CookiesFile   string
	UserAgent     string
	LogLevel      string
	LogFormat     string
	MaxWorkers    int
	MaxActive     int
	QueueCapacity int
	ProbeCacheTTL time.Duration
	PurgeOnStart  bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	workers := getEnvInt("MAX_WORKERS", constants.DefaultMaxWorkers)

	return &Config{
		Port:          getEnv("PORT", constants.DefaultPort),
		DBPath:        getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:  absPath(getEnv("DOWNLOADS_DIR", constants.DefaultDownloadsDir)),
		CookiesFile:   absPath(getEnv("COOKIES_FILE", constants.DefaultCookiesFile)),
		UserAgent:     getEnv("USER_AGENT", constants.DefaultUserAgent),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		MaxWorkers:    workers,
		MaxActive:     getEnvInt("MAX_ACTIVE", workers),
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", constants.DefaultQueueCapacity),
		ProbeCacheTTL: getEnvDuration("PROBE_CACHE_TTL", constants.DefaultProbeCacheTTL),
		PurgeOnStart:  getEnvBool("PURGE_ON_START", true),
	}
}

// HasCookies reports whether the configured credentials file exists
func (c *Config) HasCookies() bool {
	if c.CookiesFile == "" {
		return false
	}
	info, err := os.Stat(c.CookiesFile)
	return err == nil && !info.IsDir()
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.MaxWorkers < 1 {
		errors = append(errors, fmt.Sprintf("MAX_WORKERS must be at least 1, got: %d", c.MaxWorkers))
	}

	if c.MaxActive < 1 {
		errors = append(errors, fmt.Sprintf("MAX_ACTIVE must be at least 1, got: %d", c.MaxActive))
	}

	if c.QueueCapacity < 1 {
		errors = append(errors, fmt.Sprintf("QUEUE_CAPACITY must be at least 1, got: %d", c.QueueCapacity))
	}

	if c.ProbeCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("PROBE_CACHE_TTL cannot be negative, got: %s", c.ProbeCacheTTL))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// getEnvInt parses an integer variable; unparsable values yield -1 so Validate reports them
func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func absPath(p string) string {
	if p == "" {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
