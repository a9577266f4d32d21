// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the console server and the CLI read from the environment.
type Config struct {
	// Server
	Port      string
	DebugMode bool
	LogLevel  string
	LogFormat string // json | text
	LogDir    string

	// Backend collaborator
	BackendURL     string
	BackendTimeout time.Duration

	// Workflow
	PlatformsFile         string
	DiscardStaleResponses bool
	SpecializeConcurrency int
	SessionTTL            time.Duration

	// Rendering
	DisplayTimezone string
	TimestampLayout string
}

const DefaultTimestampLayout = "Jan 2, 2006 15:04"

// Load reads .env (optional) and the process environment.
func Load() (*Config, error) {
	// .env is optional, the process environment wins
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		DebugMode:             getEnvBool("DEBUG_MODE", false),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "text"),
		LogDir:                getEnv("LOG_DIR", ""),
		BackendURL:            strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000"), "/"),
		BackendTimeout:        getEnvDuration("BACKEND_TIMEOUT", 60*time.Second),
		PlatformsFile:         getEnv("PLATFORMS_FILE", ""),
		DiscardStaleResponses: getEnvBool("DISCARD_STALE_RESPONSES", false),
		SpecializeConcurrency: getEnvInt("SPECIALIZE_CONCURRENCY", 5),
		SessionTTL:            getEnvDuration("SESSION_TTL", 2*time.Hour),
		DisplayTimezone:       getEnv("DISPLAY_TIMEZONE", "Local"),
		TimestampLayout:       getEnv("TIMESTAMP_LAYOUT", DefaultTimestampLayout),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL must not be empty")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.SpecializeConcurrency < 1 {
		return fmt.Errorf("SPECIALIZE_CONCURRENCY must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves DisplayTimezone, the zone history timestamps are shown in.
func (c *Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" || c.DisplayTimezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	return loc, nil
}

// getEnv returns the variable or defaultValue when unset.
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool parses a boolean variable.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
