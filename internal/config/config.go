package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DurationUnit names the unit of the upstream connection-duration column.
// The live call-event table stores milliseconds, the archive table seconds;
// the unit is fixed per deployment and converted exactly once at the query
// boundary so the aggregator only ever sees seconds.
type DurationUnit string

const (
	DurationMilliseconds DurationUnit = "ms"
	DurationSeconds      DurationUnit = "s"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	UpstreamDSN          string
	UpstreamQueryTimeout time.Duration
	DurationUnit         DurationUnit

	BusinessTZOffsetHours int           // fixed offset from UTC, no DST upstream
	SyncPollInterval      time.Duration // live-view refresh cadence
	LookbackDays          int
	WorkdayHours          float64 // normalization constant for success-per-hour

	TranscribeURL string

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UpstreamDSN:    getEnv("UPSTREAM_DSN", ""),
		TranscribeURL:  getEnv("TRANSCRIBE_URL", ""),
	}

	queryTimeout, err := strconv.Atoi(getEnv("UPSTREAM_QUERY_TIMEOUT", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_QUERY_TIMEOUT: %w", err)
	}
	config.UpstreamQueryTimeout = time.Duration(queryTimeout) * time.Second

	unit := DurationUnit(getEnv("UPSTREAM_DURATION_UNIT", "ms"))
	if unit != DurationMilliseconds && unit != DurationSeconds {
		return nil, fmt.Errorf("invalid UPSTREAM_DURATION_UNIT: %q (want ms or s)", unit)
	}
	config.DurationUnit = unit

	offset, err := strconv.Atoi(getEnv("BUSINESS_TZ_OFFSET_HOURS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TZ_OFFSET_HOURS: %w", err)
	}
	config.BusinessTZOffsetHours = offset

	pollInterval, err := time.ParseDuration(getEnv("SYNC_POLL_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_POLL_INTERVAL: %w", err)
	}
	config.SyncPollInterval = pollInterval

	lookback, err := strconv.Atoi(getEnv("LOOKBACK_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOOKBACK_DAYS: %w", err)
	}
	config.LookbackDays = lookback

	workday, err := strconv.ParseFloat(getEnv("WORKDAY_HOURS", "7.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKDAY_HOURS: %w", err)
	}
	if workday <= 0 {
		return nil, fmt.Errorf("invalid WORKDAY_HOURS: must be positive, got %v", workday)
	}
	config.WorkdayHours = workday

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
