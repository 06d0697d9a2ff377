package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL     = "https://members-api.parliament.uk"
	DefaultStartDate      = "1980-01-01"
	DefaultEndDate        = "1990-01-01"
	DefaultOutputDir      = "parties_data"
	DefaultRequestTimeout = 10 * time.Second
	DefaultRequestDelay   = 200 * time.Millisecond
	DefaultCronSpec       = "0 3 1 * *" // 03:00 on the 1st of every month
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	APIBaseURL     string
	StartDate      time.Time // Normalized to the 1st of the month
	EndDate        time.Time // Normalized to the 1st of the month
	OutputDir      string
	RequestTimeout time.Duration
	RequestDelay   time.Duration // Pause after every date, whatever the outcome
	LogLevel       string
	Environment    string
	CronSpec       string

	// Optional integrations, disabled when empty/zero
	DatabaseURL     string
	TelegramToken   string
	AdminTelegramID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", DefaultAPIBaseURL), "/")

	cfg.StartDate, err = ParseMonth(getEnv("START_DATE", DefaultStartDate))
	if err != nil {
		return nil, fmt.Errorf("invalid START_DATE: %w", err)
	}
	cfg.EndDate, err = ParseMonth(getEnv("END_DATE", DefaultEndDate))
	if err != nil {
		return nil, fmt.Errorf("invalid END_DATE: %w", err)
	}

	cfg.OutputDir = getEnv("OUTPUT_DIR", DefaultOutputDir)

	cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	cfg.RequestDelay, err = getDuration("REQUEST_DELAY", DefaultRequestDelay)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.CronSpec = getEnv("CRON_SPEC", DefaultCronSpec)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that can also be changed after loading (e.g. by CLI flags).
func (c *AppConfig) Validate() error {
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date %s is after end date %s",
			c.StartDate.Format(snapshot.DateLayout), c.EndDate.Format(snapshot.DateLayout))
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is not set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must not be negative, got %s", c.RequestDelay)
	}
	return nil
}

// TelegramEnabled reports whether the summary report bot is configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.AdminTelegramID != 0
}

// ParseMonth parses a YYYY-MM-DD date and normalizes it to the 1st of its month.
func ParseMonth(value string) (time.Time, error) {
	t, err := time.Parse(snapshot.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return snapshot.FirstOfMonth(t), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
