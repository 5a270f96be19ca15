package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	ChannelChatID   int64 // channel the notifications are published to
	AdminTelegramID int64 // chat allowed to use operator commands
	DatabaseURL     string
	SourceBaseURL   string
	HTTPTimeout     time.Duration
	CronSpecScrape  string
	LogLevel        string
	Environment     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	channelIDStr := os.Getenv("CHANNEL_CHAT_ID")
	if channelIDStr == "" {
		return nil, fmt.Errorf("CHANNEL_CHAT_ID is not set")
	}
	cfg.ChannelChatID, err = strconv.ParseInt(channelIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CHANNEL_CHAT_ID: %w", err)
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.SourceBaseURL = os.Getenv("SOURCE_BASE_URL")
	if cfg.SourceBaseURL == "" {
		cfg.SourceBaseURL = "https://ico.org.uk"
	}

	timeoutStr := os.Getenv("HTTP_TIMEOUT_SECONDS")
	if timeoutStr == "" {
		cfg.HTTPTimeout = 30 * time.Second
	} else {
		seconds, err := strconv.Atoi(timeoutStr)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: %q", timeoutStr)
		}
		cfg.HTTPTimeout = time.Duration(seconds) * time.Second
	}

	cfg.CronSpecScrape = os.Getenv("CRON_SPEC_SCRAPE")
	if cfg.CronSpecScrape == "" {
		cfg.CronSpecScrape = "0 */6 * * *" // Default: every 6 hours
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	return cfg, nil
}
