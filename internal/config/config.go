package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	LogLevel       string
	Port           string
	TelegramToken  string
	ReviewerChatID int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		Port:          getEnvOrDefault("PORT", "8080"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	// Reviewer chat is only required when the Telegram notifier is enabled.
	if raw := os.Getenv("REVIEWER_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("REVIEWER_CHAT_ID must be an integer: %w", err)
		}
		cfg.ReviewerChatID = chatID
	}
	if cfg.TelegramToken != "" && cfg.ReviewerChatID == 0 {
		return nil, fmt.Errorf("REVIEWER_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
