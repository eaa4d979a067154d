package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramToken string

	// Admin identities allowed to run contest commands. The first entry is
	// the operator channel for notifications.
	AdminIDs []int64

	// Database configuration
	DatabaseURL string

	// Lifecycle scheduler tick interval
	LifecycleCheckInterval time.Duration

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Pick up a local .env when present; absence is fine in production
	_ = godotenv.Load()

	config := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		// Lifecycle checks run hourly by default
		LifecycleCheckInterval: time.Hour,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Parse admin Telegram IDs
	if adminIDs := os.Getenv("ADMIN_IDS"); adminIDs != "" {
		idStrings := strings.Split(adminIDs, ",")
		for _, idStr := range idStrings {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", idStr, err)
			}
			config.AdminIDs = append(config.AdminIDs, id)
		}
	}

	if interval := os.Getenv("LIFECYCLE_CHECK_INTERVAL_MINUTES"); interval != "" {
		if parsedMinutes, err := strconv.Atoi(interval); err == nil && parsedMinutes > 0 {
			config.LifecycleCheckInterval = time.Duration(parsedMinutes) * time.Minute
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if len(config.AdminIDs) == 0 {
			return nil, fmt.Errorf("ADMIN_IDS is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// IsAdmin reports whether the given Telegram ID is on the admin allow-list.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// OperatorID returns the Telegram ID notifications are sent to.
func (c *Config) OperatorID() int64 {
	if len(c.AdminIDs) == 0 {
		return 0
	}
	return c.AdminIDs[0]
}
