package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Reddit credentials (script-type app)
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string

	// AI text generation (Groq / OpenAI-compatible chat completions)
	GroqAPIKey   string
	GroqModel    string
	GroqEndpoint string

	// Recommendation tuning
	RelevanceFloor     float64
	MaxRecommendations int
	RelevanceWeight    float64
	ComplianceWeight   float64

	// Submission retry policy
	RetryCount   int
	BackoffBase  time.Duration
	CallTimeout  time.Duration

	// Posting account, used by the min-account-age rule
	AccountAgeDays int

	// Article sources accepted by the analyzer; empty means any
	AllowedDomains []string

	// Persistence
	HistoryDBPath string
	CatalogPath   string

	// Notifications
	ReportWebhookURL  string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Daily digest schedule ("daily" or "weekly")
	DigestSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUsername:     getEnv("REDDIT_USERNAME", ""),
		RedditPassword:     getEnv("REDDIT_PASSWORD", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "reddit-autopost/1.0"),

		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqModel:    getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqEndpoint: getEnv("GROQ_ENDPOINT", "https://api.groq.com/openai/v1/chat/completions"),

		RelevanceFloor:     getFloatEnv("RELEVANCE_FLOOR", 0.30),
		MaxRecommendations: getIntEnv("MAX_RECOMMENDATIONS", 8),
		RelevanceWeight:    getFloatEnv("RELEVANCE_WEIGHT", 0.6),
		ComplianceWeight:   getFloatEnv("COMPLIANCE_WEIGHT", 0.4),

		RetryCount:  getIntEnv("RETRY_COUNT", 3),
		BackoffBase: getDurationEnv("RETRY_BACKOFF", 2*time.Second),
		CallTimeout: getDurationEnv("CALL_TIMEOUT", 10*time.Second),

		AccountAgeDays: getIntEnv("ACCOUNT_AGE_DAYS", 0),

		AllowedDomains: getSliceEnv("ALLOWED_DOMAINS", nil),

		HistoryDBPath: getEnv("HISTORY_DB_PATH", "data/history.db"),
		CatalogPath:   getEnv("CATALOG_PATH", ""),

		ReportWebhookURL:  getEnv("REPORT_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		DigestSchedule: getEnv("DIGEST_SCHEDULE", "daily"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RelevanceFloor < 0 || c.RelevanceFloor > 1 {
		return fmt.Errorf("RELEVANCE_FLOOR must be within [0,1], got %v", c.RelevanceFloor)
	}

	if c.MaxRecommendations < 1 {
		return fmt.Errorf("MAX_RECOMMENDATIONS must be at least 1")
	}

	if math.Abs(c.RelevanceWeight+c.ComplianceWeight-1.0) > 1e-9 {
		return fmt.Errorf("RELEVANCE_WEIGHT and COMPLIANCE_WEIGHT must sum to 1.0, got %v and %v",
			c.RelevanceWeight, c.ComplianceWeight)
	}

	if c.RetryCount < 1 {
		return fmt.Errorf("RETRY_COUNT must be at least 1")
	}

	if c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// RedditConfigured reports whether posting credentials are present.
func (c *Config) RedditConfigured() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != "" &&
		c.RedditUsername != "" && c.RedditPassword != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
