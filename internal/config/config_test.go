package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 0.30, cfg.RelevanceFloor)
	assert.Equal(t, 8, cfg.MaxRecommendations)
	assert.Equal(t, 0.6, cfg.RelevanceWeight)
	assert.Equal(t, 0.4, cfg.ComplianceWeight)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, "daily", cfg.DigestSchedule)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.GroqModel)
	assert.False(t, cfg.RedditConfigured())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RELEVANCE_FLOOR", "0.5")
	t.Setenv("RETRY_COUNT", "5")
	t.Setenv("RETRY_BACKOFF", "500ms")
	t.Setenv("DEBUG", "true")
	t.Setenv("ALLOWED_DOMAINS", "medium.com, dev.to")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 0.5, cfg.RelevanceFloor)
	assert.Equal(t, 5, cfg.RetryCount)
	assert.Equal(t, 500*time.Millisecond, cfg.BackoffBase)
	assert.True(t, cfg.Debug)
	assert.Equal(t, []string{"medium.com", "dev.to"}, cfg.AllowedDomains)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"floor above one", "RELEVANCE_FLOOR", "1.5"},
		{"zero max recommendations", "MAX_RECOMMENDATIONS", "0"},
		{"weights must sum to one", "RELEVANCE_WEIGHT", "0.9"},
		{"zero retries", "RETRY_COUNT", "0"},
		{"bad digest schedule", "DIGEST_SCHEDULE", "hourly"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_EmailRequiresSMTP(t *testing.T) {
	t.Setenv("NOTIFICATION_EMAIL", "ops@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP")

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USERNAME", "bot")
	t.Setenv("SMTP_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestRedditConfigured(t *testing.T) {
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "bot")
	t.Setenv("REDDIT_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.RedditConfigured())
}

func TestEnvHelpers_IgnoreMalformedValues(t *testing.T) {
	t.Setenv("RETRY_COUNT", "not-a-number")
	t.Setenv("RETRY_BACKOFF", "soon")
	t.Setenv("DEBUG", "kinda")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 2*time.Second, cfg.BackoffBase)
	assert.False(t, cfg.Debug)
}
