package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("RESET_TOKEN_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.NotEmpty(t, cfg.SecretKey)
	assert.Empty(t, cfg.Queue.KafkaBrokers)
	assert.Equal(t, "mail.password_reset", cfg.Queue.MailTopic)
	assert.Equal(t, cfg.PublicBaseURL+"/auth/casdoor/callback", cfg.Casdoor.RedirectURL)
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SECRET_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PUBLIC_BASE_URL", "https://study.example.com/")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Queue.KafkaBrokers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "https://study.example.com", cfg.PublicBaseURL)
}

func TestLoadConfig_RejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("SECRET_KEY", "x")
	t.Setenv("RESET_TOKEN_TTL", "-1m")

	_, err := LoadConfig()
	assert.Error(t, err)
}
