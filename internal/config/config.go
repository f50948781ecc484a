package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings of the service
type Config struct {
	Environment   string
	Port          string
	LogLevel      slog.Level
	DatabaseURL   string
	RedisURL      string
	SecretKey     string
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	PublicBaseURL string
	UploadDir     string

	AllowedOrigins []string

	Mail      MailConfig
	Queue     QueueConfig
	Assistant AssistantConfig
	Casdoor   CasdoorConfig
	WebSocket WebSocketConfig
}

type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	DefaultSender string
}

// Enabled reports whether an SMTP relay is configured
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

type QueueConfig struct {
	KafkaBrokers  []string
	ConsumerGroup string
	MailTopic     string
	MaxRetries    int
	RetryInterval time.Duration
}

type AssistantConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
	RedirectURL  string
}

// Enabled reports whether Casdoor single sign-on is configured
func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.ClientID != ""
}

type WebSocketConfig struct {
	MaxMessageSize    int64
	RateLimitBurst    int
	RateLimitInterval time.Duration
	SendBufferSize    int
	HandshakeTimeout  time.Duration
}

// LoadConfig reads configuration from the environment, loading a .env file first when present
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=studyroom port=5432 sslmode=disable TimeZone=UTC"),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		SessionTTL:     getDuration("SESSION_TTL", 7*24*time.Hour),
		ResetTokenTTL:  getDuration("RESET_TOKEN_TTL", time.Hour),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		UploadDir:      getEnv("UPLOAD_DIR", "static/profile_pics"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:8080")),
		Mail: MailConfig{
			Host:          os.Getenv("MAIL_SERVER"),
			Port:          getInt("MAIL_PORT", 587),
			Username:      os.Getenv("MAIL_USERNAME"),
			Password:      os.Getenv("MAIL_PASSWORD"),
			DefaultSender: getEnv("MAIL_DEFAULT_SENDER", "noreply@studyroom.local"),
		},
		Queue: QueueConfig{
			KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "studyroom-mailer"),
			MailTopic:     getEnv("MAIL_TOPIC", "mail.password_reset"),
			MaxRetries:    getInt("MAIL_MAX_RETRIES", 3),
			RetryInterval: getDuration("MAIL_RETRY_INTERVAL", 2*time.Second),
		},
		Assistant: AssistantConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
			RedirectURL:  os.Getenv("CASDOOR_REDIRECT_URL"),
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize:    int64(getInt("WS_MAX_MESSAGE_SIZE", 4096)),
			RateLimitBurst:    getInt("WS_RATE_LIMIT_BURST", 5),
			RateLimitInterval: getDuration("WS_RATE_LIMIT_INTERVAL", time.Second),
			SendBufferSize:    getInt("WS_SEND_BUFFER", 256),
			HandshakeTimeout:  getDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		},
	}

	if cfg.Casdoor.RedirectURL == "" {
		cfg.Casdoor.RedirectURL = cfg.PublicBaseURL + "/auth/casdoor/callback"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SecretKey == "" {
		if c.Environment == "production" {
			return fmt.Errorf("SECRET_KEY is required in production")
		}
		c.SecretKey = "dev-secret-key-change-me"
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive, got %s", c.ResetTokenTTL)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("MAIL_MAX_RETRIES must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
