package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	PublicAppURL    string

	DatabaseURL string
	AutoMigrate bool

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MaxUploadBytes  int64

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	AdminEmails      []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	SessionSecret      string

	SMTP             SMTPConfig
	NotifyMode       string
	NotifyAdminEmail string
	QueueBackend     string
	SQSQueueURL      string
	AMQPURL          string
	AMQPQueue        string

	ShareSweepSchedule string
	RateLimits         RateLimits
}

// SMTPConfig configures outbound mail delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// RateLimits are requests per minute per principal and route group.
type RateLimits struct {
	AuthPerMinute    int
	ExportPerMinute  int
	DefaultPerMinute int
}

const devSecret = "dev-only-secret-change-me"

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	publicURL := strings.TrimRight(getEnv("PUBLIC_APP_URL", "http://localhost:5173"), "/")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	accessSecret := getEnv("JWT_ACCESS_SECRET", "")
	refreshSecret := getEnv("JWT_REFRESH_SECRET", "")
	if accessSecret == "" || refreshSecret == "" {
		if env == "production" {
			log.Printf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
		}
		if accessSecret == "" {
			accessSecret = devSecret
		}
		if refreshSecret == "" {
			refreshSecret = devSecret + "-refresh"
		}
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", publicURL)),
		PublicAppURL:    publicURL,

		DatabaseURL: dbURL,
		AutoMigrate: getBool("AUTO_MIGRATE", env != "production"),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),

		JWTAccessSecret:  accessSecret,
		JWTRefreshSecret: refreshSecret,
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 10*24*time.Hour),
		AdminEmails:      lowerAll(splitAndTrim(getEnv("ADMIN_EMAILS", ""))),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", publicURL+"/auth/callback"),
		SessionSecret:      getEnv("SESSION_SECRET", devSecret),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		NotifyMode:       normalizeNotifyMode(getEnv("NOTIFY_MODE", "inline")),
		NotifyAdminEmail: getEnv("NOTIFY_ADMIN_EMAIL", ""),
		QueueBackend:     normalizeQueueBackend(getEnv("QUEUE_BACKEND", "sqs")),
		SQSQueueURL:      getEnv("SQS_QUEUE_URL", ""),
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPQueue:        getEnv("AMQP_QUEUE", "resume-notifications"),

		ShareSweepSchedule: getEnv("SHARE_SWEEP_SCHEDULE", "@every 1h"),
		RateLimits: RateLimits{
			AuthPerMinute:    getInt("RATE_LIMIT_AUTH_PER_MIN", 10),
			ExportPerMinute:  getInt("RATE_LIMIT_EXPORT_PER_MIN", 20),
			DefaultPerMinute: getInt("RATE_LIMIT_DEFAULT_PER_MIN", 120),
		},
	}
}

// IsDev reports whether the environment is a developer machine.
func (c Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "local"
}

// IsAdminEmail reports whether email is on the admin allow-list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		log.Printf("invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeNotifyMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "queue":
		return "queue"
	case "off", "none", "disabled":
		return "off"
	default:
		return "inline"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "amqp", "rabbitmq":
		return "amqp"
	default:
		return "sqs"
	}
}
