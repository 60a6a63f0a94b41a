package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/comilla/site-backend/internal/validation"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	S3             S3Config
	Email          EmailConfig
	Contact        ContactConfig
	CORS           CORSConfig
	RateLimit      RateLimitConfig
	Logging        LoggingConfig
	Tracing        TracingConfig
	Jobs           JobsConfig
	AdminBootstrap AdminBootstrapConfig
	Environment    string
}

type ServerConfig struct {
	Host          string
	Port          int
	MaxUploadSize int64
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MigrationsPath string
}

type AuthConfig struct {
	JWTSecret        string
	SessionTTL       time.Duration
	BcryptCost       int
	OpenRegistration bool
	SecureCookie     bool
}

// S3Config points at the bucket holding record images. BaseEndpoint is only
// set for S3-compatible stores (MinIO); PublicBaseURL overrides the derived
// virtual-hosted URL for stored image links.
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BaseEndpoint    string
	UsePathStyle    bool
	PublicBaseURL   string
}

type EmailConfig struct {
	Enabled      bool
	From         string
	ResendAPIKey string
}

type ContactConfig struct {
	Recipient string
	Subject   string
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

// RateLimitConfig holds per-tier request budgets. A tier at zero is not
// limited. X-Forwarded-For is honored only from TrustedProxyCIDRs.
type RateLimitConfig struct {
	PublicPerMinute   int
	AdminPerMinute    int
	LoginPerMinute    int
	TrustedProxyCIDRs []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type JobsConfig struct {
	Enabled            bool
	OrphanSweepEvery   time.Duration
	OrphanSweepBatch   int
	OrphanMaxAttempts  int
	MaintenanceWorkers int
}

type AdminBootstrapConfig struct {
	Email    string
	Password string
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	return newLoader(nil).load()
}

// LoadFile reads a YAML file of KEY: value pairs named like the environment
// variables and uses it as a fallback beneath the real environment.
func LoadFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Load()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return newLoader(values).load()
}

type loader struct {
	file map[string]string
}

func newLoader(file map[string]string) loader {
	return loader{file: file}
}

func (l loader) load() (Config, error) {
	env := l.getEnv("ENVIRONMENT", "development")
	cfg := Config{
		Server: ServerConfig{
			Host:          l.getEnv("SERVER_HOST", "0.0.0.0"),
			Port:          l.getEnvInt("SERVER_PORT", 9000),
			MaxUploadSize: int64(l.getEnvInt("SERVER_MAX_UPLOAD_MB", 64)) << 20,
		},
		Database: DatabaseConfig{
			URL:            l.getEnv("DATABASE_URL", ""),
			MaxConnections: l.getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
			MigrationsPath: l.getEnv("DATABASE_MIGRATIONS_PATH", ""),
		},
		Auth: AuthConfig{
			JWTSecret:        l.getEnv("JWT_SECRET", ""),
			SessionTTL:       l.getEnvDuration("SESSION_TTL", 10*time.Minute),
			BcryptCost:       l.getEnvInt("AUTH_BCRYPT_COST", 10),
			OpenRegistration: l.getEnvBool("AUTH_OPEN_REGISTRATION", false),
			SecureCookie:     l.getEnvBool("AUTH_SECURE_COOKIE", true),
		},
		S3: S3Config{
			Bucket:          l.getEnv("S3_BUCKET", ""),
			Region:          l.getEnv("S3_REGION", "us-east-1"),
			AccessKeyID:     l.getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: l.getEnv("S3_SECRET_ACCESS_KEY", ""),
			BaseEndpoint:    l.getEnv("S3_BASE_ENDPOINT", ""),
			UsePathStyle:    l.getEnvBool("S3_USE_PATH_STYLE", false),
			PublicBaseURL:   l.getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Email: EmailConfig{
			Enabled:      l.getEnvBool("EMAIL_ENABLED", false),
			From:         l.getEnv("EMAIL_FROM", "New Comilla Inc. Form Inquiry <comillaforms@gmail.com>"),
			ResendAPIKey: l.getEnv("RESEND_API_KEY", ""),
		},
		Contact: ContactConfig{
			Recipient: l.getEnv("CONTACT_RECIPIENT", "rfq@comillainc.com"),
			Subject:   l.getEnv("CONTACT_SUBJECT", "Comilla Website Form Submission"),
		},
		CORS: CORSConfig{
			AllowAllOrigins: env == "development" || env == "test",
			AllowedOrigins:  splitList(l.getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute:   l.getEnvInt("RATE_LIMIT_PUBLIC", 120),
			AdminPerMinute:    l.getEnvInt("RATE_LIMIT_ADMIN", 0),
			LoginPerMinute:    l.getEnvInt("RATE_LIMIT_LOGIN", 10),
			TrustedProxyCIDRs: splitList(l.getEnv("RATE_LIMIT_TRUSTED_PROXIES", "")),
		},
		Logging: LoggingConfig{
			Level:  l.getEnv("LOG_LEVEL", "info"),
			Format: l.getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      l.getEnvBool("TRACING_ENABLED", false),
			Exporter:     l.getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  l.getEnv("TRACING_SERVICE_NAME", "site-backend"),
			OTLPEndpoint: l.getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   l.getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Jobs: JobsConfig{
			Enabled:            l.getEnvBool("JOBS_ENABLED", true),
			OrphanSweepEvery:   l.getEnvDuration("JOBS_ORPHAN_SWEEP_INTERVAL", time.Hour),
			OrphanSweepBatch:   l.getEnvInt("JOBS_ORPHAN_SWEEP_BATCH", 100),
			OrphanMaxAttempts:  l.getEnvInt("JOBS_ORPHAN_MAX_ATTEMPTS", 10),
			MaintenanceWorkers: l.getEnvInt("JOBS_MAINTENANCE_WORKERS", 1),
		},
		AdminBootstrap: AdminBootstrapConfig{
			Email:    l.getEnv("ADMIN_EMAIL", ""),
			Password: l.getEnv("ADMIN_PASSWORD", ""),
		},
		Environment: env,
	}

	if cfg.Database.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.S3.Bucket == "" {
		return Config{}, fmt.Errorf("S3_BUCKET is required")
	}
	if err := validation.ValidateBaseURL(cfg.S3.BaseEndpoint, "S3_BASE_ENDPOINT", false); err != nil {
		return Config{}, err
	}
	if err := validation.ValidateURL(cfg.S3.PublicBaseURL, "S3_PUBLIC_BASE_URL", env == "production"); err != nil {
		return Config{}, err
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		return Config{}, fmt.Errorf("RESEND_API_KEY is required when EMAIL_ENABLED is true")
	}
	if env == "production" && len(cfg.CORS.AllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	return cfg, nil
}

func (l loader) getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value := l.file[key]; value != "" {
		return value
	}
	return fallback
}

func (l loader) getEnvInt(key string, fallback int) int {
	value := l.getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (l loader) getEnvFloat(key string, fallback float64) float64 {
	value := l.getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func (l loader) getEnvBool(key string, fallback bool) bool {
	value := l.getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (l loader) getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := l.getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
