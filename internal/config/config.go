package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Kafka     KafkaConfig
	Photos    PhotoConfig
	RateLimit RateLimitConfig
	Outbox    OutboxConfig
}

type AppConfig struct {
	Env                 string
	Addr                string
	LogLevel            string
	RequestTimeout      time.Duration
	TrustCallerHeader   bool
	AutoMigrate         bool
	ShutdownGracePeriod time.Duration
}

func (a AppConfig) IsProd() bool { return a.Env == "production" }

type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled is false when REDIS_ADDR is empty; the directory cache and token store are skipped.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type PhotoConfig struct {
	BaseURL   string
	UploadDir string
	MaxBytes  int64
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type OutboxConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Load reads .env when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		App: AppConfig{
			Env:                 GetString("APP_ENV", "development"),
			Addr:                GetString("APP_ADDR", ":3000"),
			LogLevel:            GetString("LOG_LEVEL", "info"),
			RequestTimeout:      GetDuration("REQUEST_TIMEOUT", 5*time.Second),
			TrustCallerHeader:   GetBool("AUTH_TRUST_CALLER_HEADER", false),
			AutoMigrate:         GetBool("DB_AUTO_MIGRATE", false),
			ShutdownGracePeriod: GetDuration("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		},
		DB: DBConfig{
			Host:            GetString("DB_HOST", "127.0.0.1"),
			Port:            GetInt("DB_PORT", 3306),
			User:            GetString("DB_USER", "root"),
			Password:        GetString("DB_PASSWORD", ""),
			Name:            GetString("DB_NAME", "miciudadsv"),
			MaxOpenConns:    GetInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    GetInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: GetDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     GetString("REDIS_ADDR", ""),
			Password: GetString("REDIS_PASSWORD", ""),
			DB:       GetInt("REDIS_DB", 0),
			CacheTTL: GetDuration("REDIS_CACHE_TTL", 30*time.Second),
		},
		JWT: JWTConfig{
			AccessSecret:  GetString("JWT_ACCESS_SECRET", "dev-access-secret"),
			RefreshSecret: GetString("JWT_REFRESH_SECRET", "dev-refresh-secret"),
			AccessTTL:     GetDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    GetDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     GetString("SMTP_HOST", ""),
			Port:     GetInt("SMTP_PORT", 465),
			User:     GetString("SMTP_USER", ""),
			Password: GetString("SMTP_PASSWORD", ""),
			From:     GetString("SMTP_FROM", ""),
		},
		Kafka: KafkaConfig{
			Brokers: GetList("KAFKA_BROKERS"),
			Topic:   GetString("KAFKA_TOPIC", "miciudadsv.community-events"),
		},
		Photos: PhotoConfig{
			BaseURL:   GetString("PHOTO_BASE_URL", "http://localhost:3000"),
			UploadDir: GetString("PHOTO_UPLOAD_DIR", "uploads"),
			MaxBytes:  int64(GetInt("PHOTO_MAX_BYTES", 5<<20)),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: GetFloat("RATE_LIMIT_RPS", 5),
			Burst:             GetInt("RATE_LIMIT_BURST", 10),
		},
		Outbox: OutboxConfig{
			Interval:   GetDuration("OUTBOX_INTERVAL", time.Second),
			BatchSize:  GetInt("OUTBOX_BATCH", 200),
			MaxRetries: GetInt("OUTBOX_MAX_RETRIES", 5),
		},
	}
}

// GetString retrieves an environment variable or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			logrus.WithField("key", key).Warnf("invalid integer, using %d", fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

func GetFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			logrus.WithField("key", key).Warnf("invalid number, using %v", fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			logrus.WithField("key", key).Warnf("invalid bool, using %v", fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetDuration accepts Go duration strings ("5s", "30m").
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			logrus.WithField("key", key).Warnf("invalid duration, using %s", fallback)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetList splits a comma separated variable, dropping empty items.
func GetList(key string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
