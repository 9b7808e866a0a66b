// Package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration for the service.
type Config struct {
	DatabaseURL string // empty selects the in-memory order repository
	Port        string
	AppEnv      string
	LogLevel    string
	LogFormat   string

	// Object storage (S3-compatible: AWS S3 in production, MinIO locally)
	StorageEndpoint   string
	StorageRegion     string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StorageSSE        bool
	StoragePublicBase string // locator base, e.g. "https://orders.s3.amazonaws.com"

	DownloadLinkTTL    time.Duration
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, reading from environment")
	}

	bucket := getEnv("STORAGE_BUCKET", "orders")

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "s3.amazonaws.com"),
		StorageRegion:     getEnv("STORAGE_REGION", "us-east-1"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:     bucket,
		StorageUseSSL:     getEnvBool("STORAGE_USE_SSL", true),
		StorageSSE:        getEnvBool("STORAGE_SSE", false),
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "https://"+bucket+".s3.amazonaws.com"),

		DownloadLinkTTL:    getEnvDuration("DOWNLOAD_LINK_TTL", 5*time.Minute),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesDatabase reports whether a PostgreSQL URL was configured.
func (c *Config) UsesDatabase() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField("key", key).Warnf("invalid boolean %q, using %t", v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.WithField("key", key).Warnf("invalid duration %q, using %s", v, fallback)
		return fallback
	}
	return d
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		log.WithField("key", key).Warnf("invalid integer %q, using %d", v, fallback)
		return fallback
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
