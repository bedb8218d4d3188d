package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scormhub/internal/pkg/storage"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultDatabaseURL     = "scormhub.db"
	defaultJWTSecret       = "change-me-jwt-secret"
	defaultJWTAccessTTL    = "15m"
	defaultStorageBasePath = "./data/scorm"
	defaultMaxUploadBytes  = "104857600" // 100 MB
	defaultMaxEntries      = "10000"
	defaultMaxUncompressed = "104857600"
	defaultConcurrency     = "8"
	defaultStatsCacheBytes = "1048576"
	defaultStatsCacheTTL   = "5m"
	defaultCleanupInterval = "30s"
	defaultOrphanGrace     = "1h"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultS3Region        = "us-east-1"
)

// Config is the runtime configuration, read from the environment.
type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	Storage storage.Options

	MaxUploadBytes       int64
	MaxArchiveEntries    int
	MaxUncompressedBytes uint64
	UploadConcurrency    int

	StatsCacheBytes int64
	StatsCacheTTL   time.Duration

	CleanupInterval time.Duration
	OrphanGrace     time.Duration

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.HTTPAddr = ":" + port
	}
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.LogFormat = strings.TrimSpace(getEnv("LOG_FORMAT", defaultLogFormat))
	cfg.CORSAllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.Storage = storage.Options{
		Driver:   strings.ToLower(strings.TrimSpace(getEnv("STORAGE_DRIVER", storage.DriverFS))),
		BasePath: strings.TrimSpace(getEnv("STORAGE_BASE_PATH", defaultStorageBasePath)),
		S3: storage.S3Options{
			Bucket:       strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:       strings.TrimSpace(getEnv("S3_REGION", defaultS3Region)),
			Endpoint:     strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKey:    strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey:    strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
			UsePathStyle: parseBoolEnv("S3_USE_PATH_STYLE", "false"),
		},
	}

	var errs []error
	var err error
	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.StatsCacheTTL, err = parseDurationEnv("STATS_CACHE_TTL", defaultStatsCacheTTL); err != nil {
		errs = append(errs, err)
	}
	if cfg.CleanupInterval, err = parseDurationEnv("CLEANUP_INTERVAL", defaultCleanupInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.OrphanGrace, err = parseDurationEnv("ORPHAN_GRACE", defaultOrphanGrace); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxUploadBytes, err = parseIntEnv("MAX_UPLOAD_BYTES", defaultMaxUploadBytes); err != nil {
		errs = append(errs, err)
	}
	if cfg.StatsCacheBytes, err = parseIntEnv("STATS_CACHE_BYTES", defaultStatsCacheBytes); err != nil {
		errs = append(errs, err)
	}
	var n int64
	if n, err = parseIntEnv("MAX_ARCHIVE_ENTRIES", defaultMaxEntries); err != nil {
		errs = append(errs, err)
	}
	cfg.MaxArchiveEntries = int(n)
	if n, err = parseIntEnv("MAX_UNCOMPRESSED_BYTES", defaultMaxUncompressed); err != nil {
		errs = append(errs, err)
	}
	if n > 0 {
		cfg.MaxUncompressedBytes = uint64(n)
	}
	if n, err = parseIntEnv("UPLOAD_CONCURRENCY", defaultConcurrency); err != nil {
		errs = append(errs, err)
	}
	cfg.UploadConcurrency = int(n)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.MaxArchiveEntries <= 0 {
		return fmt.Errorf("MAX_ARCHIVE_ENTRIES must be > 0")
	}
	if cfg.MaxUncompressedBytes == 0 {
		return fmt.Errorf("MAX_UNCOMPRESSED_BYTES must be > 0")
	}
	if cfg.UploadConcurrency <= 0 {
		return fmt.Errorf("UPLOAD_CONCURRENCY must be > 0")
	}
	if cfg.StatsCacheBytes <= 0 {
		return fmt.Errorf("STATS_CACHE_BYTES must be > 0")
	}
	if cfg.StatsCacheTTL <= 0 || cfg.CleanupInterval <= 0 || cfg.OrphanGrace <= 0 {
		return fmt.Errorf("STATS_CACHE_TTL, CLEANUP_INTERVAL and ORPHAN_GRACE must be > 0")
	}

	switch cfg.Storage.Driver {
	case storage.DriverFS:
		if cfg.Storage.BasePath == "" {
			return fmt.Errorf("STORAGE_BASE_PATH must not be empty")
		}
	case storage.DriverS3:
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
		if (cfg.Storage.S3.AccessKey == "") != (cfg.Storage.S3.SecretKey == "") {
			return fmt.Errorf("S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
		}
	case storage.DriverMemory:
		if isProdLike(cfg.AppEnv) {
			return fmt.Errorf("in prod/release STORAGE_DRIVER=memory is not allowed")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of: fs, s3, memory")
	}

	if isProdLike(cfg.AppEnv) && isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
		return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
	}
	return nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool { return isProdLike(c.AppEnv) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
