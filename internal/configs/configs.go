/*
Package configs is responsible for loading and parsing the application's configuration settings.

Values come from environment variables. A .env file in the working directory, when
present, is loaded first and never overrides variables that are already set.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"

	DriverLocal = "local"
	DriverS3    = "s3"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment   string
	Port          int
	PowDifficulty int

	// Security Settings
	AllowedOrigins []string
	JWTSecret      string

	// Liveness Settings
	PingInterval time.Duration
	PongTimeout  time.Duration

	// Attachment Storage Settings
	StorageDriver     string
	UploadDir         string
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// Database Settings. An empty DSN selects in-memory stores.
	DatabaseDSN string
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// LoadConfig reads .env (if any) and parses the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return parse(os.Getenv)
}

// parse builds an AppConfig from getenv, applying defaults and validation.
func parse(getenv func(string) string) (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}

	port, err := intOr(getenv, "PORT", 4000)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	difficulty, err := intOr(getenv, "POW_DIFFICULTY", 4)
	if err != nil {
		return nil, err
	}
	if difficulty < 0 || difficulty > 8 {
		return nil, fmt.Errorf("POW_DIFFICULTY must be between 0 and 8, got %d", difficulty)
	}
	cfg.PowDifficulty = difficulty

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	cfg.JWTSecret = getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in %s environment for security", cfg.Environment)
		}
		cfg.JWTSecret = "your_default_insecure_secret_key_change_me"
	}

	// --- Liveness Settings ---
	if cfg.PingInterval, err = durationOr(getenv, "PING_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PongTimeout, err = durationOr(getenv, "PONG_TIMEOUT", time.Second); err != nil {
		return nil, err
	}

	// --- Attachment Storage Settings ---
	cfg.StorageDriver = strings.ToLower(getenv("STORAGE_DRIVER"))
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverLocal
	}

	switch cfg.StorageDriver {
	case DriverLocal:
		cfg.UploadDir = getenv("UPLOAD_DIR")
		if cfg.UploadDir == "" {
			cfg.UploadDir = "uploads"
		}

	case DriverS3:
		required := map[string]*string{
			"S3_BUCKET_NAME":       &cfg.S3BucketName,
			"S3_ENDPOINT":          &cfg.S3Endpoint,
			"S3_ACCESS_KEY_ID":     &cfg.S3AccessKeyID,
			"S3_SECRET_ACCESS_KEY": &cfg.S3SecretAccessKey,
		}
		for _, key := range []string{"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"} {
			value := getenv(key)
			if value == "" {
				return nil, fmt.Errorf("%s environment variable is required for S3 storage", key)
			}
			*required[key] = value
		}

	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q (want %q or %q)", cfg.StorageDriver, DriverLocal, DriverS3)
	}

	// --- Database Settings ---
	cfg.DatabaseDSN = getenv("DATABASE_URL")
	if cfg.DatabaseDSN == "" && !cfg.IsDevelopment() {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required in %s environment", cfg.Environment)
	}

	return cfg, nil
}

func intOr(getenv func(string) string, key string, fallback int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return value, nil
}

func durationOr(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return value, nil
}
