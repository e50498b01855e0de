package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, 4, cfg.PowDifficulty)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, time.Second, cfg.PongTimeout)
	assert.Equal(t, DriverLocal, cfg.StorageDriver)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Empty(t, cfg.DatabaseDSN)
}

func TestParseProductionRequiresSecrets(t *testing.T) {
	_, err := parse(envOf(map[string]string{"ENVIRONMENT": "production"}))
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = parse(envOf(map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "s"}))
	assert.ErrorContains(t, err, "DATABASE_URL")

	cfg, err := parse(envOf(map[string]string{
		"ENVIRONMENT":  "production",
		"JWT_SECRET":   "s",
		"DATABASE_URL": "postgres://db/chat",
	}))
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestParseValues(t *testing.T) {
	cfg, err := parse(envOf(map[string]string{
		"PORT":            "9000",
		"POW_DIFFICULTY":  "0",
		"ALLOWED_ORIGINS": " https://a.example , ,https://b.example",
		"PING_INTERVAL":   "250ms",
		"PONG_TIMEOUT":    "100ms",
		"STORAGE_DRIVER":  "S3",

		"S3_BUCKET_NAME":       "bucket",
		"S3_ENDPOINT":          "https://s3.example",
		"S3_ACCESS_KEY_ID":     "id",
		"S3_SECRET_ACCESS_KEY": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 0, cfg.PowDifficulty)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 250*time.Millisecond, cfg.PingInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.PongTimeout)
	assert.Equal(t, DriverS3, cfg.StorageDriver)
	assert.Equal(t, "bucket", cfg.S3BucketName)
	assert.Equal(t, "secret", cfg.S3SecretAccessKey)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"port not a number": {"PORT": "abc"},
		"privileged port":   {"PORT": "80"},
		"difficulty range":  {"POW_DIFFICULTY": "12"},
		"bad duration":      {"PING_INTERVAL": "soon"},
		"zero timeout":      {"PONG_TIMEOUT": "0s"},
		"unknown driver":    {"STORAGE_DRIVER": "ftp"},
		"s3 missing bucket": {"STORAGE_DRIVER": "s3"},
	}

	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse(envOf(env))
			assert.Error(t, err)
		})
	}
}
