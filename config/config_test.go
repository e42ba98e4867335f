package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "change-me", cfg.SecretKey)
	assert.Equal(t, "static/files", cfg.UploadFolder)
	assert.False(t, cfg.EnableWebcam)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, SessionBackendMemory, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CSRFEnabled)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, 416, cfg.Model.InputSize)
	assert.Empty(t, cfg.CleanupCron)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := LoadFrom(lookupMap(map[string]string{
		"SECRET_KEY":      "s3cret",
		"UPLOAD_FOLDER":   "/data/uploads",
		"ENABLE_WEBCAM":   "1",
		"PORT":            "9090",
		"SESSION_BACKEND": "Redis",
		"REDIS_DB":        "2",
		"JPEG_QUALITY":    "70",
		"CLEANUP_CRON":    "@hourly",
		"UPLOAD_MAX_AGE":  "2h",
	}))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, "/data/uploads", cfg.UploadFolder)
	assert.True(t, cfg.EnableWebcam)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, SessionBackendRedis, cfg.SessionBackend)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 70, cfg.JPEGQuality)
	assert.Equal(t, "@hourly", cfg.CleanupCron)
	assert.Equal(t, 2*time.Hour, cfg.UploadMaxAge)
}

func TestLoad_WebcamToggle(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"0", false},
		{"1", true},
		{"true", true},
		{"false", false},
		{"", false},
		{"yes", false},
		{"on", false},
		{"2", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg, err := LoadFrom(lookupMap(map[string]string{"ENABLE_WEBCAM": tt.value}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.EnableWebcam)
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non numeric port", map[string]string{"PORT": "http"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"quality too high", map[string]string{"JPEG_QUALITY": "101"}},
		{"unknown backend", map[string]string{"SESSION_BACKEND": "sqlite"}},
		{"bad duration", map[string]string{"SESSION_TTL": "forever"}},
		{"bad bool", map[string]string{"DEBUG": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(lookupMap(tt.env))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "8123")
	t.Setenv("ENABLE_WEBCAM", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Port)
	assert.True(t, cfg.EnableWebcam)
}
