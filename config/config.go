package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config is built once at startup and handed to every component. Nothing
// mutates it afterwards.
type Config struct {
	SecretKey    string
	UploadFolder string
	StaticFolder string
	EnableWebcam bool
	Port         int

	Debug    bool
	SafeLogs bool

	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPass      string
	RedisDB        int

	CSRFEnabled bool
	JPEGQuality int

	Model ModelConfig

	CleanupCron  string
	UploadMaxAge time.Duration

	ShutdownTimeout time.Duration
}

type ModelConfig struct {
	Weights      string
	Config       string
	Names        string
	Confidence   float32
	NMSThreshold float32
	InputSize    int
}

func (c *Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

func (c *Config) FaviconPath() string {
	return filepath.Join(c.StaticFolder, "favicon.ico")
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from an arbitrary lookup function.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	e := &env{lookup: lookup}

	cfg := &Config{
		SecretKey:      e.str("SECRET_KEY", "change-me"),
		UploadFolder:   e.str("UPLOAD_FOLDER", "static/files"),
		StaticFolder:   e.str("STATIC_FOLDER", "static"),
		EnableWebcam:   e.toggle("ENABLE_WEBCAM"),
		Port:           e.integer("PORT", 8000),
		Debug:          e.boolean("DEBUG", false),
		SafeLogs:       e.boolean("SAFE_LOGS", false),
		SessionBackend: strings.ToLower(e.str("SESSION_BACKEND", SessionBackendMemory)),
		SessionTTL:     e.duration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      e.str("REDIS_ADDR", "localhost:6379"),
		RedisPass:      e.str("REDIS_PASS", ""),
		RedisDB:        e.integer("REDIS_DB", 0),
		CSRFEnabled:    e.boolean("CSRF_ENABLED", true),
		JPEGQuality:    e.integer("JPEG_QUALITY", 95),
		Model: ModelConfig{
			Weights:      e.str("MODEL_WEIGHTS", ""),
			Config:       e.str("MODEL_CONFIG", ""),
			Names:        e.str("MODEL_NAMES", ""),
			Confidence:   e.float("DETECT_CONFIDENCE", 0.5),
			NMSThreshold: e.float("DETECT_NMS", 0.4),
			InputSize:    e.integer("DETECT_INPUT_SIZE", 416),
		},
		CleanupCron:     e.str("CLEANUP_CRON", ""),
		UploadMaxAge:    e.duration("UPLOAD_MAX_AGE", 24*time.Hour),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, errors.Join(e.errs...))
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("JPEG_QUALITY must be within 1..100, got %d", c.JPEGQuality)
	case c.SessionBackend != SessionBackendMemory && c.SessionBackend != SessionBackendRedis:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	case c.SessionTTL <= 0:
		return fmt.Errorf("SESSION_TTL must be positive")
	case strings.TrimSpace(c.UploadFolder) == "":
		return fmt.Errorf("UPLOAD_FOLDER must not be empty")
	case c.Model.InputSize <= 0:
		return fmt.Errorf("DETECT_INPUT_SIZE must be positive")
	case c.CleanupCron != "" && c.UploadMaxAge <= 0:
		return fmt.Errorf("UPLOAD_MAX_AGE must be positive when CLEANUP_CRON is set")
	}
	return nil
}

type env struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *env) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) boolean(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

// toggle is on only for values strconv.ParseBool accepts as true; anything
// else leaves the feature off.
func (e *env) toggle(key string) bool {
	v, ok := e.raw(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func (e *env) integer(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return i
}

func (e *env) float(key string, def float32) float32 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return float32(f)
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
