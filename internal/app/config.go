package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session backends accepted by SESSION_BACKEND.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds runtime configuration for every PropDesk binary.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://127.0.0.1:5000/api"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"30s"`

	SessionBackend   string        `envconfig:"SESSION_BACKEND" default:"file"`
	SessionFile      string        `envconfig:"SESSION_FILE"`
	SessionNamespace string        `envconfig:"SESSION_NAMESPACE" default:"default"`
	SessionTTL       time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	GotenbergURL     string        `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	GotenbergTimeout time.Duration `envconfig:"GOTENBERG_TIMEOUT" default:"30s"`
	PDFOutputDir     string        `envconfig:"PDF_OUTPUT_DIR" default:"./var/pdfs"`
	PDFURLPrefix     string        `envconfig:"PDF_URL_PREFIX" default:"pdfs"`
	PDFMaxConcurrent int64         `envconfig:"PDF_MAX_CONCURRENT" default:"4"`
	PDFRateLimit     int           `envconfig:"PDF_RATE_LIMIT" default:"30"`
	PDFRetention     time.Duration `envconfig:"PDF_RETENTION" default:"168h"`

	WorkerConcurrency int `envconfig:"WORKER_CONCURRENCY" default:"2"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	switch c.SessionBackend {
	case SessionBackendFile, SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.SessionBackend)
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("API_BASE_URL must be provided")
	}
	if c.PDFMaxConcurrent < 1 {
		return fmt.Errorf("PDF_MAX_CONCURRENT must be at least 1")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
