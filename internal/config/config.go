package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-invoice-capture/pkg/validation"
)

// Extraction backends
const (
	ExtractorSimulated = "simulated"
	ExtractorHTTP      = "http"
	ExtractorTesseract = "tesseract"
)

// Config holds the settings of both the capture client and the upload endpoint.
// Values come from defaults, then an optional YAML file, then the environment.
type Config struct {
	// endpoint
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
	DatabaseURL        string        `yaml:"database_url"`

	LogLevel string `yaml:"log_level"`

	// offline queue
	QueueDriver string `yaml:"queue_driver"`
	QueuePath   string `yaml:"queue_path"`

	// sync
	UploadEndpoint            string        `yaml:"upload_endpoint"`
	UploadTimeout             time.Duration `yaml:"upload_timeout"`
	UploadAttempts            int           `yaml:"upload_attempts"`
	SyncConcurrency           int           `yaml:"sync_concurrency"`
	SyncFallbackInterval      time.Duration `yaml:"sync_fallback_interval"`
	ConnectivityProbeURL      string        `yaml:"connectivity_probe_url"`
	ConnectivityProbeInterval time.Duration `yaml:"connectivity_probe_interval"`

	// extraction
	ExtractorDriver   string        `yaml:"extractor_driver"`
	ExtractorURL      string        `yaml:"extractor_url"`
	ExtractionTimeout time.Duration `yaml:"extraction_timeout"`
	OCRLanguage       string        `yaml:"ocr_language"`
	JPEGQuality       int           `yaml:"jpeg_quality"`

	// optional image offload
	AzureStorageAccount   string `yaml:"azure_storage_account"`
	AzureStorageKey       string `yaml:"azure_storage_key"`
	AzureStorageContainer string `yaml:"azure_storage_container"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Host:                      "0.0.0.0",
		Port:                      "8080",
		RequestTimeout:            30 * time.Second,
		MaxRequestBodySize:        10 * 1024 * 1024, // 10MB
		LogLevel:                  "info",
		QueueDriver:               "sqlite",
		QueuePath:                 "invoice-queue.db",
		UploadEndpoint:            "http://localhost:8080",
		UploadTimeout:             30 * time.Second,
		UploadAttempts:            3,
		SyncConcurrency:           1,
		ConnectivityProbeInterval: 15 * time.Second,
		ExtractorDriver:           ExtractorSimulated,
		ExtractionTimeout:         30 * time.Second,
		OCRLanguage:               "eng",
		JPEGQuality:               90,
		AzureStorageContainer:     "invoices",
	}
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether images should be offloaded to blob storage
func (c *Config) AzureEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// ProbeURL is the connectivity probe target, defaulting to the endpoint's health check
func (c *Config) ProbeURL() string {
	if c.ConnectivityProbeURL != "" {
		return c.ConnectivityProbeURL
	}
	return validation.JoinEndpoint(c.UploadEndpoint, "health")
}

// Load reads .env (if present), the YAML file at path (if non-empty) and
// the environment, then validates the result
func Load(path string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads without a config file
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() {
	c.Host = getEnvOrDefault("HOST", c.Host)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", c.MaxRequestBodySize)
	c.DatabaseURL = getEnvOrDefault("DATABASE_URL", c.DatabaseURL)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)

	c.QueueDriver = getEnvOrDefault("QUEUE_DRIVER", c.QueueDriver)
	c.QueuePath = getEnvOrDefault("QUEUE_PATH", c.QueuePath)

	c.UploadEndpoint = getEnvOrDefault("UPLOAD_ENDPOINT", c.UploadEndpoint)
	c.UploadTimeout = parseDurationOrDefault("UPLOAD_TIMEOUT", c.UploadTimeout)
	c.UploadAttempts = int(parseIntOrDefault("UPLOAD_ATTEMPTS", int64(c.UploadAttempts)))
	c.SyncConcurrency = int(parseIntOrDefault("SYNC_CONCURRENCY", int64(c.SyncConcurrency)))
	c.SyncFallbackInterval = parseDurationOrDefault("SYNC_FALLBACK_INTERVAL", c.SyncFallbackInterval)
	c.ConnectivityProbeURL = getEnvOrDefault("CONNECTIVITY_PROBE_URL", c.ConnectivityProbeURL)
	c.ConnectivityProbeInterval = parseDurationOrDefault("CONNECTIVITY_PROBE_INTERVAL", c.ConnectivityProbeInterval)

	c.ExtractorDriver = getEnvOrDefault("EXTRACTOR_DRIVER", c.ExtractorDriver)
	c.ExtractorURL = getEnvOrDefault("EXTRACTOR_URL", c.ExtractorURL)
	c.ExtractionTimeout = parseDurationOrDefault("EXTRACTION_TIMEOUT", c.ExtractionTimeout)
	c.OCRLanguage = getEnvOrDefault("OCR_LANGUAGE", c.OCRLanguage)
	c.JPEGQuality = int(parseIntOrDefault("JPEG_QUALITY", int64(c.JPEGQuality)))

	c.AzureStorageAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", c.AzureStorageAccount)
	c.AzureStorageKey = getEnvOrDefault("AZURE_STORAGE_KEY", c.AzureStorageKey)
	c.AzureStorageContainer = getEnvOrDefault("AZURE_STORAGE_CONTAINER", c.AzureStorageContainer)
}

// Validate checks ranges and URLs
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.UploadTimeout <= 0 || c.ExtractionTimeout <= 0 || c.ConnectivityProbeInterval <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, upload=%s, extraction=%s, probe=%s)",
			c.RequestTimeout, c.UploadTimeout, c.ExtractionTimeout, c.ConnectivityProbeInterval)
	}
	if c.SyncFallbackInterval < 0 {
		return fmt.Errorf("SYNC_FALLBACK_INTERVAL must be >= 0 (got %s)", c.SyncFallbackInterval)
	}
	if c.UploadAttempts < 1 {
		return fmt.Errorf("UPLOAD_ATTEMPTS must be >= 1 (got %d)", c.UploadAttempts)
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be >= 1 (got %d)", c.SyncConcurrency)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be within [1,100] (got %d)", c.JPEGQuality)
	}

	switch c.QueueDriver {
	case "sqlite", "file":
	default:
		return fmt.Errorf("QUEUE_DRIVER must be sqlite or file (got %q)", c.QueueDriver)
	}
	if strings.TrimSpace(c.QueuePath) == "" {
		return fmt.Errorf("QUEUE_PATH must not be empty")
	}

	urls := validation.NewURLValidator()
	if err := urls.ValidateEndpointURL(c.UploadEndpoint); err != nil {
		return fmt.Errorf("invalid UPLOAD_ENDPOINT: %w", err)
	}
	if c.ConnectivityProbeURL != "" {
		if err := urls.ValidateEndpointURL(c.ConnectivityProbeURL); err != nil {
			return fmt.Errorf("invalid CONNECTIVITY_PROBE_URL: %w", err)
		}
	}

	switch c.ExtractorDriver {
	case ExtractorSimulated, ExtractorTesseract:
	case ExtractorHTTP:
		if err := urls.ValidateEndpointURL(c.ExtractorURL); err != nil {
			return fmt.Errorf("invalid EXTRACTOR_URL: %w", err)
		}
	default:
		return fmt.Errorf("EXTRACTOR_DRIVER must be simulated, http or tesseract (got %q)", c.ExtractorDriver)
	}

	if (c.AzureStorageAccount == "") != (c.AzureStorageKey == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set together")
	}
	if c.AzureEnabled() && c.AzureStorageContainer == "" {
		return fmt.Errorf("AZURE_STORAGE_CONTAINER must not be empty")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration >= 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
