package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	TextGenProviderGenAI = "genai"
	TextGenProviderNone  = "none"

	defaultClassifierURL = "https://edge-ai-crop-rakshak.loca.lt/api/image"
	defaultGeminiModel   = "gemini-2.0-flash"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	MaxImageSize       int64
	LogLevel           string
	CORSAllowedOrigins []string

	// Remote classifier
	ClassifierURL     string
	ClassifierTimeout time.Duration

	// Text generation
	TextGenProvider string
	GeminiAPIKey    string
	GeminiModel     string
	TextGenTimeout  time.Duration

	// Remote image intake
	ImageFetchTimeout   time.Duration
	AzureStorageAccount string
	AzureStorageKey     string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// BlobStorageEnabled reports whether Azure credentials were supplied
func (c *Config) BlobStorageEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

func LoadFromEnv() (*Config, error) {
	// Set defaults
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 120*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxImageSize:       parseIntOrDefault("MAX_IMAGE_SIZE", 5*1024*1024),         // 5MB
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseListOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),

		ClassifierURL:     getEnvOrDefault("CLASSIFIER_URL", defaultClassifierURL),
		ClassifierTimeout: parseDurationOrDefault("CLASSIFIER_TIMEOUT", 30*time.Second),

		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", defaultGeminiModel),
		TextGenTimeout: parseDurationOrDefault("TEXTGEN_TIMEOUT", 60*time.Second),

		ImageFetchTimeout:   parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AzureStorageAccount: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:     os.Getenv("AZURE_STORAGE_KEY"),
	}

	defaultProvider := TextGenProviderNone
	if cfg.GeminiAPIKey != "" {
		defaultProvider = TextGenProviderGenAI
	}
	cfg.TextGenProvider = strings.ToLower(getEnvOrDefault("TEXTGEN_PROVIDER", defaultProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImageSize <= 0 {
		return fmt.Errorf("MAX_IMAGE_SIZE must be > 0 (got %d)", c.MaxImageSize)
	}
	if c.RequestTimeout <= 0 || c.ClassifierTimeout <= 0 || c.TextGenTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, classifier=%s, textgen=%s, fetch=%s)",
			c.RequestTimeout, c.ClassifierTimeout, c.TextGenTimeout, c.ImageFetchTimeout)
	}
	u, err := url.Parse(c.ClassifierURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid CLASSIFIER_URL: %q", c.ClassifierURL)
	}
	switch c.TextGenProvider {
	case TextGenProviderGenAI:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("TEXTGEN_PROVIDER=%s requires GEMINI_API_KEY", c.TextGenProvider)
		}
	case TextGenProviderNone:
	default:
		return fmt.Errorf("unsupported TEXTGEN_PROVIDER: %q", c.TextGenProvider)
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
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
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

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
