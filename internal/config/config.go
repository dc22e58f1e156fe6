// Package config provides configuration for the gateway and the CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults.
const (
	DefaultAPIBaseURL         = "http://localhost:8808"
	DefaultServerPort         = "8090"
	DefaultServerReadTimeout  = 30 * time.Second
	DefaultServerWriteTimeout = 120 * time.Second
	DefaultRateLimitRequests  = 120
	DefaultRateLimitWindow    = time.Minute
	DefaultLogLevel           = "info"
	DefaultTracingEndpoint    = "localhost:4318"
	DefaultLLM                = "anthropic"
	DefaultDigestMaxTokens    = 512
)

// Config holds all configuration for the application.
type Config struct {
	// Analyzer backend
	APIBaseURL string `koanf:"api_base_url"`

	// Server settings
	ServerPort         string        `koanf:"port"`
	ServerReadTimeout  time.Duration `koanf:"server_read_timeout"`
	ServerWriteTimeout time.Duration `koanf:"server_write_timeout"`

	// NATS settings; an empty URL disables the event bus
	NATSURL      string `koanf:"nats_url"`
	NATSCAFile   string `koanf:"nats_ca_file"`
	NATSCertFile string `koanf:"nats_cert_file"`
	NATSKeyFile  string `koanf:"nats_key_file"`
	NATSToken    string `koanf:"nats_token"`

	// JWT settings; an empty secret disables gateway auth
	JWTSecret string `koanf:"jwt_secret"`

	// Comma-separated CORS origins; empty allows localhost only
	CORSOrigins string `koanf:"cors_origins"`

	// LLM settings
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	DefaultLLM      string `koanf:"default_llm"`
	DigestModel     string `koanf:"digest_model"`
	DigestMaxTokens int    `koanf:"digest_max_tokens"`

	// Rate limiting
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// Logging
	LogLevel string `koanf:"log_level"`

	// Tracing
	TracingEndpoint string `koanf:"tracing_endpoint"`
	TracingEnabled  bool   `koanf:"tracing_enabled"`
}

// Load reads configuration from defaults, an optional YAML file, then
// environment variables. The file path falls back to $CONFIG_FILE.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"api_base_url":         DefaultAPIBaseURL,
		"port":                 DefaultServerPort,
		"server_read_timeout":  DefaultServerReadTimeout,
		"server_write_timeout": DefaultServerWriteTimeout,
		"rate_limit_requests":  DefaultRateLimitRequests,
		"rate_limit_window":    DefaultRateLimitWindow,
		"log_level":            DefaultLogLevel,
		"tracing_endpoint":     DefaultTracingEndpoint,
		"tracing_enabled":      false,
		"default_llm":          DefaultLLM,
		"digest_max_tokens":    DefaultDigestMaxTokens,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Empty variables are skipped so they never blank out a default.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		if os.Getenv(s) == "" {
			return ""
		}
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}

	return &cfg, nil
}

// AllowedOrigins splits CORSOrigins.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DigestEnabled reports whether an LLM key is configured.
func (c *Config) DigestEnabled() bool {
	return c.AnthropicAPIKey != "" || c.OpenAIAPIKey != ""
}
