// Configuration loading for the PromptGenius relay.
//
// DESIGN: Environment variables are the primary source (the relay runs with
// zero files). An optional YAML overlay (RELAY_CONFIG) can pre-populate the
// same fields; environment values always win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Runtime modes. Production restricts CORS to the known extension origin.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is the full relay configuration.
type Config struct {
	Env    string       `yaml:"env"`
	Server ServerConfig `yaml:"server"`

	Upstream  UpstreamConfig  `yaml:"upstream"`
	Limits    LimitsConfig    `yaml:"limits"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	ExtensionID string `yaml:"extension_id"`

	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

// UpstreamConfig selects and parameterizes the provider adapter.
type UpstreamConfig struct {
	Provider    string        `yaml:"provider"` // "gemini" or "openai"
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"` // override base URL (tests, proxies)
	APIKey      string        `yaml:"-"`        // never read from file, env only
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LimitsConfig holds prompt validation bounds.
type LimitsConfig struct {
	MinPromptLength int `yaml:"min_prompt_length"`
	MaxPromptLength int `yaml:"max_prompt_length"`
}

// RateLimitConfig holds the per-client fixed window settings.
type RateLimitConfig struct {
	Window time.Duration `yaml:"window"`
	Max    int           `yaml:"max"`
}

// MonitoringConfig holds logging and telemetry settings.
type MonitoringConfig struct {
	LogLevel      string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat     string `yaml:"log_format"` // json, console
	TelemetryPath string `yaml:"telemetry_path"`
	TelemetryDB   string `yaml:"telemetry_db"`
}

// Default returns a Config populated with the centralized defaults.
func Default() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:           DefaultPort,
			ReadTimeout:    DefaultServerReadTimeout,
			WriteTimeout:   DefaultServerWriteTimeout,
			RequestTimeout: DefaultRequestTimeout,
			ShutdownGrace:  DefaultShutdownGrace,
		},
		Upstream: UpstreamConfig{
			Provider:    DefaultProvider,
			Model:       DefaultGeminiModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxOutputTokens,
			Timeout:     DefaultUpstreamTimeout,
		},
		Limits: LimitsConfig{
			MinPromptLength: DefaultMinPromptLength,
			MaxPromptLength: DefaultMaxPromptLength,
		},
		RateLimit: RateLimitConfig{
			Window: DefaultRateLimitWindow,
			Max:    DefaultRateLimitMax,
		},
		ExtensionID: DefaultExtensionID,
		Monitoring: MonitoringConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration from the optional YAML overlay and the
// environment. Environment values override file values.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RELAY_ENV"); v != "" {
		cfg.Env = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RELAY_PROVIDER"); v != "" {
		cfg.Upstream.Provider = strings.ToLower(strings.TrimSpace(v))
		// Model default follows the provider unless pinned explicitly.
		if os.Getenv("RELAY_MODEL") == "" && cfg.Upstream.Provider == "openai" {
			cfg.Upstream.Model = DefaultOpenAIModel
		}
	}
	if v := os.Getenv("RELAY_MODEL"); v != "" {
		cfg.Upstream.Model = v
	}
	if v := os.Getenv("RELAY_UPSTREAM_ENDPOINT"); v != "" {
		cfg.Upstream.Endpoint = v
	}
	if v := os.Getenv("RELAY_EXTENSION_ID"); v != "" {
		cfg.ExtensionID = v
	}
	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.Monitoring.LogLevel = v
	}
	if v := os.Getenv("RELAY_LOG_FORMAT"); v != "" {
		cfg.Monitoring.LogFormat = v
	}
	if v := os.Getenv("RELAY_TELEMETRY_LOG"); v != "" {
		cfg.Monitoring.TelemetryPath = v
	}
	if v := os.Getenv("RELAY_TELEMETRY_DB"); v != "" {
		cfg.Monitoring.TelemetryDB = v
	}

	// Credential resolution: provider-specific key first, generic fallback.
	switch cfg.Upstream.Provider {
	case "openai":
		cfg.Upstream.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		cfg.Upstream.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Upstream.APIKey == "" {
		cfg.Upstream.APIKey = os.Getenv("RELAY_API_KEY")
	}
}

// Validate checks internal consistency. A missing API key is not an error
// here: the orchestrator reports ConfigError per request so the process can
// still serve /health.
func (c *Config) Validate() error {
	if c.Env != EnvProduction && c.Env != EnvDevelopment {
		return fmt.Errorf("invalid env %q (want %q or %q)", c.Env, EnvProduction, EnvDevelopment)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Upstream.Provider != "gemini" && c.Upstream.Provider != "openai" {
		return fmt.Errorf("unsupported provider %q", c.Upstream.Provider)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Limits.MinPromptLength < 1 || c.Limits.MaxPromptLength < c.Limits.MinPromptLength {
		return fmt.Errorf("invalid prompt length bounds [%d, %d]",
			c.Limits.MinPromptLength, c.Limits.MaxPromptLength)
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Max < 1 {
		return fmt.Errorf("invalid rate limit: window=%s max=%d", c.RateLimit.Window, c.RateLimit.Max)
	}
	return nil
}

// IsProduction reports whether the relay runs with strict origin checks.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// AllowedOrigin returns the extension origin admitted in production mode.
func (c *Config) AllowedOrigin() string {
	return "chrome-extension://" + c.ExtensionID
}
