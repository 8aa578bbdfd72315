package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config describes the top-level application configuration loaded from YAML
// and ENV.
type Config struct {
	Version      string                    `mapstructure:"version"`
	Providers    map[string]ProviderConfig `mapstructure:"providers"`
	Models       map[string]ModelBinding   `mapstructure:"models"`
	Orchestrator OrchestratorConfig        `mapstructure:"orchestrator"`
	Logging      LoggingConfig             `mapstructure:"logging"`
	Server       ServerConfig              `mapstructure:"server"`
}

// ProviderConfig represents an LLM backend such as OpenAI, an
// OpenAI-compatible gateway, or Ollama.
type ProviderConfig struct {
	Type    string        `mapstructure:"type"`     // openai, openrouter, vllm, lmstudio, custom, ollama
	BaseURL string        `mapstructure:"base_url"` // API base URL
	APIKey  string        `mapstructure:"api_key"`  // optional API key
	Timeout time.Duration `mapstructure:"timeout"`  // request timeout
	RPS     float64       `mapstructure:"rps"`      // outbound request rate cap (0 = unlimited)
}

// ModelBinding attaches a catalog model id to a provider entry and the model
// name that provider expects on the wire.
type ModelBinding struct {
	Provider  string `mapstructure:"provider"`
	WireModel string `mapstructure:"wire_model"`
}

// OrchestratorConfig tunes the orchestration service.
type OrchestratorConfig struct {
	TelemetryCapacity int `mapstructure:"telemetry_capacity"`
	TelemetryRetain   int `mapstructure:"telemetry_retain"`
}

// LoggingConfig controls logger behaviour.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // console or json
}

// ServerConfig describes daemon settings.
type ServerConfig struct {
	Addr           string `mapstructure:"addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	Transport      string `mapstructure:"transport"` // connect or ndjson
}

// Load reads configuration from the provided path or defaults to
// configs/config.yaml. Environment variables override file values (prefix:
// POLYROUTE_, dots replaced with underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("POLYROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	} else {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			v.SetConfigName("config.example")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates sensible defaults for optional fields.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("orchestrator.telemetry_capacity", 100)
	v.SetDefault("orchestrator.telemetry_retain", 50)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.transport", "connect")
}

// Validate performs basic sanity checks on configuration values.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}

	if len(c.Models) == 0 {
		return errors.New("at least one model must be bound to a provider")
	}

	for name, p := range c.Providers {
		if p.Type == "" {
			return fmt.Errorf("provider %q must define type", name)
		}
		if p.RPS < 0 {
			return fmt.Errorf("provider %q rps cannot be negative", name)
		}
	}

	for name, m := range c.Models {
		if m.Provider == "" {
			return fmt.Errorf("model %q must reference provider", name)
		}
		if _, ok := c.Providers[m.Provider]; !ok {
			return fmt.Errorf("model %q references unknown provider %q", name, m.Provider)
		}
	}

	if c.Orchestrator.TelemetryCapacity < 0 {
		return errors.New("orchestrator.telemetry_capacity must be >= 0")
	}
	if c.Orchestrator.TelemetryRetain < 0 {
		return errors.New("orchestrator.telemetry_retain must be >= 0")
	}
	if c.Orchestrator.TelemetryRetain > c.Orchestrator.TelemetryCapacity && c.Orchestrator.TelemetryCapacity > 0 {
		return errors.New("orchestrator.telemetry_retain cannot exceed telemetry_capacity")
	}

	switch strings.ToLower(strings.TrimSpace(c.Server.Transport)) {
	case "", "connect", "ndjson":
	default:
		return fmt.Errorf("server.transport must be one of connect or ndjson, got %q", c.Server.Transport)
	}

	return nil
}
