// Package config provides configuration management using the Singleton pattern.
// It loads configuration from .env, environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hpn/hpn-svg-arena/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Providers configuration
	Providers ProvidersConfig `json:"providers" mapstructure:"providers"`

	// Models is the ordered model table fanned out on every submission.
	Models []ModelConfig `json:"models" mapstructure:"models"`

	// Dispatch configuration
	Dispatch DispatchConfig `json:"dispatch" mapstructure:"dispatch"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Credentials are resolved from the environment only and never serialized.
	Credentials Credentials `json:"-" mapstructure:"-"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	ReadTimeoutSeconds     int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// ProvidersConfig holds per-provider endpoints and the shared call timeout.
type ProvidersConfig struct {
	// TimeoutSeconds bounds every provider call and the relay's upstream call.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	OpenAI    OpenAIConfig    `json:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`
	Gemini    GeminiConfig    `json:"gemini" mapstructure:"gemini"`
}

// OpenAIConfig configures the OpenAI-style adapter.
type OpenAIConfig struct {
	BaseURL string `json:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig configures both the relay endpoint and its upstream.
type AnthropicConfig struct {
	// BaseURL is the upstream messages API the relay calls.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// RelayURL is where the Anthropic adapter sends its requests.
	RelayURL string `json:"relay_url" mapstructure:"relay_url"`

	// Version is sent as the anthropic-version header.
	Version string `json:"version" mapstructure:"version"`

	// MaxTokens is the upstream max_tokens value.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig configures the Gemini-style adapter.
type GeminiConfig struct {
	BaseURL         string  `json:"base_url" mapstructure:"base_url"`
	Temperature     float64 `json:"temperature" mapstructure:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens" mapstructure:"max_output_tokens"`
}

// ModelConfig is one configured model table row.
type ModelConfig struct {
	Provider    string   `json:"provider" mapstructure:"provider"`
	Model       string   `json:"model" mapstructure:"model"`
	Temperature *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens   int      `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// DispatchConfig holds dispatcher settings.
type DispatchConfig struct {
	// MaxConcurrency caps simultaneous provider calls; 0 means unbounded.
	MaxConcurrency int `json:"max_concurrency" mapstructure:"max_concurrency"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// Credentials holds provider secrets.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// MustGetConfig returns the singleton Configuration instance.
// It panics if the configuration cannot be loaded.
func MustGetConfig() *Configuration {
	cfg, err := GetConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required fields are missing.
// Missing provider credentials are not validation errors.
func (c *Configuration) Validate() error {
	var validationErrors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	if c.Providers.TimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "providers.timeout_seconds must be positive")
	}
	if c.Providers.Anthropic.MaxTokens <= 0 {
		validationErrors = append(validationErrors, "providers.anthropic.max_tokens must be positive")
	}
	if c.Providers.Gemini.MaxOutputTokens <= 0 {
		validationErrors = append(validationErrors, "providers.gemini.max_output_tokens must be positive")
	}

	if c.Dispatch.MaxConcurrency < 0 {
		validationErrors = append(validationErrors, "dispatch.max_concurrency cannot be negative")
	}

	if len(c.Models) == 0 {
		validationErrors = append(validationErrors, "models cannot be empty, at least one model is required")
	}
	for i, m := range c.Models {
		if m.Model == "" {
			validationErrors = append(validationErrors, fmt.Sprintf("models[%d].model is required", i))
		}
		if !domain.ProviderType(m.Provider).IsValid() {
			validationErrors = append(validationErrors, fmt.Sprintf(
				"models[%d].provider '%s' is invalid, must be one of: openai, anthropic, gemini",
				i, m.Provider,
			))
		}
	}
	if len(validationErrors) == 0 {
		if _, err := domain.NewModelTable(c.ModelEntries()); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	}

	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// ModelEntries converts the configured rows into domain entries.
func (c *Configuration) ModelEntries() []domain.ModelEntry {
	entries := make([]domain.ModelEntry, 0, len(c.Models))
	for _, m := range c.Models {
		entries = append(entries, domain.ModelEntry{
			Provider: domain.ProviderType(m.Provider),
			Model:    m.Model,
			Params: domain.GenerationParams{
				Temperature: m.Temperature,
				MaxTokens:   m.MaxTokens,
			},
		})
	}
	return entries
}

// ModelTable builds the routing table from the configured models.
func (c *Configuration) ModelTable() (*domain.ModelTable, error) {
	return domain.NewModelTable(c.ModelEntries())
}

// ProviderTimeout returns the per-call timeout shared by every adapter.
func (c *Configuration) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.TimeoutSeconds) * time.Second
}

// Address returns host:port for the HTTP listener.
func (c *Configuration) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RelayURL returns where the Anthropic adapter reaches the relay. Unless set
// explicitly it is this server's own /api/claude, dialed on loopback when the
// listener binds every interface.
func (c *Configuration) RelayURL() string {
	if c.Providers.Anthropic.RelayURL != "" {
		return c.Providers.Anthropic.RelayURL
	}
	host := c.Server.Host
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s/api/claude", net.JoinHostPort(host, strconv.Itoa(c.Server.Port)))
}
