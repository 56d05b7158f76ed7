// Package config provides configuration management using the Singleton pattern.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/hpn/hpn-svg-arena/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "SVG_ARENA"

	// EnvModels overrides the model table as a comma-separated list of provider:model pairs.
	EnvModels = envPrefix + "_MODEL_LIST"

	// DotEnvFile is loaded before the environment is read, if present.
	DotEnvFile = ".env"
)

// Credential environment variables, primary name first.
var (
	openAIKeyVars    = []string{"OPENAI_API_KEY", "REACT_APP_OPENAI_API_KEY"}
	anthropicKeyVars = []string{"ANTHROPIC_API_KEY", "REACT_APP_ANTHROPIC_API_KEY"}
	geminiKeyVars    = []string{"GEMINI_API_KEY", "REACT_APP_GEMINI_API_KEY"}
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. Process environment
// 2. .env file (never overrides variables already set)
// 3. config.yaml
// 4. Default values
func loadConfig(configPath string) (*Configuration, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, &ConfigError{
			Op:  "dotenv",
			Err: fmt.Errorf("failed to load %s: %w", DotEnvFile, err),
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/svg-arena")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	if raw := os.Getenv(EnvModels); raw != "" {
		models, err := parseModels(raw)
		if err != nil {
			return nil, &ConfigError{Op: "load_models_env", Err: err}
		}
		cfg.Models = models
	}

	cfg.Credentials = loadCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Provider defaults
	v.SetDefault("providers.timeout_seconds", 50)
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("providers.anthropic.relay_url", "")
	v.SetDefault("providers.anthropic.version", "2023-06-01")
	v.SetDefault("providers.anthropic.max_tokens", 2000)
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.gemini.temperature", 0.7)
	v.SetDefault("providers.gemini.max_output_tokens", 2000)

	v.SetDefault("models", defaultModels())
	v.SetDefault("dispatch.max_concurrency", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// defaultModels renders the stock model table in the shape viper unmarshals from YAML.
func defaultModels() []map[string]interface{} {
	entries := domain.DefaultModelEntries()
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]interface{}{
			"provider": string(e.Provider),
			"model":    e.Model,
		})
	}
	return out
}

// parseModels parses "openai:gpt-4,gemini:gemini-1.5-pro".
func parseModels(raw string) ([]ModelConfig, error) {
	var models []ModelConfig
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		provider, model, ok := strings.Cut(item, ":")
		if !ok || strings.TrimSpace(model) == "" {
			return nil, &InvalidValueError{Key: EnvModels, Value: item}
		}
		models = append(models, ModelConfig{
			Provider: strings.ToLower(strings.TrimSpace(provider)),
			Model:    strings.TrimSpace(model),
		})
	}
	if len(models) == 0 {
		return nil, &MissingKeyError{Key: EnvModels}
	}
	return models, nil
}

// loadCredentials reads provider keys, accepting the legacy REACT_APP_* names.
func loadCredentials() Credentials {
	return Credentials{
		OpenAIKey:    firstEnv(openAIKeyVars...),
		AnthropicKey: firstEnv(anthropicKeyVars...),
		GeminiKey:    firstEnv(geminiKeyVars...),
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// Missing reports which provider credentials are absent among those in use.
func (c Credentials) Missing(providers []domain.ProviderType) []domain.ProviderType {
	var missing []domain.ProviderType
	for _, p := range providers {
		if c.For(p) == "" {
			missing = append(missing, p)
		}
	}
	return missing
}

// For returns the credential for provider p.
func (c Credentials) For(p domain.ProviderType) string {
	switch p {
	case domain.ProviderOpenAI:
		return c.OpenAIKey
	case domain.ProviderAnthropic:
		return c.AnthropicKey
	case domain.ProviderGemini:
		return c.GeminiKey
	default:
		return ""
	}
}
