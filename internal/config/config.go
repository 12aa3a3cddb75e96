// Package config handles Daybook configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Provider identifiers for the AI backend. Unknown values resolve to
// DefaultProvider rather than failing — a soft default, not validation.
const (
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
	DefaultProvider = ProviderGemini
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/daybook/config.yaml, /etc/daybook/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "daybook", "config.yaml"))
	}

	paths = append(paths, "/etc/daybook/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Daybook configuration.
type Config struct {
	Listen   ListenConfig `yaml:"listen"`
	AI       AIConfig     `yaml:"ai"`
	MQTT     MQTTConfig   `yaml:"mqtt"`
	DataDir  string       `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AIConfig defines the assistant provider and credentials.
// Provider-specific keys take precedence over the generic APIKey.
type AIConfig struct {
	Provider     string `yaml:"provider"` // gemini or openai
	APIKey       string `yaml:"api_key"`  // provider-agnostic fallback key
	GeminiAPIKey string `yaml:"gemini_api_key"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	OpenAIModel  string `yaml:"openai_model"`

	// Base URL overrides, primarily for tests. Empty means the vendor default.
	GeminiBaseURL string `yaml:"gemini_base_url"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
}

// ResolvedProvider returns the effective provider name. Unrecognized
// identifiers fall back to DefaultProvider.
func (a AIConfig) ResolvedProvider() string {
	switch a.Provider {
	case ProviderGemini, ProviderOpenAI:
		return a.Provider
	default:
		return DefaultProvider
	}
}

// Credential returns the usable secret for the effective provider, or ""
// when none is configured. The provider-specific key wins over APIKey.
func (a AIConfig) Credential() string {
	switch a.ResolvedProvider() {
	case ProviderOpenAI:
		if a.OpenAIAPIKey != "" {
			return a.OpenAIAPIKey
		}
	default:
		if a.GeminiAPIKey != "" {
			return a.GeminiAPIKey
		}
	}
	return a.APIKey
}

// MQTTConfig defines the optional status/alarm publisher.
type MQTTConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Broker             string `yaml:"broker"` // e.g. mqtt://host:1883 or mqtts://host:8883
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	DeviceName         string `yaml:"device_name"`
	PublishIntervalSec int    `yaml:"publish_interval_sec"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		AI: AIConfig{
			Provider:    DefaultProvider,
			GeminiModel: "gemini-2.0-flash",
			OpenAIModel: "gpt-4o-mini",
		},
		MQTT: MQTTConfig{
			DeviceName:         "daybook",
			PublishIntervalSec: 60,
		},
	}
}
