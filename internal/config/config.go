// Package config loads scry configuration from YAML with environment
// variable overrides. Configuration lives at <workspace>/.scry/config.yaml;
// a missing file yields defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all scry configuration.
type Config struct {
	// LLM provider settings
	LLM LLMConfig `yaml:"llm"`

	// Web search settings
	Search SearchConfig `yaml:"search"`

	// Research workflow settings
	Research ResearchConfig `yaml:"research"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM:      DefaultLLMConfig(),
		Search:   DefaultSearchConfig(),
		Research: DefaultResearchConfig(),
		Logging:  DefaultLoggingConfig(),
	}
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadWorkspace loads the config for a workspace directory.
func LoadWorkspace(workspace string) (*Config, error) {
	return Load(filepath.Join(workspace, ".scry", "config.yaml"))
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the configuration for inconsistencies that would only
// surface mid-run.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Research.Validate(); err != nil {
		return fmt.Errorf("research: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. SCRY_LLM_API_KEY
// always wins; GEMINI_API_KEY and OPENAI_API_KEY fill an empty key only when
// the matching provider is configured, so a stray key for the other provider
// is never picked up.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("SCRY_LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.LLM.APIKey == "" && c.LLM.Provider == ProviderGemini {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.LLM.APIKey == "" && c.LLM.Provider == ProviderOpenAI {
		c.LLM.APIKey = key
	}

	if model := os.Getenv("SCRY_LLM_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("SCRY_LLM_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}

	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		c.Search.TavilyAPIKey = key
	}

	if os.Getenv("SCRY_DEBUG") == "1" {
		c.Logging.Debug = true
	}
}
