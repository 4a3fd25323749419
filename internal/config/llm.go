package config

import (
	"errors"
	"fmt"
	"time"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// LLMConfig configures the LLM provider shared by the planner, critic, and
// synthesizer roles.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// BaseURL overrides the provider endpoint. Required for openai-compatible
	// gateways, ignored by the gemini provider.
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`

	// MaxInflight bounds concurrent LLM calls across all roles.
	MaxInflight int `yaml:"max_inflight"`

	// MaxRetries bounds retry attempts on 429/5xx responses.
	MaxRetries int `yaml:"max_retries"`
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    ProviderGemini,
		Model:       "gemini-2.5-flash",
		Timeout:     "120s",
		MaxInflight: 4,
		MaxRetries:  3,
	}
}

// Validate checks provider and timeout settings.
func (c LLMConfig) Validate() error {
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	if c.Provider == ProviderOpenAI && c.BaseURL == "" {
		return errors.New("openai provider requires base_url")
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration parses the timeout string, defaulting to two minutes.
func (c LLMConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 2 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
