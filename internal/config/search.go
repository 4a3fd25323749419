package config

import (
	"fmt"
	"time"
)

// SearchConfig configures the web search providers.
type SearchConfig struct {
	// TavilyAPIKey enables the Tavily provider. When empty, searches fall
	// back to DuckDuckGo HTML scraping.
	TavilyAPIKey string `yaml:"tavily_api_key"`

	// TavilyDepth is Tavily's depth parameter: basic or advanced.
	TavilyDepth string `yaml:"tavily_depth"`

	// MaxResults caps results per query.
	MaxResults int `yaml:"max_results"`

	// CacheTTL controls how long query results are reused within a session.
	CacheTTL string `yaml:"cache_ttl"`

	// Timeout bounds a single provider call.
	Timeout string `yaml:"timeout"`
}

// DefaultSearchConfig returns sensible defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TavilyDepth: "basic",
		MaxResults:  5,
		CacheTTL:    "30m",
		Timeout:     "30s",
	}
}

// Validate checks depth and duration fields.
func (c SearchConfig) Validate() error {
	switch c.TavilyDepth {
	case "", "basic", "advanced":
	default:
		return fmt.Errorf("invalid tavily_depth: %q", c.TavilyDepth)
	}
	if c.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.MaxResults)
	}
	if _, err := c.CacheTTLDuration(); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// CacheTTLDuration parses CacheTTL, defaulting to 30 minutes.
func (c SearchConfig) CacheTTLDuration() (time.Duration, error) {
	if c.CacheTTL == "" {
		return 30 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache_ttl %q: %w", c.CacheTTL, err)
	}
	return d, nil
}

// TimeoutDuration parses Timeout, defaulting to 30 seconds.
func (c SearchConfig) TimeoutDuration() (time.Duration, error) {
	if c.Timeout == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	return d, nil
}
