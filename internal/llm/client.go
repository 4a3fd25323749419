// Package llm provides the language model client used by the planner,
// critic, and synthesizer roles. Two providers are supported: Gemini via
// the official SDK and any OpenAI-compatible chat/completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scry/internal/config"
)

// Client errors.
var (
	// ErrNoAPIKey is returned when a provider is constructed without a key.
	ErrNoAPIKey = errors.New("llm: API key not configured")

	// ErrEmptyResponse is returned when the model returns no completion.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrBadJSON is returned when a structured response fails to decode.
	ErrBadJSON = errors.New("llm: response is not valid JSON")

	// ErrRateLimited is returned after retries on 429 are exhausted.
	ErrRateLimited = errors.New("llm: rate limit exceeded")
)

// Client is implemented by LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// New constructs the provider selected by the configuration.
func New(cfg config.LLMConfig) (Client, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	limiter := newLimiter(cfg.MaxInflight)

	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
			Limiter:    limiter,
		})
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
			Limiter:    limiter,
		}), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// CompleteJSON asks for a completion and decodes it into T, tolerating
// markdown code fences around the JSON body.
func CompleteJSON[T any](ctx context.Context, c Client, systemPrompt, userPrompt string) (T, error) {
	var out T
	text, err := c.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return out, nil
}

// ExtractJSON strips markdown fences and any prose surrounding the first
// JSON object or array in the text. Models asked for JSON frequently wrap
// it in ```json fences or lead with commentary.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	var end int
	if s[start] == '{' {
		end = strings.LastIndex(s, "}")
	} else {
		end = strings.LastIndex(s, "]")
	}
	if end <= start {
		return s
	}
	return s[start : end+1]
}

// backoff sleeps for an exponentially growing delay, honoring cancellation.
// attempt is zero-based; delays are 1s, 2s, 4s, ...
func backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
