package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"scry/internal/logging"
	"scry/internal/usage"
)

// GeminiClient implements Client for the Google Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
	limiter    *limiter
}

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Limiter    *limiter
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
		limiter:    cfg.Limiter,
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.limiter.acquire(ctx); err != nil {
		return "", err
	}
	defer c.limiter.release()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.3),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logging.APIDebug("retrying gemini call (attempt %d): %v", attempt, lastErr)
			if err := backoff(ctx, attempt-1); err != nil {
				return "", err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(callCtx, c.model, genai.Text(userPrompt), cfg)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if !retryableGeminiError(err) {
				return "", fmt.Errorf("gemini call failed: %w", err)
			}
			lastErr = fmt.Errorf("gemini call failed: %w", err)
			continue
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", ErrEmptyResponse
		}

		if resp.UsageMetadata != nil {
			usage.Record(ctx, int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount))
		}
		logging.APIDebug("gemini completion: model=%s elapsed=%s", c.model, time.Since(start).Round(time.Millisecond))

		return text, nil
	}

	logging.API("gemini call failed after %d attempts: %v", c.maxRetries+1, lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// retryableGeminiError reports whether a GenerateContent failure is worth
// retrying. Rate limits and server errors are; any other API status (bad
// request, invalid key, blocked content) fails the same way on every
// attempt. Errors carrying no API status are transient network failures.
func retryableGeminiError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return true
}
