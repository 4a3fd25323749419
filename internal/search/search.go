// Package search provides web search providers for the research workflow.
// Tavily is the primary provider; DuckDuckGo HTML scraping serves as a
// keyless fallback. Results are cached per query for the session.
package search

import (
	"context"
	"errors"

	"scry/internal/logging"
)

// Result is a single item returned by a Provider.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"` // Provider relevance score, 0 when unknown
}

// Provider executes a query and returns results.
type Provider interface {
	// Search returns up to maxResults results. Implementations must not
	// return results alongside a non-nil error.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)

	// Name identifies the provider in logs and findings.
	Name() string
}

// ErrNoProviders is returned by a Multi with an empty provider list.
var ErrNoProviders = errors.New("search: no providers configured")

// Multi tries providers in order until one returns results. A provider
// error falls through to the next provider; the last error is returned
// only when every provider fails.
type Multi struct {
	providers []Provider
}

// NewMulti builds a provider chain.
func NewMulti(providers ...Provider) *Multi {
	return &Multi{providers: providers}
}

// Name implements Provider.
func (m *Multi) Name() string { return "multi" }

// Search implements Provider.
func (m *Multi) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if len(m.providers) == 0 {
		return nil, ErrNoProviders
	}

	var lastErr error
	for _, p := range m.providers {
		results, err := p.Search(ctx, query, maxResults)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.Search("provider %s failed, trying next: %v", p.Name(), err)
			lastErr = err
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
		logging.SearchDebug("provider %s returned no results for %q", p.Name(), query)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}
