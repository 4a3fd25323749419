package search

import (
	"scry/internal/config"
	"scry/internal/logging"
)

// FromConfig assembles the provider chain: Tavily first when a key is
// configured, DuckDuckGo as fallback, the whole chain behind a TTL cache.
func FromConfig(cfg config.SearchConfig) (Provider, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTLDuration()
	if err != nil {
		return nil, err
	}

	var providers []Provider
	if cfg.TavilyAPIKey != "" {
		providers = append(providers, NewTavily(cfg.TavilyAPIKey, cfg.TavilyDepth, timeout))
	} else {
		logging.Search("no Tavily API key configured, web search uses DuckDuckGo only")
	}
	providers = append(providers, NewDuckDuckGo(timeout))

	return NewCached(NewMulti(providers...), 1000, ttl), nil
}
