package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scry/internal/logging"
	"scry/internal/search"
)

// FindingsFileName is the intermediate findings artifact shared between the
// search and synthesis phases.
const FindingsFileName = "research_findings.json"

// WebSearchTool returns a tool that searches the web via the given provider.
func WebSearchTool(provider search.Provider) *Tool {
	return &Tool{
		Name:        "web_search",
		Description: "Search the web for current information. Returns titles, URLs, and snippets.",
		Category:    CategoryResearch,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return executeWebSearch(ctx, provider, args)
		},
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "The search query",
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results to return (default: 5)",
					Default:     5,
				},
			},
		},
	}
}

func executeWebSearch(ctx context.Context, provider search.Provider, args map[string]any) (string, error) {
	query := StringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("%w: query", ErrMissingRequiredArg)
	}
	maxResults := IntArg(args, "max_results", 5)

	logging.ToolsDebug("web search: query=%q, max_results=%d", query, maxResults)

	results, err := provider.Search(ctx, query, maxResults)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		return "No results found for: " + query, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Search Results for: %s\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d results:\n\n", len(results)))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("## %d. %s\n", i+1, r.Title))
		sb.WriteString(fmt.Sprintf("**URL:** %s\n", r.URL))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("\n%s\n", r.Snippet))
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String(), nil
}

// SaveFindingsTool returns a tool that writes findings JSON into the
// session workspace.
func SaveFindingsTool(dir string) *Tool {
	return &Tool{
		Name:        "save_findings",
		Description: "Save research findings JSON to the session workspace for later synthesis.",
		Category:    CategoryResearch,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			content := StringArg(args, "content")
			if content == "" {
				return "", fmt.Errorf("%w: content", ErrMissingRequiredArg)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("failed to create findings dir: %w", err)
			}
			path := filepath.Join(dir, FindingsFileName)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("failed to write findings: %w", err)
			}
			return "Findings saved to " + path, nil
		},
		Schema: Schema{
			Required: []string{"content"},
			Properties: map[string]Property{
				"content": {
					Type:        "string",
					Description: "Findings as a JSON document",
				},
			},
		},
	}
}

// ReadFindingsTool returns a tool that reads previously saved findings.
func ReadFindingsTool(dir string) *Tool {
	return &Tool{
		Name:        "read_findings",
		Description: "Read the saved research findings for this session.",
		Category:    CategorySynthesis,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			data, err := os.ReadFile(filepath.Join(dir, FindingsFileName))
			if err != nil {
				return "", fmt.Errorf("failed to read findings: %w", err)
			}
			return string(data), nil
		},
		Schema: Schema{Properties: map[string]Property{}},
	}
}

// NewResearchRegistry builds the registry the workflow uses: web search
// bound to the provider chain plus findings capture for the session dir.
func NewResearchRegistry(provider search.Provider, sessionDir string) *Registry {
	reg := NewRegistry()
	reg.MustRegister(WebSearchTool(provider))
	reg.MustRegister(SaveFindingsTool(sessionDir))
	reg.MustRegister(ReadFindingsTool(sessionDir))
	return reg
}
