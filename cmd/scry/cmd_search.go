package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"scry/internal/search"
	"scry/internal/tools"
)

var searchMaxResults int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a one-off web search",
	Long: `Run a single web search through the configured provider chain
(Tavily when an API key is set, DuckDuckGo otherwise). Useful for
checking connectivity and API keys before a long research run.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "n", 5, "Maximum results to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	provider, err := search.FromConfig(cfg.Search)
	if err != nil {
		return err
	}
	registry := tools.NewResearchRegistry(provider, filepath.Join(resolveWorkspace(), ".scry"))

	out, err := registry.Execute(cmd.Context(), "web_search", map[string]any{
		"query":       args[0],
		"max_results": searchMaxResults,
	})
	if err != nil {
		return err
	}
	return printMarkdown(out, false)
}
