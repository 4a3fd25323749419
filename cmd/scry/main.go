// Package main implements the scry CLI: a deep research agent that plans,
// searches, and synthesizes cited reports from the terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scry/internal/config"
	"scry/internal/logging"
	"scry/internal/session"
)

var (
	// Global flags
	verbose   bool
	workspace string
	apiKey    string
)

var rootCmd = &cobra.Command{
	Use:   "scry",
	Short: "scry - deep research from the terminal",
	Long: `scry researches a topic the way an analyst would: it decomposes the
topic into subtasks, reviews its own plan, searches the web for each
task in parallel, and synthesizes a cited markdown report.

Sessions are persisted, so an interrupted run can be resumed with the
same --session name.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug := verbose
		if cfg, err := loadConfig(); err == nil {
			debug = debug || cfg.Logging.Debug
		}
		if err := logging.Setup(logging.Config{
			Debug:     debug,
			Workspace: resolveWorkspace(),
			Console:   verbose,
		}); err != nil {
			return err
		}
		logging.Get(logging.CategoryCLI).Debugf("running %s (workspace=%s)", cmd.Name(), resolveWorkspace())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging to the console")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "LLM API key (overrides config and environment)")

	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(searchCmd)
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWorkspace(resolveWorkspace())
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	return cfg, nil
}

func openStore() (*session.Store, error) {
	return session.Open(filepath.Join(resolveWorkspace(), ".scry", "sessions.db"))
}

// resolveSessionID maps a user-facing session name to its stored ID. A raw
// ID that already has events is accepted as-is.
func resolveSessionID(store *session.Store, name string) (string, error) {
	events, err := store.Events(name)
	if err != nil {
		return "", err
	}
	if len(events) > 0 {
		return name, nil
	}
	return session.DeterministicID(name), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		logging.Sync()
		os.Exit(1)
	}
}
