package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"scry/internal/logging"
)

var (
	reportSession string
	reportWatch   bool
	reportPlain   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a session's research report",
	RunE:  runReportShow,
}

var reportShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the latest report in the terminal",
	Long: `Render a session's latest report as styled markdown.

With --watch the report is re-rendered whenever the file changes, which
is useful while a research run is still writing it.`,
	RunE: runReportShow,
}

func init() {
	reportCmd.AddCommand(reportShowCmd)
	for _, c := range []*cobra.Command{reportCmd, reportShowCmd} {
		c.Flags().StringVarP(&reportSession, "session", "s", "", "Session name (default: most recently updated session)")
		c.Flags().BoolVar(&reportWatch, "watch", false, "Re-render when the report file changes")
		c.Flags().BoolVar(&reportPlain, "plain", false, "Print raw markdown")
	}
}

func runReportShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var id string
	if reportSession != "" {
		id, err = resolveSessionID(store, reportSession)
		if err != nil {
			return err
		}
	} else {
		infos, err := store.List()
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			return fmt.Errorf("no sessions found; run scry research first")
		}
		id = infos[0].ID
	}

	st, err := store.Load(id)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("session %q not found", reportSession)
	}

	path := st.ReportPath
	if path == "" {
		sessionDir := filepath.Join(resolveWorkspace(), ".scry", "sessions", id)
		path = latestReport(sessionDir)
	}
	if path == "" {
		return fmt.Errorf("session has no report yet (phase: %s)", st.Phase)
	}

	if err := renderReportFile(path); err != nil {
		return err
	}
	if !reportWatch {
		return nil
	}
	return watchReport(cmd, path)
}

// latestReport returns the newest research_report_*.md in dir, or "".
func latestReport(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "research_report_*.md"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

func renderReportFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	return printMarkdown(string(data), reportPlain)
}

// watchReport re-renders the report when its file changes. Watching the
// directory rather than the file survives editors that replace on save.
func watchReport(cmd *cobra.Command, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fmt.Println()
	fmt.Println(progressStyle.Render("Watching " + path + " (ctrl-c to stop)"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Debounce bursts of writes into one render.
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Base(ev.Name) != filepath.Base(path) && !strings.HasPrefix(filepath.Base(ev.Name), "research_report_") {
				continue
			}
			pending = time.After(300 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Session("watch error: %v", err)
		case <-pending:
			pending = nil
			if latest := latestReport(dir); latest != "" {
				path = latest
			}
			if err := renderReportFile(path); err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			}
		}
	}
}
