package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"scry/internal/llm"
	"scry/internal/orchestrator"
	"scry/internal/search"
	"scry/internal/session"
	"scry/internal/usage"
)

var (
	researchDepth   string
	researchSession string
	researchResume  bool
	researchPlain   bool
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Research a topic and produce a cited report",
	Long: `Research a topic end to end: plan, critique, search, synthesize.

Examples:
  scry research "solid state battery manufacturing"
  scry research "quantum error correction" --depth deep --session qec
  scry research --session qec --resume`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringVarP(&researchDepth, "depth", "d", "", "Research depth: quick, moderate, or deep")
	researchCmd.Flags().StringVarP(&researchSession, "session", "s", "", "Session name (same name resumes the same session)")
	researchCmd.Flags().BoolVar(&researchResume, "resume", false, "Resume an interrupted session (requires --session)")
	researchCmd.Flags().BoolVar(&researchPlain, "plain", false, "Print the report as raw markdown")
}

func runResearch(cmd *cobra.Command, args []string) error {
	topic := ""
	if len(args) == 1 {
		topic = strings.TrimSpace(args[0])
	}
	if topic == "" && !researchResume {
		return fmt.Errorf("a topic is required unless --resume is given")
	}
	if researchResume && researchSession == "" {
		return fmt.Errorf("--resume requires --session")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if researchDepth != "" {
		cfg.Research.Depth = researchDepth
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}
	provider, err := search.FromConfig(cfg.Search)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ws := resolveWorkspace()
	tracker, err := usage.NewPersistentTracker(ws)
	if err != nil {
		return err
	}

	sessionID := session.NewID()
	if researchSession != "" {
		sessionID, err = resolveSessionID(store, researchSession)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := make(chan orchestrator.Progress, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		lastPhase := ""
		for p := range progress {
			if p.Phase != lastPhase {
				fmt.Println(phaseBanner(p.Phase))
				lastPhase = p.Phase
			}
			fmt.Println("  " + progressStyle.Render(p.Message))
		}
	}()

	o := orchestrator.New(cfg, client, provider, store, ws,
		orchestrator.WithProgress(progress),
		orchestrator.WithTracker(tracker),
	)

	fmt.Println(titleStyle.Render("scry") + " researching: " + topic)
	result, err := o.Run(ctx, topic, sessionID, researchResume)
	close(progress)
	<-done
	if err != nil {
		if ctx.Err() != nil && researchSession != "" {
			fmt.Printf("\nInterrupted. Resume with: scry research --session %s --resume\n", researchSession)
		}
		return err
	}

	fmt.Println()
	if err := printMarkdown(result.Report.Markdown(), researchPlain); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(labelStyle.Render("Report saved:"), result.ReportPath)
	printUsage(result.Usage)
	return nil
}

func printMarkdown(md string, plain bool) error {
	if plain {
		fmt.Println(md)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func printUsage(snap usage.Snapshot) {
	if snap.Total.Calls == 0 {
		return
	}
	fmt.Println(labelStyle.Render("Token usage:"),
		fmt.Sprintf("%d calls, %d in, %d out (~$%.4f)", snap.Total.Calls, snap.Total.Input, snap.Total.Output, snap.EstimatedCost()))

	roles := make([]string, 0, len(snap.ByRole))
	for role := range snap.ByRole {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		c := snap.ByRole[role]
		fmt.Printf("  %-12s %d calls, %d in, %d out\n", role, c.Calls, c.Input, c.Output)
	}
}
