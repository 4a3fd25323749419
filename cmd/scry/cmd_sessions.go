package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scry/internal/research"
	"scry/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage research sessions",
	Long: `List and manage persisted research sessions.

Subcommands:
  list    - List all sessions
  show    - Show one session's state
  delete  - Delete a session's history`,
	RunE: runSessionsList,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a session's current state",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a session's history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	fmt.Println(titleStyle.Render("Sessions"))
	for _, info := range infos {
		topic := info.Topic
		if topic == "" {
			topic = "(no topic)"
		}
		fmt.Printf("  %s  %-10s  %s\n", info.ID, info.Phase, topic)
		fmt.Println("    " + progressStyle.Render(fmt.Sprintf("%d events, updated %s", info.Events, info.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := resolveSessionID(store, args[0])
	if err != nil {
		return err
	}
	st, err := store.Load(id)
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("session %q not found", args[0])
	}

	fmt.Println(titleStyle.Render("Session " + id))
	fmt.Println(labelStyle.Render("Topic:"), st.Topic)
	fmt.Println(labelStyle.Render("Depth:"), st.Depth)
	fmt.Println(labelStyle.Render("Phase:"), st.Phase)
	if st.Plan != nil {
		fmt.Println(labelStyle.Render("Tasks:"), fmt.Sprintf("%d planned, %d searched", len(st.Plan.Tasks), len(st.Findings)))
		for _, task := range st.Plan.Tasks {
			marker := "[ ]"
			if task.Status == research.StatusDone {
				marker = "[x]"
			}
			fmt.Printf("  %s %s: %s\n", marker, task.ID, task.Title)
		}
	}
	if st.CritiqueRounds > 0 {
		fmt.Println(labelStyle.Render("Critique rounds:"), st.CritiqueRounds)
	}
	if st.ReportPath != "" {
		fmt.Println(labelStyle.Render("Report:"), st.ReportPath)
	}
	if st.Phase != session.PhaseDone {
		fmt.Println()
		fmt.Println(progressStyle.Render("Resume with: scry research --session " + args[0] + " --resume"))
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := resolveSessionID(store, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Session %q deleted.\n", args[0])
	return nil
}
