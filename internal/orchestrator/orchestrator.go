// Package orchestrator drives the research workflow through its phases:
// plan, critique, search, synthesize. Every phase transition is appended to
// the session event log, so an interrupted run resumes exactly where it
// stopped.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scry/internal/config"
	"scry/internal/llm"
	"scry/internal/logging"
	"scry/internal/research"
	"scry/internal/search"
	"scry/internal/session"
	"scry/internal/tools"
	"scry/internal/usage"
)

// Progress is one workflow update for the CLI to render.
type Progress struct {
	Phase   string
	Message string
}

// Result is what a completed run produced.
type Result struct {
	SessionID  string
	Plan       *research.Plan
	Report     *research.Report
	ReportPath string
	Usage      usage.Snapshot
	Resumed    bool
}

// Orchestrator wires the workflow roles to the session log and the
// workspace.
type Orchestrator struct {
	cfg       *config.Config
	client    llm.Client
	provider  search.Provider
	store     *session.Store
	workspace string
	tracker   *usage.Tracker
	progress  chan<- Progress
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress emits phase updates on ch. The orchestrator never closes ch.
func WithProgress(ch chan<- Progress) Option {
	return func(o *Orchestrator) { o.progress = ch }
}

// WithTracker substitutes the token usage tracker.
func WithTracker(t *usage.Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// New constructs an orchestrator rooted at the workspace directory.
func New(cfg *config.Config, client llm.Client, provider search.Provider, store *session.Store, workspace string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		client:    client,
		provider:  provider,
		store:     store,
		workspace: workspace,
		tracker:   usage.NewTracker(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SessionDir returns the artifact directory for a session.
func (o *Orchestrator) SessionDir(sessionID string) string {
	return filepath.Join(o.workspace, ".scry", "sessions", sessionID)
}

// Run executes (or resumes) a research session and returns the report.
// topic may be empty when resuming; it is then taken from the session log.
func (o *Orchestrator) Run(ctx context.Context, topic, sessionID string, resume bool) (*Result, error) {
	ctx = usage.WithTracker(ctx, o.tracker)

	var state *session.State
	if resume {
		var err error
		state, err = o.store.Load(sessionID)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load session: %w", err)
		}
	}

	if state != nil {
		if topic == "" {
			topic = state.Topic
		}
		if state.Phase == session.PhaseDone && state.Report != nil {
			logging.Session("session %s already complete", sessionID)
			return &Result{
				SessionID:  sessionID,
				Plan:       state.Plan,
				Report:     state.Report,
				ReportPath: state.ReportPath,
				Usage:      o.tracker.Snapshot(),
				Resumed:    true,
			}, nil
		}
		o.emit(state.Phase, fmt.Sprintf("resuming session %s (%d tasks done)", sessionID, len(state.Findings)))
	} else {
		if topic == "" {
			return nil, fmt.Errorf("orchestrator: topic required for a new session")
		}
		existing, err := o.store.Events(sessionID)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("orchestrator: session %s already has history; pass resume or delete it first", sessionID)
		}
		if err := o.store.Append(sessionID, session.EventSessionStarted, session.StartedPayload{
			Topic: topic,
			Depth: o.cfg.Research.Depth,
		}); err != nil {
			return nil, err
		}
	}

	sessionDir := o.SessionDir(sessionID)
	registry := tools.NewResearchRegistry(o.provider, sessionDir)

	plan, err := o.planPhase(ctx, state, topic, sessionID, sessionDir)
	if err != nil {
		return nil, err
	}

	findings, err := o.searchPhase(ctx, state, plan, sessionID, registry)
	if err != nil {
		return nil, err
	}

	report, reportPath, err := o.synthesisPhase(ctx, topic, findings, sessionID, sessionDir, registry)
	if err != nil {
		return nil, err
	}

	if err := o.store.Append(sessionID, session.EventSessionDone, nil); err != nil {
		return nil, err
	}
	o.emit(session.PhaseDone, "research complete: "+reportPath)

	if err := o.tracker.Flush(); err != nil {
		logging.Session("flush usage: %v", err)
	}

	return &Result{
		SessionID:  sessionID,
		Plan:       plan,
		Report:     report,
		ReportPath: reportPath,
		Usage:      o.tracker.Snapshot(),
		Resumed:    state != nil,
	}, nil
}

// planPhase produces the approved plan, running the planner and the
// critique loop unless a resumed session already holds one.
func (o *Orchestrator) planPhase(ctx context.Context, state *session.State, topic, sessionID, sessionDir string) (*research.Plan, error) {
	if state != nil && state.Plan != nil && state.Phase != session.PhasePlanning && state.Phase != session.PhaseCritique {
		o.emit(session.PhaseSearching, fmt.Sprintf("reusing approved plan (%d tasks)", len(state.Plan.Tasks)))
		return state.Plan, nil
	}

	minTasks, maxTasks := o.cfg.Research.TaskRange()
	planner := research.NewPlanner(o.client, minTasks, maxTasks)
	critic := research.NewCritic(o.client)

	o.emit(session.PhasePlanning, "decomposing topic into research tasks")
	var plan *research.Plan
	if state != nil {
		plan = state.Plan
	}
	if plan == nil {
		var err error
		plan, err = planner.BuildPlan(ctx, topic)
		if err != nil {
			return nil, err
		}
		if err := o.store.Append(sessionID, session.EventPlanCreated, session.PlanPayload{Plan: *plan}); err != nil {
			return nil, err
		}
	}

	o.emit(session.PhaseCritique, fmt.Sprintf("reviewing plan (%d tasks)", len(plan.Tasks)))
	approved, err := research.RefinePlan(ctx, planner, critic, plan,
		o.cfg.Research.CritiqueThreshold, o.cfg.Research.CritiqueMaxRounds,
		func(r research.RefineResult) {
			o.emit(session.PhaseCritique, fmt.Sprintf("critique round %d: score %.2f", r.Round+1, r.Score))
			if err := o.store.Append(sessionID, session.EventPlanCritiqued, session.CritiquePayload{
				Round:    r.Round,
				Score:    r.Score,
				Approved: r.Approved,
			}); err != nil {
				logging.Session("append critique event: %v", err)
			}
		})
	if err != nil {
		return nil, err
	}

	if err := o.store.Append(sessionID, session.EventPlanApproved, session.PlanPayload{Plan: *approved}); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(sessionDir, "plan.json"), approved); err != nil {
		logging.Session("write plan artifact: %v", err)
	}
	return approved, nil
}

// searchPhase executes the plan's tasks, skipping any a resumed session
// already completed, and hands the findings file to the synthesis phase.
func (o *Orchestrator) searchPhase(ctx context.Context, state *session.State, plan *research.Plan, sessionID string, registry *tools.Registry) ([]research.TaskFinding, error) {
	var prior map[string]research.TaskFinding
	if state != nil && len(state.Findings) > 0 {
		prior = state.Findings
	}

	o.emit(session.PhaseSearching, fmt.Sprintf("searching %d tasks (%d already done)", len(plan.Tasks), len(prior)))

	searcher := research.NewSearcher(o.client, o.provider,
		o.cfg.Research.MaxParallel, o.cfg.Research.QueriesPerTask, o.cfg.Search.MaxResults)

	findings, err := searcher.Run(ctx, plan, prior, func(f research.TaskFinding) {
		o.emit(session.PhaseSearching, fmt.Sprintf("task %s complete (%d results)", f.TaskID, len(f.Results)))
		if err := o.store.Append(sessionID, session.EventTaskCompleted, session.TaskPayload{Finding: f}); err != nil {
			logging.Session("append task event: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: marshal findings: %w", err)
	}
	if _, err := registry.Execute(ctx, "save_findings", map[string]any{"content": string(raw)}); err != nil {
		return nil, fmt.Errorf("orchestrator: save findings: %w", err)
	}
	return findings, nil
}

// synthesisPhase reads the findings artifact back and produces the report.
// The file round-trip keeps the phases decoupled: synthesis only sees what
// was persisted.
func (o *Orchestrator) synthesisPhase(ctx context.Context, topic string, findings []research.TaskFinding, sessionID, sessionDir string, registry *tools.Registry) (*research.Report, string, error) {
	if err := o.store.Append(sessionID, session.EventSynthesisStarted, nil); err != nil {
		return nil, "", err
	}
	o.emit(session.PhaseSynthesis, fmt.Sprintf("synthesizing report from %d findings", len(findings)))

	raw, err := registry.Execute(ctx, "read_findings", nil)
	if err != nil {
		return nil, "", fmt.Errorf("orchestrator: read findings: %w", err)
	}
	var persisted []research.TaskFinding
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		return nil, "", fmt.Errorf("orchestrator: decode findings: %w", err)
	}

	report, err := research.NewSynthesizer(o.client).Synthesize(ctx, topic, persisted)
	if err != nil {
		return nil, "", err
	}

	reportPath := filepath.Join(sessionDir, fmt.Sprintf("research_report_%s.md", time.Now().UTC().Format("20060102_150405")))
	if err := os.WriteFile(reportPath, []byte(report.Markdown()), 0o644); err != nil {
		return nil, "", fmt.Errorf("orchestrator: write report: %w", err)
	}

	if err := o.store.Append(sessionID, session.EventReportCreated, session.ReportPayload{
		Report: *report,
		Path:   reportPath,
	}); err != nil {
		return nil, "", err
	}
	return report, reportPath, nil
}

func (o *Orchestrator) emit(phase, message string) {
	logging.Session("[%s] %s", phase, message)
	if o.progress != nil {
		select {
		case o.progress <- Progress{Phase: phase, Message: message}:
		default:
		}
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
