package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scry/internal/config"
	"scry/internal/research"
	"scry/internal/search"
	"scry/internal/session"
	"scry/internal/tools"
)

// workflowClient answers each LLM role with canned responses, keyed off the
// system prompt.
type workflowClient struct {
	mu    sync.Mutex
	calls map[string]int
}

func newWorkflowClient() *workflowClient {
	return &workflowClient{calls: map[string]int{}}
}

func (c *workflowClient) role(system string) string {
	switch {
	case strings.Contains(system, "research planner"):
		return "planner"
	case strings.Contains(system, "plan reviewer"):
		return "critic"
	case strings.Contains(system, "search queries"):
		return "queries"
	case strings.Contains(system, "research assistant"):
		return "summary"
	case strings.Contains(system, "research synthesizer"):
		return "synthesizer"
	}
	return "other"
}

func (c *workflowClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

func (c *workflowClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	role := c.role(system)
	c.mu.Lock()
	c.calls[role]++
	c.mu.Unlock()

	switch role {
	case "planner":
		return `{
			"topic": "graphene",
			"objective": "understand graphene",
			"tasks": [
				{"id": "task_1", "title": "Basics", "description": "graphene basics", "priority": 5, "dependencies": []},
				{"id": "task_2", "title": "Production", "description": "production methods", "priority": 4, "dependencies": ["task_1"]}
			]
		}`, nil
	case "critic":
		return `{"score": 0.9, "issues": []}`, nil
	case "queries":
		return `["graphene query"]`, nil
	case "summary":
		return "what the results say", nil
	case "synthesizer":
		return `{
			"topic": "graphene",
			"executive_summary": "graphene is strong",
			"findings": [{"key_point": "strength", "evidence": ["200x steel"], "sources": ["https://a.example"], "confidence": 0.9}],
			"methodology": "web research",
			"limitations": ["limited sources"],
			"recommendations": ["more research"]
		}`, nil
	}
	return "", nil
}

func (c *workflowClient) count(role string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[role]
}

type countingProvider struct {
	mu      sync.Mutex
	queries []string
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	p.mu.Lock()
	p.queries = append(p.queries, query)
	p.mu.Unlock()
	return []search.Result{
		{Title: "Result", URL: "https://a.example", Snippet: "snippet"},
	}, nil
}

func (p *countingProvider) queryCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

func newTestOrchestrator(t *testing.T, client *workflowClient, provider search.Provider, opts ...Option) (*Orchestrator, *session.Store, string) {
	t.Helper()
	workspace := t.TempDir()
	store, err := session.Open(filepath.Join(workspace, ".scry", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.DefaultConfig()
	o := New(cfg, client, provider, store, workspace, opts...)
	return o, store, workspace
}

func TestRunFullWorkflow(t *testing.T) {
	client := newWorkflowClient()
	provider := &countingProvider{}
	o, store, _ := newTestOrchestrator(t, client, provider)

	id := session.NewID()
	result, err := o.Run(context.Background(), "graphene", id, false)
	require.NoError(t, err)

	require.NotNil(t, result.Report)
	assert.Equal(t, "graphene is strong", result.Report.ExecutiveSummary)
	assert.False(t, result.Resumed)

	// Report artifact on disk, rendered as markdown.
	data, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Research Report: graphene")

	// Plan and findings artifacts.
	sessionDir := o.SessionDir(id)
	_, err = os.Stat(filepath.Join(sessionDir, "plan.json"))
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(sessionDir, tools.FindingsFileName))
	require.NoError(t, err)
	var findings []research.TaskFinding
	require.NoError(t, json.Unmarshal(raw, &findings))
	assert.Len(t, findings, 2)

	// Event log covers the whole lifecycle, in order.
	events, err := store.Events(id)
	require.NoError(t, err)
	var types []string
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{
		session.EventSessionStarted,
		session.EventPlanCreated,
		session.EventPlanCritiqued,
		session.EventPlanApproved,
		session.EventTaskCompleted,
		session.EventTaskCompleted,
		session.EventSynthesisStarted,
		session.EventReportCreated,
		session.EventSessionDone,
	}, types)

	// Both tasks searched, one query each.
	assert.Equal(t, 2, provider.queryCount())
}

func TestRunResumeSkipsCompletedTasks(t *testing.T) {
	client := newWorkflowClient()
	provider := &countingProvider{}
	o, store, _ := newTestOrchestrator(t, client, provider)

	// Seed a session interrupted mid-search: plan approved, task_1 done.
	id := session.DeterministicID("interrupted")
	plan := research.Plan{
		Topic: "graphene",
		Tasks: []research.Task{
			{ID: "task_1", Title: "Basics", Priority: 5, Status: research.StatusTodo},
			{ID: "task_2", Title: "Production", Priority: 4, Status: research.StatusTodo, Dependencies: []string{"task_1"}},
		},
	}
	require.NoError(t, store.Append(id, session.EventSessionStarted, session.StartedPayload{Topic: "graphene", Depth: "moderate"}))
	require.NoError(t, store.Append(id, session.EventPlanCreated, session.PlanPayload{Plan: plan}))
	require.NoError(t, store.Append(id, session.EventPlanApproved, session.PlanPayload{Plan: plan}))
	require.NoError(t, store.Append(id, session.EventTaskCompleted, session.TaskPayload{Finding: research.TaskFinding{
		TaskID:  "task_1",
		Summary: "already searched",
		Results: []search.Result{{URL: "https://done.example"}},
	}}))

	result, err := o.Run(context.Background(), "", id, true)
	require.NoError(t, err)

	assert.True(t, result.Resumed)
	require.NotNil(t, result.Report)

	// No replanning, only task_2 searched.
	assert.Equal(t, 0, client.count("planner"))
	assert.Equal(t, 0, client.count("critic"))
	assert.Equal(t, 1, provider.queryCount())

	// The preserved finding made it into the findings artifact.
	raw, err := os.ReadFile(filepath.Join(o.SessionDir(id), tools.FindingsFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "already searched")
}

func TestRunResumeCompletedSession(t *testing.T) {
	client := newWorkflowClient()
	provider := &countingProvider{}
	o, store, _ := newTestOrchestrator(t, client, provider)

	id := "done-session"
	report := research.Report{Topic: "t", ExecutiveSummary: "finished"}
	require.NoError(t, store.Append(id, session.EventSessionStarted, session.StartedPayload{Topic: "t"}))
	require.NoError(t, store.Append(id, session.EventReportCreated, session.ReportPayload{Report: report, Path: "/tmp/r.md"}))
	require.NoError(t, store.Append(id, session.EventSessionDone, nil))

	result, err := o.Run(context.Background(), "", id, true)
	require.NoError(t, err)

	assert.True(t, result.Resumed)
	assert.Equal(t, "finished", result.Report.ExecutiveSummary)
	assert.Equal(t, "/tmp/r.md", result.ReportPath)
	assert.Equal(t, 0, client.count("planner"))
	assert.Equal(t, 0, provider.queryCount())
}

func TestRunRequiresTopic(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, newWorkflowClient(), &countingProvider{})

	_, err := o.Run(context.Background(), "", "fresh", false)
	assert.Error(t, err)
}

func TestRunRefusesExistingSessionWithoutResume(t *testing.T) {
	o, store, _ := newTestOrchestrator(t, newWorkflowClient(), &countingProvider{})

	id := session.DeterministicID("taken")
	require.NoError(t, store.Append(id, session.EventSessionStarted, session.StartedPayload{Topic: "old"}))

	_, err := o.Run(context.Background(), "new topic", id, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has history")
}

func TestRunEmitsProgress(t *testing.T) {
	ch := make(chan Progress, 64)
	o, _, _ := newTestOrchestrator(t, newWorkflowClient(), &countingProvider{}, WithProgress(ch))

	_, err := o.Run(context.Background(), "graphene", "p1", false)
	require.NoError(t, err)
	close(ch)

	phases := map[string]bool{}
	for p := range ch {
		phases[p.Phase] = true
	}
	assert.True(t, phases[session.PhasePlanning])
	assert.True(t, phases[session.PhaseCritique])
	assert.True(t, phases[session.PhaseSearching])
	assert.True(t, phases[session.PhaseSynthesis])
	assert.True(t, phases[session.PhaseDone])
}
