package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"scry/internal/llm"
	"scry/internal/logging"
	"scry/internal/usage"
)

// Planner decomposes a research topic into a plan via the LLM.
type Planner struct {
	client   llm.Client
	minTasks int
	maxTasks int
}

// NewPlanner constructs a planner targeting minTasks-maxTasks tasks.
func NewPlanner(client llm.Client, minTasks, maxTasks int) *Planner {
	if minTasks <= 0 {
		minTasks = 5
	}
	if maxTasks < minTasks {
		maxTasks = minTasks + 3
	}
	return &Planner{client: client, minTasks: minTasks, maxTasks: maxTasks}
}

// BuildPlan asks the LLM to decompose the topic. A malformed response falls
// back to a fixed three-task plan so the workflow always has something to
// execute.
func (p *Planner) BuildPlan(ctx context.Context, topic string) (*Plan, error) {
	ctx = usage.WithRole(ctx, usage.RolePlanner)

	plan, err := llm.CompleteJSON[Plan](ctx, p.client, plannerSystemPrompt, buildPlannerUserPrompt(topic, p.minTasks, p.maxTasks))
	if err != nil {
		if errors.Is(err, llm.ErrBadJSON) {
			logging.Planner("plan response unparseable, using fallback plan: %v", err)
			return fallbackPlan(topic), nil
		}
		return nil, fmt.Errorf("planner: %w", err)
	}

	normalizePlan(&plan, topic)
	if err := plan.Validate(); err != nil {
		logging.Planner("plan invalid (%v), using fallback plan", err)
		return fallbackPlan(topic), nil
	}

	logging.Planner("plan created: %d tasks for %q", len(plan.Tasks), topic)
	return &plan, nil
}

// Revise asks the LLM for a new plan that addresses the critique. The
// previous plan is returned unchanged when the revision fails to parse or
// validate.
func (p *Planner) Revise(ctx context.Context, plan *Plan, critique Critique) (*Plan, error) {
	ctx = usage.WithRole(ctx, usage.RolePlanner)

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("planner: marshal plan: %w", err)
	}

	revised, err := llm.CompleteJSON[Plan](ctx, p.client, plannerSystemPrompt,
		buildPlannerRevisionPrompt(plan.Topic, string(planJSON), critique))
	if err != nil {
		if errors.Is(err, llm.ErrBadJSON) {
			logging.Planner("revision unparseable, keeping previous plan: %v", err)
			return plan, nil
		}
		return nil, fmt.Errorf("planner: %w", err)
	}

	normalizePlan(&revised, plan.Topic)
	if err := revised.Validate(); err != nil {
		logging.Planner("revision invalid (%v), keeping previous plan", err)
		return plan, nil
	}
	return &revised, nil
}

// normalizePlan fills gaps models commonly leave: missing topic, statuses,
// out-of-range priorities, blank IDs.
func normalizePlan(plan *Plan, topic string) {
	if strings.TrimSpace(plan.Topic) == "" {
		plan.Topic = topic
	}
	if strings.TrimSpace(plan.Objective) == "" {
		plan.Objective = fmt.Sprintf("Research %s comprehensively", topic)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	for i := range plan.Tasks {
		t := &plan.Tasks[i]
		if t.ID == "" {
			t.ID = fmt.Sprintf("task_%d", i+1)
		}
		if t.Status == "" {
			t.Status = StatusTodo
		}
		if t.Priority < 1 {
			t.Priority = 1
		}
		if t.Priority > 5 {
			t.Priority = 5
		}
	}
}

// fallbackPlan is the deterministic plan used when the model's output can't
// be used: explore, deep dive, synthesize.
func fallbackPlan(topic string) *Plan {
	return &Plan{
		Topic:     topic,
		Objective: fmt.Sprintf("Research %s comprehensively", topic),
		CreatedAt: time.Now().UTC(),
		Tasks: []Task{
			{
				ID:          "task_1",
				Title:       "Initial exploration",
				Description: fmt.Sprintf("Explore basic concepts and definitions related to %s", topic),
				Priority:    5,
				Status:      StatusTodo,
			},
			{
				ID:           "task_2",
				Title:        "Deep dive research",
				Description:  fmt.Sprintf("Research current state and recent developments in %s", topic),
				Priority:     4,
				Status:       StatusTodo,
				Dependencies: []string{"task_1"},
			},
			{
				ID:           "task_3",
				Title:        "Synthesis and analysis",
				Description:  "Synthesize findings and identify key insights",
				Priority:     3,
				Status:       StatusTodo,
				Dependencies: []string{"task_1", "task_2"},
			},
		},
	}
}
