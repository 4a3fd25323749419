package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"scry/internal/llm"
	"scry/internal/logging"
	"scry/internal/search"
	"scry/internal/usage"
)

// Searcher executes a plan's tasks against a search provider. Tasks run in
// dependency order: each wave of ready tasks fans out in parallel, bounded
// by maxParallel.
type Searcher struct {
	client      llm.Client
	provider    search.Provider
	maxParallel int
	queriesPer  int
	maxResults  int
}

// NewSearcher constructs a searcher. maxParallel bounds concurrent tasks,
// queriesPer caps LLM-generated queries per task, maxResults caps results
// per query.
func NewSearcher(client llm.Client, provider search.Provider, maxParallel, queriesPer, maxResults int) *Searcher {
	if maxParallel < 1 {
		maxParallel = 1
	}
	if queriesPer < 1 {
		queriesPer = 1
	}
	if maxResults < 1 {
		maxResults = 5
	}
	return &Searcher{
		client:      client,
		provider:    provider,
		maxParallel: maxParallel,
		queriesPer:  queriesPer,
		maxResults:  maxResults,
	}
}

// Run executes every task in the plan and returns findings in plan task
// order. Tasks already present in prior (keyed by task ID) are reused
// without searching again, which is how resumed sessions skip completed
// work. onTask, when non-nil, is called once per freshly completed task;
// calls are serialized.
func (s *Searcher) Run(ctx context.Context, plan *Plan, prior map[string]TaskFinding, onTask func(TaskFinding)) ([]TaskFinding, error) {
	waves, err := plan.Waves()
	if err != nil {
		return nil, fmt.Errorf("searcher: %w", err)
	}

	var mu sync.Mutex
	byTask := make(map[string]TaskFinding, len(plan.Tasks))
	for id, f := range prior {
		byTask[id] = f
	}

	for i, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.maxParallel)

		for _, task := range wave {
			if _, ok := byTask[task.ID]; ok {
				logging.Searcher("task %s already complete, skipping", task.ID)
				continue
			}
			task := task
			g.Go(func() error {
				finding, err := s.executeTask(gctx, plan.Topic, task)
				if err != nil {
					return err
				}
				mu.Lock()
				byTask[task.ID] = finding
				if onTask != nil {
					onTask(finding)
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		logging.Searcher("wave %d/%d complete (%d tasks)", i+1, len(waves), len(wave))
	}

	findings := make([]TaskFinding, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		if f, ok := byTask[task.ID]; ok {
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// executeTask runs one task: generate queries, search each, dedupe results,
// and summarize what they say.
func (s *Searcher) executeTask(ctx context.Context, topic string, task Task) (TaskFinding, error) {
	ctx = usage.WithRole(ctx, usage.RoleSearcher)
	logging.Searcher("task %s: %s", task.ID, task.Title)

	queries := s.generateQueries(ctx, topic, task)

	seen := make(map[string]bool)
	var results []search.Result
	for _, q := range queries {
		found, err := s.provider.Search(ctx, q, s.maxResults)
		if err != nil {
			if ctx.Err() != nil {
				return TaskFinding{}, ctx.Err()
			}
			logging.Searcher("task %s: query %q failed: %v", task.ID, q, err)
			continue
		}
		for _, r := range found {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			results = append(results, r)
		}
	}

	finding := TaskFinding{
		TaskID:   task.ID,
		Question: queries[0],
		Results:  results,
	}

	if len(results) == 0 {
		finding.Summary = "No search results were found for this task."
		logging.Searcher("task %s: no results", task.ID)
		return finding, nil
	}

	summary, err := s.summarize(ctx, topic, task, results)
	if err != nil {
		if ctx.Err() != nil {
			return TaskFinding{}, ctx.Err()
		}
		logging.Searcher("task %s: summary failed, keeping raw snippets: %v", task.ID, err)
		summary = snippetSummary(results)
	}
	finding.Summary = summary

	logging.Searcher("task %s: %d results from %d queries", task.ID, len(results), len(queries))
	return finding, nil
}

// generateQueries asks the LLM for search queries. Any failure falls back
// to a single query built from the task itself.
func (s *Searcher) generateQueries(ctx context.Context, topic string, task Task) []string {
	raw, err := llm.CompleteJSON[[]string](ctx, s.client, querySystemPrompt, buildQueryUserPrompt(topic, task, s.queriesPer))
	if err != nil {
		if !errors.Is(err, llm.ErrBadJSON) {
			logging.Searcher("task %s: query generation failed: %v", task.ID, err)
		}
		return []string{fallbackQuery(topic, task)}
	}

	var queries []string
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == s.queriesPer {
			break
		}
	}
	if len(queries) == 0 {
		return []string{fallbackQuery(topic, task)}
	}
	return queries
}

func fallbackQuery(topic string, task Task) string {
	desc := strings.TrimSpace(task.Description)
	if desc == "" {
		desc = task.Title
	}
	if strings.Contains(strings.ToLower(desc), strings.ToLower(topic)) {
		return desc
	}
	return fmt.Sprintf("%s %s", topic, desc)
}

func (s *Searcher) summarize(ctx context.Context, topic string, task Task, results []search.Result) (string, error) {
	text, err := s.client.CompleteWithSystem(ctx, taskSummarySystemPrompt, buildTaskSummaryUserPrompt(topic, task, results))
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

// snippetSummary is the degraded summary used when the model is
// unavailable: the top result snippets, verbatim.
func snippetSummary(results []search.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i == 3 {
			break
		}
		if r.Snippet == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", r.Title, r.Snippet)
	}
	if sb.Len() == 0 {
		return "Search results were found but could not be summarized."
	}
	return strings.TrimSpace(sb.String())
}
