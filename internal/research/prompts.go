package research

import (
	"fmt"
	"strings"

	"scry/internal/search"
)

const plannerSystemPrompt = `You are a research planner. You decompose research
topics into specific, actionable subtasks. You always answer with a single
JSON object and nothing else.`

func buildPlannerUserPrompt(topic string, minTasks, maxTasks int) string {
	return fmt.Sprintf(`Create a detailed research plan for the topic: %q

Break this down into %d-%d specific, actionable research tasks.
Each task needs:
- a unique id (task_1, task_2, ...)
- a clear title and description
- a priority from 1 to 5 (5 highest)
- dependencies: ids of tasks that must complete first (often empty)

Output a JSON object with this structure:
{
  "topic": "...",
  "objective": "...",
  "tasks": [
    {"id": "task_1", "title": "...", "description": "...", "priority": 5, "dependencies": []}
  ]
}`, topic, minTasks, maxTasks)
}

func buildPlannerRevisionPrompt(topic string, planJSON string, critique Critique) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your research plan for %q was reviewed and needs revision.\n\n", topic)
	fmt.Fprintf(&sb, "Current plan:\n%s\n\nReviewer issues:\n", planJSON)
	for _, issue := range critique.Issues {
		fmt.Fprintf(&sb, "- %s\n", issue)
	}
	if critique.Suggestion != "" {
		fmt.Fprintf(&sb, "\nReviewer suggestion: %s\n", critique.Suggestion)
	}
	sb.WriteString("\nProduce a revised plan as a JSON object with the same structure. Address every issue.")
	return sb.String()
}

const criticSystemPrompt = `You are a research plan reviewer. You judge whether
a plan's tasks are specific, non-overlapping, correctly ordered, and
collectively sufficient to cover the topic. You always answer with a single
JSON object and nothing else.`

func buildCriticUserPrompt(plan *Plan, planJSON string) string {
	return fmt.Sprintf(`Review this research plan for the topic %q:

%s

Score the plan from 0.0 (unusable) to 1.0 (excellent) and list concrete issues.
Output a JSON object:
{"score": 0.0, "issues": ["..."], "suggestion": "..."}`, plan.Topic, planJSON)
}

const querySystemPrompt = `You write web search queries. Given a research task
you produce short, specific queries that will surface current, authoritative
sources. You always answer with a single JSON array of strings and nothing
else.`

func buildQueryUserPrompt(topic string, task Task, maxQueries int) string {
	return fmt.Sprintf(`Research topic: %q
Task: %s
Details: %s

Write up to %d web search queries for this task. Output a JSON array of strings.`,
		topic, task.Title, task.Description, maxQueries)
}

const taskSummarySystemPrompt = `You are a research assistant. Given web search
results you produce a concise summary of at most 300 words that captures the
facts, numbers, and viewpoints useful to the research task. Plain text only.`

func buildTaskSummaryUserPrompt(topic string, task Task, results []search.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research topic: %q\nTask: %s - %s\n\nSearch results:\n\n", topic, task.Title, task.Description)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n", i+1, r.Title, r.URL)
		if r.Snippet != "" {
			snippet := r.Snippet
			if len(snippet) > 500 {
				snippet = snippet[:500] + "..."
			}
			fmt.Fprintf(&sb, "   %s\n", snippet)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Summarize what these results tell us about the task.")
	return sb.String()
}

const synthesizerSystemPrompt = `You are a research synthesizer. You combine
research findings into a structured report with citations. You always answer
with a single JSON object and nothing else.`

func buildSynthesizerUserPrompt(topic string, findingsJSON string) string {
	return fmt.Sprintf(`Synthesize the following research findings into a comprehensive report on %q:

%s

Create a structured report with:
1. An executive summary (2-3 paragraphs).
2. Key findings, each with supporting evidence, source URLs, and a confidence from 0.0 to 1.0.
3. The research methodology.
4. Limitations.
5. Recommendations for further research.

Output a JSON object:
{
  "topic": "...",
  "executive_summary": "...",
  "findings": [
    {"key_point": "...", "evidence": ["..."], "sources": ["https://..."], "confidence": 0.0}
  ],
  "methodology": "...",
  "limitations": ["..."],
  "recommendations": ["..."]
}`, topic, findingsJSON)
}
