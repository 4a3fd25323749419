// Package research implements the deep research workflow: decompose a topic
// into a plan, critique the plan, execute web searches per task, and
// synthesize a cited report. Decomposition, ranking, and synthesis quality
// are delegated to the LLM; this package owns the typed structures and the
// sequencing around those remote calls.
package research

import (
	"fmt"
	"sort"
	"time"

	"scry/internal/search"
)

// Task statuses. A task is done once its finding is recorded; there is no
// intermediate state because progress is tracked per completed task, not
// per attempt.
const (
	StatusTodo = "todo"
	StatusDone = "done"
)

// Task is a single research subtask.
type Task struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     int      `json:"priority"` // 1-5, 5 highest
	Status       string   `json:"status,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Plan is a complete research plan with decomposed tasks.
type Plan struct {
	Topic     string    `json:"topic"`
	Objective string    `json:"objective"`
	Tasks     []Task    `json:"tasks"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks structural plan invariants: unique task IDs, known
// dependencies, no dependency cycles, priorities in range.
func (p *Plan) Validate() error {
	if len(p.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks")
	}

	ids := make(map[string]bool, len(p.Tasks))
	for _, t := range p.Tasks {
		if t.ID == "" {
			return fmt.Errorf("task %q has no id", t.Title)
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate task id: %s", t.ID)
		}
		ids[t.ID] = true
		if t.Priority < 1 || t.Priority > 5 {
			return fmt.Errorf("task %s: priority %d out of range", t.ID, t.Priority)
		}
	}

	for _, t := range p.Tasks {
		for _, dep := range t.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("task %s depends on unknown task %s", t.ID, dep)
			}
		}
	}

	if _, err := p.Waves(); err != nil {
		return err
	}
	return nil
}

// Waves orders tasks into dependency waves: every task in wave N depends
// only on tasks in earlier waves. Tasks inside a wave are sorted by
// descending priority and can run in parallel. Returns an error when the
// dependency graph has a cycle.
func (p *Plan) Waves() ([][]Task, error) {
	done := make(map[string]bool, len(p.Tasks))
	remaining := append([]Task(nil), p.Tasks...)

	var waves [][]Task
	for len(remaining) > 0 {
		var wave []Task
		var next []Task
		for _, t := range remaining {
			ready := true
			for _, dep := range t.Dependencies {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t)
			} else {
				next = append(next, t)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("dependency cycle among tasks")
		}
		sort.SliceStable(wave, func(i, j int) bool { return wave[i].Priority > wave[j].Priority })
		for _, t := range wave {
			done[t.ID] = true
		}
		waves = append(waves, wave)
		remaining = next
	}
	return waves, nil
}

// TaskFinding captures what one task's searches turned up.
type TaskFinding struct {
	TaskID   string          `json:"task_id"`
	Question string          `json:"question"`
	Summary  string          `json:"summary"`
	Results  []search.Result `json:"results"`
}

// Sources lists the distinct URLs backing a finding.
func (f TaskFinding) Sources() []string {
	seen := make(map[string]bool, len(f.Results))
	var urls []string
	for _, r := range f.Results {
		if r.URL != "" && !seen[r.URL] {
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// Finding is a synthesized research finding in the final report.
type Finding struct {
	KeyPoint   string   `json:"key_point"`
	Evidence   []string `json:"evidence"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"` // 0-1
}

// Report is the complete research report.
type Report struct {
	Topic            string    `json:"topic"`
	ExecutiveSummary string    `json:"executive_summary"`
	Findings         []Finding `json:"findings"`
	Methodology      string    `json:"methodology"`
	Limitations      []string  `json:"limitations"`
	Recommendations  []string  `json:"recommendations"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Critique is the critic's judgement of a plan.
type Critique struct {
	Score      float64  `json:"score"` // 0-1
	Issues     []string `json:"issues"`
	Suggestion string   `json:"suggestion,omitempty"`
}
