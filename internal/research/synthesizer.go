package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"scry/internal/llm"
	"scry/internal/logging"
	"scry/internal/usage"
)

// Synthesizer turns per-task findings into a final report via the LLM.
type Synthesizer struct {
	client llm.Client
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Synthesize builds the report. When the model's answer can't be parsed the
// report is assembled mechanically from the task summaries so a run never
// ends without a report.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, findings []TaskFinding) (*Report, error) {
	ctx = usage.WithRole(ctx, usage.RoleSynthesizer)

	if len(findings) == 0 {
		return nil, fmt.Errorf("synthesizer: no findings to synthesize")
	}

	findingsJSON, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("synthesizer: marshal findings: %w", err)
	}

	report, err := llm.CompleteJSON[Report](ctx, s.client, synthesizerSystemPrompt,
		buildSynthesizerUserPrompt(topic, string(findingsJSON)))
	if err != nil {
		if errors.Is(err, llm.ErrBadJSON) {
			logging.Synthesis("report response unparseable, using fallback report: %v", err)
			return fallbackReport(topic, findings), nil
		}
		return nil, fmt.Errorf("synthesizer: %w", err)
	}

	normalizeReport(&report, topic, findings)
	logging.Synthesis("report synthesized: %d findings, %d sources", len(report.Findings), countSources(&report))
	return &report, nil
}

func normalizeReport(r *Report, topic string, findings []TaskFinding) {
	if strings.TrimSpace(r.Topic) == "" {
		r.Topic = topic
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
	if strings.TrimSpace(r.ExecutiveSummary) == "" {
		r.ExecutiveSummary = fmt.Sprintf("Research conducted on %s across %d subtasks.", topic, len(findings))
	}
	if strings.TrimSpace(r.Methodology) == "" {
		r.Methodology = methodologyText(findings)
	}
	for i := range r.Findings {
		f := &r.Findings[i]
		if f.Confidence < 0 {
			f.Confidence = 0
		}
		if f.Confidence > 1 {
			f.Confidence = 1
		}
	}
	if len(r.Findings) == 0 {
		r.Findings = mechanicalFindings(findings)
	}
}

// fallbackReport is assembled directly from the task summaries, one finding
// per task, confidence scaled by how many sources back it.
func fallbackReport(topic string, findings []TaskFinding) *Report {
	return &Report{
		Topic:            topic,
		ExecutiveSummary: fmt.Sprintf("Research conducted on %s across %d subtasks. Automated synthesis was unavailable; per-task summaries follow.", topic, len(findings)),
		Findings:         mechanicalFindings(findings),
		Methodology:      methodologyText(findings),
		Limitations: []string{
			"Automated synthesis failed; findings are per-task summaries rather than cross-task analysis.",
		},
		Recommendations: []string{
			"Re-run synthesis once the language model is available.",
		},
		GeneratedAt: time.Now().UTC(),
	}
}

func mechanicalFindings(findings []TaskFinding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, tf := range findings {
		sources := tf.Sources()
		var confidence float64
		if len(sources) > 0 {
			confidence = 0.3 + 0.1*float64(len(sources))
			if confidence > 0.8 {
				confidence = 0.8
			}
		}
		out = append(out, Finding{
			KeyPoint:   tf.Question,
			Evidence:   []string{tf.Summary},
			Sources:    sources,
			Confidence: confidence,
		})
	}
	return out
}

func methodologyText(findings []TaskFinding) string {
	queries := 0
	results := 0
	for _, f := range findings {
		queries++
		results += len(f.Results)
	}
	return fmt.Sprintf("Decomposed the topic into %d research tasks, executed web searches per task (%d results total from %d task queries), and synthesized the summarized findings.",
		len(findings), results, queries)
}

func countSources(r *Report) int {
	seen := make(map[string]bool)
	for _, f := range r.Findings {
		for _, s := range f.Sources {
			seen[s] = true
		}
	}
	return len(seen)
}

// AllSources lists every distinct source URL cited by the report, sorted.
func (r *Report) AllSources() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, f := range r.Findings {
		for _, s := range f.Sources {
			if s != "" && !seen[s] {
				seen[s] = true
				urls = append(urls, s)
			}
		}
	}
	sort.Strings(urls)
	return urls
}
