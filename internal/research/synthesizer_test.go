package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scry/internal/search"
)

func sampleFindings() []TaskFinding {
	return []TaskFinding{
		{
			TaskID:   "task_1",
			Question: "what is X",
			Summary:  "X is a thing with properties.",
			Results: []search.Result{
				{Title: "About X", URL: "https://x.example/about", Snippet: "X overview"},
			},
		},
		{
			TaskID:   "task_2",
			Question: "recent X developments",
			Summary:  "X got faster in 2026.",
			Results: []search.Result{
				{Title: "X news", URL: "https://news.example/x", Snippet: "X speedup"},
				{Title: "X paper", URL: "https://arxiv.example/x", Snippet: "benchmarks"},
			},
		},
	}
}

func TestSynthesize(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		assert.Contains(t, user, "task_1")
		return `{
			"topic": "X",
			"executive_summary": "X matters.",
			"findings": [
				{"key_point": "X is fast", "evidence": ["benchmarks"], "sources": ["https://news.example/x"], "confidence": 0.9}
			],
			"methodology": "searched the web",
			"limitations": ["few sources"],
			"recommendations": ["look deeper"]
		}`, nil
	}}

	s := NewSynthesizer(client)
	report, err := s.Synthesize(context.Background(), "X", sampleFindings())
	require.NoError(t, err)

	assert.Equal(t, "X", report.Topic)
	assert.Equal(t, "X matters.", report.ExecutiveSummary)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, 0.9, report.Findings[0].Confidence)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestSynthesizeFallbackOnBadJSON(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return "the report is: X is great", nil
	}}

	s := NewSynthesizer(client)
	report, err := s.Synthesize(context.Background(), "X", sampleFindings())
	require.NoError(t, err)

	require.Len(t, report.Findings, 2)
	assert.Equal(t, "what is X", report.Findings[0].KeyPoint)
	assert.Equal(t, []string{"https://x.example/about"}, report.Findings[0].Sources)
	assert.NotEmpty(t, report.Limitations)
	assert.NotEmpty(t, report.Methodology)
}

func TestSynthesizeNoFindings(t *testing.T) {
	s := NewSynthesizer(&fakeClient{fn: func(string, string) (string, error) { return "", nil }})
	_, err := s.Synthesize(context.Background(), "X", nil)
	assert.Error(t, err)
}

func TestSynthesizeClampsConfidence(t *testing.T) {
	client := &fakeClient{fn: func(system, user string) (string, error) {
		return `{"topic":"X","executive_summary":"s","findings":[{"key_point":"p","confidence":3.0}],"methodology":"m"}`, nil
	}}

	s := NewSynthesizer(client)
	report, err := s.Synthesize(context.Background(), "X", sampleFindings())
	require.NoError(t, err)
	assert.Equal(t, 1.0, report.Findings[0].Confidence)
}

func TestMechanicalFindingsConfidence(t *testing.T) {
	findings := mechanicalFindings(sampleFindings())
	require.Len(t, findings, 2)
	// One source: 0.3 + 0.1. Two sources: 0.3 + 0.2.
	assert.InDelta(t, 0.4, findings[0].Confidence, 0.001)
	assert.InDelta(t, 0.5, findings[1].Confidence, 0.001)

	// No sources at all gets zero confidence.
	empty := mechanicalFindings([]TaskFinding{{TaskID: "task_9", Summary: "nothing found"}})
	assert.Zero(t, empty[0].Confidence)
}

func TestReportAllSources(t *testing.T) {
	r := Report{Findings: []Finding{
		{Sources: []string{"https://b.example", "https://a.example"}},
		{Sources: []string{"https://a.example", ""}},
	}}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, r.AllSources())
}
