package config

import "fmt"

// Research depths. Depth scales how many tasks the planner produces and how
// many queries each task may issue.
const (
	DepthQuick    = "quick"
	DepthModerate = "moderate"
	DepthDeep     = "deep"
)

// ResearchConfig configures the research workflow.
type ResearchConfig struct {
	// Depth is the default research depth: quick, moderate, or deep.
	Depth string `yaml:"depth"`

	// MaxParallel bounds concurrent task searches.
	MaxParallel int `yaml:"max_parallel"`

	// CritiqueThreshold is the minimum plan score (0-1) the critic must
	// assign before the plan is approved.
	CritiqueThreshold float64 `yaml:"critique_threshold"`

	// CritiqueMaxRounds caps plan revision iterations. The best-scoring plan
	// seen is kept when the cap is reached.
	CritiqueMaxRounds int `yaml:"critique_max_rounds"`

	// QueriesPerTask caps search queries generated per research task.
	QueriesPerTask int `yaml:"queries_per_task"`
}

// DefaultResearchConfig returns sensible defaults.
func DefaultResearchConfig() ResearchConfig {
	return ResearchConfig{
		Depth:             DepthModerate,
		MaxParallel:       3,
		CritiqueThreshold: 0.8,
		CritiqueMaxRounds: 3,
		QueriesPerTask:    2,
	}
}

// Validate checks depth and bounds.
func (c ResearchConfig) Validate() error {
	switch c.Depth {
	case DepthQuick, DepthModerate, DepthDeep:
	default:
		return fmt.Errorf("invalid depth: %q", c.Depth)
	}
	if c.MaxParallel < 1 {
		return fmt.Errorf("max_parallel must be at least 1, got %d", c.MaxParallel)
	}
	if c.CritiqueThreshold < 0 || c.CritiqueThreshold > 1 {
		return fmt.Errorf("critique_threshold must be in [0,1], got %g", c.CritiqueThreshold)
	}
	if c.CritiqueMaxRounds < 0 {
		return fmt.Errorf("critique_max_rounds must be non-negative, got %d", c.CritiqueMaxRounds)
	}
	return nil
}

// TaskRange returns the task count range the planner should target for the
// configured depth.
func (c ResearchConfig) TaskRange() (min, max int) {
	switch c.Depth {
	case DepthQuick:
		return 3, 4
	case DepthDeep:
		return 6, 8
	default:
		return 5, 6
	}
}
