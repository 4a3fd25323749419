package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"scry/internal/llm"
	"scry/internal/logging"
	"scry/internal/usage"
)

// Critic scores research plans. A second LLM role reviews the planner's
// output; the workflow loops on revisions until the score clears the
// threshold or the round cap is reached.
type Critic struct {
	client llm.Client
}

// NewCritic constructs a critic.
func NewCritic(client llm.Client) *Critic {
	return &Critic{client: client}
}

// Review scores the plan from 0 to 1. An unparseable critique approves the
// plan with a neutral score rather than blocking the workflow.
func (c *Critic) Review(ctx context.Context, plan *Plan) (Critique, error) {
	ctx = usage.WithRole(ctx, usage.RoleCritic)

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return Critique{}, fmt.Errorf("critic: marshal plan: %w", err)
	}

	critique, err := llm.CompleteJSON[Critique](ctx, c.client, criticSystemPrompt, buildCriticUserPrompt(plan, string(planJSON)))
	if err != nil {
		if errors.Is(err, llm.ErrBadJSON) {
			logging.Critic("critique unparseable, approving plan by default: %v", err)
			return Critique{Score: 1}, nil
		}
		return Critique{}, fmt.Errorf("critic: %w", err)
	}

	if critique.Score < 0 {
		critique.Score = 0
	}
	if critique.Score > 1 {
		critique.Score = 1
	}
	return critique, nil
}

// RefineResult records one critique round.
type RefineResult struct {
	Round    int
	Score    float64
	Approved bool
}

// RefinePlan runs the bounded critique loop: review, and while the score is
// below threshold, revise and review again, at most maxRounds revisions.
// The best-scoring plan seen is returned. onRound, when non-nil, observes
// each round.
func RefinePlan(ctx context.Context, planner *Planner, critic *Critic, plan *Plan, threshold float64, maxRounds int, onRound func(RefineResult)) (*Plan, error) {
	current := plan
	best := plan
	bestScore := -1.0

	for round := 0; ; round++ {
		critique, err := critic.Review(ctx, current)
		if err != nil {
			return nil, err
		}
		if critique.Score > bestScore {
			bestScore = critique.Score
			best = current
		}

		approved := critique.Score >= threshold
		logging.Critic("critique round %d: score=%.2f approved=%v issues=%d", round, critique.Score, approved, len(critique.Issues))
		if onRound != nil {
			onRound(RefineResult{Round: round, Score: critique.Score, Approved: approved})
		}

		if approved {
			return current, nil
		}
		if round >= maxRounds {
			return best, nil
		}

		current, err = planner.Revise(ctx, current, critique)
		if err != nil {
			return nil, err
		}
	}
}
