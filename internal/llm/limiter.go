package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// limiter bounds concurrent in-flight LLM calls across all roles sharing a
// provider. A nil limiter imposes no bound.
type limiter struct {
	sem *semaphore.Weighted
}

func newLimiter(maxInflight int) *limiter {
	if maxInflight <= 0 {
		return nil
	}
	return &limiter{sem: semaphore.NewWeighted(int64(maxInflight))}
}

func (l *limiter) acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.sem.Acquire(ctx, 1)
}

func (l *limiter) release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}
