// Package usage tracks LLM token consumption across a research session.
// The tracker rides on the context so providers can record usage without
// plumbing an extra dependency through every call site.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type contextKey struct{}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
	Calls  int64 `json:"calls"`
}

// Add accumulates one call's token counts.
func (tc *TokenCounts) Add(input, output int) {
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
	tc.Calls++
}

// Snapshot is an immutable view of accumulated usage.
type Snapshot struct {
	Total  TokenCounts            `json:"total"`
	ByRole map[string]TokenCounts `json:"by_role"` // planner, critic, searcher, synthesizer
	Since  time.Time              `json:"since"`
}

// Rough per-million-token prices used for the cost estimate. Actual prices
// vary by model and provider; this is an order-of-magnitude figure for the
// end-of-run summary, not billing.
const (
	inputCostPerMillion  = 0.30
	outputCostPerMillion = 2.50
)

// EstimatedCost returns an approximate dollar cost for the snapshot.
func (s Snapshot) EstimatedCost() float64 {
	return float64(s.Total.Input)/1e6*inputCostPerMillion +
		float64(s.Total.Output)/1e6*outputCostPerMillion
}

// Tracker accumulates token usage, optionally persisting to disk.
type Tracker struct {
	mu       sync.Mutex
	total    TokenCounts
	byRole   map[string]TokenCounts
	since    time.Time
	filePath string
}

// NewTracker creates an in-memory tracker.
func NewTracker() *Tracker {
	return &Tracker{
		byRole: make(map[string]TokenCounts),
		since:  time.Now(),
	}
}

// NewPersistentTracker creates a tracker that saves to
// <workspace>/.scry/usage.json on Flush.
func NewPersistentTracker(workspace string) (*Tracker, error) {
	dir := filepath.Join(workspace, ".scry")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create .scry dir: %w", err)
	}
	t := NewTracker()
	t.filePath = filepath.Join(dir, "usage.json")
	return t, nil
}

// Track records one LLM call for the given role.
func (t *Tracker) Track(role string, inputTokens, outputTokens int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total.Add(inputTokens, outputTokens)
	counts := t.byRole[role]
	counts.Add(inputTokens, outputTokens)
	t.byRole[role] = counts
}

// Snapshot returns a copy of the accumulated counts.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	byRole := make(map[string]TokenCounts, len(t.byRole))
	for k, v := range t.byRole {
		byRole[k] = v
	}
	return Snapshot{Total: t.total, ByRole: byRole, Since: t.since}
}

// Flush writes the snapshot to disk when the tracker is persistent.
func (t *Tracker) Flush() error {
	if t.filePath == "" {
		return nil
	}
	snap := t.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage: %w", err)
	}
	if err := os.WriteFile(t.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write usage: %w", err)
	}
	return nil
}

// WithTracker attaches a tracker to the context.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the tracker on the context, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}

// Role names used across the workflow.
const (
	RolePlanner     = "planner"
	RoleCritic      = "critic"
	RoleSearcher    = "searcher"
	RoleSynthesizer = "synthesizer"
)

type roleKey struct{}

// WithRole tags the context with the LLM role issuing subsequent calls.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the tagged role, defaulting to "other".
func RoleFromContext(ctx context.Context) string {
	if role, ok := ctx.Value(roleKey{}).(string); ok && role != "" {
		return role
	}
	return "other"
}

// Record is the provider-side helper: it tracks usage when a tracker is
// present and is a no-op otherwise.
func Record(ctx context.Context, inputTokens, outputTokens int) {
	if t := FromContext(ctx); t != nil {
		t.Track(RoleFromContext(ctx), inputTokens, outputTokens)
	}
}
