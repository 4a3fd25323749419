package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scry/internal/session"
)

func TestResolveSessionID(t *testing.T) {
	store, err := session.Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	// Unknown names map through the deterministic ID.
	id, err := resolveSessionID(store, "my-run")
	require.NoError(t, err)
	assert.Equal(t, session.DeterministicID("my-run"), id)

	// Raw IDs with history are used as-is.
	raw := session.NewID()
	require.NoError(t, store.Append(raw, session.EventSessionStarted, session.StartedPayload{Topic: "t"}))
	id, err = resolveSessionID(store, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id)
}

func TestLatestReport(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, latestReport(dir))

	for _, name := range []string{
		"research_report_20260101_100000.md",
		"research_report_20260301_120000.md",
		"plan.json",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	assert.Equal(t, filepath.Join(dir, "research_report_20260301_120000.md"), latestReport(dir))
}
