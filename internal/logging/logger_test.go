package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	ws := t.TempDir()
	if err := Setup(Config{Debug: true, Workspace: ws}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = Setup(Config{}) }()

	Searcher("query dispatched: %s", "golang concurrency")
	Sync()

	data, err := os.ReadFile(filepath.Join(ws, ".scry", "logs", "scry.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "query dispatched: golang concurrency") {
		t.Errorf("log file missing entry, got: %s", data)
	}
	if !strings.Contains(string(data), "searcher") {
		t.Errorf("log file missing category name, got: %s", data)
	}
}

func TestGetBeforeSetupIsNop(t *testing.T) {
	if err := Setup(Config{}); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	// Must not panic with no cores configured.
	Get(CategoryAPI).Infof("discarded")
	API("also discarded: %d", 42)
}
