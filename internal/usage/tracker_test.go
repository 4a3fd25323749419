package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestTrackAggregatesByRole(t *testing.T) {
	tr := NewTracker()
	tr.Track(RolePlanner, 100, 50)
	tr.Track(RolePlanner, 10, 5)
	tr.Track(RoleCritic, 20, 4)

	snap := tr.Snapshot()
	if snap.Total.Total != 189 {
		t.Errorf("total = %d, want 189", snap.Total.Total)
	}
	if snap.Total.Calls != 3 {
		t.Errorf("calls = %d, want 3", snap.Total.Calls)
	}
	if got := snap.ByRole[RolePlanner].Input; got != 110 {
		t.Errorf("planner input = %d, want 110", got)
	}
	if got := snap.ByRole[RoleCritic].Output; got != 4 {
		t.Errorf("critic output = %d, want 4", got)
	}
}

func TestEstimatedCost(t *testing.T) {
	tr := NewTracker()
	tr.Track(RolePlanner, 1_000_000, 1_000_000)

	got := tr.Snapshot().EstimatedCost()
	want := inputCostPerMillion + outputCostPerMillion
	if got != want {
		t.Errorf("cost = %f, want %f", got, want)
	}

	if c := NewTracker().Snapshot().EstimatedCost(); c != 0 {
		t.Errorf("empty tracker cost = %f, want 0", c)
	}
}

func TestRecordViaContext(t *testing.T) {
	tr := NewTracker()
	ctx := WithTracker(context.Background(), tr)
	ctx = WithRole(ctx, RoleSynthesizer)

	Record(ctx, 30, 7)
	// No tracker: must not panic.
	Record(context.Background(), 1, 1)

	snap := tr.Snapshot()
	if got := snap.ByRole[RoleSynthesizer].Total; got != 37 {
		t.Errorf("synthesizer total = %d, want 37", got)
	}
}

func TestTrackConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Track(RoleSearcher, 1, 1)
		}()
	}
	wg.Wait()

	if got := tr.Snapshot().Total.Calls; got != 50 {
		t.Errorf("calls = %d, want 50", got)
	}
}

func TestFlushPersists(t *testing.T) {
	ws := t.TempDir()
	tr, err := NewPersistentTracker(ws)
	if err != nil {
		t.Fatalf("NewPersistentTracker: %v", err)
	}
	tr.Track(RolePlanner, 5, 5)
	if err := tr.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, ".scry", "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Total.Total != 10 {
		t.Errorf("persisted total = %d, want 10", snap.Total.Total)
	}
}
