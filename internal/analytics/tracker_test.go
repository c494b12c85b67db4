package analytics

import (
	"path/filepath"
	"testing"

	"github.com/rzbill/surgecast/internal/market"
	pebblestore "github.com/rzbill/surgecast/internal/storage/pebble"
)

func openDBForTest(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTrackerLatestAbsentUntilFirstCycle(t *testing.T) {
	tr := NewTracker(Options{})
	if _, ok := tr.Latest(); ok {
		t.Fatalf("expected no snapshot before first cycle")
	}
	tr.RecordCycle(market.Batch{Highs: []market.Event{{Symbol: "A"}}}, 3)
	snap, ok := tr.Latest()
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if snap.Cycles != 1 || snap.EventsSeen != 1 || snap.Connected != 3 {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap.PerCategory["highs"] != 1 {
		t.Fatalf("per-category: %+v", snap.PerCategory)
	}
}

func TestTrackerSnapshotIsACopy(t *testing.T) {
	tr := NewTracker(Options{})
	tr.RecordCycle(market.Batch{Lows: []market.Event{{Symbol: "A"}}}, 1)
	snap, _ := tr.Latest()
	snap.PerCategory["lows"] = 99
	again, _ := tr.Latest()
	if again.PerCategory["lows"] != 1 {
		t.Fatalf("caller mutated tracker state")
	}
}

func TestTrackerSyncAndResume(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db := openDBForTest(t, dir)
	tr := NewTracker(Options{DB: db})
	tr.RecordCycle(market.Batch{Highs: []market.Event{{Symbol: "A"}, {Symbol: "B"}}}, 2)
	tr.Sync()

	resumed := NewTracker(Options{DB: db})
	snap, ok := resumed.Latest()
	if !ok {
		t.Fatalf("expected resumed snapshot")
	}
	if snap.EventsSeen != 2 || snap.Cycles != 1 {
		t.Fatalf("resumed: %+v", snap)
	}
	// connection count does not carry across sessions
	if snap.Connected != 0 {
		t.Fatalf("connected must reset on resume: %+v", snap)
	}
}

func TestTrackerSyncWithoutDBIsNoop(t *testing.T) {
	tr := NewTracker(Options{})
	tr.RecordCycle(market.Batch{}, 0)
	tr.Sync()
}
