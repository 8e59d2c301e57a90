package sched

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVLogging(t *testing.T) {
	app, _ := buildApp(t, 4, []TaskDecl{
		{Name: "a", Priority: 2, Kind: Software, Capacity: 1},
	}, nil)

	path := filepath.Join(t.TempDir(), "trace.csv")
	if err := app.EnableCSVLogging(path); err != nil {
		t.Fatalf("EnableCSVLogging: %v", err)
	}
	startApp(t, app)
	if err := app.Spawn("a", nil); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading trace: %v", err)
	}
	// header + Booted + Spawned + Dispatched + Completed
	if len(recs) != 5 {
		t.Fatalf("trace rows = %d, want 5", len(recs))
	}
	if recs[0][2] != "event" {
		t.Errorf("header = %v", recs[0])
	}
	wantKinds := []string{"Booted", "Spawned", "Dispatched", "Completed"}
	for i, w := range wantKinds {
		if recs[i+1][2] != w {
			t.Errorf("row %d event = %q, want %q", i+1, recs[i+1][2], w)
		}
	}
}
