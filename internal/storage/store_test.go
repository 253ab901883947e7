package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/softsim/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		Times: []float64{0.01, 0.02, 0.03},
		Series: map[string][]float64{
			"volume_ratio":   {1, 0.98, 0.97},
			"kinetic_energy": {0.5, 1.25, 2},
		},
		Metrics:    map[string]float64{"volume_ratio": 0.97, "kinetic_energy": 1.25},
		StepsTaken: 3,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save(RunMetadata{Scene: "softbody/drop", Seed: 42, Dt: 0.01, Duration: 0.03, Integrator: "rk4"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}
	if filepath.Base(runID) != runID {
		t.Errorf("run id %q contains a path separator", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scene != "softbody/drop" || meta.Seed != 42 || meta.Steps != 3 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Metrics["volume_ratio"] != 0.97 {
		t.Errorf("volume_ratio = %v, want 0.97", meta.Metrics["volume_ratio"])
	}

	times, series, err := st.LoadSeries(runID)
	if err != nil {
		t.Fatalf("load series failed: %v", err)
	}
	if len(times) != 3 || times[2] != 0.03 {
		t.Errorf("times = %v", times)
	}
	if got := series["kinetic_energy"]; len(got) != 3 || got[1] != 1.25 {
		t.Errorf("kinetic_energy = %v", got)
	}
	if got := series["volume_ratio"]; len(got) != 3 || got[2] != 0.97 {
		t.Errorf("volume_ratio = %v", got)
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("List on empty store = %v, %v", runs, err)
	}

	for _, scene := range []string{"fluid", "softbody"} {
		if _, err := st.Save(RunMetadata{Scene: scene}, sampleResult()); err != nil {
			t.Fatal(err)
		}
	}
	// stray files and broken runs are skipped
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "broken"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Scene != "fluid" || runs[1].Scene != "softbody" {
		t.Errorf("runs not in save order: %s, %s", runs[0].Scene, runs[1].Scene)
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := st.LoadSeries("nope"); err == nil {
		t.Error("expected error for missing series")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{Scene: "fluid", Backend: "cpu"}, sampleResult()); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Scene != "fluid" || got.Backend != "cpu" || got.Steps != 3 {
		t.Errorf("exported metadata = %+v", got.RunMetadata)
	}
	if len(got.Series["volume_ratio"]) != 3 {
		t.Errorf("exported series = %v", got.Series)
	}
}
