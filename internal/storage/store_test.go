package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
)

func sampleResult() *dynamo.Result {
	return &dynamo.Result{
		States: []dynamo.State{
			{0, 0},
			{0.6666666666666666, 39.5},
			{1, 0},
		},
		Times:      []float64{0, 0.01, 0.02},
		Metrics:    map[string]float64{"overshoot": 0.25, "settle_time": 0.02},
		StepsTaken: 2,
		Settled:    true,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	meta := RunMetadata{Preset: "gentle", Integrator: "rk4", Dt: 0.01, Duration: 1, Tension: 120, Friction: 14, From: []float64{0}, To: []float64{1}}
	runID, err := st.Save(meta, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	loaded, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Preset != "gentle" || loaded.Tension != 120 {
		t.Errorf("unexpected metadata %+v", loaded)
	}
	if loaded.Steps != 2 || !loaded.Settled || loaded.Metrics["overshoot"] != 0.25 {
		t.Errorf("result fields not recorded: %+v", loaded)
	}

	result, err := st.LoadResult(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(result.States) != 3 || len(result.Times) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.States))
	}
	if result.States[1][0] != 0.6666666666666666 || result.Times[1] != 0.01 {
		t.Errorf("values not preserved exactly: %v at %v", result.States[1], result.Times[1])
	}

	header, err := os.ReadFile(filepath.Join(st.Dir(), runID, "states.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(header, []byte("time,x0,v0\n")) {
		t.Errorf("unexpected header in %q", header)
	}
}

func TestStoreDefaultPreset(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{To: []float64{1}}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Preset != "custom" {
		t.Errorf("expected preset custom, got %s", meta.Preset)
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(RunMetadata{Preset: "a", To: []float64{1}}, sampleResult())
	time.Sleep(time.Millisecond)
	second, _ := st.Save(RunMetadata{Preset: "b", To: []float64{1}}, sampleResult())

	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != first || runs[1].ID != second {
		t.Errorf("expected [%s %s], got %+v", first, second, runs)
	}

	if err := st.Delete(first); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load(first); err == nil {
		t.Error("expected deleted run to be gone")
	}
	if err := st.Delete("../escape"); err == nil {
		t.Error("expected error for a path outside the store")
	}
}

func TestLoadResultRejectsCorruptRows(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{To: []float64{1}}, sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(st.Dir(), runID, "states.csv")
	if err := os.WriteFile(path, []byte("time,x0,v0\n0,abc,0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadResult(runID); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := RunMetadata{ID: "x_1", Preset: "x", To: []float64{1}}
	if err := ExportJSON(&buf, meta, sampleResult()); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var out struct {
		ID     string      `json:"id"`
		Times  []float64   `json:"times"`
		States [][]float64 `json:"states"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if out.ID != "x_1" || len(out.States) != 3 || out.States[2][0] != 1 {
		t.Errorf("unexpected export %+v", out)
	}
}
