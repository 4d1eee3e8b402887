package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/springsim/internal/dynamo"
)

// Store keeps one directory per run holding metadata.json and states.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID                string             `json:"id"`
	Preset            string             `json:"preset"`
	Timestamp         time.Time          `json:"timestamp"`
	Integrator        string             `json:"integrator"`
	Dt                float64            `json:"dt"`
	Duration          float64            `json:"duration"`
	Tension           float64            `json:"tension"`
	Friction          float64            `json:"friction"`
	OvershootClamping bool               `json:"overshoot_clamping,omitempty"`
	From              []float64          `json:"from"`
	To                []float64          `json:"to"`
	Velocity          []float64          `json:"velocity,omitempty"`
	Steps             int                `json:"steps"`
	Settled           bool               `json:"settled"`
	Metrics           map[string]float64 `json:"metrics"`
}

// Axes is the number of animated components in the run.
func (m RunMetadata) Axes() int { return len(m.To) }

// Save writes a run and returns its ID. ID, Timestamp, Steps, Settled and
// Metrics are filled in from the result.
func (s *Store) Save(meta RunMetadata, result *dynamo.Result) (string, error) {
	now := time.Now()
	if meta.Preset == "" {
		meta.Preset = "custom"
	}
	meta.ID = fmt.Sprintf("%s_%d", meta.Preset, now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.Settled = result.Settled
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeStates(csvFile, meta.Axes(), result); err != nil {
		return "", fmt.Errorf("write states: %w", err)
	}
	return meta.ID, nil
}

func writeStates(f *os.File, axes int, result *dynamo.Result) error {
	w := csv.NewWriter(f)

	header := []string{"time"}
	for i := 0; i < axes; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < axes; i++ {
		header = append(header, fmt.Sprintf("v%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, state := range result.States {
		row := make([]string, 0, len(state)+1)
		row = append(row, strconv.FormatFloat(result.Times[i], 'g', -1, 64))
		for _, val := range state {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadResult reads a run's recorded states back into a Result.
func (s *Store) LoadResult(runID string) (*dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	result := &dynamo.Result{
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
		Settled:    meta.Settled,
	}
	if len(records) < 2 {
		return result, nil
	}

	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s: line %d: %w", runID, i+2, err)
			}
			row[j] = v
		}
		result.Times = append(result.Times, row[0])
		result.States = append(result.States, dynamo.State(row[1:]))
	}
	return result, nil
}

func (s *Store) Delete(runID string) error {
	if runID == "" || filepath.Base(runID) != runID {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
