package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/softsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	seriesFile   = "metrics.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator,omitempty"`
	Backend    string             `json:"backend,omitempty"`
	Steps      int                `json:"steps"`
	Elapsed    time.Duration      `json:"elapsed_ns"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes meta and the metric series of result under a fresh run id.
// Scene, Seed, Dt, Duration, Integrator and Backend are taken from meta;
// the rest is filled in from result.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", strings.ReplaceAll(meta.Scene, "/", "-"), now.UnixNano())
	meta.Timestamp = now
	meta.Steps = result.StepsTaken
	meta.Elapsed = result.Elapsed
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeSeries(filepath.Join(runDir, seriesFile), result); err != nil {
		return "", err
	}
	slogger().Debug("run saved", "id", meta.ID, "steps", meta.Steps)
	return meta.ID, nil
}

func writeSeries(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	names := make([]string, 0, len(result.Series))
	for name := range result.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"time"}, names...)); err != nil {
		return err
	}
	for i, t := range result.Times {
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, name := range names {
			v := 0.0
			if series := result.Series[name]; i < len(series) {
				v = series[i]
			}
			row = append(row, strconv.FormatFloat(v, 'g', 10, 64))
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
			slogger().Debug("skipping unreadable run", "dir", entry.Name(), "err", err)
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadSeries reads back the per-step metric samples of a run.
func (s *Store) LoadSeries(runID string) ([]float64, map[string][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return []float64{}, map[string][]float64{}, nil
	}

	header := records[0]
	times := make([]float64, 0, len(records)-1)
	series := make(map[string][]float64, len(header)-1)
	for _, name := range header[1:] {
		series[name] = make([]float64, 0, len(records)-1)
	}

	for line, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
		}
		times = append(times, t)
		for j, name := range header[1:] {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s line %d: %w", runID, line+2, err)
			}
			series[name] = append(series[name], v)
		}
	}
	return times, series, nil
}
