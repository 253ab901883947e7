package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/softsim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Times  []float64            `json:"times"`
	Series map[string][]float64 `json:"series"`
}

// ExportJSON writes the run summary and every metric series as one JSON
// document, for piping a run into other tools.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	meta.Steps = result.StepsTaken
	meta.Elapsed = result.Elapsed
	meta.Metrics = result.Metrics
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		Series:      result.Series,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
