package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/softsim/internal/analysis"
	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tSTEPS\tSOLVER")

	for _, run := range runs {
		solver := run.Integrator
		if solver == "" {
			solver = run.Backend
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			solver,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	_, series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(series))
	if len(args) == 2 {
		if _, ok := series[args[1]]; !ok {
			return fmt.Errorf("run %s has no metric %q", runID, args[1])
		}
		names = append(names, args[1])
	} else {
		for name := range series {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	printField("run", meta.ID)
	printField("scene", meta.Scene)
	printField("samples", meta.Steps)
	fmt.Println()

	for _, name := range names {
		data := series[name]
		if len(data) == 0 {
			continue
		}
		graph := asciigraph.Plot(downsample(data, 400),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// downsample keeps every k-th sample so long runs stay plottable.
func downsample(data []float64, limit int) []float64 {
	if len(data) <= limit {
		return data
	}
	k := (len(data) + limit - 1) / limit
	out := make([]float64, 0, limit)
	for i := 0; i < len(data); i += k {
		out = append(out, data[i])
	}
	return out
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	if len(times) < 2 {
		return fmt.Errorf("no data")
	}

	metric := "volume_ratio"
	if strings.HasPrefix(meta.Scene, config.SceneFluid) {
		metric = "mean_height"
	}
	data, ok := series[metric]
	if !ok {
		return fmt.Errorf("run %s has no %s series", runID, metric)
	}
	sampleDt := times[1] - times[0]

	fmt.Println(titleStyle.Render("analysis: " + meta.ID))
	printField("scene", meta.Scene)
	printField("series", metric)
	fmt.Println()

	freq, err := analysis.DominantFrequency(data, sampleDt)
	if err != nil {
		return err
	}

	ps := analysis.PowerSpectrum(data)
	if plotData := ps[1 : len(ps)/4+1]; len(plotData) > 1 {
		graph := asciigraph.Plot(downsample(plotData, 400),
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum ("+metric+")"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	printField("dominant", fmt.Sprintf("%.3f hz", freq))
	if freq > 0 {
		printField("period", fmt.Sprintf("%.3f s", 1.0/freq))
	}

	final := data[len(data)-1]
	settle, err := analysis.SettlingTime(times, data, 0.01*max(abs(final), 1e-9))
	if err != nil {
		return err
	}
	printField("settled at", fmt.Sprintf("%.3f s", settle))
	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	times, series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}
	result := &sim.Result{
		Times:      times,
		Series:     series,
		Metrics:    meta.Metrics,
		StepsTaken: meta.Steps,
		Elapsed:    meta.Elapsed,
	}
	return storage.ExportJSON(os.Stdout, *meta, result)
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.Scenes()
	if len(args) == 1 {
		scenes = []string{args[0]}
	}
	for _, scene := range scenes {
		presets := config.ListPresets(scene)
		if len(presets) == 0 {
			fmt.Printf("no presets for scene: %s\n", scene)
			continue
		}
		fmt.Println(titleStyle.Render("presets for " + scene + ":"))
		for _, name := range presets {
			p := config.GetPreset(scene, name)
			printField("  "+name, fmt.Sprintf("dt=%.4g duration=%.3gs", p.Dt, p.Duration))
		}
	}
	return nil
}
