// Package automation runs scripted sequences of scenes from YAML files and
// parameter sweeps over a base configuration.
package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/config"
	"github.com/san-kum/softsim/internal/experiment"
	"github.com/san-kum/softsim/internal/optim"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/storage"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is a single run. Its configuration starts from the scene
// defaults, then Preset, then the Config file, then the explicit fields.
type ScenarioStep struct {
	Scene      string             `yaml:"scene"`
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Backend    string             `yaml:"backend"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Params     map[string]float64 `yaml:"params"`
	SaveAs     string             `yaml:"save_as"`
}

// StepResult pairs a finished step with the run id it was stored under.
type StepResult struct {
	Label  string
	RunID  string
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file. Step config paths are
// resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	scenario.dir = filepath.Dir(path)
	return &scenario, nil
}

// Resolve builds the configuration a step runs with.
func (sc *Scenario) Resolve(step ScenarioStep) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Scene = step.Scene
	if step.Preset != "" {
		p := config.GetPreset(step.Scene, step.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for scene %s", step.Preset, step.Scene)
		}
		cfg = p
	}
	if step.Config != "" {
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(sc.dir, path)
		}
		if err := config.Merge(path, cfg); err != nil {
			return nil, err
		}
		cfg.Scene = step.Scene
	}
	if step.Integrator != "" {
		cfg.Integrator = step.Integrator
	}
	if step.Backend != "" {
		cfg.Backend = step.Backend
	}
	if step.Dt > 0 {
		cfg.Dt = step.Dt
	}
	if step.Duration > 0 {
		cfg.Duration = step.Duration
	}
	for k, v := range step.Params {
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order. Each finished step is saved to
// st when st is non-nil. It stops at the first failing step and returns the
// steps completed before it.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, st *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		label := step.SaveAs
		if label == "" {
			label = step.Scene
			if step.Preset != "" {
				label += "/" + step.Preset
			}
		}
		slogger().Info("automation: running step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "label", label)

		cfg, err := scenario.Resolve(step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		res, err := runOnce(ctx, registry, cfg)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		out := StepResult{Label: label, Result: res}
		if st != nil {
			out.RunID, err = st.Save(Metadata(label, cfg), res)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, out)
	}

	return results, nil
}

// Metadata describes a run of cfg for storage under label.
func Metadata(label string, cfg *config.Config) storage.RunMetadata {
	meta := storage.RunMetadata{
		Scene:    label,
		Seed:     cfg.Seed,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
	}
	switch cfg.Scene {
	case config.SceneSoftBody:
		meta.Integrator = cfg.Integrator
	case config.SceneFluid:
		meta.Backend = cfg.Backend
	}
	return meta
}

func runOnce(ctx context.Context, registry *experiment.Registry, cfg *config.Config) (*sim.Result, error) {
	scene, err := registry.Build(cfg)
	if err != nil {
		return nil, err
	}
	defer scene.Close()
	return scene.Run(ctx, cfg.Run())
}

// ParameterSweep runs base once per point of the grid and ranks the points
// by Metric, lowest first.
type ParameterSweep struct {
	Base    *config.Config
	Names   []string
	Ranges  [][]float64
	Metric  string
	Workers int
}

// RunSweep evaluates every grid point. A point whose configuration is
// invalid or whose run fails is reported with its error rather than
// aborting the sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) (optim.Point, []optim.Point, error) {
	for _, name := range sweep.Names {
		probe := *sweep.Base
		if err := probe.Set(name, 0); err != nil {
			return optim.Point{}, nil, err
		}
	}

	g := optim.NewGridSearch(sweep.Names, sweep.Ranges)
	if sweep.Workers > 0 {
		g.WithWorkers(sweep.Workers)
	}
	return g.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := *sweep.Base
		for k, v := range params {
			if err := cfg.Set(k, v); err != nil {
				return 0, err
			}
		}
		res, err := runOnce(ctx, registry, &cfg)
		if err != nil {
			return 0, err
		}
		v, ok := res.Metrics[sweep.Metric]
		if !ok {
			return 0, fmt.Errorf("run did not report metric %s", sweep.Metric)
		}
		slogger().Debug("automation: sweep point", "params", params, sweep.Metric, v)
		return v, nil
	})
}
