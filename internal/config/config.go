package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/compute"
	"github.com/san-kum/softsim/internal/dynamo"
	"github.com/san-kum/softsim/internal/fluid"
	"github.com/san-kum/softsim/internal/integrators"
	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/softbody"
)

const (
	SceneSoftBody = "softbody"
	SceneFluid    = "fluid"

	DefaultDt       = 0.002
	DefaultDuration = 5.0
)

type Config struct {
	Scene      string         `yaml:"scene"`
	Integrator string         `yaml:"integrator"`
	Backend    string         `yaml:"backend"`
	Dt         float64        `yaml:"dt"`
	Duration   float64        `yaml:"duration"`
	Seed       int64          `yaml:"seed"`
	SoftBody   SoftBodyConfig `yaml:"softbody"`
	Fluid      FluidConfig    `yaml:"fluid"`
	Stream     StreamConfig   `yaml:"stream"`
}

type SoftBodyConfig struct {
	// Shape is cube or icosphere.
	Shape        string  `yaml:"shape"`
	Radius       float64 `yaml:"radius"`
	Subdivisions int     `yaml:"subdivisions"`
	// Count bodies are stacked Spacing apart starting at Height.
	Count         int     `yaml:"count"`
	Height        float64 `yaml:"height"`
	Spacing       float64 `yaml:"spacing"`
	FloorSize     float64 `yaml:"floor_size"`
	SpringK       float64 `yaml:"spring_k"`
	DampingK      float64 `yaml:"damping_k"`
	Gravity       float64 `yaml:"gravity"`
	TotalMass     float64 `yaml:"total_mass"`
	PressureScale float64 `yaml:"pressure_scale"`
	ContactMode   string  `yaml:"contact_mode"`
}

type FluidConfig struct {
	Particles      int        `yaml:"particles"`
	CellWidth      float64    `yaml:"cell_width"`
	GridResolution [3]int     `yaml:"grid_resolution"`
	RestDensity    float64    `yaml:"rest_density"`
	Relaxation     float64    `yaml:"relaxation"`
	Iterations     int        `yaml:"iterations"`
	Gravity        [3]float64 `yaml:"gravity"`
	Tensile        bool       `yaml:"tensile"`
	TensileK       float64    `yaml:"tensile_k"`
	TensileN       float64    `yaml:"tensile_n"`
	TensileDeltaQ  float64    `yaml:"tensile_delta_q"`
	Vorticity      float64    `yaml:"vorticity"`
	Viscosity      float64    `yaml:"viscosity"`
	SpawnFraction  [3]float64 `yaml:"spawn_fraction"`
}

type StreamConfig struct {
	Addr string `yaml:"addr"`
	// Every sends one frame per Every steps.
	Every int `yaml:"every"`
}

func DefaultConfig() *Config {
	sb := softbody.DefaultParams()
	fp := fluid.DefaultParams()
	return &Config{
		Scene:      SceneSoftBody,
		Integrator: "rk4",
		Backend:    "cpu",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Seed:       fp.Seed,
		SoftBody: SoftBodyConfig{
			Shape:         "cube",
			Radius:        0.5,
			Subdivisions:  2,
			Count:         1,
			Height:        1.5,
			Spacing:       1.5,
			FloorSize:     10,
			SpringK:       sb.SpringK,
			DampingK:      sb.DampingK,
			Gravity:       sb.Gravity,
			TotalMass:     sb.TotalMass,
			PressureScale: sb.PressureScale,
			ContactMode:   sb.ContactMode.String(),
		},
		Fluid: FluidConfig{
			Particles:      fp.Particles,
			CellWidth:      float64(fp.CellWidth),
			GridResolution: fp.Grid,
			RestDensity:    float64(fp.RestDensity),
			Relaxation:     float64(fp.Relaxation),
			Iterations:     fp.Iterations,
			Gravity:        vec3(fp.Gravity),
			Tensile:        fp.Tensile,
			TensileK:       float64(fp.TensileK),
			TensileN:       float64(fp.TensileN),
			TensileDeltaQ:  float64(fp.TensileDeltaQ),
			Vorticity:      float64(fp.Vorticity),
			Viscosity:      float64(fp.Viscosity),
			SpawnFraction:  vec3(fp.SpawnFraction),
		},
		Stream: StreamConfig{
			Addr:  "localhost:8080",
			Every: 1,
		},
	}
}

func vec3(v mgl32.Vec3) [3]float64 {
	return [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := Merge(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overlays the fields present in the YAML file at path onto cfg.
func Merge(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the fields shared by every scene and then the parameters
// of the selected scene.
func (c *Config) Validate() error {
	if err := c.Run().Validate(); err != nil {
		return err
	}
	if !slices.Contains(compute.Names(), c.Backend) {
		return fmt.Errorf("unknown backend %q (want one of %v): %w", c.Backend, compute.Names(), dynamo.ErrParameterBounds)
	}

	switch c.Scene {
	case SceneSoftBody:
		if _, err := integrators.New(c.Integrator); err != nil {
			return err
		}
		if _, err := c.SoftBodyParams(); err != nil {
			return err
		}
		sb := c.SoftBody
		if sb.Shape != "cube" && sb.Shape != "icosphere" {
			return fmt.Errorf("unknown shape %q (want cube or icosphere): %w", sb.Shape, dynamo.ErrParameterBounds)
		}
		if sb.Radius <= 0 || sb.Count < 1 || sb.FloorSize <= 0 {
			return fmt.Errorf("radius, count and floor size must be positive: %w", dynamo.ErrParameterBounds)
		}
		if sb.Subdivisions < 0 || sb.Subdivisions > 6 {
			return fmt.Errorf("subdivisions must be in [0,6], got %d: %w", sb.Subdivisions, dynamo.ErrParameterBounds)
		}
	case SceneFluid:
		if err := c.FluidParams().Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown scene %q (want %s or %s): %w", c.Scene, SceneSoftBody, SceneFluid, dynamo.ErrParameterBounds)
	}

	if c.Stream.Every < 1 {
		return fmt.Errorf("stream every must be at least 1, got %d: %w", c.Stream.Every, dynamo.ErrParameterBounds)
	}
	return nil
}

// Run is the run-loop part of the configuration.
func (c *Config) Run() sim.Config {
	return sim.Config{
		Dt:            c.Dt,
		Duration:      c.Duration,
		ValidateState: true,
	}
}

func (c *Config) SoftBodyParams() (softbody.Params, error) {
	mode, err := collision.ParseContactMode(c.SoftBody.ContactMode)
	if err != nil {
		return softbody.Params{}, err
	}
	p := softbody.Params{
		SpringK:       c.SoftBody.SpringK,
		DampingK:      c.SoftBody.DampingK,
		Gravity:       c.SoftBody.Gravity,
		TotalMass:     c.SoftBody.TotalMass,
		PressureScale: c.SoftBody.PressureScale,
		ContactMode:   mode,
	}
	return p, p.Validate()
}

func (c *Config) FluidParams() fluid.Params {
	f := c.Fluid
	return fluid.Params{
		Particles:     f.Particles,
		CellWidth:     float32(f.CellWidth),
		Grid:          f.GridResolution,
		RestDensity:   float32(f.RestDensity),
		Relaxation:    float32(f.Relaxation),
		Iterations:    f.Iterations,
		Gravity:       mgl32.Vec3{float32(f.Gravity[0]), float32(f.Gravity[1]), float32(f.Gravity[2])},
		Tensile:       f.Tensile,
		TensileK:      float32(f.TensileK),
		TensileN:      float32(f.TensileN),
		TensileDeltaQ: float32(f.TensileDeltaQ),
		Vorticity:     float32(f.Vorticity),
		Viscosity:     float32(f.Viscosity),
		SpawnFraction: mgl32.Vec3{float32(f.SpawnFraction[0]), float32(f.SpawnFraction[1]), float32(f.SpawnFraction[2])},
		Seed:          c.Seed,
	}
}
