package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scene != SceneSoftBody {
		t.Errorf("expected scene softbody, got %s", cfg.Scene)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	fluidCfg := DefaultConfig()
	fluidCfg.Scene = SceneFluid
	if err := fluidCfg.Validate(); err != nil {
		t.Errorf("default fluid config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		bounds bool
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, true},
		{"unknown scene", func(c *Config) { c.Scene = "smoke" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "cuda" }, true},
		{"unknown integrator", func(c *Config) { c.Integrator = "midpoint" }, false},
		{"negative mass", func(c *Config) { c.SoftBody.TotalMass = -1 }, true},
		{"bad contact mode", func(c *Config) { c.SoftBody.ContactMode = "stick" }, false},
		{"bad shape", func(c *Config) { c.SoftBody.Shape = "torus" }, true},
		{"no fluid iterations", func(c *Config) { c.Scene = SceneFluid; c.Fluid.Iterations = 0 }, true},
		{"zero stream rate", func(c *Config) { c.Stream.Every = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.bounds && !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("error %v does not wrap ErrParameterBounds", err)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := DefaultConfig()
	cfg.Scene = SceneFluid
	cfg.Fluid.Particles = 1000
	cfg.SoftBody.ContactMode = "slide"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Scene != SceneFluid || got.Fluid.Particles != 1000 || got.SoftBody.ContactMode != "slide" {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("scene: fluid\nfluid:\n  particles: 64\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Fluid.Particles != 64 {
		t.Errorf("particles = %d, want 64", cfg.Fluid.Particles)
	}
	if cfg.Fluid.Iterations != 4 || cfg.Dt != DefaultDt {
		t.Errorf("defaults lost: iterations %d dt %v", cfg.Fluid.Iterations, cfg.Dt)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dt: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSoftBodyParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SoftBody.ContactMode = "slide"
	cfg.SoftBody.SpringK = 12
	p, err := cfg.SoftBodyParams()
	if err != nil {
		t.Fatal(err)
	}
	if p.ContactMode != collision.ContactSlide || p.SpringK != 12 {
		t.Errorf("params = %+v", p)
	}
}

func TestFluidParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Fluid.GridResolution = [3]int{4, 5, 6}
	p := cfg.FluidParams()
	if p.Seed != 7 || p.Grid != [3]int{4, 5, 6} || p.Cells() != 120 {
		t.Errorf("params = %+v", p)
	}
	if p.Gravity[1] != -9.8 {
		t.Errorf("gravity = %v", p.Gravity)
	}
}

func TestPresets(t *testing.T) {
	for _, scene := range Scenes() {
		names := ListPresets(scene)
		if len(names) == 0 {
			t.Fatalf("no presets for %s", scene)
		}
		for _, name := range names {
			cfg := GetPreset(scene, name)
			if cfg.Scene != scene {
				t.Errorf("%s/%s has scene %s", scene, name, cfg.Scene)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s invalid: %v", scene, name, err)
			}
		}
	}
}

func TestGetPresetReturnsCopy(t *testing.T) {
	cfg := GetPreset(SceneSoftBody, "drop")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	cfg.Dt = 1
	if GetPreset(SceneSoftBody, "drop").Dt == 1 {
		t.Error("editing a preset copy changed the preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset(SceneSoftBody, "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "drop") != nil {
		t.Error("expected nil for nonexistent scene")
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent scene")
	}
}

func TestSet(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		value float64
		check func() bool
	}{
		{"dt", 0.01, func() bool { return cfg.Dt == 0.01 }},
		{"seed", 9, func() bool { return cfg.Seed == 9 }},
		{"softbody.spring_k", 12, func() bool { return cfg.SoftBody.SpringK == 12 }},
		{"softbody.count", 3, func() bool { return cfg.SoftBody.Count == 3 }},
		{"fluid.iterations", 6, func() bool { return cfg.Fluid.Iterations == 6 }},
		{"fluid.viscosity", 0.2, func() bool { return cfg.Fluid.Viscosity == 0.2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cfg.Set(tt.name, tt.value); err != nil {
				t.Fatal(err)
			}
			if !tt.check() {
				t.Errorf("%s not applied", tt.name)
			}
		})
	}

	if err := cfg.Set("softbody.colour", 1); err == nil {
		t.Error("expected unknown parameter error")
	}
	if names := SettableParams(); len(names) == 0 || names[0] != "dt" {
		t.Errorf("settable params = %v", names)
	}
}
