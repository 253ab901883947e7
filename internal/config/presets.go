package config

import "sort"

// Presets holds ready-made scenes keyed by scene and then preset name.
var Presets = map[string]map[string]*Config{
	SceneSoftBody: {
		"drop": preset(func(c *Config) {
			c.SoftBody.Shape = "cube"
			c.SoftBody.Radius = 0.5
			c.SoftBody.Height = 1.5
			c.Duration = 3
		}),
		"ball": preset(func(c *Config) {
			c.SoftBody.Shape = "icosphere"
			c.SoftBody.Subdivisions = 2
			c.SoftBody.Height = 2
			c.SoftBody.ContactMode = "slide"
			c.Duration = 4
		}),
		"stack": preset(func(c *Config) {
			c.SoftBody.Shape = "cube"
			c.SoftBody.Radius = 0.4
			c.SoftBody.Count = 3
			c.SoftBody.Height = 0.6
			c.SoftBody.Spacing = 1.2
			c.Duration = 4
		}),
		"soft": preset(func(c *Config) {
			c.SoftBody.Shape = "icosphere"
			c.SoftBody.Subdivisions = 3
			c.SoftBody.SpringK = 10
			c.SoftBody.PressureScale = 10
			c.Duration = 5
		}),
	},
	SceneFluid: {
		"dam": preset(func(c *Config) {
			c.Scene = SceneFluid
			c.Dt = 1.0 / 60
			c.Duration = 5
			c.Fluid.SpawnFraction = [3]float64{0.4, 0.8, 1}
		}),
		"small": preset(func(c *Config) {
			c.Scene = SceneFluid
			c.Dt = 1.0 / 60
			c.Duration = 2
			c.Fluid.Particles = 512
			c.Fluid.GridResolution = [3]int{8, 8, 8}
			c.Fluid.Iterations = 2
		}),
		"calm": preset(func(c *Config) {
			c.Scene = SceneFluid
			c.Dt = 1.0 / 60
			c.Duration = 5
			c.Fluid.Tensile = false
			c.Fluid.Vorticity = 0
			c.Fluid.Viscosity = 0.05
		}),
	},
}

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scene, name string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Scenes() []string {
	return []string{SceneFluid, SceneSoftBody}
}
