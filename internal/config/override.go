package config

import (
	"fmt"
	"sort"
)

// setters maps a dotted parameter name to the field it overrides.
var setters = map[string]func(c *Config, v float64){
	"dt":       func(c *Config, v float64) { c.Dt = v },
	"duration": func(c *Config, v float64) { c.Duration = v },
	"seed":     func(c *Config, v float64) { c.Seed = int64(v) },

	"softbody.spring_k":       func(c *Config, v float64) { c.SoftBody.SpringK = v },
	"softbody.damping_k":      func(c *Config, v float64) { c.SoftBody.DampingK = v },
	"softbody.gravity":        func(c *Config, v float64) { c.SoftBody.Gravity = v },
	"softbody.total_mass":     func(c *Config, v float64) { c.SoftBody.TotalMass = v },
	"softbody.pressure_scale": func(c *Config, v float64) { c.SoftBody.PressureScale = v },
	"softbody.radius":         func(c *Config, v float64) { c.SoftBody.Radius = v },
	"softbody.height":         func(c *Config, v float64) { c.SoftBody.Height = v },
	"softbody.count":          func(c *Config, v float64) { c.SoftBody.Count = int(v) },

	"fluid.particles":    func(c *Config, v float64) { c.Fluid.Particles = int(v) },
	"fluid.iterations":   func(c *Config, v float64) { c.Fluid.Iterations = int(v) },
	"fluid.cell_width":   func(c *Config, v float64) { c.Fluid.CellWidth = v },
	"fluid.rest_density": func(c *Config, v float64) { c.Fluid.RestDensity = v },
	"fluid.relaxation":   func(c *Config, v float64) { c.Fluid.Relaxation = v },
	"fluid.tensile_k":    func(c *Config, v float64) { c.Fluid.TensileK = v },
	"fluid.vorticity":    func(c *Config, v float64) { c.Fluid.Vorticity = v },
	"fluid.viscosity":    func(c *Config, v float64) { c.Fluid.Viscosity = v },
}

// Set overrides one numeric field by its dotted yaml name, for sweeps and
// scenario files. It does not validate the result.
func (c *Config) Set(name string, v float64) error {
	set, ok := setters[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q (settable: %v)", name, SettableParams())
	}
	set(c, v)
	return nil
}

func SettableParams() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
