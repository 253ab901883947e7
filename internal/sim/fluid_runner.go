package sim

import (
	"context"

	"github.com/chewxy/math32"

	"github.com/san-kum/softsim/internal/fluid"
)

// FluidRunner drives a fluid solver through the shared run loop.
type FluidRunner struct {
	solver  *fluid.Solver
	metrics []ParticleMetric
	obs     []Observer
}

func NewFluidRunner(s *fluid.Solver) *FluidRunner {
	return &FluidRunner{solver: s}
}

func (r *FluidRunner) Solver() *fluid.Solver      { return r.solver }
func (r *FluidRunner) AddMetric(m ParticleMetric) { r.metrics = append(r.metrics, m) }
func (r *FluidRunner) AddObserver(o Observer)     { r.obs = append(r.obs, o) }

func (r *FluidRunner) Run(ctx context.Context, cfg Config) (*Result, error) {
	return run(ctx, fluidStepper{r}, cfg)
}

type fluidStepper struct{ r *FluidRunner }

func (s fluidStepper) step(_, dt float64) error { return s.r.solver.Update(float32(dt)) }

func (s fluidStepper) valid() bool {
	for _, v := range s.r.solver.Positions() {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s fluidStepper) observe(t float64) {
	pos, vel := s.r.solver.Positions(), s.r.solver.Velocities()
	for _, m := range s.r.metrics {
		m.ObserveParticles(pos, vel, t)
	}
}

func (s fluidStepper) metrics() []Metric {
	ms := make([]Metric, len(s.r.metrics))
	for i, m := range s.r.metrics {
		ms[i] = m
	}
	return ms
}

func (s fluidStepper) frame() [][]float32 { return [][]float32{s.r.solver.Positions()} }

func (s fluidStepper) observers() []Observer { return s.r.obs }
