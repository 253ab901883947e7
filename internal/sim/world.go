package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/dynamo"
	"github.com/san-kum/softsim/internal/integrators"
	"github.com/san-kum/softsim/internal/softbody"
)

// World steps a set of soft bodies against each other and against static
// colliders. Bodies are advanced one after another; a body sees the boxes
// and triangles its neighbours had after their own most recent update.
type World struct {
	integrator string

	bodies  []*softbody.Body
	integs  []dynamo.Integrator
	statics []collision.Collider
	pools   map[int]*StatePool

	bodyMetrics []BodyMetric
	obs         []Observer
}

func NewWorld(integrator string) (*World, error) {
	if _, err := integrators.New(integrator); err != nil {
		return nil, err
	}
	return &World{
		integrator: integrator,
		pools:      make(map[int]*StatePool),
	}, nil
}

func (w *World) AddBody(b *softbody.Body) error {
	integ, err := integrators.New(w.integrator)
	if err != nil {
		return err
	}
	w.bodies = append(w.bodies, b)
	w.integs = append(w.integs, integ)
	if _, ok := w.pools[b.StateDim()]; !ok {
		w.pools[b.StateDim()] = NewStatePool(b.StateDim())
	}
	return nil
}

func (w *World) AddStatic(c collision.Collider) { w.statics = append(w.statics, c) }
func (w *World) AddMetric(m BodyMetric)         { w.bodyMetrics = append(w.bodyMetrics, m) }
func (w *World) AddObserver(o Observer)         { w.obs = append(w.obs, o) }
func (w *World) Bodies() []*softbody.Body       { return w.bodies }
func (w *World) Statics() []collision.Collider  { return w.statics }
func (w *World) Integrator() string             { return w.integrator }

func (w *World) colliders() []collision.Collider {
	cs := make([]collision.Collider, 0, len(w.bodies)+len(w.statics))
	for _, b := range w.bodies {
		cs = append(cs, b)
	}
	return append(cs, w.statics...)
}

// Step advances every body by dt.
func (w *World) Step(t, dt float64) error {
	colliders := w.colliders()
	for i, b := range w.bodies {
		x := b.State()
		next := w.integs[i].Step(b, x, nil, t, dt)

		pool := w.pools[len(x)]
		delta := pool.Diff(next, x)
		err := b.UpdateState(delta, colliders)
		pool.Put(delta)
		if err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
	}
	return nil
}

func (w *World) Run(ctx context.Context, cfg Config) (*Result, error) {
	if len(w.bodies) == 0 {
		return nil, fmt.Errorf("world has no bodies")
	}
	return run(ctx, worldStepper{w}, cfg)
}

// worldStepper keeps the run-loop hooks off World's exported method set.
type worldStepper struct{ w *World }

func (s worldStepper) step(t, dt float64) error { return s.w.Step(t, dt) }

func (s worldStepper) valid() bool {
	for _, b := range s.w.bodies {
		if !b.State().IsValid() {
			return false
		}
	}
	return true
}

func (s worldStepper) observe(t float64) {
	for _, m := range s.w.bodyMetrics {
		m.ObserveBodies(s.w.bodies, t)
	}
}

func (s worldStepper) metrics() []Metric {
	ms := make([]Metric, len(s.w.bodyMetrics))
	for i, m := range s.w.bodyMetrics {
		ms[i] = m
	}
	return ms
}

func (s worldStepper) frame() [][]float32 {
	f := make([][]float32, len(s.w.bodies))
	for i, b := range s.w.bodies {
		f[i] = b.FlatPositions()
	}
	return f
}

func (s worldStepper) observers() []Observer { return s.w.obs }
