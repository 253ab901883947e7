package metrics

import (
	"github.com/san-kum/softsim/internal/softbody"
)

// KineticEnergy sums 1/2 m v^2 over every vertex of every body.
type KineticEnergy struct {
	name    string
	current float64
	total   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string     { return k.name }
func (k *KineticEnergy) Current() float64 { return k.current }

func (k *KineticEnergy) ObserveBodies(bodies []*softbody.Body, t float64) {
	k.current = 0
	for _, b := range bodies {
		k.current += kinetic(b)
	}
	k.total += k.current
	k.samples++
}

// Value is the mean over all samples.
func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.current = 0
	k.total = 0
	k.samples = 0
}

func kinetic(b *softbody.Body) float64 {
	s := b.State()
	var sum float64
	for i := 0; i < b.VertexCount(); i++ {
		v := s.Velocity(i)
		sum += v.Dot(v)
	}
	return 0.5 * b.MassPerPoint() * sum
}

// Energy is kinetic plus gravitational plus spring energy. Pressure work and
// damping are not counted, so it is not conserved; the drift shows how much
// the solver added or removed.
type Energy struct {
	name     string
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy_drift"}
}

func (e *Energy) Name() string     { return e.name }
func (e *Energy) Current() float64 { return e.current }

func (e *Energy) ObserveBodies(bodies []*softbody.Body, t float64) {
	e.current = 0
	for _, b := range bodies {
		e.current += kinetic(b) + potential(b)
	}
	if e.samples == 0 {
		e.initial = e.current
	}
	e.samples++
	if e.initial != 0 {
		drift := abs(e.current-e.initial) / abs(e.initial)
		e.maxDrift = max(e.maxDrift, drift)
	}
}

// Value is the largest relative drift from the first sample.
func (e *Energy) Value() float64 { return e.maxDrift }

func (e *Energy) Reset() {
	e.initial = 0
	e.current = 0
	e.maxDrift = 0
	e.samples = 0
}

func potential(b *softbody.Body) float64 {
	s := b.State()
	p := b.Params()
	var pe float64
	for i := 0; i < b.VertexCount(); i++ {
		pe += b.MassPerPoint() * p.Gravity * s.Position(i).Y()
	}
	for _, sp := range b.Springs() {
		stretch := s.Position(sp.A).Sub(s.Position(sp.B)).Len() - sp.RestLength
		pe += 0.5 * p.SpringK * stretch * stretch
	}
	return pe
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
