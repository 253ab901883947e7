package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
)

// VolumeRatio tracks enclosed volume over rest volume, averaged across
// bodies. Value is the smallest ratio seen, i.e. the hardest squash.
type VolumeRatio struct {
	name    string
	current float64
	min     float64
}

func NewVolumeRatio() *VolumeRatio {
	return &VolumeRatio{name: "volume_ratio", min: math.Inf(1)}
}

func (v *VolumeRatio) Name() string     { return v.name }
func (v *VolumeRatio) Current() float64 { return v.current }

func (v *VolumeRatio) ObserveBodies(bodies []*softbody.Body, t float64) {
	if len(bodies) == 0 {
		return
	}
	var sum float64
	for _, b := range bodies {
		sum += b.Volume() / b.RestVolume()
	}
	v.current = sum / float64(len(bodies))
	v.min = min(v.min, v.current)
}

func (v *VolumeRatio) Value() float64 {
	if math.IsInf(v.min, 1) {
		return 1
	}
	return v.min
}

func (v *VolumeRatio) Reset() {
	v.current = 0
	v.min = math.Inf(1)
}

// TotalMass sums body masses. Nothing in the solver moves mass, so Value
// is the largest deviation from the first sample and should stay zero.
type TotalMass struct {
	name    string
	initial float64
	current float64
	drift   float64
	samples int
}

func NewTotalMass() *TotalMass {
	return &TotalMass{name: "total_mass"}
}

func (m *TotalMass) Name() string     { return m.name }
func (m *TotalMass) Current() float64 { return m.current }

func (m *TotalMass) ObserveBodies(bodies []*softbody.Body, t float64) {
	m.current = 0
	for _, b := range bodies {
		m.current += b.TotalMass()
	}
	if m.samples == 0 {
		m.initial = m.current
	}
	m.samples++
	m.drift = max(m.drift, math.Abs(m.current-m.initial))
}

func (m *TotalMass) Value() float64 { return m.drift }

func (m *TotalMass) Reset() {
	m.initial = 0
	m.current = 0
	m.drift = 0
	m.samples = 0
}

// Penetration is how far the lowest vertex sits below floor. Value is the
// deepest penetration over the run.
type Penetration struct {
	name    string
	floor   float64
	current float64
	deepest float64
}

func NewPenetration(floor float64) *Penetration {
	return &Penetration{name: "penetration", floor: floor}
}

func (p *Penetration) Name() string     { return p.name }
func (p *Penetration) Current() float64 { return p.current }

func (p *Penetration) ObserveBodies(bodies []*softbody.Body, t float64) {
	p.current = 0
	for _, b := range bodies {
		if depth := p.floor - b.BoundingBox().Min.Y(); depth > p.current {
			p.current = depth
		}
	}
	p.deepest = max(p.deepest, p.current)
}

func (p *Penetration) Value() float64 { return p.deepest }

func (p *Penetration) Reset() {
	p.current = 0
	p.deepest = 0
}
