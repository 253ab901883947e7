package metrics

import (
	"github.com/san-kum/softsim/internal/softbody"
)

// Stability is the fraction of steps in which no vertex moved faster than
// threshold. A blown-up spring network shows up here before it turns into NaN.
type Stability struct {
	name       string
	threshold  float64
	current    float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string     { return s.name }
func (s *Stability) Current() float64 { return s.current }

func (s *Stability) ObserveBodies(bodies []*softbody.Body, t float64) {
	s.samples++
	s.current = 0
	for _, b := range bodies {
		st := b.State()
		for i := 0; i < b.VertexCount(); i++ {
			s.current = max(s.current, st.Velocity(i).Len())
		}
	}
	if s.current > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.current = 0
	s.violations = 0
	s.samples = 0
}
