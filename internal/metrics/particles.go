package metrics

import (
	"github.com/chewxy/math32"
)

// MaxSpeed is the fastest particle in each frame; Value is the peak.
type MaxSpeed struct {
	name    string
	current float64
	peak    float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{name: "max_speed"} }

func (m *MaxSpeed) Name() string     { return m.name }
func (m *MaxSpeed) Current() float64 { return m.current }

func (m *MaxSpeed) ObserveParticles(pos, vel []float32, t float64) {
	var fastest float32
	for i := 0; i+2 < len(vel); i += 3 {
		s := math32.Sqrt(vel[i]*vel[i] + vel[i+1]*vel[i+1] + vel[i+2]*vel[i+2])
		fastest = math32.Max(fastest, s)
	}
	m.current = float64(fastest)
	m.peak = max(m.peak, m.current)
}

func (m *MaxSpeed) Value() float64 { return m.peak }

func (m *MaxSpeed) Reset() {
	m.current = 0
	m.peak = 0
}

// MeanHeight is the average particle y, a cheap settling indicator for a
// dam break. Value is the last sample.
type MeanHeight struct {
	name    string
	current float64
}

func NewMeanHeight() *MeanHeight { return &MeanHeight{name: "mean_height"} }

func (m *MeanHeight) Name() string     { return m.name }
func (m *MeanHeight) Current() float64 { return m.current }

func (m *MeanHeight) ObserveParticles(pos, vel []float32, t float64) {
	n := len(pos) / 3
	if n == 0 {
		return
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(pos[i*3+1])
	}
	m.current = sum / float64(n)
}

func (m *MeanHeight) Value() float64 { return m.current }
func (m *MeanHeight) Reset()         { m.current = 0 }
