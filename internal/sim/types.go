package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/softsim/internal/dynamo"
	"github.com/san-kum/softsim/internal/softbody"
)

// Metric reduces a run to one number. Current is the latest sample and is
// recorded as a time series, Value is the summary kept in the run store.
type Metric interface {
	Name() string
	Current() float64
	Value() float64
	Reset()
}

type BodyMetric interface {
	Metric
	ObserveBodies(bodies []*softbody.Body, t float64)
}

type ParticleMetric interface {
	Metric
	ObserveParticles(pos, vel []float32, t float64)
}

// Observer receives the flat xyz positions of every object after each step.
type Observer interface {
	OnStep(t float64, positions [][]float32)
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.002,
		Duration:      5,
		ValidateState: true,
	}
}

func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f: %w", c.Duration, dynamo.ErrParameterBounds)
	}
	if c.Dt > c.Duration {
		return fmt.Errorf("dt %f exceeds duration %f: %w", c.Dt, c.Duration, dynamo.ErrParameterBounds)
	}
	return nil
}

// Steps is the number of whole steps that fit in Duration.
func (c Config) Steps() int {
	return int(c.Duration/c.Dt + 1e-9)
}

type Result struct {
	Times      []float64
	Series     map[string][]float64
	Metrics    map[string]float64
	StepsTaken int
	Elapsed    time.Duration
}
