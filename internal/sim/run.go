package sim

import (
	"context"
	"time"

	"github.com/san-kum/softsim/internal/dynamo"
)

// stepper is the part of a scene the shared run loop drives.
type stepper interface {
	step(t, dt float64) error
	valid() bool
	observe(t float64)
	metrics() []Metric
	frame() [][]float32
	observers() []Observer
}

func run(ctx context.Context, s stepper, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	steps := cfg.Steps()
	ms := s.metrics()
	result := &Result{
		Times:   make([]float64, 0, steps),
		Series:  make(map[string][]float64, len(ms)),
		Metrics: make(map[string]float64, len(ms)),
	}
	for _, m := range ms {
		m.Reset()
		result.Series[m.Name()] = make([]float64, 0, steps)
	}

	start := time.Now()
	t := 0.0
	slogger().Debug("run started", "steps", steps, "dt", cfg.Dt)

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.step(t, cfg.Dt); err != nil {
			runErr = &dynamo.SimulationError{Step: i, Time: t, Wrapped: err}
			break
		}
		if cfg.ValidateState && !s.valid() {
			runErr = &dynamo.SimulationError{Step: i, Time: t, Wrapped: dynamo.ErrInvalidState}
			break
		}
		t += cfg.Dt
		result.StepsTaken++

		s.observe(t)
		result.Times = append(result.Times, t)
		for _, m := range ms {
			result.Series[m.Name()] = append(result.Series[m.Name()], m.Current())
		}

		if obs := s.observers(); len(obs) > 0 {
			f := s.frame()
			for _, o := range obs {
				o.OnStep(t, f)
			}
		}
	}

	for _, m := range ms {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Elapsed = time.Since(start)

	if runErr != nil {
		slogger().Warn("run stopped early", "steps", result.StepsTaken, "err", runErr)
		return result, runErr
	}
	slogger().Debug("run finished", "steps", result.StepsTaken, "elapsed", result.Elapsed)
	return result, nil
}
