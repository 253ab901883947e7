package analysis

import (
	"errors"
	"fmt"
	"math"
)

var ErrShortSeries = errors.New("analysis: series too short")

// DominantFrequency returns the frequency in Hz of the strongest non-zero
// bin of the mean-removed series sampled every dt seconds.
func DominantFrequency(series []float64, dt float64) (float64, error) {
	if len(series) < 4 {
		return 0, fmt.Errorf("%d samples: %w", len(series), ErrShortSeries)
	}
	if dt <= 0 {
		return 0, fmt.Errorf("sample spacing must be positive, got %f", dt)
	}

	var mean float64
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	centred := make([]float64, len(series))
	for i, v := range series {
		centred[i] = v - mean
	}

	ps := PowerSpectrum(centred)
	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[best] || best == 0 {
			best = k
		}
	}
	if ps[best] == 0 {
		return 0, nil
	}
	n := 2 * len(ps)
	return float64(best) / (float64(n) * dt), nil
}

// SettlingTime is the first time after which every sample stays within tol
// of the final sample. It returns the last time when the series never settles.
func SettlingTime(times, series []float64, tol float64) (float64, error) {
	if len(times) != len(series) {
		return 0, fmt.Errorf("%d times for %d samples", len(times), len(series))
	}
	if len(series) == 0 {
		return 0, fmt.Errorf("empty series: %w", ErrShortSeries)
	}

	final := series[len(series)-1]
	i := len(series) - 1
	for i > 0 && math.Abs(series[i-1]-final) <= tol {
		i--
	}
	return times[i], nil
}
