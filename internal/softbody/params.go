package softbody

import (
	"fmt"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/dynamo"
)

const (
	DefaultSpringK       = 30.0
	DefaultDampingK      = 0.5
	DefaultGravity       = 9.8
	DefaultTotalMass     = 4.0
	DefaultPressureScale = 50.0

	// minVolume floors the current volume before it is used as a divisor.
	minVolume = 0.01
)

type Params struct {
	SpringK       float64
	DampingK      float64
	Gravity       float64
	TotalMass     float64
	PressureScale float64
	ContactMode   collision.ContactMode
}

func DefaultParams() Params {
	return Params{
		SpringK:       DefaultSpringK,
		DampingK:      DefaultDampingK,
		Gravity:       DefaultGravity,
		TotalMass:     DefaultTotalMass,
		PressureScale: DefaultPressureScale,
		ContactMode:   collision.ContactReset,
	}
}

func (p Params) Validate() error {
	if p.TotalMass <= 0 {
		return fmt.Errorf("total mass must be positive, got %f: %w", p.TotalMass, dynamo.ErrParameterBounds)
	}
	if p.SpringK < 0 || p.DampingK < 0 {
		return fmt.Errorf("spring constants must be non-negative: %w", dynamo.ErrParameterBounds)
	}
	if p.PressureScale < 0 {
		return fmt.Errorf("pressure scale must be non-negative, got %f: %w", p.PressureScale, dynamo.ErrParameterBounds)
	}
	return nil
}
