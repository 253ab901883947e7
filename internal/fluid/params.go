package fluid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/softsim/internal/dynamo"
)

type Params struct {
	Particles int
	// CellWidth is both the grid cell size and the kernel smoothing radius.
	CellWidth   float32
	Grid        [3]int
	RestDensity float32
	// Relaxation is the epsilon added to the lambda denominator.
	Relaxation float32
	Iterations int
	Gravity    mgl32.Vec3

	Tensile       bool
	TensileK      float32
	TensileN      float32
	TensileDeltaQ float32 // fraction of CellWidth

	Vorticity float32
	Viscosity float32

	// SpawnFraction bounds the initial particle block as a fraction of the domain.
	SpawnFraction mgl32.Vec3
	Seed          int64
}

func DefaultParams() Params {
	return Params{
		Particles:     4096,
		CellWidth:     0.1,
		Grid:          [3]int{16, 16, 16},
		RestDensity:   6378,
		Relaxation:    600,
		Iterations:    4,
		Gravity:       mgl32.Vec3{0, -9.8, 0},
		Tensile:       true,
		TensileK:      0.1,
		TensileN:      4,
		TensileDeltaQ: 0.2,
		Vorticity:     0.01,
		Viscosity:     0.01,
		SpawnFraction: mgl32.Vec3{1, 0.5, 1},
		Seed:          1,
	}
}

// Domain is the upper corner of the simulation box; the lower corner is the origin.
func (p Params) Domain() mgl32.Vec3 {
	return mgl32.Vec3{
		p.CellWidth * float32(p.Grid[0]),
		p.CellWidth * float32(p.Grid[1]),
		p.CellWidth * float32(p.Grid[2]),
	}
}

func (p Params) Cells() int { return p.Grid[0] * p.Grid[1] * p.Grid[2] }

func (p Params) Validate() error {
	if p.Particles <= 0 {
		return fmt.Errorf("particles must be positive, got %d: %w", p.Particles, dynamo.ErrParameterBounds)
	}
	if p.CellWidth <= 0 {
		return fmt.Errorf("cell width must be positive, got %f: %w", p.CellWidth, dynamo.ErrParameterBounds)
	}
	for axis, g := range p.Grid {
		if g <= 0 {
			return fmt.Errorf("grid resolution on axis %d must be positive, got %d: %w", axis, g, dynamo.ErrParameterBounds)
		}
	}
	if p.RestDensity <= 0 {
		return fmt.Errorf("rest density must be positive, got %f: %w", p.RestDensity, dynamo.ErrParameterBounds)
	}
	if p.Relaxation <= 0 {
		return fmt.Errorf("relaxation must be positive, got %f: %w", p.Relaxation, dynamo.ErrParameterBounds)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d: %w", p.Iterations, dynamo.ErrParameterBounds)
	}
	for axis, f := range p.SpawnFraction {
		if f <= 0 || f > 1 {
			return fmt.Errorf("spawn fraction on axis %d must be in (0,1], got %f: %w", axis, f, dynamo.ErrParameterBounds)
		}
	}
	if p.Tensile && (p.TensileDeltaQ <= 0 || p.TensileDeltaQ >= 1) {
		return fmt.Errorf("tensile delta q must be in (0,1), got %f: %w", p.TensileDeltaQ, dynamo.ErrParameterBounds)
	}
	return nil
}
