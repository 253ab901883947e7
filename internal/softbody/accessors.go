package softbody

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/dynamo"
)

var (
	_ dynamo.System       = (*Body)(nil)
	_ dynamo.Configurable = (*Body)(nil)
)

func (b *Body) VertexCount() int { return len(b.state) / dynamo.PointStride }

// State returns the live state vector. Callers must not keep it across UpdateState.
func (b *Body) State() dynamo.State { return b.state }

// FlatPositions is the render-facing xyz array refreshed by every UpdateState.
func (b *Body) FlatPositions() []float32 { return b.positions }

func (b *Body) Positions() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, b.VertexCount())
	for i := range out {
		out[i] = b.state.Position(i)
	}
	return out
}

func (b *Body) BoundingBox() collision.AABB        { return b.box }
func (b *Body) Triangles() []collision.Triangle    { return b.cache }
func (b *Body) Springs() []Spring                  { return b.springs }
func (b *Body) Faces() [][3]int                    { return b.triangles }
func (b *Body) RestVolume() float64                { return b.restVolume }
func (b *Body) PressureConstant() float64          { return b.pressureConstant }
func (b *Body) MassPerPoint() float64              { return b.massPerPoint }
func (b *Body) Params() Params                     { return b.params }
func (b *Body) ContactMode() collision.ContactMode { return b.params.ContactMode }

// TotalMass sums the per-point masses.
func (b *Body) TotalMass() float64 {
	return b.massPerPoint * float64(b.VertexCount())
}

// Volume is the enclosed signed volume at the current state.
func (b *Body) Volume() float64 { return b.volume(b.state) }

// Centroid is the mean vertex position.
func (b *Body) Centroid() mgl64.Vec3 {
	var c mgl64.Vec3
	n := b.VertexCount()
	for i := 0; i < n; i++ {
		c = c.Add(b.state.Position(i))
	}
	return c.Mul(1 / float64(n))
}

// SetVelocity gives every point the same velocity.
func (b *Body) SetVelocity(v mgl64.Vec3) {
	for i := 0; i < b.VertexCount(); i++ {
		b.state.SetVelocity(i, v)
	}
}

// Derive adapts Derivative to dynamo.System so the shared integrators can step a body.
func (b *Body) Derive(x dynamo.State, _ dynamo.Control, _ float64) dynamo.State {
	return b.Derivative(x)
}

func (b *Body) StateDim() int   { return len(b.state) }
func (b *Body) ControlDim() int { return 0 }

func (b *Body) GetParams() map[string]float64 {
	return map[string]float64{
		"spring_k":       b.params.SpringK,
		"damping_k":      b.params.DampingK,
		"gravity":        b.params.Gravity,
		"total_mass":     b.params.TotalMass,
		"pressure_scale": b.params.PressureScale,
	}
}

// SetParam tunes the force constants. Mass and pressure scale are fixed at
// construction and cannot be changed.
func (b *Body) SetParam(name string, value float64) error {
	switch name {
	case "spring_k":
		if value < 0 {
			return fmt.Errorf("spring_k %f: %w", value, dynamo.ErrParameterBounds)
		}
		b.params.SpringK = value
	case "damping_k":
		if value < 0 {
			return fmt.Errorf("damping_k %f: %w", value, dynamo.ErrParameterBounds)
		}
		b.params.DampingK = value
	case "gravity":
		b.params.Gravity = value
	case "total_mass", "pressure_scale":
		return fmt.Errorf("%s is fixed at construction", name)
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
