package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// PointStride is the number of scalars stored per point: x, y, z, vx, vy, vz.
const PointStride = 6

// State is a flat vector of point data laid out as PointStride scalars per point.
type State []float64

// NewPointState allocates a zeroed state for n points.
func NewPointState(n int) State {
	return make(State, n*PointStride)
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Points returns how many whole points the state holds.
func (s State) Points() int { return len(s) / PointStride }

func (s State) Position(id int) mgl64.Vec3 {
	o := id * PointStride
	return mgl64.Vec3{s[o], s[o+1], s[o+2]}
}

func (s State) Velocity(id int) mgl64.Vec3 {
	o := id*PointStride + 3
	return mgl64.Vec3{s[o], s[o+1], s[o+2]}
}

func (s State) SetPosition(id int, p mgl64.Vec3) {
	o := id * PointStride
	s[o], s[o+1], s[o+2] = p[0], p[1], p[2]
}

func (s State) SetVelocity(id int, v mgl64.Vec3) {
	o := id*PointStride + 3
	s[o], s[o+1], s[o+2] = v[0], v[1], v[2]
}

type Control []float64

// System is a first-order ODE dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
