package integrators

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/dynamo"
)

// oscillator attaches every point to the origin with a unit spring.
type oscillator struct{ points int }

func (o *oscillator) Derive(x dynamo.State, _ dynamo.Control, _ float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	for i := 0; i < o.points; i++ {
		dx.SetPosition(i, x.Velocity(i))
		dx.SetVelocity(i, x.Position(i).Mul(-1))
	}
	return dx
}

func (o *oscillator) StateDim() int   { return o.points * dynamo.PointStride }
func (o *oscillator) ControlDim() int { return 0 }

func startState() dynamo.State {
	x := dynamo.NewPointState(2)
	x.SetPosition(0, mgl64.Vec3{1, 0, 0})
	x.SetPosition(1, mgl64.Vec3{0, 2, 0})
	return x
}

func TestIntegratorAccuracy(t *testing.T) {
	tests := []struct {
		name string
		tol  float64
	}{
		{"euler", 5e-2},
		{"rk4", 1e-6},
		{"verlet", 1e-3},
		{"leapfrog", 1e-3},
	}

	dyn := &oscillator{points: 2}
	dt := 0.01
	steps := 100
	end := float64(steps) * dt

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			integ, err := New(tt.name)
			if err != nil {
				t.Fatal(err)
			}

			x := startState()
			for i := 0; i < steps; i++ {
				x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
			}

			checks := []struct {
				got, want float64
			}{
				{x.Position(0)[0], math.Cos(end)},
				{x.Velocity(0)[0], -math.Sin(end)},
				{x.Position(1)[1], 2 * math.Cos(end)},
				{x.Velocity(1)[1], -2 * math.Sin(end)},
			}
			for i, c := range checks {
				if math.Abs(c.got-c.want) > tt.tol {
					t.Errorf("check %d: got %.6f, expected %.6f", i, c.got, c.want)
				}
			}
			if x.Position(0)[1] != 0 || x.Velocity(1)[2] != 0 {
				t.Error("motion leaked into an unforced axis")
			}
		})
	}
}

func TestVerletEnergyBounded(t *testing.T) {
	dyn := &oscillator{points: 1}
	x := dynamo.NewPointState(1)
	x.SetPosition(0, mgl64.Vec3{1, 0, 0})

	energy := func(s dynamo.State) float64 {
		p, v := s.Position(0), s.Velocity(0)
		return 0.5 * (p.Dot(p) + v.Dot(v))
	}
	e0 := energy(x)

	integ := NewVerlet()
	for i := 0; i < 10000; i++ {
		x = integ.Step(dyn, x, nil, 0, 0.05)
	}
	if drift := math.Abs(energy(x)-e0) / e0; drift > 1e-2 {
		t.Errorf("energy drift %.4f", drift)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("rk45"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	if got := Names(); len(got) != 4 || got[0] != "euler" {
		t.Errorf("Names() = %v", got)
	}
}
