package integrators

import "github.com/san-kum/softsim/internal/dynamo"

// isPosition reports whether scalar i is a position slot in the point layout.
func isPosition(i int) bool { return i%dynamo.PointStride < 3 }

// Verlet is velocity Verlet over point states: positions advance with the
// current acceleration, velocities with the mean of old and new.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	if len(v.scratch) != n {
		v.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	dx := dyn.Derive(x, u, t)
	dt2 := dt * dt

	for i := 0; i < n; i++ {
		if isPosition(i) {
			result[i] = x[i] + x[i+3]*dt + 0.5*dx[i+3]*dt2
			v.scratch[i] = result[i]
		} else {
			v.scratch[i] = x[i]
		}
	}

	dxNew := dyn.Derive(v.scratch, u, t+dt)

	halfDt := 0.5 * dt
	for i := 0; i < n; i++ {
		if !isPosition(i) {
			result[i] = x[i] + (dx[i]+dxNew[i])*halfDt
		}
	}

	return result
}

// Leapfrog is the kick-drift-kick form.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
	}

	result := make(dynamo.State, n)
	dx := dyn.Derive(x, u, t)
	halfDt := dt * 0.5

	for i := 0; i < n; i++ {
		if !isPosition(i) {
			l.scratch[i] = x[i] + dx[i]*halfDt
		}
	}
	for i := 0; i < n; i++ {
		if isPosition(i) {
			result[i] = x[i] + l.scratch[i+3]*dt
			l.scratch[i] = result[i]
		}
	}

	dxNew := dyn.Derive(l.scratch, u, t+dt)

	for i := 0; i < n; i++ {
		if !isPosition(i) {
			result[i] = l.scratch[i] + dxNew[i]*halfDt
		}
	}

	return result
}
