package fluid

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/softsim/internal/compute"
)

// Pass names shared by the host kernels and kernels.cl.
const (
	passPredict        = "predict"
	passCell           = "cell"
	passLambda         = "lambda"
	passCorrect        = "correct"
	passApplyCorrect   = "apply_correction"
	passUpdateVelocity = "update_velocity"
	passVorticity      = "vorticity"
	passConfine        = "confine"
	passApplyVelocity  = "apply_velocity"
)

func load(buf []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{buf[i*3], buf[i*3+1], buf[i*3+2]}
}

func store(buf []float32, i int, v mgl32.Vec3) {
	buf[i*3], buf[i*3+1], buf[i*3+2] = v[0], v[1], v[2]
}

func poly6(r2, h float32) float32 {
	h2 := h * h
	if r2 >= h2 {
		return 0
	}
	d := h2 - r2
	return 315 / (64 * math32.Pi * math32.Pow(h, 9)) * d * d * d
}

// spikyGrad is the gradient of the spiky kernel with respect to pi, for r = pi - pj.
func spikyGrad(r mgl32.Vec3, h float32) mgl32.Vec3 {
	l := r.Len()
	if l >= h || l < 1e-6 {
		return mgl32.Vec3{}
	}
	d := h - l
	return r.Mul(-45 / (math32.Pi * math32.Pow(h, 6)) * d * d / l)
}

// grid is the uniform-grid view shared by all neighbour passes.
type grid struct {
	h          float32
	nx, ny, nz int32
	start      []int32
	count      []int32
	sorted     []int32
}

func cellCoord(v, h float32, n int32) int32 {
	c := int32(math32.Floor(v / h))
	if !(c >= 0) {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (g *grid) cellOf(p mgl32.Vec3) (int32, int32, int32) {
	return cellCoord(p[0], g.h, g.nx), cellCoord(p[1], g.h, g.ny), cellCoord(p[2], g.h, g.nz)
}

// each calls fn for every particle in the 27 cells around p, including the
// particle at p itself.
func (g *grid) each(p mgl32.Vec3, fn func(j int)) {
	cx, cy, cz := g.cellOf(p)
	for z := max(cz-1, 0); z <= min(cz+1, g.nz-1); z++ {
		for y := max(cy-1, 0); y <= min(cy+1, g.ny-1); y++ {
			for x := max(cx-1, 0); x <= min(cx+1, g.nx-1); x++ {
				c := x + g.nx*(y+g.ny*z)
				s := g.start[c]
				for k := s; k < s+g.count[c]; k++ {
					fn(int(g.sorted[k]))
				}
			}
		}
	}
}

func bindGrid(a *compute.Args, first, dims int) *grid {
	return &grid{
		start:  a.Int32s(first),
		count:  a.Int32s(first + 1),
		sorted: a.Int32s(first + 2),
		nx:     a.Int32(dims),
		ny:     a.Int32(dims + 1),
		nz:     a.Int32(dims + 2),
	}
}

// args: pos, vel, est, invMass, gx, gy, gz, dt
func predictKernel(a *compute.Args) func(i int) {
	pos, vel, est, invMass := a.Float32s(0), a.Float32s(1), a.Float32s(2), a.Float32s(3)
	g := mgl32.Vec3{a.Float32(4), a.Float32(5), a.Float32(6)}
	dt := a.Float32(7)
	return func(i int) {
		p := load(pos, i)
		if invMass[i] == 0 {
			store(est, i, p)
			return
		}
		v := load(vel, i).Add(g.Mul(dt))
		store(vel, i, v)
		store(est, i, p.Add(v.Mul(dt)))
	}
}

// args: est, cell, h, nx, ny, nz
func cellKernel(a *compute.Args) func(i int) {
	est, cell := a.Float32s(0), a.Int32s(1)
	g := &grid{h: a.Float32(2), nx: a.Int32(3), ny: a.Int32(4), nz: a.Int32(5)}
	return func(i int) {
		x, y, z := g.cellOf(load(est, i))
		cell[i] = x + g.nx*(y+g.ny*z)
	}
}

// args: est, cellStart, cellCount, sorted, lambda, h, restDensity, relaxation, nx, ny, nz
func lambdaKernel(a *compute.Args) func(i int) {
	est := a.Float32s(0)
	g := bindGrid(a, 1, 8)
	lambda := a.Float32s(4)
	g.h = a.Float32(5)
	rest, eps := a.Float32(6), a.Float32(7)
	h2 := g.h * g.h
	return func(i int) {
		pi := load(est, i)
		var rho, sum2 float32
		var gradI mgl32.Vec3
		g.each(pi, func(j int) {
			r := pi.Sub(load(est, j))
			r2 := r.Dot(r)
			if r2 >= h2 {
				return
			}
			rho += poly6(r2, g.h)
			if j == i {
				return
			}
			grad := spikyGrad(r, g.h).Mul(1 / rest)
			gradI = gradI.Add(grad)
			sum2 += grad.Dot(grad)
		})
		sum2 += gradI.Dot(gradI)
		c := rho/rest - 1
		lambda[i] = -c / (sum2 + eps)
	}
}

// args: est, cellStart, cellCount, sorted, lambda, delta, h, restDensity,
// tensileK, tensileN, tensileDeltaQ, nx, ny, nz
func correctKernel(a *compute.Args) func(i int) {
	est := a.Float32s(0)
	g := bindGrid(a, 1, 11)
	lambda, delta := a.Float32s(4), a.Float32s(5)
	g.h = a.Float32(6)
	rest := a.Float32(7)
	k, n, dq := a.Float32(8), a.Float32(9), a.Float32(10)
	h2 := g.h * g.h
	wdq := poly6(dq*dq*g.h*g.h, g.h)
	return func(i int) {
		pi := load(est, i)
		li := lambda[i]
		var d mgl32.Vec3
		g.each(pi, func(j int) {
			if j == i {
				return
			}
			r := pi.Sub(load(est, j))
			r2 := r.Dot(r)
			if r2 >= h2 {
				return
			}
			var scorr float32
			if k > 0 && wdq > 0 {
				scorr = -k * math32.Pow(poly6(r2, g.h)/wdq, n)
			}
			d = d.Add(spikyGrad(r, g.h).Mul(li + lambda[j] + scorr))
		})
		store(delta, i, d.Mul(1/rest))
	}
}

// args: est, delta
func applyCorrectionKernel(a *compute.Args) func(i int) {
	est, delta := a.Float32s(0), a.Float32s(1)
	return func(i int) {
		store(est, i, load(est, i).Add(load(delta, i)))
	}
}

// clampAxis pins x into [0, hi] and zeroes v when it points out of the wall
// x was pinned to. NaN positions land on 0.
func clampAxis(x, v, hi float32) (float32, float32) {
	if !(x >= 0) {
		x = 0
		if !(v >= 0) {
			v = 0
		}
	} else if x > hi {
		x = hi
		if v > 0 {
			v = 0
		}
	}
	return x, v
}

// args: pos, vel, est, dt, maxX, maxY, maxZ
func updateVelocityKernel(a *compute.Args) func(i int) {
	pos, vel, est := a.Float32s(0), a.Float32s(1), a.Float32s(2)
	dt := a.Float32(3)
	hi := mgl32.Vec3{a.Float32(4), a.Float32(5), a.Float32(6)}
	return func(i int) {
		p := load(est, i)
		v := p.Sub(load(pos, i)).Mul(1 / dt)
		for axis := 0; axis < 3; axis++ {
			p[axis], v[axis] = clampAxis(p[axis], v[axis], hi[axis])
		}
		store(pos, i, p)
		store(vel, i, v)
	}
}

// args: pos, vel, cellStart, cellCount, sorted, omega, h, restDensity, nx, ny, nz
func vorticityKernel(a *compute.Args) func(i int) {
	pos, vel := a.Float32s(0), a.Float32s(1)
	g := bindGrid(a, 2, 8)
	omega := a.Float32s(5)
	g.h = a.Float32(6)
	volume := 1 / a.Float32(7)
	h2 := g.h * g.h
	return func(i int) {
		pi, vi := load(pos, i), load(vel, i)
		var w mgl32.Vec3
		g.each(pi, func(j int) {
			if j == i {
				return
			}
			r := pi.Sub(load(pos, j))
			if r.Dot(r) >= h2 {
				return
			}
			// gradient with respect to pj is the negated gradient at pi
			vij := load(vel, j).Sub(vi)
			w = w.Add(vij.Cross(spikyGrad(r, g.h).Mul(-volume)))
		})
		store(omega, i, w)
	}
}

// args: pos, vel, omega, cellStart, cellCount, sorted, dv, h, restDensity,
// vorticity, viscosity, dt, nx, ny, nz
func confineKernel(a *compute.Args) func(i int) {
	pos, vel, omega := a.Float32s(0), a.Float32s(1), a.Float32s(2)
	g := bindGrid(a, 3, 12)
	dv := a.Float32s(6)
	g.h = a.Float32(7)
	volume := 1 / a.Float32(8)
	eps, visc, dt := a.Float32(9), a.Float32(10), a.Float32(11)
	h2 := g.h * g.h
	return func(i int) {
		pi, vi, wi := load(pos, i), load(vel, i), load(omega, i)
		wiLen := wi.Len()
		var eta, xsph mgl32.Vec3
		g.each(pi, func(j int) {
			if j == i {
				return
			}
			r := pi.Sub(load(pos, j))
			r2 := r.Dot(r)
			if r2 >= h2 {
				return
			}
			eta = eta.Add(spikyGrad(r, g.h).Mul(volume * (load(omega, j).Len() - wiLen)))
			xsph = xsph.Add(load(vel, j).Sub(vi).Mul(volume * poly6(r2, g.h)))
		})

		out := xsph.Mul(visc)
		if l := eta.Len(); l > 1e-6 {
			n := eta.Mul(1 / l)
			out = out.Add(n.Cross(wi).Mul(eps * dt))
		}
		store(dv, i, out)
	}
}

// args: vel, dv
func applyVelocityKernel(a *compute.Args) func(i int) {
	vel, dv := a.Float32s(0), a.Float32s(1)
	return func(i int) {
		store(vel, i, load(vel, i).Add(load(dv, i)))
	}
}

func hostKernels() map[string]compute.Kernel {
	return map[string]compute.Kernel{
		passPredict:        predictKernel,
		passCell:           cellKernel,
		passLambda:         lambdaKernel,
		passCorrect:        correctKernel,
		passApplyCorrect:   applyCorrectionKernel,
		passUpdateVelocity: updateVelocityKernel,
		passVorticity:      vorticityKernel,
		passConfine:        confineKernel,
		passApplyVelocity:  applyVelocityKernel,
	}
}
