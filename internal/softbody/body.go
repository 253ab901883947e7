package softbody

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/softsim/internal/collision"
	"github.com/san-kum/softsim/internal/dynamo"
	"github.com/san-kum/softsim/internal/mesh"
)

// parallelThreshold is the vertex count below which loops stay on one goroutine.
const parallelThreshold = 256

// Spring connects two points with A < B.
type Spring struct {
	A, B       int
	RestLength float64
}

// Body is a closed triangle mesh simulated as a mass-spring network with an
// ideal-gas pressure term. Its state holds dynamo.PointStride scalars per vertex.
type Body struct {
	params Params

	triangles [][3]int
	state     dynamo.State
	positions []float32

	springs     []Spring
	springIndex map[uint64]int

	// incidence lists let each vertex gather its own forces
	vertexSprings [][]int32
	vertexTris    [][]int32

	massPerPoint     float64
	restVolume       float64
	pressureConstant float64

	box   collision.AABB
	cache []collision.Triangle
}

func NewBody(m *mesh.Mesh, p Params) (*Body, error) {
	if m == nil || m.VertexCount() == 0 {
		return nil, errors.New("softbody: mesh has no vertices")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := m.VertexCount()
	b := &Body{
		params:        p,
		triangles:     make([][3]int, len(m.Triangles)),
		state:         dynamo.NewPointState(n),
		positions:     make([]float32, n*3),
		springIndex:   make(map[uint64]int),
		vertexSprings: make([][]int32, n),
		vertexTris:    make([][]int32, n),
		massPerPoint:  p.TotalMass / float64(n),
	}
	copy(b.triangles, m.Triangles)

	for i, v := range m.Vertices {
		b.state.SetPosition(i, v)
	}

	for ti, tri := range b.triangles {
		b.addSpring(tri[0], tri[1])
		b.addSpring(tri[1], tri[2])
		b.addSpring(tri[2], tri[0])
		for _, v := range tri {
			b.vertexTris[v] = append(b.vertexTris[v], int32(ti))
		}
	}

	b.restVolume = math.Abs(b.volume(b.state))
	b.pressureConstant = b.restVolume * p.PressureScale
	b.refresh()

	return b, nil
}

// addSpring registers the edge a-b once; repeated edges are ignored.
func (b *Body) addSpring(a, c int) {
	if a == c {
		return
	}
	key := mesh.EdgeKey(a, c)
	if _, ok := b.springIndex[key]; ok {
		return
	}
	if a > c {
		a, c = c, a
	}
	idx := len(b.springs)
	b.springs = append(b.springs, Spring{
		A:          a,
		B:          c,
		RestLength: b.state.Position(c).Sub(b.state.Position(a)).Len(),
	})
	b.springIndex[key] = idx
	b.vertexSprings[a] = append(b.vertexSprings[a], int32(idx))
	b.vertexSprings[c] = append(b.vertexSprings[c], int32(idx))
}

func (b *Body) volume(s dynamo.State) float64 {
	return mesh.SignedVolume(b.triangles, s.Position)
}

// Derivative returns dX/dt for state s. It reads only s and the body's
// construction-time constants, so equal inputs give equal outputs.
func (b *Body) Derivative(s dynamo.State) dynamo.State {
	n := b.VertexCount()
	deriv := make(dynamo.State, len(s))

	// forces along each spring, applied +F to A and -F to B
	springForce := make([]mgl64.Vec3, len(b.springs))
	dynamo.ParallelFor(len(b.springs), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			sp := b.springs[i]
			posDiff := s.Position(sp.B).Sub(s.Position(sp.A))
			length := posDiff.Len()
			if length == 0 {
				continue
			}
			dir := posDiff.Mul(1 / length)
			velDiff := s.Velocity(sp.B).Sub(s.Velocity(sp.A))
			f := (length-sp.RestLength)*b.params.SpringK + velDiff.Dot(dir)*b.params.DampingK
			springForce[i] = dir.Mul(f)
		}
	})

	vol := math.Max(b.volume(s), minVolume)

	// pressure share per vertex of each triangle
	triForce := make([]mgl64.Vec3, len(b.triangles))
	dynamo.ParallelFor(len(b.triangles), parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			t := b.triangles[i]
			p0 := s.Position(t[0])
			cross := s.Position(t[1]).Sub(p0).Cross(s.Position(t[2]).Sub(p0))
			l := cross.Len()
			if l == 0 {
				continue
			}
			area := l / 2
			f := b.pressureConstant * area / vol / 3
			triForce[i] = cross.Mul(f / l)
		}
	})

	invMass := 1 / b.massPerPoint
	dynamo.ParallelFor(n, parallelThreshold, func(start, end int) {
		for v := start; v < end; v++ {
			var force mgl64.Vec3
			for _, si := range b.vertexSprings[v] {
				if b.springs[si].A == v {
					force = force.Add(springForce[si])
				} else {
					force = force.Sub(springForce[si])
				}
			}
			for _, ti := range b.vertexTris[v] {
				force = force.Add(triForce[ti])
			}

			acc := force.Mul(invMass)
			acc[1] -= b.params.Gravity

			o := v * dynamo.PointStride
			deriv[o] = s[o+3]
			deriv[o+1] = s[o+4]
			deriv[o+2] = s[o+5]
			deriv[o+3] = acc[0]
			deriv[o+4] = acc[1]
			deriv[o+5] = acc[2]
		}
	})

	return deriv
}

// UpdateState applies one integration step. delta is the change the
// integrator proposes for the whole state; movement is clipped against the
// triangles of others before it is applied. The body skips itself if it is
// listed in others.
func (b *Body) UpdateState(delta dynamo.State, others []collision.Collider) error {
	if len(delta) != len(b.state) {
		return fmt.Errorf("delta has %d scalars, body has %d: %w", len(delta), len(b.state), dynamo.ErrDimensionMismatch)
	}

	n := b.VertexCount()

	// reach covers every finite target position; a collider whose box misses
	// it cannot contain any target and is dropped before the per-point loop.
	reach := collision.EmptyAABB()
	for i := 0; i < n; i++ {
		if target := b.state.Position(i).Add(delta.Position(i)); finite(target) {
			reach.Extend(target)
		}
	}

	colliders := make([]collision.Collider, 0, len(others))
	for _, o := range others {
		if o == nil {
			continue
		}
		if ob, ok := o.(*Body); ok && ob == b {
			continue
		}
		if !o.BoundingBox().Overlaps(reach) {
			continue
		}
		colliders = append(colliders, o)
	}

	mode := b.params.ContactMode

	update := func(start, end int) error {
		for i := start; i < end; i++ {
			current := b.state.Position(i)
			movement, velocity, _ := collision.Resolve(current, delta.Position(i), b.state.Velocity(i), colliders, mode)

			pos := current.Add(movement)
			vel := velocity.Add(delta.Velocity(i))
			if !finite(pos) || !finite(vel) {
				return fmt.Errorf("vertex %d: %w", i, dynamo.ErrInvalidState)
			}
			b.state.SetPosition(i, pos)
			b.state.SetVelocity(i, vel)
		}
		return nil
	}

	var err error
	if n <= parallelThreshold {
		err = update(0, n)
	} else {
		var g errgroup.Group
		workers := runtime.GOMAXPROCS(0)
		chunk := (n + workers - 1) / workers
		for start := 0; start < n; start += chunk {
			end := min(start+chunk, n)
			g.Go(func() error { return update(start, end) })
		}
		err = g.Wait()
	}

	// Vertices written before a failure stay written, so the derived
	// views are rebuilt either way.
	b.refresh()
	return err
}

// refresh rebuilds the render positions, bounding box and triangle cache.
func (b *Body) refresh() {
	box := collision.EmptyAABB()
	for i := 0; i < b.VertexCount(); i++ {
		p := b.state.Position(i)
		box.Extend(p)
		b.positions[i*3] = float32(p[0])
		b.positions[i*3+1] = float32(p[1])
		b.positions[i*3+2] = float32(p[2])
	}
	b.box = box
	b.cache = collision.Triangles(b.triangles, b.state.Position)
}

func finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
