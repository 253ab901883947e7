package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/softsim/internal/mesh"
)

// Collider is anything a moving point can be swept against.
type Collider interface {
	BoundingBox() AABB
	Triangles() []Triangle
}

// StaticMesh is an immovable collider such as a floor or obstacle.
type StaticMesh struct {
	box  AABB
	tris []Triangle
}

func NewStaticMesh(m *mesh.Mesh) (*StaticMesh, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	box := EmptyAABB()
	for _, v := range m.Vertices {
		box.Extend(v)
	}
	return &StaticMesh{
		box:  box,
		tris: Triangles(m.Triangles, func(i int) mgl64.Vec3 { return m.Vertices[i] }),
	}, nil
}

func (s *StaticMesh) BoundingBox() AABB     { return s.box }
func (s *StaticMesh) Triangles() []Triangle { return s.tris }

// Resolve sweeps one point against every collider whose box contains the
// target position. Triangles are visited in order and each hit replaces the
// movement left by the previous one.
func Resolve(current, movement, velocity mgl64.Vec3, others []Collider, mode ContactMode) (mgl64.Vec3, mgl64.Vec3, int) {
	hits := 0
	for _, o := range others {
		if !o.BoundingBox().Contains(current.Add(movement)) {
			continue
		}
		for _, tri := range o.Triangles() {
			var hit bool
			movement, velocity, hit = Sweep(current, movement, velocity, tri, mode)
			if hit {
				hits++
			}
		}
	}
	return movement, velocity, hits
}
