package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box returns an axis-aligned box centred on the origin. Vertex i has
// bit 0 set for +X, bit 1 for +Y and bit 2 for +Z.
func Box(w, h, d float64) *Mesh {
	hx, hy, hz := w/2, h/2, d/2
	verts := make([]mgl64.Vec3, 8)
	for i := range verts {
		v := mgl64.Vec3{-hx, -hy, -hz}
		if i&1 != 0 {
			v[0] = hx
		}
		if i&2 != 0 {
			v[1] = hy
		}
		if i&4 != 0 {
			v[2] = hz
		}
		verts[i] = v
	}
	return &Mesh{
		Vertices: verts,
		Triangles: [][3]int{
			{0, 2, 1}, {1, 2, 3}, // -Z
			{4, 5, 6}, {5, 7, 6}, // +Z
			{0, 1, 4}, {1, 5, 4}, // -Y
			{2, 6, 3}, {3, 6, 7}, // +Y
			{0, 4, 2}, {2, 4, 6}, // -X
			{1, 3, 5}, {3, 7, 5}, // +X
		},
	}
}

func Cube(size float64) *Mesh {
	return Box(size, size, size)
}

// Floor is a thin slab whose top face sits at y=0. A slab has a non-empty
// bounding box, which the broad phase needs.
func Floor(size, thickness float64) *Mesh {
	return Box(size, thickness, size).Translate(mgl64.Vec3{0, -thickness / 2, 0})
}

// Icosphere subdivides an icosahedron level times and projects every vertex
// onto a sphere of the given radius. Edge midpoints are shared between
// neighbouring triangles.
func Icosphere(radius float64, level int) *Mesh {
	t := (1 + math.Sqrt(5)) / 2
	verts := []mgl64.Vec3{
		{-1, t, 0}, {1, t, 0}, {-1, -t, 0}, {1, -t, 0},
		{0, -1, t}, {0, 1, t}, {0, -1, -t}, {0, 1, -t},
		{t, 0, -1}, {t, 0, 1}, {-t, 0, -1}, {-t, 0, 1},
	}
	for i := range verts {
		verts[i] = verts[i].Normalize().Mul(radius)
	}
	tris := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for l := 0; l < level; l++ {
		cache := make(map[uint64]int)
		midpoint := func(a, b int) int {
			key := EdgeKey(a, b)
			if idx, ok := cache[key]; ok {
				return idx
			}
			mid := verts[a].Add(verts[b]).Mul(0.5).Normalize().Mul(radius)
			verts = append(verts, mid)
			idx := len(verts) - 1
			cache[key] = idx
			return idx
		}

		next := make([][3]int, 0, len(tris)*4)
		for _, tri := range tris {
			a := midpoint(tri[0], tri[1])
			b := midpoint(tri[1], tri[2])
			c := midpoint(tri[2], tri[0])
			next = append(next,
				[3]int{tri[0], a, c},
				[3]int{tri[1], b, a},
				[3]int{tri[2], c, b},
				[3]int{a, b, c},
			)
		}
		tris = next
	}

	return &Mesh{Vertices: verts, Triangles: tris}
}
