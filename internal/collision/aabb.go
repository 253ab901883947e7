package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box. A box with Min greater than Max on
// any axis is empty.
type AABB struct {
	Min, Max mgl64.Vec3
}

func EmptyAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b *AABB) Extend(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

// Merge grows b to cover o.
func (b *AABB) Merge(o AABB) {
	if o.IsEmpty() {
		return
	}
	b.Extend(o.Min)
	b.Extend(o.Max)
}

// Contains tests p against all six faces, inclusive.
func (b AABB) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// ContainsStrict reports whether p lies strictly inside the box.
func (b AABB) ContainsStrict(p mgl64.Vec3) bool {
	return p[0] > b.Min[0] && p[0] < b.Max[0] &&
		p[1] > b.Min[1] && p[1] < b.Max[1] &&
		p[2] > b.Min[2] && p[2] < b.Max[2]
}

func (b AABB) Overlaps(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}
