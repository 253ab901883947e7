package collision

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// SkinOffset is how far a clipped point is pushed back out along the normal.
	SkinOffset = 0.01

	baryTolerance = 0.01
)

// ContactMode selects what happens to velocity on an accepted contact.
type ContactMode int

const (
	// ContactReset zeroes the whole velocity.
	ContactReset ContactMode = iota
	// ContactSlide removes only the component along the surface normal.
	ContactSlide
)

func (m ContactMode) String() string {
	switch m {
	case ContactReset:
		return "reset"
	case ContactSlide:
		return "slide"
	default:
		return fmt.Sprintf("ContactMode(%d)", int(m))
	}
}

func ParseContactMode(s string) (ContactMode, error) {
	switch s {
	case "", "reset":
		return ContactReset, nil
	case "slide":
		return ContactSlide, nil
	default:
		return ContactReset, fmt.Errorf("unknown contact mode %q (want reset or slide)", s)
	}
}

// Sweep tests the segment current -> current+movement against tri. On a hit
// it returns the clipped movement, the post-contact velocity and true. On a
// miss movement and velocity come back unchanged.
func Sweep(current, movement, velocity mgl64.Vec3, tri Triangle, mode ContactMode) (mgl64.Vec3, mgl64.Vec3, bool) {
	n := tri.Normal

	dist := tri.A.Sub(current).Dot(n)
	if dist >= 0 {
		return movement, velocity, false
	}
	approach := movement.Dot(n)
	if approach >= 0 {
		return movement, velocity, false
	}
	t := dist / approach
	if t > 1 {
		return movement, velocity, false
	}

	p := current.Add(movement.Mul(t))
	u := triArea(p, tri.A, tri.B) / tri.Area
	v := triArea(p, tri.A, tri.C) / tri.Area
	w := triArea(p, tri.B, tri.C) / tri.Area
	if u <= 0 || u >= 1 || v <= 0 || v >= 1 || w <= 0 || w >= 1 {
		return movement, velocity, false
	}
	if math.Abs(u+v+w-1) > baryTolerance {
		return movement, velocity, false
	}

	p = p.Add(n.Mul(SkinOffset))
	clipped := p.Sub(current)
	// The push-out can lengthen a grazing step; never move further than asked.
	if l, orig := clipped.Len(), movement.Len(); l > orig && l > 0 {
		clipped = clipped.Mul(orig / l)
	}

	switch mode {
	case ContactSlide:
		velocity = velocity.Sub(n.Mul(velocity.Dot(n)))
	default:
		velocity = mgl64.Vec3{}
	}
	return clipped, velocity, true
}
