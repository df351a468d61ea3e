package core

import "math"

// Ray represents a ray with an origin, a direction and an optional
// parametric limit. Points along the ray are Origin + t*Direction; the
// direction is not required to be unit length.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	Limit     float64 // Largest valid t, +Inf when unbounded
}

// NewRay creates a new unbounded ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, Limit: math.Inf(1)}
}

// NewRayWithLimit creates a ray that is only valid for t in [0, limit]
func NewRayWithLimit(origin, direction Vec3, limit float64) Ray {
	return Ray{Origin: origin, Direction: direction, Limit: limit}
}

// NewSegment creates a ray from one point to another with limit 1
func NewSegment(from, to Vec3) Ray {
	return Ray{Origin: from, Direction: to.Subtract(from), Limit: 1}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// HasLimit reports whether the ray has a finite limit
func (r Ray) HasLimit() bool {
	return !math.IsInf(r.Limit, 1)
}

// Interval returns the parametric range [0, Limit] over which the ray is valid
func (r Ray) Interval() Interval {
	return Interval{Min: 0, Max: r.Limit}
}
