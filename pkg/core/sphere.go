package core

import "math"

// BoundingSphere is a sphere enclosing some geometry. A negative radius
// marks the empty sphere.
type BoundingSphere struct {
	Center Vec3
	Radius float64
}

// EmptySphere bounds nothing
var EmptySphere = BoundingSphere{Radius: -1}

// NewBoundingSphere creates a new bounding sphere
func NewBoundingSphere(center Vec3, radius float64) BoundingSphere {
	return BoundingSphere{Center: center, Radius: radius}
}

// SphereFromAABB returns the sphere circumscribing a box
func SphereFromAABB(box AABB) BoundingSphere {
	if box.IsEmpty() {
		return EmptySphere
	}
	center := box.Center()
	return BoundingSphere{Center: center, Radius: box.Max.Subtract(center).Length()}
}

// IsEmpty reports whether the sphere bounds nothing
func (s BoundingSphere) IsEmpty() bool {
	return s.Radius < 0
}

// Contains reports whether the point lies inside or on the sphere
func (s BoundingSphere) Contains(p Vec3) bool {
	if s.IsEmpty() {
		return false
	}
	return p.Subtract(s.Center).LengthSquared() <= s.Radius*s.Radius
}

// BoundingBox returns the box circumscribing the sphere
func (s BoundingSphere) BoundingBox() AABB {
	if s.IsEmpty() {
		return EmptyAABB
	}
	r := NewVec3(s.Radius, s.Radius, s.Radius)
	return AABB{Min: s.Center.Subtract(r), Max: s.Center.Add(r)}
}

// Union returns the smallest sphere enclosing both spheres
func (s BoundingSphere) Union(other BoundingSphere) BoundingSphere {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}

	offset := other.Center.Subtract(s.Center)
	distance := offset.Length()

	// One sphere already encloses the other
	if distance+other.Radius <= s.Radius {
		return s
	}
	if distance+s.Radius <= other.Radius {
		return other
	}

	radius := 0.5 * (distance + s.Radius + other.Radius)
	center := s.Center.Add(offset.Multiply((radius - s.Radius) / distance))
	return BoundingSphere{Center: center, Radius: math.Max(radius, 0)}
}
