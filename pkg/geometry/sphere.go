package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Sphere represents a solid sphere, a single primitive
type Sphere struct {
	primitive
	Center core.Vec3
	Radius float64
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float64) *Sphere {
	s := &Sphere{Center: center, Radius: radius}
	s.primitive = primitive{self: s}
	return s
}

// Intersect records both crossings of the ray with the sphere
func (s *Sphere) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	// Vector from ray origin to sphere center
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 || a == 0 {
		return
	}

	sqrtD := math.Sqrt(discriminant)
	interval := recorder.Interval()

	near := (-halfB - sqrtD) / a
	far := (-halfB + sqrtD) / a

	if near <= interval.Max {
		recorder.Record(&sphereIntersection{hit: newHit(near, true), sphere: s, ray: ray})
	}
	if far <= recorder.Interval().Max {
		recorder.Record(&sphereIntersection{hit: newHit(far, false), sphere: s, ray: ray})
	}
}

// BoundingBox returns the axis-aligned bounding box for this sphere
func (s *Sphere) BoundingBox() core.AABB {
	radius := core.NewVec3(s.Radius, s.Radius, s.Radius)
	return core.NewAABB(s.Center.Subtract(radius), s.Center.Add(radius))
}

// BoundingSphere returns the sphere itself
func (s *Sphere) BoundingSphere() core.BoundingSphere {
	return core.NewBoundingSphere(s.Center, s.Radius)
}

// PrimitiveIntersectsBox reports whether the sphere's surface passes
// through the box: the box must reach the surface but not lie entirely
// inside the ball
func (s *Sphere) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, 1)
	if box.IsEmpty() {
		return false
	}

	// Closest point of the box to the center
	closest := s.Center.Max(box.Min).Min(box.Max)
	if closest.Subtract(s.Center).LengthSquared() > s.Radius*s.Radius {
		return false
	}

	// Farthest corner from the center
	farthest := 0.0
	for _, c := range box.Corners() {
		farthest = math.Max(farthest, c.Subtract(s.Center).LengthSquared())
	}
	return farthest >= s.Radius*s.Radius
}

// Contains reports whether the point lies inside the sphere
func (s *Sphere) Contains(p core.Vec3) bool {
	return p.Subtract(s.Center).LengthSquared() < s.Radius*s.Radius
}

type sphereIntersection struct {
	hit
	sphere *Sphere
	ray    core.Ray
}

func (x *sphereIntersection) PrepareShadingContext(ctx ShadingContext) {
	s := x.sphere
	point := x.ray.At(x.distance)
	normal := point.Subtract(s.Center).Multiply(1.0 / s.Radius)

	// Spherical coordinates: u around the Y axis, v from the south pole
	theta := math.Acos(math.Max(-1, math.Min(1, -normal.Y)))
	phi := math.Atan2(-normal.Z, normal.X) + math.Pi
	uv := core.NewVec2(phi/(2*math.Pi), theta/math.Pi)

	// Tangent follows increasing u
	tangent := core.NewVec3(-normal.Z, 0, normal.X)
	if tangent.LengthSquared() == 0 {
		tangent = core.NewVec3(1, 0, 0)
	}

	setSurface(ctx, point, normal, tangent, uv, 0)
}
