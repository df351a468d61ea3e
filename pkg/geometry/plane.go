package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Plane is the solid half-space behind a plane: the points p with
// (p - Point) · Normal <= 0. The normal points out of the solid.
type Plane struct {
	primitive
	Point  core.Vec3 // A point on the plane
	Normal core.Vec3 // Outward unit normal
}

// NewPlane creates a new half-space
func NewPlane(point, normal core.Vec3) *Plane {
	p := &Plane{Point: point, Normal: normal.Normalize()}
	p.primitive = primitive{self: p}
	return p
}

// Intersect records the crossing of the ray with the plane
func (p *Plane) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	denominator := ray.Direction.Dot(p.Normal)
	if denominator == 0 {
		return
	}

	t := p.Point.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t > recorder.Interval().Max {
		return
	}
	recorder.Record(&planeIntersection{hit: newHit(t, denominator < 0), plane: p, ray: ray})
}

// BoundingBox returns the infinite box; a half-space is unbounded
func (p *Plane) BoundingBox() core.AABB {
	return core.InfiniteAABB
}

// BoundingSphere returns an infinite sphere centered on the plane point
func (p *Plane) BoundingSphere() core.BoundingSphere {
	return core.NewBoundingSphere(p.Point, math.Inf(1))
}

// PrimitiveIntersectsBox reports whether the plane separates the corners
// of the box
func (p *Plane) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, 1)
	if box.IsEmpty() {
		return false
	}
	if !box.IsFinite() {
		return true
	}
	below, above := false, false
	for _, c := range box.Corners() {
		d := c.Subtract(p.Point).Dot(p.Normal)
		if d <= 0 {
			below = true
		}
		if d >= 0 {
			above = true
		}
	}
	return below && above
}

// Contains reports whether the point lies behind the plane
func (p *Plane) Contains(q core.Vec3) bool {
	return q.Subtract(p.Point).Dot(p.Normal) < 0
}

type planeIntersection struct {
	hit
	plane *Plane
	ray   core.Ray
}

func (x *planeIntersection) PrepareShadingContext(ctx ShadingContext) {
	point := x.ray.At(x.distance)
	basis := core.NewBasisFromW(x.plane.Normal)
	local := point.Subtract(x.plane.Point)
	setSurface(ctx, point, basis.W, basis.U, core.NewVec2(local.Dot(basis.U), local.Dot(basis.V)), 0)
}
