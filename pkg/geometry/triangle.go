package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Triangle represents a single triangle defined by three vertices. The
// front face is the side (V1-V0) × (V2-V0) points to.
type Triangle struct {
	primitive
	V0, V1, V2 core.Vec3 // The three vertices
	normal     core.Vec3 // Cached normal vector
	bbox       core.AABB // Cached bounding box
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3) *Triangle {
	t := &Triangle{
		V0:     v0,
		V1:     v1,
		V2:     v2,
		normal: v1.Subtract(v0).Cross(v2.Subtract(v0)).Normalize(),
		bbox:   core.NewAABBFromPoints(v0, v1, v2),
	}
	t.primitive = primitive{self: t}
	return t
}

// Intersect records the crossing of the ray with the triangle
func (t *Triangle) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	tHit, u, v, front, ok := intersectTriangle(t.V0, t.V1, t.V2, ray)
	if !ok || tHit > recorder.Interval().Max {
		return
	}
	recorder.Record(&triangleIntersection{hit: newHit(tHit, front), triangle: t, ray: ray, uv: core.NewVec2(u, v)})
}

// BoundingBox returns the axis-aligned bounding box for this triangle
func (t *Triangle) BoundingBox() core.AABB {
	return t.bbox
}

// BoundingSphere returns a sphere enclosing the triangle
func (t *Triangle) BoundingSphere() core.BoundingSphere {
	return triangleSphere(t.V0, t.V1, t.V2)
}

// PrimitiveIntersectsBox tests the triangle against the box
func (t *Triangle) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, 1)
	return triangleOverlapsBox(t.V0, t.V1, t.V2, box)
}

// GetNormal returns the triangle's normal vector
func (t *Triangle) GetNormal() core.Vec3 {
	return t.normal
}

type triangleIntersection struct {
	hit
	triangle *Triangle
	ray      core.Ray
	uv       core.Vec2
}

func (x *triangleIntersection) PrepareShadingContext(ctx ShadingContext) {
	t := x.triangle
	setSurface(ctx, x.ray.At(x.distance), t.normal, t.V1.Subtract(t.V0), x.uv, 0)
}

// intersectTriangle implements the Möller-Trumbore algorithm. It returns
// the ray parameter, the barycentric coordinates of V1 and V2, and whether
// the ray meets the front face.
func intersectTriangle(v0, v1, v2 core.Vec3, ray core.Ray) (t, u, v float64, front, ok bool) {
	const epsilon = 1e-12

	edge1 := v1.Subtract(v0)
	edge2 := v2.Subtract(v0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u = f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, 0, 0, false, false
	}

	q := s.Cross(edge1)
	v = f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, 0, 0, false, false
	}

	t = f * edge2.Dot(q)

	// a = D · (e2 × e1)·(-1) = -D · (e1 × e2); positive means the ray runs
	// against the face normal
	return t, u, v, a > 0, true
}

func triangleSphere(v0, v1, v2 core.Vec3) core.BoundingSphere {
	center := v0.Add(v1).Add(v2).Multiply(1.0 / 3.0)
	radius := 0.0
	for _, p := range []core.Vec3{v0, v1, v2} {
		if d := p.Subtract(center).Length(); d > radius {
			radius = d
		}
	}
	return core.NewBoundingSphere(center, radius)
}

// triangleOverlapsBox is the separating axis test of a triangle against a
// box (Akenine-Möller): the box axes, the triangle normal and the nine
// cross products of the triangle edges with the box axes. Touching counts
// as overlapping.
func triangleOverlapsBox(v0, v1, v2 core.Vec3, box core.AABB) bool {
	if !core.NewAABBFromPoints(v0, v1, v2).Overlaps(box) {
		return false
	}
	if !box.IsFinite() {
		return true
	}

	center := box.Center()
	half := box.Size().Multiply(0.5)
	a, b, c := v0.Subtract(center), v1.Subtract(center), v2.Subtract(center)

	e0, e1, e2 := b.Subtract(a), c.Subtract(b), a.Subtract(c)
	if separates(e0.Cross(e1), a, b, c, half) {
		return false
	}
	for _, edge := range [3]core.Vec3{e0, e1, e2} {
		for _, axis := range [3]core.Vec3{{X: 1}, {Y: 1}, {Z: 1}} {
			if separates(edge.Cross(axis), a, b, c, half) {
				return false
			}
		}
	}
	return true
}

// separates reports whether the triangle a, b, c and the box of the given
// half extents, both relative to the box center, project onto axis as
// disjoint ranges. A zero axis separates nothing.
func separates(axis, a, b, c, half core.Vec3) bool {
	pa, pb, pc := axis.Dot(a), axis.Dot(b), axis.Dot(c)
	r := half.X*math.Abs(axis.X) + half.Y*math.Abs(axis.Y) + half.Z*math.Abs(axis.Z)
	return min(pa, pb, pc) > r || max(pa, pb, pc) < -r
}
