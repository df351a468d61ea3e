package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Quad represents a parallelogram surface defined by a corner and two edge
// vectors. It is an open surface: the front side is the one U × V points to.
type Quad struct {
	primitive
	Corner core.Vec3 // One corner of the quad
	U      core.Vec3 // First edge vector
	V      core.Vec3 // Second edge vector
	Normal core.Vec3 // Normal vector (computed from U × V)
	D      float64   // Plane equation constant: ax + by + cz = d
	W      core.Vec3 // Cached cross product for barycentric coordinates
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3) *Quad {
	cross := u.Cross(v)
	normal := cross.Normalize()

	q := &Quad{
		Corner: corner,
		U:      u,
		V:      v,
		Normal: normal,
		D:      normal.Dot(corner),
		W:      cross.Multiply(1.0 / cross.Dot(cross)),
	}
	q.primitive = primitive{self: q}
	return q
}

// Intersect records the crossing of the ray with the quad
func (q *Quad) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	denominator := ray.Direction.Dot(q.Normal)
	if math.Abs(denominator) < 1e-12 {
		return
	}

	t := (q.D - ray.Origin.Dot(q.Normal)) / denominator
	if t > recorder.Interval().Max {
		return
	}

	// Barycentric coordinates of the hit point in the (U, V) frame
	hitVector := ray.At(t).Subtract(q.Corner)
	alpha := q.W.Dot(hitVector.Cross(q.V))
	beta := q.W.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return
	}

	recorder.Record(&quadIntersection{hit: newHit(t, denominator < 0), quad: q, ray: ray, uv: core.NewVec2(alpha, beta)})
}

// BoundingBox returns the box around the four corners
func (q *Quad) BoundingBox() core.AABB {
	return core.NewAABBFromPoints(q.Corner, q.Corner.Add(q.U), q.Corner.Add(q.V), q.Corner.Add(q.U).Add(q.V))
}

// BoundingSphere returns a sphere around the quad
func (q *Quad) BoundingSphere() core.BoundingSphere {
	center := q.Corner.Add(q.U.Multiply(0.5)).Add(q.V.Multiply(0.5))
	radius := math.Max(q.U.Add(q.V).Length(), q.U.Subtract(q.V).Length()) / 2
	return core.NewBoundingSphere(center, radius)
}

type quadIntersection struct {
	hit
	quad *Quad
	ray  core.Ray
	uv   core.Vec2
}

func (x *quadIntersection) PrepareShadingContext(ctx ShadingContext) {
	setSurface(ctx, x.ray.At(x.distance), x.quad.Normal, x.quad.U, x.uv, 0)
}
