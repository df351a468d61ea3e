package geometry

import (
	"math"

	"github.com/df07/go-intersect/pkg/core"
)

// Box represents a solid axis-aligned box, a single primitive. Oriented
// boxes are built by wrapping a Box in a TransformableGeometry.
type Box struct {
	primitive
	Center core.Vec3 // Center point of the box
	Size   core.Vec3 // Half-extents along each axis
	bbox   core.AABB
}

// NewBox creates a box from its center and half-extents, so a size of
// (1,1,1) creates a 2x2x2 box
func NewBox(center, size core.Vec3) *Box {
	size = size.Abs()
	b := &Box{
		Center: center,
		Size:   size,
		bbox:   core.NewAABB(center.Subtract(size), center.Add(size)),
	}
	b.primitive = primitive{self: b}
	return b
}

// NewBoxFromAABB creates a box filling an AABB
func NewBoxFromAABB(box core.AABB) *Box {
	return NewBox(box.Center(), box.Size().Multiply(0.5))
}

// Intersect records the entry and exit of the ray through the box
func (b *Box) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	tNear := math.Inf(-1)
	tFar := math.Inf(1)
	nearAxis, farAxis := -1, -1

	for axis := 0; axis < 3; axis++ {
		min := b.bbox.Min.Axis(axis)
		max := b.bbox.Max.Axis(axis)
		origin := ray.Origin.Axis(axis)
		direction := ray.Direction.Axis(axis)

		if direction == 0 {
			if origin < min || origin > max {
				return
			}
			continue
		}

		t1 := (min - origin) / direction
		t2 := (max - origin) / direction
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear, nearAxis = t1, axis
		}
		if t2 < tFar {
			tFar, farAxis = t2, axis
		}
		if tNear > tFar {
			return
		}
	}

	if nearAxis < 0 || farAxis < 0 {
		return
	}

	if tNear <= recorder.Interval().Max {
		recorder.Record(&boxIntersection{hit: newHit(tNear, true), box: b, ray: ray, axis: nearAxis})
	}
	if tFar <= recorder.Interval().Max {
		recorder.Record(&boxIntersection{hit: newHit(tFar, false), box: b, ray: ray, axis: farAxis})
	}
}

// BoundingBox returns the axis-aligned bounding box for this box
func (b *Box) BoundingBox() core.AABB {
	return b.bbox
}

// BoundingSphere returns the sphere circumscribing the box
func (b *Box) BoundingSphere() core.BoundingSphere {
	return core.SphereFromAABB(b.bbox)
}

// PrimitiveIntersectsBox reports whether the surface of the box passes
// through the query box. A query box strictly inside the solid misses.
func (b *Box) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, 1)
	if !b.bbox.Overlaps(box) {
		return false
	}
	inside := box.Min.X > b.bbox.Min.X && box.Max.X < b.bbox.Max.X &&
		box.Min.Y > b.bbox.Min.Y && box.Max.Y < b.bbox.Max.Y &&
		box.Min.Z > b.bbox.Min.Z && box.Max.Z < b.bbox.Max.Z
	return !inside
}

// Contains reports whether the point lies inside the box
func (b *Box) Contains(p core.Vec3) bool {
	return b.bbox.Contains(p)
}

type boxIntersection struct {
	hit
	box  *Box
	ray  core.Ray
	axis int
}

func (x *boxIntersection) PrepareShadingContext(ctx ShadingContext) {
	b := x.box
	point := x.ray.At(x.distance)

	// The outward normal points along the slab axis, away from the center
	var normal core.Vec3
	if point.Axis(x.axis) >= b.Center.Axis(x.axis) {
		normal = normal.WithAxis(x.axis, 1)
	} else {
		normal = normal.WithAxis(x.axis, -1)
	}

	// UV spans the face using the two remaining axes
	uAxis := (x.axis + 1) % 3
	vAxis := (x.axis + 2) % 3
	local := point.Subtract(b.bbox.Min)
	size := b.bbox.Size()
	uv := core.NewVec2(ratio(local.Axis(uAxis), size.Axis(uAxis)), ratio(local.Axis(vAxis), size.Axis(vAxis)))

	tangent := core.Vec3{}.WithAxis(uAxis, 1)
	setSurface(ctx, point, normal, tangent, uv, 0)
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
