package geometry

import (
	"fmt"

	"github.com/df07/go-intersect/pkg/core"
)

// SceneElement is a set of primitives addressed by a flat, 0-based,
// contiguous index in [0, NumPrimitives()). Passing any other index is a
// programming error and panics with an IndexError.
type SceneElement interface {
	// NumPrimitives returns the number of primitives in the element
	NumPrimitives() int

	// Intersect records every crossing of the ray with the element
	Intersect(ray core.Ray, recorder IntersectionRecorder)

	// IntersectPrimitive records the crossings of the ray with one primitive
	IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder)

	// BoundingBox bounds the whole element
	BoundingBox() core.AABB

	// BoundingSphere bounds the whole element
	BoundingSphere() core.BoundingSphere

	// PrimitiveBoundingBox bounds one primitive
	PrimitiveBoundingBox(index int) core.AABB

	// PrimitiveBoundingSphere bounds one primitive
	PrimitiveBoundingSphere(index int) core.BoundingSphere

	// PrimitiveIntersectsBox reports whether the surface of a primitive may
	// pass through box. It may return false positives, never false negatives.
	PrimitiveIntersectsBox(index int, box core.AABB) bool
}

// Solid is implemented by elements that can classify points as inside or
// outside their volume
type Solid interface {
	Contains(p core.Vec3) bool
}

// IndexError is the panic value raised for a primitive index outside the
// valid range of an element
type IndexError struct {
	Index int
	Count int
}

func (e IndexError) Error() string {
	return fmt.Sprintf("geometry: primitive index %d out of range [0, %d)", e.Index, e.Count)
}

// CheckIndex panics with an IndexError unless 0 <= index < count
func CheckIndex(index, count int) {
	if index < 0 || index >= count {
		panic(IndexError{Index: index, Count: count})
	}
}

// IntersectPrimitives intersects the ray with each primitive in turn
func IntersectPrimitives(e SceneElement, ray core.Ray, recorder IntersectionRecorder) {
	n := e.NumPrimitives()
	for i := 0; i < n; i++ {
		e.IntersectPrimitive(i, ray, recorder)
	}
}

// BoundsOf returns the union of the primitive bounding boxes of e
func BoundsOf(e SceneElement) core.AABB {
	box := core.EmptyAABB
	n := e.NumPrimitives()
	for i := 0; i < n; i++ {
		box = box.Union(e.PrimitiveBoundingBox(i))
	}
	return box
}

// SphereOf returns a sphere enclosing the primitive bounding spheres of e
func SphereOf(e SceneElement) core.BoundingSphere {
	sphere := core.EmptySphere
	n := e.NumPrimitives()
	for i := 0; i < n; i++ {
		sphere = sphere.Union(e.PrimitiveBoundingSphere(i))
	}
	return sphere
}

// IntersectNearest returns the nearest intersection along the ray's valid
// range, or nil when nothing is hit
func IntersectNearest(e SceneElement, ray core.Ray) Intersection {
	recorder := NewNearestRecorderForRay(ray)
	e.Intersect(ray, recorder)
	return recorder.Nearest()
}

// IntersectAll returns every intersection along the ray's valid range,
// sorted by distance
func IntersectAll(e SceneElement, ray core.Ray) []Intersection {
	recorder := NewCollectAllRecorder(ray.Interval())
	e.Intersect(ray, recorder)
	recorder.Sort()
	return recorder.Intersections()
}

// Visibility reports whether nothing in e obstructs the ray over its
// valid range
func Visibility(e SceneElement, ray core.Ray) bool {
	return IntersectNearest(e, ray) == nil
}

// primitive is embedded by single-primitive elements to supply the
// per-primitive part of SceneElement from the whole-element methods
type primitive struct {
	self interface {
		BoundingBox() core.AABB
		BoundingSphere() core.BoundingSphere
		Intersect(ray core.Ray, recorder IntersectionRecorder)
	}
}

func (p primitive) NumPrimitives() int { return 1 }

func (p primitive) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	CheckIndex(index, 1)
	p.self.Intersect(ray, recorder)
}

func (p primitive) PrimitiveBoundingBox(index int) core.AABB {
	CheckIndex(index, 1)
	return p.self.BoundingBox()
}

func (p primitive) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	CheckIndex(index, 1)
	return p.self.BoundingSphere()
}

func (p primitive) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, 1)
	return p.self.BoundingBox().Overlaps(box)
}
