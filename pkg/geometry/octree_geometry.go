package geometry

import (
	"time"

	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/octree"
)

// primitiveRef is an octree item standing for one primitive of an element
type primitiveRef struct {
	element SceneElement
	index   int
}

func (r primitiveRef) SurfaceMayIntersect(box core.AABB) bool {
	return r.element.PrimitiveIntersectsBox(r.index, box)
}

// OctreeGeometry accelerates an element with an octree over its
// primitives. It reports exactly the intersections the element would;
// only the order of work changes. Primitives with unbounded extent cannot
// be placed in cells and are tested against every ray.
type OctreeGeometry struct {
	element   SceneElement
	tree      *octree.Octree[primitiveRef]
	unbounded []int
}

// NewOctreeGeometry builds an octree over the primitives of e. The logger
// may be nil.
func NewOctreeGeometry(e SceneElement, maxDepth, leafCapacity int, logger core.Logger) *OctreeGeometry {
	if logger == nil {
		logger = core.NopLogger{}
	}
	start := time.Now()

	g := &OctreeGeometry{element: e}
	var refs []primitiveRef
	bounds := core.EmptyAABB
	n := e.NumPrimitives()
	for i := 0; i < n; i++ {
		box := e.PrimitiveBoundingBox(i)
		if box.IsEmpty() {
			continue
		}
		if !box.IsFinite() {
			g.unbounded = append(g.unbounded, i)
			continue
		}
		refs = append(refs, primitiveRef{element: e, index: i})
		bounds = bounds.Union(box)
	}

	// Pad so that primitives lying on the outer faces stay inside
	if !bounds.IsEmpty() {
		bounds = bounds.Expand(core.Tolerance(bounds.Size().Length()))
	}
	g.tree = octree.New(refs, bounds, maxDepth, leafCapacity)

	stats := g.tree.Stats()
	logger.Printf("octree: %d primitives (%d unbounded), %d nodes, %d leaves, depth %d, %d references in %v",
		n, len(g.unbounded), stats.Nodes, stats.Leaves, stats.MaxDepth, stats.ItemReferences, time.Since(start))
	return g
}

// Element returns the accelerated element
func (g *OctreeGeometry) Element() SceneElement {
	return g.element
}

// Stats returns the shape of the underlying tree
func (g *OctreeGeometry) Stats() octree.Stats {
	return g.tree.Stats()
}

// Intersect walks the cells along the ray nearest first. A nearest-only
// recorder lets the walk stop as soon as the best hit lies within the
// cells already visited.
func (g *OctreeGeometry) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	for _, index := range g.unbounded {
		g.element.IntersectPrimitive(index, ray, recorder)
	}
	var current core.Interval
	started := false
	g.tree.Traverse(ray, recorder.Interval(), func(ref primitiveRef, cell core.Interval) bool {
		// On entering a new cell, a nearest hit within the finished cell
		// cannot be beaten by anything farther along
		if started && cell != current && !recorder.NeedAllIntersections() && recorder.Interval().Max <= current.Max {
			return false
		}
		started, current = true, cell
		g.element.IntersectPrimitive(ref.index, ray, recorder)
		return true
	})
}

func (g *OctreeGeometry) NumPrimitives() int {
	return g.element.NumPrimitives()
}

func (g *OctreeGeometry) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	g.element.IntersectPrimitive(index, ray, recorder)
}

func (g *OctreeGeometry) BoundingBox() core.AABB {
	return g.element.BoundingBox()
}

func (g *OctreeGeometry) BoundingSphere() core.BoundingSphere {
	return g.element.BoundingSphere()
}

func (g *OctreeGeometry) PrimitiveBoundingBox(index int) core.AABB {
	return g.element.PrimitiveBoundingBox(index)
}

func (g *OctreeGeometry) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	return g.element.PrimitiveBoundingSphere(index)
}

func (g *OctreeGeometry) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	return g.element.PrimitiveIntersectsBox(index, box)
}
