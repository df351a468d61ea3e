package geometry

import (
	"github.com/df07/go-intersect/pkg/core"
)

// DefaultLeafThreshold is the BVH leaf size: if a node has this many or
// fewer primitives, they are stored in a leaf
const DefaultLeafThreshold = 8

// BVHNode represents a node in the Bounding Volume Hierarchy
type BVHNode struct {
	BoundingBox core.AABB
	Left        *BVHNode
	Right       *BVHNode
	Primitives  []int // Primitive indices for leaf nodes (nil for internal nodes)
}

// BVH is a Bounding Volume Hierarchy over the primitives of an element
type BVH struct {
	Root    *BVHNode
	element SceneElement
}

// NewBVH constructs a BVH over every primitive of e
func NewBVH(e SceneElement, leafThreshold int) *BVH {
	n := e.NumPrimitives()
	if n == 0 {
		return &BVH{element: e}
	}
	if leafThreshold <= 0 {
		leafThreshold = DefaultLeafThreshold
	}

	prims := make([]bvhPrimitive, n)
	for i := range prims {
		box := e.PrimitiveBoundingBox(i)
		prims[i] = bvhPrimitive{index: i, box: box, center: box.Center()}
	}

	return &BVH{
		Root:    buildBVH(prims, leafThreshold),
		element: e,
	}
}

type bvhPrimitive struct {
	index  int
	box    core.AABB
	center core.Vec3
}

// buildBVH recursively builds the BVH using median splits of the centroid
// bounds along the longest axis
func buildBVH(prims []bvhPrimitive, leafThreshold int) *BVHNode {
	boundingBox := core.EmptyAABB
	centroids := core.EmptyAABB
	for _, p := range prims {
		boundingBox = boundingBox.Union(p.box)
		centroids = centroids.Union(core.NewAABB(p.center, p.center))
	}

	if len(prims) <= leafThreshold {
		return newBVHLeaf(boundingBox, prims)
	}

	axis := centroids.LongestAxis()
	minVal, maxVal := centroids.Min.Axis(axis), centroids.Max.Axis(axis)

	// All centroids coincide (or are unbounded): nothing to split on
	if !(maxVal > minVal) || !centroids.IsFinite() {
		return newBVHLeaf(boundingBox, prims)
	}
	splitPos := (minVal + maxVal) * 0.5

	// Partition in place
	mid := 0
	for i := range prims {
		if prims[i].center.Axis(axis) < splitPos {
			prims[i], prims[mid] = prims[mid], prims[i]
			mid++
		}
	}
	if mid == 0 || mid == len(prims) {
		return newBVHLeaf(boundingBox, prims)
	}

	return &BVHNode{
		BoundingBox: boundingBox,
		Left:        buildBVH(prims[:mid], leafThreshold),
		Right:       buildBVH(prims[mid:], leafThreshold),
	}
}

func newBVHLeaf(boundingBox core.AABB, prims []bvhPrimitive) *BVHNode {
	indices := make([]int, len(prims))
	for i, p := range prims {
		indices[i] = p.index
	}
	return &BVHNode{BoundingBox: boundingBox, Primitives: indices}
}

// Intersect tests the ray against every primitive whose node box overlaps
// the recorder's interval. Children are visited nearest first so that a
// nearest-only recorder can prune the farther one.
func (bvh *BVH) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	if bvh.Root == nil {
		return
	}
	bvh.intersectNode(bvh.Root, ray, recorder)
}

func (bvh *BVH) intersectNode(node *BVHNode, ray core.Ray, recorder IntersectionRecorder) {
	span := node.BoundingBox.RayInterval(ray).Intersect(recorder.Interval())
	if span.IsEmpty() {
		return
	}

	if node.Primitives != nil {
		for _, index := range node.Primitives {
			bvh.element.IntersectPrimitive(index, ray, recorder)
		}
		return
	}

	first, second := node.Left, node.Right
	if second.BoundingBox.RayInterval(ray).Min < first.BoundingBox.RayInterval(ray).Min {
		first, second = second, first
	}
	bvh.intersectNode(first, ray, recorder)
	bvh.intersectNode(second, ray, recorder)
}

// BoundingBox returns the overall bounding box of the BVH
func (bvh *BVH) BoundingBox() core.AABB {
	if bvh.Root == nil {
		return core.EmptyAABB
	}
	return bvh.Root.BoundingBox
}

// getStats returns statistics about the BVH structure
func (bvh *BVH) getStats() bvhStats {
	if bvh.Root == nil {
		return bvhStats{}
	}

	stats := bvhStats{}
	bvh.collectStats(bvh.Root, 0, &stats)

	if stats.leafNodes > 0 {
		stats.avgDepth = stats.avgDepth / float64(stats.leafNodes)
	}

	return stats
}

// bvhStats contains statistics about the BVH structure
type bvhStats struct {
	totalNodes      int
	leafNodes       int
	maxDepth        int
	avgDepth        float64
	totalPrimitives int
}

// collectStats recursively collects statistics about the BVH
func (bvh *BVH) collectStats(node *BVHNode, depth int, stats *bvhStats) {
	stats.totalNodes++

	if depth > stats.maxDepth {
		stats.maxDepth = depth
	}

	if node.Primitives != nil {
		stats.leafNodes++
		stats.totalPrimitives += len(node.Primitives)
		stats.avgDepth += float64(depth)
		return
	}
	bvh.collectStats(node.Left, depth+1, stats)
	bvh.collectStats(node.Right, depth+1, stats)
}
