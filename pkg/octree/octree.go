// Package octree implements a spatial subdivision over items with extent.
// Items are referenced from every leaf cell their surface may pass
// through, and rays walk the leaves front to back.
package octree

import (
	"slices"
	"sort"
	"sync"

	"github.com/df07/go-intersect/pkg/core"
)

const (
	// DefaultMaxDepth is the default number of subdivision levels
	DefaultMaxDepth = 8

	// DefaultLeafCapacity is the default item count below which a cell is
	// not subdivided
	DefaultLeafCapacity = 8
)

// Item is anything that can report whether its surface may pass through a
// box. False positives only cost time; false negatives lose hits.
type Item interface {
	SurfaceMayIntersect(box core.AABB) bool
}

// Visitor is called for each item in a leaf cell the ray passes through,
// with the range of ray parameters spanned by that cell. Returning false
// aborts the traversal: no further item or cell is visited.
type Visitor[T Item] func(item T, cell core.Interval) bool

// emptyNode is the arena index of the shared empty leaf
const emptyNode = 0

type node struct {
	children [8]int32
	items    []int32
	leaf     bool
}

// Octree subdivides a fixed box over its items. Traversals are safe for
// concurrent use; Add is not, and must not overlap a traversal.
type Octree[T Item] struct {
	items        []T
	nodes        []node
	root         int32
	bounds       core.AABB
	maxDepth     int
	leafCapacity int
	visits       sync.Pool
}

// New builds an octree over items within bounds. Items whose surface does
// not pass through bounds are not referenced. Non-positive maxDepth or
// leafCapacity select the defaults.
func New[T Item](items []T, bounds core.AABB, maxDepth, leafCapacity int) *Octree[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if leafCapacity <= 0 {
		leafCapacity = DefaultLeafCapacity
	}

	o := &Octree[T]{
		items:        slices.Clip(items),
		nodes:        []node{{leaf: true}},
		bounds:       bounds,
		maxDepth:     maxDepth,
		leafCapacity: leafCapacity,
	}
	o.visits.New = func() any {
		return &visitSet{marks: make([]uint32, len(o.items))}
	}

	if bounds.IsEmpty() || !bounds.IsFinite() {
		o.root = emptyNode
		return o
	}

	var indices []int32
	for i, item := range items {
		if item.SurfaceMayIntersect(bounds) {
			indices = append(indices, int32(i))
		}
	}
	o.root = o.build(bounds, indices, 0)
	return o
}

// Add inserts one item, splitting leaves that grow past the leaf capacity
// until the depth limit. It reports whether the item's surface passes
// through the bounds; an item outside them is kept but never visited.
func (o *Octree[T]) Add(item T) bool {
	index := int32(len(o.items))
	o.items = append(o.items, item)
	if o.bounds.IsEmpty() || !o.bounds.IsFinite() || !item.SurfaceMayIntersect(o.bounds) {
		return false
	}
	o.root = o.insert(o.root, o.bounds, index, 0)
	return true
}

func (o *Octree[T]) insert(id int32, box core.AABB, index int32, depth int) int32 {
	if id == emptyNode {
		return o.leaf([]int32{index})
	}

	if o.nodes[id].leaf {
		o.nodes[id].items = append(o.nodes[id].items, index)
		if len(o.nodes[id].items) > o.leafCapacity && depth < o.maxDepth {
			o.split(id, box, depth)
		}
		return id
	}

	for i := 0; i < 8; i++ {
		sub := box.Octant(i)
		if o.items[index].SurfaceMayIntersect(sub) {
			child := o.insert(o.nodes[id].children[i], sub, index, depth+1)
			o.nodes[id].children[i] = child
		}
	}
	return id
}

func (o *Octree[T]) build(box core.AABB, indices []int32, depth int) int32 {
	if len(indices) == 0 {
		return emptyNode
	}
	id := o.leaf(indices)
	if len(indices) > o.leafCapacity && depth < o.maxDepth {
		o.split(id, box, depth)
	}
	return id
}

// split turns leaf id into an internal node and distributes its items over
// the octants they may pass through. The leaf is kept when every item
// spans every octant, since subdividing would only multiply references.
func (o *Octree[T]) split(id int32, box core.AABB, depth int) {
	indices := o.nodes[id].items

	var octants [8][]int32
	progress := false
	for i := range octants {
		sub := box.Octant(i)
		for _, index := range indices {
			if o.items[index].SurfaceMayIntersect(sub) {
				octants[i] = append(octants[i], index)
			}
		}
		if len(octants[i]) < len(indices) {
			progress = true
		}
	}
	if !progress {
		return
	}

	o.nodes[id] = node{}
	for i := range octants {
		child := o.build(box.Octant(i), octants[i], depth+1)
		o.nodes[id].children[i] = child
	}
}

func (o *Octree[T]) leaf(indices []int32) int32 {
	id := int32(len(o.nodes))
	o.nodes = append(o.nodes, node{items: indices, leaf: true})
	return id
}

// Bounds returns the box the tree subdivides
func (o *Octree[T]) Bounds() core.AABB {
	return o.bounds
}

// Len returns the number of items added to the tree
func (o *Octree[T]) Len() int {
	return len(o.items)
}

// visitSet marks items already handed to the visitor during one traversal.
// An item is visited when its mark equals the current stamp.
type visitSet struct {
	stamp uint32
	marks []uint32
}

func (v *visitSet) next() {
	v.stamp++
	if v.stamp == 0 {
		clear(v.marks)
		v.stamp = 1
	}
}

// Traverse walks the leaves pierced by the ray within interval, nearest
// first, calling visit once per item even when the item is referenced from
// several leaves. It reports whether the walk ran to completion.
func (o *Octree[T]) Traverse(ray core.Ray, interval core.Interval, visit Visitor[T]) bool {
	if o.root == emptyNode {
		return true
	}
	span := o.bounds.RayInterval(ray).Intersect(interval)
	if span.IsEmpty() {
		return true
	}

	visited := o.visits.Get().(*visitSet)
	defer o.visits.Put(visited)
	if grow := len(o.items) - len(visited.marks); grow > 0 {
		visited.marks = append(visited.marks, make([]uint32, grow)...)
	}
	visited.next()

	return o.traverse(o.root, o.bounds, ray, span, visited, visit)
}

func (o *Octree[T]) traverse(id int32, box core.AABB, ray core.Ray, span core.Interval, visited *visitSet, visit Visitor[T]) bool {
	if id == emptyNode {
		return true
	}
	n := &o.nodes[id]

	if n.leaf {
		for _, index := range n.items {
			if visited.marks[index] == visited.stamp {
				continue
			}
			visited.marks[index] = visited.stamp
			if !visit(o.items[index], span) {
				return false
			}
		}
		return true
	}

	// Split the span at the ray's crossings of the three mid planes; each
	// piece lies within exactly one octant
	mid := box.Center()
	cuts := make([]float64, 0, 5)
	cuts = append(cuts, span.Min)
	for axis := 0; axis < 3; axis++ {
		d := ray.Direction.Axis(axis)
		if d == 0 {
			continue
		}
		t := (mid.Axis(axis) - ray.Origin.Axis(axis)) / d
		if t > span.Min && t < span.Max {
			cuts = append(cuts, t)
		}
	}
	cuts = append(cuts, span.Max)
	sort.Float64s(cuts)

	for i := 0; i+1 < len(cuts); i++ {
		t0, t1 := cuts[i], cuts[i+1]
		if t1 <= t0 && len(cuts) > 2 {
			continue
		}
		p := ray.At((t0 + t1) * 0.5)
		octant := 0
		for axis := 0; axis < 3; axis++ {
			if p.Axis(axis) >= mid.Axis(axis) {
				octant |= 1 << axis
			}
		}
		child := n.children[octant]
		if !o.traverse(child, box.Octant(octant), ray, core.Interval{Min: t0, Max: t1}, visited, visit) {
			return false
		}
	}
	return true
}

// Stats describes the shape of a built tree
type Stats struct {
	Nodes          int
	Leaves         int
	EmptyLeaves    int
	MaxDepth       int
	ItemReferences int
}

// Stats walks the tree and returns its statistics
func (o *Octree[T]) Stats() Stats {
	var stats Stats
	o.collectStats(o.root, 0, &stats)
	return stats
}

func (o *Octree[T]) collectStats(id int32, depth int, stats *Stats) {
	if id == emptyNode {
		stats.EmptyLeaves++
		return
	}
	n := &o.nodes[id]
	stats.Nodes++
	if depth > stats.MaxDepth {
		stats.MaxDepth = depth
	}
	if n.leaf {
		stats.Leaves++
		stats.ItemReferences += len(n.items)
		return
	}
	for _, child := range n.children {
		o.collectStats(child, depth+1, stats)
	}
}
