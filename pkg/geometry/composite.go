package geometry

import (
	"sort"

	"github.com/df07/go-intersect/pkg/core"
)

// Composite is the flat union of its children. Its primitives are the
// children's primitives laid end to end: child c owns the global indices
// [offsets[c], offsets[c+1]). Intersections coming back from a child are
// re-wrapped so callers see global primitive indices.
//
// Children may be added until the composite is first shared for
// intersection; after that it must not be modified.
type Composite struct {
	children []SceneElement
	offsets  []int // offsets[0] = 0, offsets[i+1] = offsets[i] + children[i].NumPrimitives()
}

// NewComposite creates a composite from the given children
func NewComposite(children ...SceneElement) *Composite {
	c := &Composite{offsets: []int{0}}
	for _, child := range children {
		c.AddChild(child)
	}
	return c
}

// AddChild appends a child and returns the composite for chaining
func (c *Composite) AddChild(child SceneElement) *Composite {
	c.children = append(c.children, child)
	c.offsets = append(c.offsets, c.offsets[len(c.offsets)-1]+child.NumPrimitives())
	return c
}

// Children returns the child elements
func (c *Composite) Children() []SceneElement {
	return c.children
}

// NumPrimitives returns the total primitive count of all children
func (c *Composite) NumPrimitives() int {
	return c.offsets[len(c.offsets)-1]
}

// Resolve maps a global primitive index to the owning child and the index
// local to that child
func (c *Composite) Resolve(index int) (child, local int) {
	CheckIndex(index, c.NumPrimitives())

	// upper_bound(offsets, index) - 1; children with no primitives produce
	// repeated offsets and are skipped
	child = sort.Search(len(c.offsets), func(i int) bool { return c.offsets[i] > index }) - 1
	return child, index - c.offsets[child]
}

// Intersect intersects every child
func (c *Composite) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	for i, child := range c.children {
		child.Intersect(ray, c.childRecorder(i, recorder))
	}
}

// IntersectPrimitive delegates to the child owning the primitive
func (c *Composite) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	child, local := c.Resolve(index)
	c.children[child].IntersectPrimitive(local, ray, c.childRecorder(child, recorder))
}

func (c *Composite) childRecorder(child int, recorder IntersectionRecorder) IntersectionRecorder {
	offset := c.offsets[child]
	if offset == 0 {
		return recorder
	}
	return NewDecoratingRecorder(recorder, func(x Intersection) Intersection {
		return withIndexOffset(x, offset)
	})
}

// BoundingBox returns the union of the children's boxes
func (c *Composite) BoundingBox() core.AABB {
	box := core.EmptyAABB
	for _, child := range c.children {
		box = box.Union(child.BoundingBox())
	}
	return box
}

// BoundingSphere returns a sphere enclosing the children's spheres
func (c *Composite) BoundingSphere() core.BoundingSphere {
	sphere := core.EmptySphere
	for _, child := range c.children {
		sphere = sphere.Union(child.BoundingSphere())
	}
	return sphere
}

// PrimitiveBoundingBox delegates to the owning child
func (c *Composite) PrimitiveBoundingBox(index int) core.AABB {
	child, local := c.Resolve(index)
	return c.children[child].PrimitiveBoundingBox(local)
}

// PrimitiveBoundingSphere delegates to the owning child
func (c *Composite) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	child, local := c.Resolve(index)
	return c.children[child].PrimitiveBoundingSphere(local)
}

// PrimitiveIntersectsBox delegates to the owning child
func (c *Composite) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	child, local := c.Resolve(index)
	return c.children[child].PrimitiveIntersectsBox(local, box)
}
