package geometry

import (
	"math"
	"sort"

	"github.com/df07/go-intersect/pkg/core"
)

type csgKind int

const (
	csgCustom csgKind = iota
	csgUnion
	csgIntersection
	csgSubtraction
)

// CSG is a solid built by boolean combination of child solids. The
// children are treated as whole volumes, so the CSG node is a single
// primitive regardless of how many primitives its children have.
//
// Any boolean combination is evaluated by the same sweep: crossings with
// every child are sorted along the ray while a membership vector tracks
// which children contain the current point. Wherever the predicate
// changes value the ray crosses the surface of the combined solid.
type CSG struct {
	primitive
	children []SceneElement
	isInside Predicate
	kind     csgKind
}

// NewCSG combines children with an arbitrary membership predicate
func NewCSG(isInside Predicate, children ...SceneElement) *CSG {
	return newCSG(csgCustom, isInside, children)
}

// NewUnion returns the solid inside any of the children
func NewUnion(children ...SceneElement) *CSG {
	return newCSG(csgUnion, UnionPredicate, children)
}

// NewIntersection returns the solid inside all of the children
func NewIntersection(children ...SceneElement) *CSG {
	return newCSG(csgIntersection, IntersectionPredicate, children)
}

// NewSubtraction returns the part of the first child outside all others
func NewSubtraction(children ...SceneElement) *CSG {
	return newCSG(csgSubtraction, SubtractionPredicate, children)
}

func newCSG(kind csgKind, isInside Predicate, children []SceneElement) *CSG {
	g := &CSG{
		children: append([]SceneElement(nil), children...),
		isInside: isInside,
		kind:     kind,
	}
	g.primitive = primitive{self: g}
	return g
}

// Children returns the operands
func (g *CSG) Children() []SceneElement {
	return g.children
}

type crossing struct {
	x     Intersection
	child int
}

// Intersect records the boundary crossings of the combined solid
func (g *CSG) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	n := len(g.children)
	if n == 0 {
		return
	}

	// Every crossing from the origin outward, past the ray limit, so that
	// unmatched exits reveal which children contain the origin
	collect := core.Interval{Min: 0, Max: math.Inf(1)}
	var crossings []crossing
	for i, child := range g.children {
		all := NewCollectAllRecorder(collect)
		child.Intersect(ray, all)
		for _, x := range all.Intersections() {
			crossings = append(crossings, crossing{x: x, child: i})
		}
	}
	if len(crossings) == 0 {
		return
	}
	sort.SliceStable(crossings, func(i, j int) bool {
		return crossings[i].x.Distance() < crossings[j].x.Distance()
	})

	depth := g.originDepth(ray, crossings)
	inside := NewMembership(n)
	for i, d := range depth {
		inside.Set(i, d > 0)
	}

	state := g.isInside(inside)
	toggled := NewMembership(n)

	for i := 0; i < len(crossings); {
		// Crossings within each other's tolerance form a single event
		distance := crossings[i].x.Distance()
		groupEnd := distance + crossings[i].x.Tolerance()
		j := i + 1
		for j < len(crossings) && crossings[j].x.Distance() <= groupEnd {
			groupEnd = math.Max(groupEnd, crossings[j].x.Distance()+crossings[j].x.Tolerance())
			j++
		}

		// A child is inside while it has more entries than exits behind the
		// point, so that overlapping parts of one child do not count as
		// boundaries of that child
		group := crossings[i:j]
		for _, c := range group {
			if c.x.Front() {
				depth[c.child]++
			} else if depth[c.child] > 0 {
				depth[c.child]--
			}
		}
		for _, c := range group {
			if now := depth[c.child] > 0; now != inside.Test(c.child) {
				inside.Set(c.child, now)
				toggled.Set(c.child, true)
			}
		}

		next := g.isInside(inside)
		if next != state {
			rep := representative(group, toggled, next)
			recorder.Record(&csgHit{
				Intersection: rep.x,
				front:        next,
				flip:         rep.x.Front() != next,
			})
		}
		for _, c := range group {
			toggled.Set(c.child, false)
		}
		state = next
		i = j

		// Nothing farther can be accepted by a nearest-only recorder
		if !recorder.NeedAllIntersections() && recorder.Interval().Max <= distance {
			return
		}
	}
}

// originDepth returns, per child, how many overlapping parts of the child
// contain the ray origin. Exits ahead without a matching entry give a lower
// bound; children that can classify points are asked directly, which is
// the only source for a child with no crossing ahead. A child whose
// surface passes through the origin is left to its crossings.
func (g *CSG) originDepth(ray core.Ray, crossings []crossing) []int {
	n := len(g.children)
	depth := make([]int, n)
	balance := make([]int, n)
	seen := NewMembership(n)
	onSurface := NewMembership(n)
	for _, c := range crossings {
		if !seen.Test(c.child) {
			seen.Set(c.child, true)
			onSurface.Set(c.child, c.x.Distance() <= c.x.Tolerance())
		}
		if c.x.Front() {
			balance[c.child]++
		} else {
			balance[c.child]--
			depth[c.child] = max(depth[c.child], -balance[c.child])
		}
	}

	for i, child := range g.children {
		if onSurface.Test(i) {
			continue
		}
		if count, ok := containment(child, ray.Origin); ok {
			depth[i] = max(depth[i], count)
		}
	}
	return depth
}

// representative picks the crossing that stands for an event: one from a
// child whose state actually changed, preferring one already facing the
// way the combined surface does
func representative(group []crossing, toggled Membership, front bool) crossing {
	var fallback *crossing
	for i := range group {
		c := &group[i]
		if !toggled.Test(c.child) {
			continue
		}
		if c.x.Front() == front {
			return *c
		}
		if fallback == nil {
			fallback = c
		}
	}
	if fallback != nil {
		return *fallback
	}
	return group[0]
}

// BoundingBox bounds the combined solid. Union bounds all children;
// subtraction and intersection can only shrink the first operand.
func (g *CSG) BoundingBox() core.AABB {
	if len(g.children) == 0 {
		return core.EmptyAABB
	}
	switch g.kind {
	case csgIntersection, csgSubtraction:
		return g.children[0].BoundingBox()
	}
	box := core.EmptyAABB
	for _, child := range g.children {
		box = box.Union(child.BoundingBox())
	}
	return box
}

// BoundingSphere bounds the combined solid, following BoundingBox
func (g *CSG) BoundingSphere() core.BoundingSphere {
	if len(g.children) == 0 {
		return core.EmptySphere
	}
	switch g.kind {
	case csgIntersection, csgSubtraction:
		return g.children[0].BoundingSphere()
	}
	sphere := core.EmptySphere
	for _, child := range g.children {
		sphere = sphere.Union(child.BoundingSphere())
	}
	return sphere
}

// Contains classifies a point using the children's own classification.
// It panics if a child cannot classify points.
func (g *CSG) Contains(p core.Vec3) bool {
	inside, ok := g.classify(p)
	if !ok {
		panic("geometry: CSG child cannot classify points")
	}
	return inside
}

func (g *CSG) classify(p core.Vec3) (inside, ok bool) {
	members := NewMembership(len(g.children))
	for i, child := range g.children {
		count, known := containment(child, p)
		if !known {
			return false, false
		}
		members.Set(i, count > 0)
	}
	return g.isInside(members), true
}

// containment counts the parts of e that contain p: zero or one for a
// solid, the sum over children for a composite, whose children may
// overlap. It reports false when e cannot classify points.
func containment(e SceneElement, p core.Vec3) (int, bool) {
	switch v := e.(type) {
	case *Composite:
		total := 0
		for _, child := range v.children {
			count, known := containment(child, p)
			if !known {
				return 0, false
			}
			total += count
		}
		return total, true
	case *CSG:
		inside, ok := v.classify(p)
		return boolCount(inside), ok
	case *TransformableGeometry:
		return containment(v.child, v.transform.InversePoint(p))
	case *OctreeGeometry:
		return containment(v.element, p)
	case Solid:
		return boolCount(v.Contains(p)), true
	}
	return 0, false
}

func boolCount(b bool) int {
	if b {
		return 1
	}
	return 0
}

// csgHit reports a child crossing as a crossing of the combined
// solid, reorienting it when the combined solid lies on the other side
type csgHit struct {
	Intersection
	front bool
	flip  bool
}

func (x *csgHit) Front() bool {
	return x.front
}

func (x *csgHit) PrepareShadingContext(ctx ShadingContext) {
	var inner ShadingContext = fixedIndexContext{ShadingContext: ctx, index: 0}
	if x.flip {
		inner = flippedContext{ShadingContext: inner}
	}
	x.Intersection.PrepareShadingContext(inner)
}

// flippedContext turns normals and frames around
type flippedContext struct {
	ShadingContext
}

func (c flippedContext) SetNormal(n core.Vec3)        { c.ShadingContext.SetNormal(n.Negate()) }
func (c flippedContext) SetBasis(b core.Basis)        { c.ShadingContext.SetBasis(b.Flip()) }
func (c flippedContext) SetShadingBasis(b core.Basis) { c.ShadingContext.SetShadingBasis(b.Flip()) }
