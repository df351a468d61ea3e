package geometry

import "github.com/df07/go-intersect/pkg/core"

// Intersection is a single ray/surface crossing. Only the distance,
// tolerance and facing are computed eagerly; the remaining surface
// attributes are produced on demand by PrepareShadingContext, since most
// recorded intersections are discarded before anyone looks at them.
//
// Intersections are immutable. Decorators wrap an inner intersection and
// override only what they change.
type Intersection interface {
	// Distance is the ray parameter of the crossing
	Distance() float64

	// Tolerance is the numerical uncertainty of Distance
	Tolerance() float64

	// Front reports whether the ray crosses from outside to inside
	Front() bool

	// PrepareShadingContext writes the surface attributes at the crossing
	PrepareShadingContext(ctx ShadingContext)
}

// ShadingContext receives the geometric attributes of a hit. It is owned
// by the shading layer; the geometry core only calls its setters.
type ShadingContext interface {
	SetPosition(p core.Vec3)
	SetNormal(n core.Vec3) // outward geometric normal
	SetBasis(b core.Basis)
	SetShadingBasis(b core.Basis)
	SetTangent(t core.Vec3)
	SetUV(uv core.Vec2)
	SetPrimitiveIndex(index int)
}

// SurfaceContext is a plain ShadingContext that stores what it is given
type SurfaceContext struct {
	Position       core.Vec3
	Normal         core.Vec3
	Basis          core.Basis
	ShadingBasis   core.Basis
	Tangent        core.Vec3
	UV             core.Vec2
	PrimitiveIndex int
}

func (s *SurfaceContext) SetPosition(p core.Vec3)      { s.Position = p }
func (s *SurfaceContext) SetNormal(n core.Vec3)        { s.Normal = n }
func (s *SurfaceContext) SetBasis(b core.Basis)        { s.Basis = b }
func (s *SurfaceContext) SetShadingBasis(b core.Basis) { s.ShadingBasis = b }
func (s *SurfaceContext) SetTangent(t core.Vec3)       { s.Tangent = t }
func (s *SurfaceContext) SetUV(uv core.Vec2)           { s.UV = uv }
func (s *SurfaceContext) SetPrimitiveIndex(index int)  { s.PrimitiveIndex = index }

// Surface evaluates an intersection into a fresh SurfaceContext
func Surface(x Intersection) SurfaceContext {
	var ctx SurfaceContext
	x.PrepareShadingContext(&ctx)
	return ctx
}

// hit holds the eagerly computed part of a primitive intersection
type hit struct {
	distance  float64
	tolerance float64
	front     bool
}

func newHit(t float64, front bool) hit {
	return hit{distance: t, tolerance: core.Tolerance(t), front: front}
}

func (h hit) Distance() float64  { return h.distance }
func (h hit) Tolerance() float64 { return h.tolerance }
func (h hit) Front() bool        { return h.front }

// setSurface writes a complete set of attributes for a surface point with
// the given outward normal and tangent direction
func setSurface(ctx ShadingContext, position, normal, tangent core.Vec3, uv core.Vec2, index int) {
	basis := core.NewBasisFromWU(normal, tangent)
	ctx.SetPosition(position)
	ctx.SetNormal(basis.W)
	ctx.SetBasis(basis)
	ctx.SetShadingBasis(basis)
	ctx.SetTangent(basis.U)
	ctx.SetUV(uv)
	ctx.SetPrimitiveIndex(index)
}

// indexedIntersection shifts the primitive index reported by an inner
// intersection, mapping a child's local index to its parent's index space
type indexedIntersection struct {
	Intersection
	offset int
}

func (x indexedIntersection) PrepareShadingContext(ctx ShadingContext) {
	x.Intersection.PrepareShadingContext(offsetContext{ShadingContext: ctx, offset: x.offset})
}

type offsetContext struct {
	ShadingContext
	offset int
}

func (c offsetContext) SetPrimitiveIndex(index int) {
	c.ShadingContext.SetPrimitiveIndex(index + c.offset)
}

// withIndexOffset wraps x so its primitive index is shifted by offset
func withIndexOffset(x Intersection, offset int) Intersection {
	if offset == 0 {
		return x
	}
	return indexedIntersection{Intersection: x, offset: offset}
}

// fixedIndexContext overrides whatever primitive index the inner
// intersection reports
type fixedIndexContext struct {
	ShadingContext
	index int
}

func (c fixedIndexContext) SetPrimitiveIndex(int) {
	c.ShadingContext.SetPrimitiveIndex(c.index)
}
