package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/transform"
)

// TransformableGeometry places a child element under an affine
// transformation. Rays are mapped into the child's space with the inverse
// transformation and the resulting surface attributes are mapped back.
// Because the local ray direction is not renormalized, ray parameters are
// the same in both spaces and recorder intervals pass through untouched.
//
// The transformation may be modified between intersection passes, not
// during one.
type TransformableGeometry struct {
	child     SceneElement
	transform *transform.Affine
}

// NewTransformable wraps child with an identity transformation
func NewTransformable(child SceneElement) *TransformableGeometry {
	return &TransformableGeometry{child: child, transform: transform.New()}
}

// Child returns the wrapped element
func (g *TransformableGeometry) Child() SceneElement {
	return g.child
}

// Transform returns the current transformation
func (g *TransformableGeometry) Transform() *transform.Affine {
	return g.transform
}

// Translate moves the child by v
func (g *TransformableGeometry) Translate(v core.Vec3) *TransformableGeometry {
	g.transform.Translate(v)
	return g
}

// RotateX rotates the child about the X axis
func (g *TransformableGeometry) RotateX(angle float64) *TransformableGeometry {
	g.transform.RotateX(angle)
	return g
}

// RotateY rotates the child about the Y axis
func (g *TransformableGeometry) RotateY(angle float64) *TransformableGeometry {
	g.transform.RotateY(angle)
	return g
}

// RotateZ rotates the child about the Z axis
func (g *TransformableGeometry) RotateZ(angle float64) *TransformableGeometry {
	g.transform.RotateZ(angle)
	return g
}

// Rotate rotates the child about an arbitrary axis through the origin
func (g *TransformableGeometry) Rotate(axis core.Vec3, angle float64) error {
	return g.transform.Rotate(axis, angle)
}

// Scale scales the child uniformly about the origin
func (g *TransformableGeometry) Scale(s float64) error {
	return g.transform.Scale(s)
}

// Stretch scales the child by a separate factor per axis
func (g *TransformableGeometry) Stretch(v core.Vec3) error {
	return g.transform.Stretch(v)
}

// Apply composes an arbitrary affine matrix onto the transformation
func (g *TransformableGeometry) Apply(m mgl64.Mat4) error {
	return g.transform.Apply(m)
}

// Reset removes every accumulated transformation
func (g *TransformableGeometry) Reset() {
	g.transform.Reset()
}

func (g *TransformableGeometry) NumPrimitives() int {
	return g.child.NumPrimitives()
}

// Intersect intersects the child with the ray mapped into its space
func (g *TransformableGeometry) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	if g.transform.IsIdentity() {
		g.child.Intersect(ray, recorder)
		return
	}
	xf := g.transform.Clone()
	g.child.Intersect(xf.InverseRay(ray), transformingRecorder(xf, recorder))
}

// IntersectPrimitive intersects one child primitive in the child's space
func (g *TransformableGeometry) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	if g.transform.IsIdentity() {
		g.child.IntersectPrimitive(index, ray, recorder)
		return
	}
	xf := g.transform.Clone()
	g.child.IntersectPrimitive(index, xf.InverseRay(ray), transformingRecorder(xf, recorder))
}

func transformingRecorder(xf *transform.Affine, recorder IntersectionRecorder) IntersectionRecorder {
	return NewDecoratingRecorder(recorder, func(x Intersection) Intersection {
		return transformedIntersection{Intersection: x, xf: xf}
	})
}

func (g *TransformableGeometry) BoundingBox() core.AABB {
	return g.transform.Box(g.child.BoundingBox())
}

func (g *TransformableGeometry) BoundingSphere() core.BoundingSphere {
	return g.transform.Sphere(g.child.BoundingSphere())
}

func (g *TransformableGeometry) PrimitiveBoundingBox(index int) core.AABB {
	return g.transform.Box(g.child.PrimitiveBoundingBox(index))
}

func (g *TransformableGeometry) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	return g.transform.Sphere(g.child.PrimitiveBoundingSphere(index))
}

// PrimitiveIntersectsBox tests the child against the box mapped into the
// child's space. The mapped box encloses the true preimage, so the test
// stays conservative.
func (g *TransformableGeometry) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	return g.child.PrimitiveIntersectsBox(index, g.transform.InverseBox(box))
}

// Contains classifies p with the child's classification. It panics if the
// child does not implement Solid.
func (g *TransformableGeometry) Contains(p core.Vec3) bool {
	return g.child.(Solid).Contains(g.transform.InversePoint(p))
}

// transformedIntersection maps the child's surface attributes into world
// space. The distance needs no mapping.
type transformedIntersection struct {
	Intersection
	xf *transform.Affine
}

func (x transformedIntersection) PrepareShadingContext(ctx ShadingContext) {
	x.Intersection.PrepareShadingContext(transformingContext{ShadingContext: ctx, xf: x.xf})
}

type transformingContext struct {
	ShadingContext
	xf *transform.Affine
}

func (c transformingContext) SetPosition(p core.Vec3) {
	c.ShadingContext.SetPosition(c.xf.Point(p))
}

func (c transformingContext) SetNormal(n core.Vec3) {
	c.ShadingContext.SetNormal(c.xf.Normal(n))
}

func (c transformingContext) SetBasis(b core.Basis) {
	c.ShadingContext.SetBasis(c.basis(b))
}

func (c transformingContext) SetShadingBasis(b core.Basis) {
	c.ShadingContext.SetShadingBasis(c.basis(b))
}

func (c transformingContext) SetTangent(t core.Vec3) {
	c.ShadingContext.SetTangent(c.xf.Vector(t).Normalize())
}

// basis maps the in-plane axes and rebuilds the normal from them. The
// cross product of the mapped axes points along the inverse transpose of
// the normal, reversed when the transformation mirrors space.
func (c transformingContext) basis(b core.Basis) core.Basis {
	u := c.xf.Vector(b.U)
	v := c.xf.Vector(b.V)
	w := u.Cross(v)
	if c.xf.Determinant() < 0 {
		w = w.Negate()
	}
	if w.LengthSquared() == 0 || math.IsNaN(w.X) {
		w = c.xf.Normal(b.W)
	}
	return core.NewBasisFromWU(w, u)
}
