// Package transform provides invertible affine transformations with the
// forward and inverse matrices accumulated side by side.
package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/core"
)

// ErrDegenerate is returned when an accumulation step would make the
// transform non-invertible
var ErrDegenerate = errors.New("transform: degenerate transformation")

// Affine is an invertible affine transformation. Every accumulation call
// composes onto the forward matrix and applies the matching inverse to the
// inverse matrix, so the inverse is never recomputed per query.
//
// The zero value is not ready for use; create one with New. Affine is not
// safe for concurrent mutation.
type Affine struct {
	forward  mgl64.Mat4
	inverse  mgl64.Mat4
	identity bool
}

// New returns the identity transformation
func New() *Affine {
	return &Affine{
		forward:  mgl64.Ident4(),
		inverse:  mgl64.Ident4(),
		identity: true,
	}
}

// Reset returns the transformation to the identity
func (a *Affine) Reset() {
	a.forward = mgl64.Ident4()
	a.inverse = mgl64.Ident4()
	a.identity = true
}

// IsIdentity reports whether no transformation has been accumulated since
// construction or the last Reset
func (a *Affine) IsIdentity() bool {
	return a.identity
}

// Forward returns the accumulated forward matrix (column-major)
func (a *Affine) Forward() mgl64.Mat4 {
	return a.forward
}

// Inverse returns the accumulated inverse matrix (column-major)
func (a *Affine) Inverse() mgl64.Mat4 {
	return a.inverse
}

// Determinant returns the determinant of the linear part. A negative
// value means the transformation mirrors space.
func (a *Affine) Determinant() float64 {
	return a.forward.Det()
}

// accumulate applies m after the current transformation, with inv its
// precomputed inverse
func (a *Affine) accumulate(m, inv mgl64.Mat4) {
	a.forward = m.Mul4(a.forward)
	a.inverse = a.inverse.Mul4(inv)
	a.identity = false
}

// Translate moves space by v
func (a *Affine) Translate(v core.Vec3) {
	a.accumulate(mgl64.Translate3D(v.X, v.Y, v.Z), mgl64.Translate3D(-v.X, -v.Y, -v.Z))
}

// RotateX rotates about the X axis by angle radians
func (a *Affine) RotateX(angle float64) {
	a.accumulate(mgl64.HomogRotate3DX(angle), mgl64.HomogRotate3DX(-angle))
}

// RotateY rotates about the Y axis by angle radians
func (a *Affine) RotateY(angle float64) {
	a.accumulate(mgl64.HomogRotate3DY(angle), mgl64.HomogRotate3DY(-angle))
}

// RotateZ rotates about the Z axis by angle radians
func (a *Affine) RotateZ(angle float64) {
	a.accumulate(mgl64.HomogRotate3DZ(angle), mgl64.HomogRotate3DZ(-angle))
}

// Rotate rotates about an arbitrary axis through the origin by angle radians
func (a *Affine) Rotate(axis core.Vec3, angle float64) error {
	if axis.LengthSquared() == 0 || !axis.IsFinite() {
		return errors.Wrapf(ErrDegenerate, "rotation axis %v", axis)
	}
	n := axis.Normalize()
	v := mgl64.Vec3{n.X, n.Y, n.Z}
	a.accumulate(mgl64.HomogRotate3D(angle, v), mgl64.HomogRotate3D(-angle, v))
	return nil
}

// Scale scales uniformly by s
func (a *Affine) Scale(s float64) error {
	return a.Stretch(core.NewVec3(s, s, s))
}

// Stretch scales by independent factors along each axis
func (a *Affine) Stretch(v core.Vec3) error {
	if v.X == 0 || v.Y == 0 || v.Z == 0 || !v.IsFinite() {
		return errors.Wrapf(ErrDegenerate, "scale factors %v", v)
	}
	a.accumulate(mgl64.Scale3D(v.X, v.Y, v.Z), mgl64.Scale3D(1/v.X, 1/v.Y, 1/v.Z))
	return nil
}

// Apply composes an arbitrary affine matrix onto the transformation. The
// matrix must have (0, 0, 0, 1) as its bottom row and be invertible.
func (a *Affine) Apply(m mgl64.Mat4) error {
	// Column-major: the bottom row is elements 3, 7, 11, 15
	if m[3] != 0 || m[7] != 0 || m[11] != 0 || m[15] != 1 {
		return errors.Wrap(ErrDegenerate, "matrix is not affine")
	}
	det := m.Det()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return errors.Wrapf(ErrDegenerate, "matrix determinant %g", det)
	}
	inv := m.Inv()
	for _, x := range inv {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errors.Wrap(ErrDegenerate, "matrix inverse is not finite")
		}
	}
	a.accumulate(m, inv)
	return nil
}

// Compose applies another transformation after this one
func (a *Affine) Compose(other *Affine) {
	if other.identity {
		return
	}
	a.accumulate(other.forward, other.inverse)
}

// Clone returns an independent copy of the transformation
func (a *Affine) Clone() *Affine {
	c := *a
	return &c
}

func mulPoint(m mgl64.Mat4, p core.Vec3) core.Vec3 {
	r := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return core.Vec3{X: r[0], Y: r[1], Z: r[2]}
}

func mulVector(m mgl64.Mat4, v core.Vec3) core.Vec3 {
	r := m.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 0})
	return core.Vec3{X: r[0], Y: r[1], Z: r[2]}
}

// Point applies the transformation to a point
func (a *Affine) Point(p core.Vec3) core.Vec3 {
	if a.identity {
		return p
	}
	return mulPoint(a.forward, p)
}

// Vector applies the linear part of the transformation to a direction
func (a *Affine) Vector(v core.Vec3) core.Vec3 {
	if a.identity {
		return v
	}
	return mulVector(a.forward, v)
}

// InversePoint applies the inverse transformation to a point
func (a *Affine) InversePoint(p core.Vec3) core.Vec3 {
	if a.identity {
		return p
	}
	return mulPoint(a.inverse, p)
}

// InverseVector applies the inverse linear part to a direction
func (a *Affine) InverseVector(v core.Vec3) core.Vec3 {
	if a.identity {
		return v
	}
	return mulVector(a.inverse, v)
}

// Normal maps a surface normal with the inverse transpose of the linear
// part and renormalizes it
func (a *Affine) Normal(n core.Vec3) core.Vec3 {
	if a.identity {
		return n
	}
	return mulVector(a.inverse.Transpose(), n).Normalize()
}

// Ray maps a ray into the transformed space. The direction is not
// renormalized, so ray parameters (and the limit) carry over unchanged.
func (a *Affine) Ray(ray core.Ray) core.Ray {
	if a.identity {
		return ray
	}
	return core.Ray{Origin: a.Point(ray.Origin), Direction: a.Vector(ray.Direction), Limit: ray.Limit}
}

// InverseRay maps a ray back through the inverse transformation
func (a *Affine) InverseRay(ray core.Ray) core.Ray {
	if a.identity {
		return ray
	}
	return core.Ray{Origin: a.InversePoint(ray.Origin), Direction: a.InverseVector(ray.Direction), Limit: ray.Limit}
}

// Box returns the axis-aligned box of the eight transformed corners
func (a *Affine) Box(box core.AABB) core.AABB {
	if a.identity {
		return box
	}
	return boxThrough(a.forward, box)
}

// InverseBox returns the axis-aligned box of the eight corners mapped back
// through the inverse transformation
func (a *Affine) InverseBox(box core.AABB) core.AABB {
	if a.identity {
		return box
	}
	return boxThrough(a.inverse, box)
}

func boxThrough(m mgl64.Mat4, box core.AABB) core.AABB {
	if box.IsEmpty() {
		return box
	}
	if !box.IsFinite() {
		return core.InfiniteAABB
	}
	result := core.EmptyAABB
	for _, c := range box.Corners() {
		p := mulPoint(m, c)
		result.Min = result.Min.Min(p)
		result.Max = result.Max.Max(p)
	}
	return result
}

// Sphere returns a sphere enclosing the transformed sphere. The radius is
// scaled by the Frobenius norm of the linear part, which bounds its
// largest stretch.
func (a *Affine) Sphere(s core.BoundingSphere) core.BoundingSphere {
	if a.identity || s.IsEmpty() {
		return s
	}
	var norm float64
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			v := a.forward.At(row, col)
			norm += v * v
		}
	}
	return core.BoundingSphere{Center: a.Point(s.Center), Radius: s.Radius * math.Sqrt(norm)}
}
