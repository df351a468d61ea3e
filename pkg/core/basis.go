package core

import "math"

// Basis is a right-handed orthonormal frame. W is the surface normal for
// shading frames; U and V span the tangent plane.
type Basis struct {
	U, V, W Vec3
}

// StandardBasis is the world X, Y, Z frame
var StandardBasis = Basis{
	U: Vec3{1, 0, 0},
	V: Vec3{0, 1, 0},
	W: Vec3{0, 0, 1},
}

// NewBasisFromW builds a frame around w, choosing an arbitrary tangent
func NewBasisFromW(w Vec3) Basis {
	w = w.Normalize()

	// Find a vector not parallel to w
	var nt Vec3
	if math.Abs(w.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}

	u := nt.Cross(w).Normalize()
	v := w.Cross(u)
	return Basis{U: u, V: v, W: w}
}

// NewBasisFromWU builds a frame around w whose U axis is the projection of
// u onto the plane normal to w. Falls back to NewBasisFromW when u is
// parallel to w.
func NewBasisFromWU(w, u Vec3) Basis {
	w = w.Normalize()
	u = u.Subtract(w.Multiply(u.Dot(w)))
	if u.LengthSquared() < Epsilon*Epsilon {
		return NewBasisFromW(w)
	}
	u = u.Normalize()
	return Basis{U: u, V: w.Cross(u), W: w}
}

// NewBasisFromUV builds a frame from two in-plane vectors. W is the
// normalized cross product; U keeps the direction of u and V is rebuilt
// orthogonal to both.
func NewBasisFromUV(u, v Vec3) Basis {
	w := u.Cross(v).Normalize()
	u = u.Normalize()
	return Basis{U: u, V: w.Cross(u), W: w}
}

// Flip returns the frame seen from the other side of the surface
func (b Basis) Flip() Basis {
	return Basis{U: b.V, V: b.U, W: b.W.Negate()}
}

// ToWorld maps local frame coordinates to world space
func (b Basis) ToWorld(local Vec3) Vec3 {
	return b.U.Multiply(local.X).Add(b.V.Multiply(local.Y)).Add(b.W.Multiply(local.Z))
}

// ToLocal maps a world space vector to frame coordinates
func (b Basis) ToLocal(v Vec3) Vec3 {
	return Vec3{X: v.Dot(b.U), Y: v.Dot(b.V), Z: v.Dot(b.W)}
}
