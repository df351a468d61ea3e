package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertOrthonormal(t *testing.T, b Basis) {
	t.Helper()
	assert.InDelta(t, 1.0, b.U.Length(), 1e-9)
	assert.InDelta(t, 1.0, b.V.Length(), 1e-9)
	assert.InDelta(t, 1.0, b.W.Length(), 1e-9)
	assert.InDelta(t, 0.0, b.U.Dot(b.V), 1e-9)
	assert.InDelta(t, 0.0, b.U.Dot(b.W), 1e-9)
	assert.InDelta(t, 0.0, b.V.Dot(b.W), 1e-9)
	assert.True(t, b.U.Cross(b.V).ApproxEqual(b.W, 1e-9), "frame must be right-handed")
}

func TestBasis_Constructors(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1), NewVec3(1, 0, 0), NewVec3(0, -1, 0), NewVec3(1, 2, 3),
	}
	for _, n := range normals {
		b := NewBasisFromW(n)
		assertOrthonormal(t, b)
		assert.True(t, b.W.ApproxEqual(n.Normalize(), 1e-12))
	}

	b := NewBasisFromWU(NewVec3(0, 0, 2), NewVec3(1, 0, 0.5))
	assertOrthonormal(t, b)
	assert.True(t, b.U.ApproxEqual(NewVec3(1, 0, 0), 1e-12))

	parallel := NewBasisFromWU(NewVec3(0, 0, 1), NewVec3(0, 0, 3))
	assertOrthonormal(t, parallel)

	uv := NewBasisFromUV(NewVec3(2, 0, 0), NewVec3(1, 1, 0))
	assertOrthonormal(t, uv)
	assert.True(t, uv.W.ApproxEqual(NewVec3(0, 0, 1), 1e-12))
}

func TestBasis_FlipStaysRightHanded(t *testing.T) {
	b := NewBasisFromW(NewVec3(1, 1, 0)).Flip()
	assertOrthonormal(t, b)
	assert.True(t, b.W.ApproxEqual(NewVec3(-1, -1, 0).Normalize(), 1e-12))
}

func TestBasis_LocalWorldRoundTrip(t *testing.T) {
	b := NewBasisFromW(NewVec3(0.3, -0.4, 0.9))
	v := NewVec3(1, 2, 3)
	assert.True(t, b.ToWorld(b.ToLocal(v)).ApproxEqual(v, 1e-12))
}
