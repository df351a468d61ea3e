package transform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/core"
)

func buildSample(t *testing.T) *Affine {
	t.Helper()
	a := New()
	require.NoError(t, a.Stretch(core.NewVec3(2, 0.5, 3)))
	a.RotateY(0.7)
	require.NoError(t, a.Rotate(core.NewVec3(1, 1, 0), -1.1))
	a.Translate(core.NewVec3(4, -2, 1))
	a.RotateX(0.3)
	a.RotateZ(2.1)
	return a
}

func TestAffine_IdentityByDefault(t *testing.T) {
	a := New()
	p := core.NewVec3(1, 2, 3)

	assert.True(t, a.IsIdentity())
	assert.Equal(t, p, a.Point(p))
	assert.Equal(t, p, a.InverseVector(p))
	assert.InDelta(t, 1.0, a.Determinant(), 1e-12)
}

func TestAffine_PointRoundTrip(t *testing.T) {
	a := buildSample(t)
	points := []core.Vec3{
		core.NewVec3(0, 0, 0),
		core.NewVec3(1, -2, 3),
		core.NewVec3(-100, 50, 0.001),
	}

	for _, p := range points {
		assert.True(t, a.InversePoint(a.Point(p)).ApproxEqual(p, 1e-9), "point %v", p)
		assert.True(t, a.Point(a.InversePoint(p)).ApproxEqual(p, 1e-9), "point %v", p)
		assert.True(t, a.InverseVector(a.Vector(p)).ApproxEqual(p, 1e-9), "vector %v", p)
	}
}

func TestAffine_InverseTracksForward(t *testing.T) {
	a := buildSample(t)
	product := a.Forward().Mul4(a.Inverse())
	identity := mgl64.Ident4()
	for i := range product {
		assert.InDelta(t, identity[i], product[i], 1e-9, "element %d", i)
	}
}

func TestAffine_AccumulationOrder(t *testing.T) {
	// Scale first, then translate: the translation is not scaled
	a := New()
	require.NoError(t, a.Scale(2))
	a.Translate(core.NewVec3(1, 0, 0))
	assert.True(t, a.Point(core.NewVec3(1, 0, 0)).ApproxEqual(core.NewVec3(3, 0, 0), 1e-12))

	b := New()
	b.Translate(core.NewVec3(1, 0, 0))
	require.NoError(t, b.Scale(2))
	assert.True(t, b.Point(core.NewVec3(1, 0, 0)).ApproxEqual(core.NewVec3(4, 0, 0), 1e-12))
}

func TestAffine_RotateZQuarterTurn(t *testing.T) {
	a := New()
	a.RotateZ(math.Pi / 2)
	assert.True(t, a.Point(core.NewVec3(1, 0, 0)).ApproxEqual(core.NewVec3(0, 1, 0), 1e-12))
}

func TestAffine_DegenerateRejectedAtAccumulation(t *testing.T) {
	tests := []struct {
		name  string
		apply func(a *Affine) error
	}{
		{"zero uniform scale", func(a *Affine) error { return a.Scale(0) }},
		{"zero axis stretch", func(a *Affine) error { return a.Stretch(core.NewVec3(1, 0, 1)) }},
		{"zero rotation axis", func(a *Affine) error { return a.Rotate(core.Vec3{}, 1) }},
		{"singular matrix", func(a *Affine) error {
			return a.Apply(mgl64.Scale3D(1, 1, 0))
		}},
		{"projective matrix", func(a *Affine) error {
			m := mgl64.Ident4()
			m[3] = 0.5
			return a.Apply(m)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New()
			a.Translate(core.NewVec3(1, 2, 3))
			before := a.Forward()

			err := tt.apply(a)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDegenerate))
			assert.Equal(t, before, a.Forward(), "failed accumulation must not change the transform")
		})
	}
}

func TestAffine_ApplyGeneralMatrix(t *testing.T) {
	m := mgl64.Translate3D(1, 2, 3).Mul4(mgl64.HomogRotate3DY(0.4)).Mul4(mgl64.Scale3D(1, 2, 3))
	a := New()
	require.NoError(t, a.Apply(m))

	p := core.NewVec3(0.5, -1, 2)
	assert.True(t, a.InversePoint(a.Point(p)).ApproxEqual(p, 1e-9))
}

func TestAffine_Reset(t *testing.T) {
	a := buildSample(t)
	a.Reset()
	assert.True(t, a.IsIdentity())
	assert.Equal(t, mgl64.Ident4(), a.Forward())
	assert.Equal(t, mgl64.Ident4(), a.Inverse())
}

func TestAffine_BoxContainsTransformedSurface(t *testing.T) {
	a := buildSample(t)
	unit := core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1))
	box := a.Box(unit)

	// Sample the surface of the unit sphere and of the unit box
	const n = 24
	for i := 0; i <= n; i++ {
		theta := math.Pi * float64(i) / n
		for j := 0; j < 2*n; j++ {
			phi := math.Pi * float64(j) / n
			p := core.NewVec3(math.Sin(theta)*math.Cos(phi), math.Cos(theta), math.Sin(theta)*math.Sin(phi))
			assert.True(t, box.Expand(1e-9).Contains(a.Point(p)), "sphere point %v", p)

			q := p.Multiply(1 / math.Max(math.Abs(p.X), math.Max(math.Abs(p.Y), math.Abs(p.Z))))
			assert.True(t, box.Expand(1e-9).Contains(a.Point(q)), "box point %v", q)
		}
	}
}

func TestAffine_RayPreservesParameter(t *testing.T) {
	a := buildSample(t)
	ray := core.NewRayWithLimit(core.NewVec3(1, 2, 3), core.NewVec3(-1, 0.5, 2), 7)
	local := a.InverseRay(ray)

	assert.Equal(t, 7.0, local.Limit)
	for _, tt := range []float64{0, 0.5, 3, 7} {
		assert.True(t, a.Point(local.At(tt)).ApproxEqual(ray.At(tt), 1e-9), "t=%v", tt)
	}
}

func TestAffine_NormalIsInverseTranspose(t *testing.T) {
	a := New()
	require.NoError(t, a.Stretch(core.NewVec3(4, 1, 1)))

	// Tangent plane of x + y = 0 maps to a plane whose normal is (1/4, 1, 0)
	n := a.Normal(core.NewVec3(1, 1, 0).Normalize())
	assert.True(t, n.ApproxEqual(core.NewVec3(0.25, 1, 0).Normalize(), 1e-12))
	assert.InDelta(t, 0.0, n.Dot(a.Vector(core.NewVec3(1, -1, 0))), 1e-12)
}

func TestAffine_CloneAndCompose(t *testing.T) {
	a := New()
	a.Translate(core.NewVec3(1, 0, 0))
	c := a.Clone()
	c.Translate(core.NewVec3(0, 1, 0))

	assert.True(t, a.Point(core.Vec3{}).ApproxEqual(core.NewVec3(1, 0, 0), 1e-12))
	assert.True(t, c.Point(core.Vec3{}).ApproxEqual(core.NewVec3(1, 1, 0), 1e-12))

	a.Compose(c)
	assert.True(t, a.Point(core.Vec3{}).ApproxEqual(core.NewVec3(2, 1, 0), 1e-12))
	assert.True(t, a.InversePoint(core.NewVec3(2, 1, 0)).ApproxEqual(core.Vec3{}, 1e-12))
}
