package geometry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/core"
)

// sphereField scatters n small spheres through a cube of the given size
func sphereField(rng *rand.Rand, n int, size float64) *Composite {
	c := NewComposite()
	for i := 0; i < n; i++ {
		center := core.NewVec3(rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5).Multiply(size)
		c.AddChild(NewSphere(center, 0.1+0.3*rng.Float64()))
	}
	return c
}

func TestOctreeGeometryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	field := sphereField(rng, 300, 20)
	field.AddChild(NewPlane(core.NewVec3(0, -12, 0), core.NewVec3(0, 1, 0)))
	field.AddChild(tessellatedSphere(t, core.NewVec3(3, 3, 3), 2, 8, 12))

	logger := &recordingLogger{}
	accelerated := NewOctreeGeometry(field, 6, 4, logger)
	require.NotEmpty(t, logger.lines)
	assert.Equal(t, field.NumPrimitives(), accelerated.NumPrimitives())

	for _, ray := range randomRays(rng, 300, 30) {
		expected := IntersectNearest(field, ray)
		actual := IntersectNearest(accelerated, ray)
		if expected == nil {
			assert.Nil(t, actual)
			continue
		}
		require.NotNil(t, actual)
		assert.Equal(t, expected.Distance(), actual.Distance())
		assert.Equal(t, Surface(expected).PrimitiveIndex, Surface(actual).PrimitiveIndex)

		expectedAll := IntersectAll(field, ray)
		actualAll := IntersectAll(accelerated, ray)
		require.Equal(t, len(expectedAll), len(actualAll))
		for i := range expectedAll {
			assert.Equal(t, expectedAll[i].Distance(), actualAll[i].Distance())
		}
	}
}

func TestOctreeGeometryVisitsEachPrimitiveOnce(t *testing.T) {
	// Long capsule of spheres along X, each spanning several cells
	mock := &mockElement{origin: -30, n: 21}
	accelerated := NewOctreeGeometry(mock, 8, 1, nil)

	ray := core.NewRay(core.NewVec3(-40, 0.2, 0.1), core.NewVec3(1, 0, 0))
	rec := NewCollectAllRecorder(ray.Interval())
	accelerated.Intersect(ray, rec)
	assert.Equal(t, 42, rec.Len())
	assert.Equal(t, 21, mock.calls)
}

func TestOctreeGeometryNearestStopsEarly(t *testing.T) {
	mock := &mockElement{origin: -30, n: 21}
	accelerated := NewOctreeGeometry(mock, 8, 1, nil)

	ray := core.NewRay(core.NewVec3(-40, 0.2, 0.1), core.NewVec3(1, 0, 0))
	x := IntersectNearest(accelerated, ray)
	require.NotNil(t, x)
	assert.Equal(t, 0, Surface(x).PrimitiveIndex)
	assert.Less(t, mock.calls, 5, "only cells near the first sphere are visited")
}

func TestOctreeGeometryUnboundedOnly(t *testing.T) {
	plane := NewPlane(core.Vec3{}, core.NewVec3(0, 0, 1))
	accelerated := NewOctreeGeometry(NewComposite(plane), 0, 0, nil)
	assert.Equal(t, 0, accelerated.Stats().ItemReferences)

	x := IntersectNearest(accelerated, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)))
	require.NotNil(t, x)
	assert.InDelta(t, 5, x.Distance(), 1e-9)
}

func TestOctreeGeometryBoundsDelegate(t *testing.T) {
	field := sphereField(rand.New(rand.NewSource(1)), 20, 5)
	accelerated := NewOctreeGeometry(field, 4, 2, nil)
	assert.Equal(t, field.BoundingBox(), accelerated.BoundingBox())
	assert.Equal(t, field.BoundingSphere(), accelerated.BoundingSphere())
	for i := 0; i < field.NumPrimitives(); i++ {
		assert.Equal(t, field.PrimitiveBoundingBox(i), accelerated.PrimitiveBoundingBox(i))
	}
	assert.Same(t, field, accelerated.Element())
}
