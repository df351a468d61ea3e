package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/core"
)

// mockElement is an element of n unit-sphere primitives laid out along X,
// primitive i centered at (origin + 3i, 0, 0). It counts intersection calls.
type mockElement struct {
	origin float64
	n      int
	calls  int
}

func (m *mockElement) sphere(index int) *Sphere {
	CheckIndex(index, m.n)
	return NewSphere(core.NewVec3(m.origin+3*float64(index), 0, 0), 1)
}

func (m *mockElement) NumPrimitives() int { return m.n }

func (m *mockElement) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	IntersectPrimitives(m, ray, recorder)
}

func (m *mockElement) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	m.calls++
	m.sphere(index).Intersect(ray, NewDecoratingRecorder(recorder, func(x Intersection) Intersection {
		return withIndexOffset(x, index)
	}))
}

func (m *mockElement) BoundingBox() core.AABB             { return BoundsOf(m) }
func (m *mockElement) BoundingSphere() core.BoundingSphere { return SphereOf(m) }

func (m *mockElement) PrimitiveBoundingBox(index int) core.AABB {
	return m.sphere(index).BoundingBox()
}

func (m *mockElement) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	return m.sphere(index).BoundingSphere()
}

func (m *mockElement) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	return m.sphere(index).PrimitiveIntersectsBox(0, box)
}

func TestCompositeResolve(t *testing.T) {
	c := NewComposite(
		&mockElement{n: 2},
		&mockElement{n: 0},
		&mockElement{n: 3},
		NewSphere(core.Vec3{}, 1),
	)
	require.Equal(t, 6, c.NumPrimitives())

	tests := []struct {
		index, child, local int
	}{
		{0, 0, 0},
		{1, 0, 1},
		{2, 2, 0},
		{3, 2, 1},
		{4, 2, 2},
		{5, 3, 0},
	}
	for _, tt := range tests {
		child, local := c.Resolve(tt.index)
		assert.Equal(t, tt.child, child, "child of %d", tt.index)
		assert.Equal(t, tt.local, local, "local index of %d", tt.index)
	}
}

func TestCompositeIndexOutOfRange(t *testing.T) {
	c := NewComposite(&mockElement{n: 2}, &mockElement{n: 3})
	assert.PanicsWithValue(t, IndexError{Index: 5, Count: 5}, func() { c.Resolve(5) })
	assert.PanicsWithValue(t, IndexError{Index: -1, Count: 5}, func() { c.PrimitiveBoundingBox(-1) })

	empty := NewComposite()
	assert.Equal(t, 0, empty.NumPrimitives())
	assert.True(t, empty.BoundingBox().IsEmpty())
	assert.True(t, empty.BoundingSphere().IsEmpty())
	assert.Panics(t, func() { empty.Resolve(0) })
}

func TestCompositeReportsGlobalIndices(t *testing.T) {
	first := &mockElement{origin: 0, n: 2}  // centers at x = 0, 3
	second := &mockElement{origin: 6, n: 3} // centers at x = 6, 9, 12
	c := NewComposite(first).AddChild(second)

	ray := core.NewRay(core.NewVec3(-5, 0, 0), core.NewVec3(1, 0, 0))
	all := IntersectAll(c, ray)
	require.Len(t, all, 10)

	var indices []int
	for i := 0; i < len(all); i += 2 {
		indices = append(indices, Surface(all[i]).PrimitiveIndex)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indices)

	// Per-primitive queries agree with the global index
	for i := 0; i < c.NumPrimitives(); i++ {
		rec := NewCollectAllRecorder(ray.Interval())
		c.IntersectPrimitive(i, ray, rec)
		require.Equal(t, 2, rec.Len())
		assert.Equal(t, i, Surface(rec.Intersections()[0]).PrimitiveIndex)

		center := 3 * float64(i)
		if i >= 2 {
			center = 6 + 3*float64(i-2)
		}
		assert.Equal(t, NewSphere(core.NewVec3(center, 0, 0), 1).BoundingBox(), c.PrimitiveBoundingBox(i))
	}
}

func TestNestedCompositesCompoundOffsets(t *testing.T) {
	inner := NewComposite(&mockElement{origin: 20, n: 1}, &mockElement{origin: 30, n: 2})
	outer := NewComposite(&mockElement{origin: 0, n: 4}, inner)
	require.Equal(t, 7, outer.NumPrimitives())

	// Primitive 2 of inner, i.e. its second mock's second sphere at x = 33
	ray := core.NewRay(core.NewVec3(33, 5, 0), core.NewVec3(0, -1, 0))
	x := IntersectNearest(outer, ray)
	require.NotNil(t, x)
	assert.Equal(t, 6, Surface(x).PrimitiveIndex)
	assert.Equal(t, outer.PrimitiveBoundingBox(6), NewSphere(core.NewVec3(33, 0, 0), 1).BoundingBox())
}

func TestCompositeBounds(t *testing.T) {
	c := NewComposite(
		NewSphere(core.NewVec3(-2, 0, 0), 1),
		NewBox(core.NewVec3(3, 0, 0), core.NewVec3(1, 2, 1)),
	)
	box := c.BoundingBox()
	assert.Equal(t, core.NewVec3(-3, -2, -1), box.Min)
	assert.Equal(t, core.NewVec3(4, 2, 1), box.Max)

	sphere := c.BoundingSphere()
	for _, child := range c.Children() {
		assert.True(t, sphere.Contains(child.BoundingSphere().Center))
	}
}

func TestCompositeNearestMatchesBruteForce(t *testing.T) {
	c := NewComposite(
		&mockElement{origin: 0, n: 3},
		NewSphere(core.NewVec3(4, 1, 0), 1.5),
		NewBox(core.NewVec3(2, -2, 0), core.NewVec3(1, 0.5, 1)),
	)
	for i := 0; i < 40; i++ {
		angle := float64(i) * 0.15
		ray := core.NewRay(core.NewVec3(-8, 3-0.15*float64(i), 0.1), core.NewVec3(1, -0.02*angle, 0))

		all := IntersectAll(c, ray)
		nearest := IntersectNearest(c, ray)
		if len(all) == 0 {
			assert.Nil(t, nearest)
			continue
		}
		require.NotNil(t, nearest)
		assert.Equal(t, all[0].Distance(), nearest.Distance())
	}
}
