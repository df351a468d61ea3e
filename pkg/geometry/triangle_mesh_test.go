package geometry

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/core"
)

// tessellatedSphere builds a closed latitude/longitude sphere mesh with
// outward facing triangles
func tessellatedSphere(t *testing.T, center core.Vec3, radius float64, stacks, slices int) *TriangleMesh {
	t.Helper()
	b := NewMeshBuilder(nil)

	north, err := b.AddVertex(center.Add(core.NewVec3(0, radius, 0)))
	require.NoError(t, err)
	rings := make([][]int, stacks-1)
	for i := 1; i < stacks; i++ {
		theta := math.Pi * float64(i) / float64(stacks)
		for j := 0; j < slices; j++ {
			phi := 2 * math.Pi * float64(j) / float64(slices)
			p := core.NewVec3(math.Sin(theta)*math.Cos(phi), math.Cos(theta), math.Sin(theta)*math.Sin(phi))
			index, err := b.AddVertexWithNormal(center.Add(p.Multiply(radius)), p)
			require.NoError(t, err)
			rings[i-1] = append(rings[i-1], index)
		}
	}
	south, err := b.AddVertex(center.Add(core.NewVec3(0, -radius, 0)))
	require.NoError(t, err)

	for j := 0; j < slices; j++ {
		k := (j + 1) % slices
		require.NoError(t, b.AddTriangle(north, rings[0][k], rings[0][j]))
		for i := 0; i+1 < len(rings); i++ {
			require.NoError(t, b.AddQuad(rings[i][j], rings[i][k], rings[i+1][k], rings[i+1][j]))
		}
		last := rings[len(rings)-1]
		require.NoError(t, b.AddTriangle(south, last[j], last[k]))
	}

	mesh, err := b.Build()
	require.NoError(t, err)
	return mesh
}

func randomRays(rng *rand.Rand, n int, spread float64) []core.Ray {
	rays := make([]core.Ray, n)
	for i := range rays {
		origin := core.NewVec3(rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5).Multiply(spread)
		dir := core.NewVec3(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		rays[i] = core.NewRay(origin, dir)
	}
	return rays
}

func TestTriangleMeshFacesOutward(t *testing.T) {
	mesh := tessellatedSphere(t, core.Vec3{}, 1, 8, 12)
	assert.Equal(t, 2*12+2*12*6, mesh.NumPrimitives())
	assert.Equal(t, mesh.NumPrimitives(), mesh.GetTriangleCount())

	ray := core.NewRay(core.NewVec3(-5, 0.1, 0.05), core.NewVec3(1, 0, 0))
	all := IntersectAll(mesh, ray)
	require.Len(t, all, 2)
	assert.True(t, all[0].Front())
	assert.False(t, all[1].Front())
	assert.InDelta(t, 4, all[0].Distance(), 0.1)

	entry := Surface(all[0])
	assert.Less(t, entry.Normal.X, 0.0)
	assert.Less(t, entry.ShadingBasis.W.X, 0.0)
	assert.GreaterOrEqual(t, entry.PrimitiveIndex, 0)
	assert.Less(t, entry.PrimitiveIndex, mesh.NumPrimitives())
}

func TestTriangleMeshBVHMatchesBruteForce(t *testing.T) {
	mesh := tessellatedSphere(t, core.NewVec3(0.3, -0.2, 0.1), 1.5, 16, 24)
	rng := rand.New(rand.NewSource(7))

	for _, ray := range randomRays(rng, 200, 6) {
		viaBVH := NewCollectAllRecorder(ray.Interval())
		mesh.Intersect(ray, viaBVH)
		viaBVH.Sort()

		brute := NewCollectAllRecorder(ray.Interval())
		IntersectPrimitives(mesh, ray, brute)
		brute.Sort()

		require.Equal(t, brute.Len(), viaBVH.Len())
		for i := range brute.Intersections() {
			assert.Equal(t, brute.Intersections()[i].Distance(), viaBVH.Intersections()[i].Distance())
		}

		nearest := IntersectNearest(mesh, ray)
		if brute.Len() == 0 {
			assert.Nil(t, nearest)
		} else {
			require.NotNil(t, nearest)
			assert.Equal(t, brute.Intersections()[0].Distance(), nearest.Distance())
		}
	}
}

func TestBVHStats(t *testing.T) {
	mesh := tessellatedSphere(t, core.Vec3{}, 1, 16, 24)
	stats := mesh.bvh.getStats()
	assert.Equal(t, mesh.NumPrimitives(), stats.totalPrimitives)
	assert.Equal(t, stats.leafNodes*2-1, stats.totalNodes)
	assert.Greater(t, stats.maxDepth, 2)
	assert.Equal(t, mesh.BoundingBox(), mesh.bvh.BoundingBox())
}

func TestTriangleMeshPanicsOnBadFaces(t *testing.T) {
	vertices := []core.Vec3{{X: 0}, {X: 1}, {Y: 1}}
	assert.Panics(t, func() { NewTriangleMesh(vertices, []int{0, 1}, nil) })
	assert.Panics(t, func() { NewTriangleMesh(vertices, []int{0, 1, 3}, nil) })
	assert.Panics(t, func() {
		NewTriangleMesh(vertices, []int{0, 1, 2}, &TriangleMeshOptions{Normals: []core.Vec3{{Z: 1}}})
	})
	assert.NotPanics(t, func() { NewTriangleMesh(vertices, []int{0, 1, 2}, nil) })
}

func TestTriangleMeshUVInterpolation(t *testing.T) {
	vertices := []core.Vec3{{X: 0}, {X: 1}, {Y: 1}}
	uvs := []core.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	mesh := NewTriangleMesh(vertices, []int{0, 1, 2}, &TriangleMeshOptions{UVs: uvs})

	x := IntersectNearest(mesh, core.NewRay(core.NewVec3(0.25, 0.5, 1), core.NewVec3(0, 0, -1)))
	require.NotNil(t, x)
	surface := Surface(x)
	assert.InDelta(t, 0.25, surface.UV.X, 1e-9)
	assert.InDelta(t, 0.5, surface.UV.Y, 1e-9)
	assertVecInDelta(t, core.NewVec3(0, 0, 1), surface.Normal, 1e-9)
}

func TestMeshBuilderValidation(t *testing.T) {
	b := NewMeshBuilder(nil)
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrEmptyMesh)

	v0, _ := b.AddVertex(core.NewVec3(0, 0, 0))
	v1, _ := b.AddVertex(core.NewVec3(1, 0, 0))
	v2, _ := b.AddVertex(core.NewVec3(0, 1, 0))

	_, err = b.AddVertex(core.NewVec3(math.NaN(), 0, 0))
	assert.Error(t, err)

	err = b.AddTriangle(v0, v1, 7)
	assert.True(t, errors.Is(err, ErrInvalidFace))
	err = b.AddTriangle(v0, v1, v1)
	assert.True(t, errors.Is(err, ErrInvalidFace))
	assert.NoError(t, b.AddTriangle(v0, v1, v2))
}

func TestMeshBuilderFreezes(t *testing.T) {
	logger := &recordingLogger{}
	b := NewMeshBuilder(logger)
	v0, _ := b.AddVertex(core.NewVec3(0, 0, 0))
	v1, _ := b.AddVertex(core.NewVec3(1, 0, 0))
	v2, _ := b.AddVertex(core.NewVec3(2, 0, 0)) // collinear
	v3, _ := b.AddVertex(core.NewVec3(0, 1, 0))
	require.NoError(t, b.AddTriangle(v0, v1, v2))
	require.NoError(t, b.AddTriangle(v0, v1, v3))

	mesh, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, mesh.NumPrimitives())
	assert.True(t, b.Frozen())
	assert.NotEmpty(t, logger.lines)

	_, err = b.AddVertex(core.NewVec3(0, 0, 1))
	assert.ErrorIs(t, err, ErrFrozen)
	assert.ErrorIs(t, b.AddTriangle(v0, v1, v3), ErrFrozen)
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrFrozen)

	// The zero-area face never reports a hit
	x := IntersectNearest(mesh, core.NewRay(core.NewVec3(0.5, 0, 1), core.NewVec3(0, 0, -1)))
	if x != nil {
		assert.Equal(t, 1, Surface(x).PrimitiveIndex)
	}
}

func TestMeshBuilderConcurrentAdds(t *testing.T) {
	b := NewMeshBuilder(nil)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := b.AddVertex(core.NewVec3(float64(g), float64(i), 0))
				assert.NoError(t, err)
			}
		}(g)
	}
	wg.Wait()

	require.NoError(t, b.AddTriangle(0, 1, 2))
	mesh, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, mesh.NumPrimitives())
}

// recordingLogger keeps every formatted line
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, format)
}
