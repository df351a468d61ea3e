package geometry

import (
	"fmt"

	"github.com/df07/go-intersect/pkg/core"
)

// TriangleMesh is a collection of triangles sharing a vertex list. Each
// triangle is one primitive; whole-mesh intersection goes through an
// internal BVH over the triangle indices.
type TriangleMesh struct {
	vertices []core.Vec3
	normals  []core.Vec3 // Optional per-vertex shading normals
	uvs      []core.Vec2 // Optional per-vertex texture coordinates
	faces    [][3]int
	bvh      *BVH
	bbox     core.AABB
}

// TriangleMeshOptions contains optional parameters for triangle mesh creation
type TriangleMeshOptions struct {
	Normals       []core.Vec3 // Optional per-vertex normals
	UVs           []core.Vec2 // Optional per-vertex texture coordinates
	LeafThreshold int         // BVH leaf size, DefaultLeafThreshold when zero
}

// NewTriangleMesh creates a new triangle mesh from vertices and face indices.
// vertices: array of 3D points
// faces: array of triangle indices (each group of 3 indices forms a triangle)
// options: optional parameters (can be nil for basic mesh)
//
// Malformed input is a programming error and panics; use MeshBuilder to
// validate incrementally.
func NewTriangleMesh(vertices []core.Vec3, faces []int, options *TriangleMeshOptions) *TriangleMesh {
	if len(faces)%3 != 0 {
		panic("Face indices must be a multiple of 3")
	}

	mesh := &TriangleMesh{
		vertices: vertices,
		faces:    make([][3]int, len(faces)/3),
	}

	if options != nil {
		if options.Normals != nil && len(options.Normals) != len(vertices) {
			panic("Number of normals must match number of vertices")
		}
		if options.UVs != nil && len(options.UVs) != len(vertices) {
			panic("Number of UVs must match number of vertices")
		}
		mesh.normals = options.Normals
		mesh.uvs = options.UVs
	}

	for i := range mesh.faces {
		face := [3]int{faces[i*3], faces[i*3+1], faces[i*3+2]}
		for _, index := range face {
			if index < 0 || index >= len(vertices) {
				panic(fmt.Sprintf("Face index %d out of bounds", index))
			}
		}
		mesh.faces[i] = face
	}

	mesh.bbox = BoundsOf(mesh)

	leafThreshold := DefaultLeafThreshold
	if options != nil && options.LeafThreshold > 0 {
		leafThreshold = options.LeafThreshold
	}
	mesh.bvh = NewBVH(mesh, leafThreshold)

	return mesh
}

func (m *TriangleMesh) corners(index int) (core.Vec3, core.Vec3, core.Vec3) {
	f := m.faces[index]
	return m.vertices[f[0]], m.vertices[f[1]], m.vertices[f[2]]
}

// NumPrimitives returns the number of triangles
func (m *TriangleMesh) NumPrimitives() int {
	return len(m.faces)
}

// GetTriangleCount returns the number of triangles in this mesh
func (m *TriangleMesh) GetTriangleCount() int {
	return len(m.faces)
}

// Intersect tests the ray against every triangle the BVH cannot rule out
func (m *TriangleMesh) Intersect(ray core.Ray, recorder IntersectionRecorder) {
	m.bvh.Intersect(ray, recorder)
}

// IntersectPrimitive tests the ray against one triangle
func (m *TriangleMesh) IntersectPrimitive(index int, ray core.Ray, recorder IntersectionRecorder) {
	CheckIndex(index, len(m.faces))
	v0, v1, v2 := m.corners(index)
	t, u, v, front, ok := intersectTriangle(v0, v1, v2, ray)
	if !ok || t > recorder.Interval().Max {
		return
	}
	recorder.Record(&meshIntersection{
		hit:   newHit(t, front),
		mesh:  m,
		ray:   ray,
		index: index,
		bary:  core.NewVec2(u, v),
	})
}

// BoundingBox returns the axis-aligned bounding box for the entire mesh
func (m *TriangleMesh) BoundingBox() core.AABB {
	return m.bbox
}

// BoundingSphere returns a sphere enclosing the entire mesh
func (m *TriangleMesh) BoundingSphere() core.BoundingSphere {
	return core.SphereFromAABB(m.bbox)
}

// PrimitiveBoundingBox returns the box around one triangle
func (m *TriangleMesh) PrimitiveBoundingBox(index int) core.AABB {
	CheckIndex(index, len(m.faces))
	return core.NewAABBFromPoints(m.corners(index))
}

// PrimitiveBoundingSphere returns a sphere around one triangle
func (m *TriangleMesh) PrimitiveBoundingSphere(index int) core.BoundingSphere {
	CheckIndex(index, len(m.faces))
	return triangleSphere(m.corners(index))
}

// PrimitiveIntersectsBox tests one triangle against the box
func (m *TriangleMesh) PrimitiveIntersectsBox(index int, box core.AABB) bool {
	CheckIndex(index, len(m.faces))
	v0, v1, v2 := m.corners(index)
	return triangleOverlapsBox(v0, v1, v2, box)
}

type meshIntersection struct {
	hit
	mesh  *TriangleMesh
	ray   core.Ray
	index int
	bary  core.Vec2
}

func (x *meshIntersection) PrepareShadingContext(ctx ShadingContext) {
	m := x.mesh
	f := m.faces[x.index]
	v0, v1, v2 := m.corners(x.index)
	b1, b2 := x.bary.X, x.bary.Y
	b0 := 1 - b1 - b2

	edge1 := v1.Subtract(v0)
	normal := edge1.Cross(v2.Subtract(v0)).Normalize()
	geometric := core.NewBasisFromWU(normal, edge1)

	shading := geometric
	if m.normals != nil {
		interpolated := m.normals[f[0]].Multiply(b0).
			Add(m.normals[f[1]].Multiply(b1)).
			Add(m.normals[f[2]].Multiply(b2))
		if interpolated.LengthSquared() > 0 {
			shading = core.NewBasisFromWU(interpolated, edge1)
		}
	}

	uv := x.bary
	if m.uvs != nil {
		uv = core.NewVec2(
			b0*m.uvs[f[0]].X+b1*m.uvs[f[1]].X+b2*m.uvs[f[2]].X,
			b0*m.uvs[f[0]].Y+b1*m.uvs[f[1]].Y+b2*m.uvs[f[2]].Y,
		)
	}

	ctx.SetPosition(x.ray.At(x.distance))
	ctx.SetNormal(geometric.W)
	ctx.SetBasis(geometric)
	ctx.SetShadingBasis(shading)
	ctx.SetTangent(geometric.U)
	ctx.SetUV(uv)
	ctx.SetPrimitiveIndex(x.index)
}
