package geometry

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/core"
)

var (
	// ErrFrozen is returned when a MeshBuilder is modified after Build
	ErrFrozen = errors.New("geometry: mesh builder is frozen")

	// ErrInvalidFace is returned for a face referencing a missing vertex or
	// repeating a vertex
	ErrInvalidFace = errors.New("geometry: invalid face")

	// ErrEmptyMesh is returned when building a mesh with no faces
	ErrEmptyMesh = errors.New("geometry: mesh has no faces")
)

// MeshBuilder accumulates vertices and faces for a TriangleMesh. Its
// methods are safe for concurrent use. Build freezes the builder; the
// mesh it returns is immutable and may be shared across goroutines.
type MeshBuilder struct {
	mu       sync.Mutex
	vertices []core.Vec3
	normals  []core.Vec3
	uvs      []core.Vec2
	hasUVs   bool
	faces    []int
	frozen   bool
	logger   core.Logger

	leafThreshold int
}

// NewMeshBuilder creates an empty builder. The logger may be nil.
func NewMeshBuilder(logger core.Logger) *MeshBuilder {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &MeshBuilder{logger: logger}
}

// SetLeafThreshold sets the BVH leaf size of the built mesh; non-positive
// values select DefaultLeafThreshold
func (b *MeshBuilder) SetLeafThreshold(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.leafThreshold = n
}

// AddVertex appends a vertex and returns its index
func (b *MeshBuilder) AddVertex(p core.Vec3) (int, error) {
	return b.addVertex(p, core.Vec3{}, core.Vec2{}, false)
}

// AddVertexWithNormal appends a vertex carrying a shading normal
func (b *MeshBuilder) AddVertexWithNormal(p, normal core.Vec3) (int, error) {
	return b.addVertex(p, normal, core.Vec2{}, false)
}

// AddVertexWithUV appends a vertex carrying a shading normal, which may be
// zero, and texture coordinates
func (b *MeshBuilder) AddVertexWithUV(p, normal core.Vec3, uv core.Vec2) (int, error) {
	return b.addVertex(p, normal, uv, true)
}

func (b *MeshBuilder) addVertex(p, normal core.Vec3, uv core.Vec2, hasUV bool) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return 0, ErrFrozen
	}
	if !p.IsFinite() {
		return 0, errors.Errorf("geometry: vertex %v is not finite", p)
	}
	b.vertices = append(b.vertices, p)
	b.normals = append(b.normals, normal)
	b.uvs = append(b.uvs, uv)
	b.hasUVs = b.hasUVs || hasUV
	return len(b.vertices) - 1, nil
}

// AddTriangle appends a face over three existing vertices
func (b *MeshBuilder) AddTriangle(i0, i1, i2 int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addTriangle(i0, i1, i2)
}

// AddQuad appends two faces splitting the quad i0-i1-i2-i3
func (b *MeshBuilder) AddQuad(i0, i1, i2, i3 int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.addTriangle(i0, i1, i2); err != nil {
		return err
	}
	return b.addTriangle(i0, i2, i3)
}

func (b *MeshBuilder) addTriangle(i0, i1, i2 int) error {
	if b.frozen {
		return ErrFrozen
	}
	n := len(b.vertices)
	for _, i := range []int{i0, i1, i2} {
		if i < 0 || i >= n {
			return errors.Wrapf(ErrInvalidFace, "vertex index %d out of range [0, %d)", i, n)
		}
	}
	if i0 == i1 || i1 == i2 || i0 == i2 {
		return errors.Wrapf(ErrInvalidFace, "repeated vertex in (%d, %d, %d)", i0, i1, i2)
	}
	b.faces = append(b.faces, i0, i1, i2)
	return nil
}

// Build freezes the builder and returns the mesh. Zero-area faces are
// kept (they never report hits) but logged.
func (b *MeshBuilder) Build() (*TriangleMesh, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return nil, ErrFrozen
	}
	if len(b.faces) == 0 {
		return nil, ErrEmptyMesh
	}
	b.frozen = true

	degenerate := 0
	for i := 0; i < len(b.faces); i += 3 {
		v0, v1, v2 := b.vertices[b.faces[i]], b.vertices[b.faces[i+1]], b.vertices[b.faces[i+2]]
		if v1.Subtract(v0).Cross(v2.Subtract(v0)).LengthSquared() == 0 {
			degenerate++
		}
	}
	if degenerate > 0 {
		b.logger.Printf("mesh builder: %d of %d faces have zero area", degenerate, len(b.faces)/3)
	}

	options := &TriangleMeshOptions{LeafThreshold: b.leafThreshold}
	for _, n := range b.normals {
		if n != (core.Vec3{}) {
			options.Normals = b.normals
			break
		}
	}
	if b.hasUVs {
		options.UVs = b.uvs
	}

	mesh := NewTriangleMesh(b.vertices, b.faces, options)
	b.logger.Printf("mesh builder: built %d triangles over %d vertices", mesh.NumPrimitives(), len(b.vertices))
	return mesh, nil
}

// Frozen reports whether Build has been called
func (b *MeshBuilder) Frozen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frozen
}
