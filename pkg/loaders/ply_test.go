package loaders

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/geometry"
)

// Unit cube as six outward facing quads
const asciiCube = `ply
format ascii 1.0
comment unit cube
element vertex 8
property float x
property float y
property float z
element face 6
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
1 1 0
0 1 0
0 0 1
1 0 1
1 1 1
0 1 1
4 0 3 2 1
4 4 5 6 7
4 0 1 5 4
4 2 3 7 6
4 1 2 6 5
4 0 4 7 3
`

func TestReadASCIICube(t *testing.T) {
	data, err := ReadPLY(strings.NewReader(asciiCube))
	require.NoError(t, err)
	assert.Len(t, data.Vertices, 8)
	assert.Empty(t, data.Normals)
	assert.Empty(t, data.TexCoords)
	assert.Equal(t, 6, data.Polygons)
	assert.Len(t, data.Faces, 36)
	assert.Equal(t, []int{0, 3, 2, 0, 2, 1}, data.Faces[:6])

	mesh, err := data.Mesh(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, mesh.NumPrimitives())
	assert.Equal(t, core.NewAABB(core.Vec3{}, core.NewVec3(1, 1, 1)), mesh.BoundingBox())

	ray := core.NewRay(core.NewVec3(0.3, 0.4, -2), core.NewVec3(0, 0, 1))
	all := geometry.IntersectAll(mesh, ray)
	require.Len(t, all, 2)
	assert.InDelta(t, 2, all[0].Distance(), 1e-9)
	assert.True(t, all[0].Front())
	assert.InDelta(t, 3, all[1].Distance(), 1e-9)
	assert.False(t, all[1].Front())
}

type plyVertex struct {
	X, Y, Z    float32
	NX, NY, NZ float32
	U, V       float32
	Quality    uint8
}

func binaryTriangle(t *testing.T, order binary.ByteOrder, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("element vertex 3\n")
	for _, name := range []string{"x", "y", "z", "nx", "ny", "nz", "u", "v"} {
		buf.WriteString("property float " + name + "\n")
	}
	buf.WriteString("property uchar quality\n")
	buf.WriteString("element face 1\n")
	buf.WriteString("property uchar flags\n")
	buf.WriteString("property list uchar uint vertex_indices\n")
	buf.WriteString("element edge 1\n")
	buf.WriteString("property int vertex1\n")
	buf.WriteString("property int vertex2\n")
	buf.WriteString("end_header\n")

	vertices := []plyVertex{
		{X: 0, Y: 0, Z: 0, NZ: 1, U: 0, V: 0, Quality: 7},
		{X: 1, Y: 0, Z: 0, NZ: 1, U: 1, V: 0, Quality: 7},
		{X: 0, Y: 1, Z: 0, NZ: 1, U: 0, V: 1, Quality: 7},
	}
	for _, v := range vertices {
		require.NoError(t, binary.Write(&buf, order, v))
	}
	require.NoError(t, binary.Write(&buf, order, uint8(0)))
	require.NoError(t, binary.Write(&buf, order, uint8(3)))
	require.NoError(t, binary.Write(&buf, order, [3]uint32{0, 1, 2}))
	require.NoError(t, binary.Write(&buf, order, [2]int32{0, 1}))
	return buf.Bytes()
}

func TestReadBinaryTriangle(t *testing.T) {
	tests := []struct {
		name   string
		order  binary.ByteOrder
		format string
	}{
		{"little endian", binary.LittleEndian, "binary_little_endian"},
		{"big endian", binary.BigEndian, "binary_big_endian"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(binaryTriangle(t, tt.order, tt.format)))
			require.NoError(t, err)
			assert.Equal(t, []core.Vec3{{}, {X: 1}, {Y: 1}}, data.Vertices)
			assert.Equal(t, []core.Vec3{{Z: 1}, {Z: 1}, {Z: 1}}, data.Normals)
			assert.Equal(t, []core.Vec2{{}, {X: 1}, {Y: 1}}, data.TexCoords)
			assert.Equal(t, []int{0, 1, 2}, data.Faces)

			mesh, err := data.Mesh(0, nil)
			require.NoError(t, err)
			x := geometry.IntersectNearest(mesh, core.NewRay(core.NewVec3(0.25, 0.5, 1), core.NewVec3(0, 0, -1)))
			require.NotNil(t, x)
			surface := geometry.Surface(x)
			assert.InDelta(t, 0.25, surface.UV.X, 1e-6)
			assert.InDelta(t, 0.5, surface.UV.Y, 1e-6)
			assert.InDelta(t, 1, surface.ShadingBasis.W.Z, 1e-9)
		})
	}
}

func TestReadPLYErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing magic", "plx\nformat ascii 1.0\nend_header\n"},
		{"missing format", "ply\nelement vertex 0\nend_header\n"},
		{"unknown format", "ply\nformat binary_middle_endian 1.0\nend_header\n"},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float128 x\nend_header\n"},
		{"property first", "ply\nformat ascii 1.0\nproperty float x\nend_header\n"},
		{"no end", "ply\nformat ascii 1.0\nelement vertex 1\n"},
		{"missing z", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n0 0\n"},
		{"truncated", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n1 1\n"},
		{"bad number", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 zero 0\n"},
		{"two corner face", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n1 0 0\n2 0 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat), "%v", err)
		})
	}
}

func TestMeshRejectsBadIndices(t *testing.T) {
	input := strings.Replace(asciiCube, "4 0 4 7 3", "4 0 4 7 9", 1)
	data, err := ReadPLY(strings.NewReader(input))
	require.NoError(t, err)

	_, err = data.Mesh(0, nil)
	assert.ErrorIs(t, err, geometry.ErrInvalidFace)
}

func TestLoadPLYMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.ply")
	require.NoError(t, os.WriteFile(path, []byte(asciiCube), 0o644))

	logger := &lineLogger{}
	mesh, err := LoadPLYMesh(path, 2, logger)
	require.NoError(t, err)
	assert.Equal(t, 12, mesh.NumPrimitives())
	assert.NotEmpty(t, logger.lines)

	_, err = LoadPLY(filepath.Join(t.TempDir(), "missing.ply"), nil)
	assert.Error(t, err)
}

type lineLogger struct {
	lines []string
}

func (l *lineLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, format)
}
