// Package loaders reads external mesh data into scene elements
package loaders

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/geometry"
)

// ErrFormat is returned for malformed or unsupported PLY input
var ErrFormat = errors.New("loaders: invalid PLY data")

// PLYHeader represents the parsed header of a PLY stream
type PLYHeader struct {
	Format   string // "ascii", "binary_little_endian" or "binary_big_endian"
	Version  string
	Elements []PLYElement
}

// PLYElement is one element declaration with its properties, in file order
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData holds the geometry read from a PLY stream. Polygons are fan
// triangulated into Faces.
type PLYData struct {
	Vertices  []core.Vec3
	Normals   []core.Vec3 // empty if not present
	TexCoords []core.Vec2 // empty if not present
	Faces     []int       // 3 vertex indices per triangle
	Polygons  int         // faces before triangulation
}

// LoadPLY opens and reads a PLY file. The logger may be nil.
func LoadPLY(filename string, logger core.Logger) (*PLYData, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	start := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "loaders: open PLY file")
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, errors.Wrapf(err, "loaders: %s", filename)
	}
	logger.Printf("loaded PLY %s: %d vertices, %d triangles in %v",
		filename, len(data.Vertices), len(data.Faces)/3, time.Since(start))
	return data, nil
}

// LoadPLYMesh loads a PLY file straight into a triangle mesh
func LoadPLYMesh(filename string, leafThreshold int, logger core.Logger) (*geometry.TriangleMesh, error) {
	data, err := LoadPLY(filename, logger)
	if err != nil {
		return nil, err
	}
	return data.Mesh(leafThreshold, logger)
}

// ReadPLY reads a complete PLY stream in any of the three encodings
func ReadPLY(r io.Reader) (*PLYData, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	header, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	var values valueReader
	switch header.Format {
	case "ascii":
		scanner := bufio.NewScanner(br)
		scanner.Split(bufio.ScanWords)
		values = &asciiReader{scanner: scanner}
	case "binary_little_endian":
		values = &binaryReader{r: br, order: binary.LittleEndian}
	case "binary_big_endian":
		values = &binaryReader{r: br, order: binary.BigEndian}
	default:
		return nil, errors.Wrapf(ErrFormat, "unsupported format %q", header.Format)
	}

	data := &PLYData{}
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readVertices(values, element, data)
		case "face":
			err = readFaces(values, element, data)
		default:
			err = skipElement(values, element)
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// parsePLYHeader reads up to and including the end_header line
func parsePLYHeader(br *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	first := true
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(ErrFormat, "header: %v", err)
		}
		line = strings.TrimSpace(line)
		if first {
			if line != "ply" {
				return nil, errors.Wrap(ErrFormat, "missing ply magic")
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, errors.Wrapf(ErrFormat, "invalid format line %q", line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
		case "element":
			if len(parts) < 3 {
				return nil, errors.Wrapf(ErrFormat, "invalid element line %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, errors.Wrapf(ErrFormat, "invalid element count %q", parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, errors.Wrap(ErrFormat, "property before any element")
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, err
			}
			last := &header.Elements[len(header.Elements)-1]
			last.Props = append(last.Props, prop)
		default:
			return nil, errors.Wrapf(ErrFormat, "unknown header keyword %q", parts[0])
		}
	}

	if header.Format == "" {
		return nil, errors.Wrap(ErrFormat, "missing format line")
	}
	return header, nil
}

// parsePLYProperty parses the words after "property"
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, errors.Wrap(ErrFormat, "invalid property definition")
	}

	var prop PLYProperty
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, errors.Wrap(ErrFormat, "invalid list property definition")
		}
		prop = PLYProperty{IsList: true, ListType: parts[1], DataType: parts[2], Name: parts[3]}
		if typeSize(prop.ListType) == 0 || typeSize(prop.DataType) == 0 {
			return PLYProperty{}, errors.Wrapf(ErrFormat, "unsupported list types %s %s", prop.ListType, prop.DataType)
		}
	} else {
		prop = PLYProperty{Type: parts[0], Name: parts[1]}
		if typeSize(prop.Type) == 0 {
			return PLYProperty{}, errors.Wrapf(ErrFormat, "unsupported data type %s", prop.Type)
		}
	}
	return prop, nil
}

// typeSize returns the size in bytes of a PLY scalar type, or 0 if unknown
func typeSize(dataType string) int {
	switch dataType {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

// vertexLayout holds the property positions of the attributes we keep,
// -1 when absent
type vertexLayout struct {
	position [3]int
	normal   [3]int
	uv       [2]int
}

func newVertexLayout(props []PLYProperty) (vertexLayout, error) {
	layout := vertexLayout{
		position: [3]int{-1, -1, -1},
		normal:   [3]int{-1, -1, -1},
		uv:       [2]int{-1, -1},
	}
	for i, prop := range props {
		if prop.IsList {
			continue
		}
		switch prop.Name {
		case "x":
			layout.position[0] = i
		case "y":
			layout.position[1] = i
		case "z":
			layout.position[2] = i
		case "nx":
			layout.normal[0] = i
		case "ny":
			layout.normal[1] = i
		case "nz":
			layout.normal[2] = i
		case "u", "s", "texture_u":
			layout.uv[0] = i
		case "v", "t", "texture_v":
			layout.uv[1] = i
		}
	}
	for _, index := range layout.position {
		if index < 0 {
			return layout, errors.Wrap(ErrFormat, "vertex element lacks x, y or z")
		}
	}
	return layout, nil
}

func (l vertexLayout) hasNormals() bool {
	return l.normal[0] >= 0 && l.normal[1] >= 0 && l.normal[2] >= 0
}

func (l vertexLayout) hasUVs() bool {
	return l.uv[0] >= 0 && l.uv[1] >= 0
}

func readVertices(values valueReader, element PLYElement, data *PLYData) error {
	layout, err := newVertexLayout(element.Props)
	if err != nil {
		return err
	}

	data.Vertices = make([]core.Vec3, 0, element.Count)
	if layout.hasNormals() {
		data.Normals = make([]core.Vec3, 0, element.Count)
	}
	if layout.hasUVs() {
		data.TexCoords = make([]core.Vec2, 0, element.Count)
	}

	row := make([]float64, len(element.Props))
	for i := 0; i < element.Count; i++ {
		for j, prop := range element.Props {
			if prop.IsList {
				if err := skipList(values, prop); err != nil {
					return errors.Wrapf(err, "vertex %d", i)
				}
				continue
			}
			if row[j], err = values.scalar(prop.Type); err != nil {
				return errors.Wrapf(err, "vertex %d", i)
			}
		}

		p := layout.position
		data.Vertices = append(data.Vertices, core.NewVec3(row[p[0]], row[p[1]], row[p[2]]))
		if layout.hasNormals() {
			n := layout.normal
			data.Normals = append(data.Normals, core.NewVec3(row[n[0]], row[n[1]], row[n[2]]))
		}
		if layout.hasUVs() {
			data.TexCoords = append(data.TexCoords, core.NewVec2(row[layout.uv[0]], row[layout.uv[1]]))
		}
	}
	return nil
}

func readFaces(values valueReader, element PLYElement, data *PLYData) error {
	data.Faces = make([]int, 0, element.Count*3)
	indices := make([]int, 0, 4)

	for i := 0; i < element.Count; i++ {
		found := false
		for _, prop := range element.Props {
			if !prop.IsList || (prop.Name != "vertex_indices" && prop.Name != "vertex_index") {
				if err := skipProperty(values, prop); err != nil {
					return errors.Wrapf(err, "face %d", i)
				}
				continue
			}

			count, err := values.scalar(prop.ListType)
			if err != nil {
				return errors.Wrapf(err, "face %d", i)
			}
			if count < 3 {
				return errors.Wrapf(ErrFormat, "face %d has %v vertices", i, count)
			}
			indices = indices[:0]
			for k := 0; k < int(count); k++ {
				index, err := values.scalar(prop.DataType)
				if err != nil {
					return errors.Wrapf(err, "face %d", i)
				}
				indices = append(indices, int(index))
			}

			// Fan triangulation around the first corner
			for k := 1; k+1 < len(indices); k++ {
				data.Faces = append(data.Faces, indices[0], indices[k], indices[k+1])
			}
			found = true
		}
		if !found {
			return errors.Wrap(ErrFormat, "face element lacks vertex_indices")
		}
		data.Polygons++
	}
	return nil
}

func skipElement(values valueReader, element PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, prop := range element.Props {
			if err := skipProperty(values, prop); err != nil {
				return errors.Wrapf(err, "%s %d", element.Name, i)
			}
		}
	}
	return nil
}

func skipProperty(values valueReader, prop PLYProperty) error {
	if prop.IsList {
		return skipList(values, prop)
	}
	_, err := values.scalar(prop.Type)
	return err
}

func skipList(values valueReader, prop PLYProperty) error {
	count, err := values.scalar(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := values.scalar(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// valueReader yields the next scalar of a given PLY type as float64
type valueReader interface {
	scalar(dataType string) (float64, error)
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func (a *asciiReader) scalar(dataType string) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, errors.Wrap(err, "loaders: read PLY body")
		}
		return 0, errors.Wrap(ErrFormat, "unexpected end of data")
	}
	word := a.scanner.Text()
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrFormat, "invalid %s value %q", dataType, word)
	}
	return v, nil
}

type binaryReader struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) scalar(dataType string) (float64, error) {
	size := typeSize(dataType)
	if size == 0 {
		return 0, errors.Wrapf(ErrFormat, "unsupported data type %s", dataType)
	}
	buf := b.buf[:size]
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return 0, errors.Wrapf(ErrFormat, "unexpected end of data: %v", err)
	}

	switch dataType {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(buf))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(buf)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(buf))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(buf)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(buf))), nil
	default:
		return math.Float64frombits(b.order.Uint64(buf)), nil
	}
}

// Mesh builds a triangle mesh from the data, validating every face. A
// non-positive leafThreshold selects the BVH default; the logger may be nil.
func (d *PLYData) Mesh(leafThreshold int, logger core.Logger) (*geometry.TriangleMesh, error) {
	b := geometry.NewMeshBuilder(logger)
	b.SetLeafThreshold(leafThreshold)
	for i, p := range d.Vertices {
		var normal core.Vec3
		if len(d.Normals) > 0 {
			normal = d.Normals[i]
		}

		var err error
		switch {
		case len(d.TexCoords) > 0:
			_, err = b.AddVertexWithUV(p, normal, d.TexCoords[i])
		case len(d.Normals) > 0:
			_, err = b.AddVertexWithNormal(p, normal)
		default:
			_, err = b.AddVertex(p)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "vertex %d", i)
		}
	}

	for i := 0; i+2 < len(d.Faces); i += 3 {
		if err := b.AddTriangle(d.Faces[i], d.Faces[i+1], d.Faces[i+2]); err != nil {
			return nil, errors.Wrapf(err, "triangle %d", i/3)
		}
	}
	return b.Build()
}
