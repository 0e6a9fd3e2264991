package stl

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

const squareASCII = `solid square plate
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 1 1 0
    endloop
  endfacet
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 1 0
      vertex 0 1 0
    endloop
  endfacet
endsolid square plate
`

func binarySTL(header string, tris [][3]dvec3.T) []byte {
	var buf bytes.Buffer
	h := make([]byte, headerSize)
	copy(h, header)
	buf.Write(h)
	binary.Write(&buf, binary.LittleEndian, uint32(len(tris)))
	for _, tri := range tris {
		binary.Write(&buf, binary.LittleEndian, [3]float32{0, 0, 1})
		for _, v := range tri {
			binary.Write(&buf, binary.LittleEndian, [3]float32{float32(v[0]), float32(v[1]), float32(v[2])})
		}
		binary.Write(&buf, binary.LittleEndian, uint16(0))
	}
	return buf.Bytes()
}

var squareTris = [][3]dvec3.T{
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
	{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
}

func TestParseASCII(t *testing.T) {
	m, err := Read(strings.NewReader(squareASCII))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "square plate" {
		t.Errorf("Expected name %q, got %q", "square plate", m.Name)
	}
	if len(m.Mesh.Vertices) != 4 || m.Mesh.FaceCount() != 2 {
		t.Errorf("Expected 4 welded vertices and 2 faces, got %d and %d", len(m.Mesh.Vertices), m.Mesh.FaceCount())
	}
	if m.Mesh.Loops[1][0] != m.Mesh.Loops[0][0] || m.Mesh.Loops[1][1] != m.Mesh.Loops[0][2] {
		t.Errorf("Expected shared corners to share indices, got %v", m.Mesh.Loops)
	}
}

func TestParseBinary(t *testing.T) {
	m, err := Read(bytes.NewReader(binarySTL("plate", squareTris)))
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "plate" {
		t.Errorf("Expected name plate, got %q", m.Name)
	}
	if len(m.Mesh.Vertices) != 4 || m.Mesh.TriangleCount() != 2 {
		t.Errorf("Expected 4 vertices and 2 triangles, got %d and %d", len(m.Mesh.Vertices), m.Mesh.TriangleCount())
	}
}

func TestParseBinaryWithSolidHeader(t *testing.T) {
	// exporters often write "solid" into the binary header
	m, err := Read(bytes.NewReader(binarySTL("solid exported", squareTris)))
	if err != nil {
		t.Fatal(err)
	}
	if m.Mesh.FaceCount() != 2 {
		t.Errorf("Expected binary parse with 2 faces, got %d", m.Mesh.FaceCount())
	}
}

func TestParseDropsDegenerate(t *testing.T) {
	tris := append([][3]dvec3.T{{{0, 0, 0}, {0, 0, 0}, {1, 0, 0}}}, squareTris...)
	m, err := Read(bytes.NewReader(binarySTL("", tris)))
	if err != nil {
		t.Fatal(err)
	}
	if m.Mesh.FaceCount() != 2 {
		t.Errorf("Expected the degenerate triangle dropped, got %d faces", m.Mesh.FaceCount())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad number", []byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 a 0\n")},
		{"short facet", []byte("solid x\nfacet normal 0 0 1\nouter loop\nvertex 0 0 0\nendloop\nendfacet\n")},
		{"truncated binary", binarySTL("x", squareTris)[:120]},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Read(bytes.NewReader(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plate.stl")
	if err := os.WriteFile(path, []byte(squareASCII), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	obj := m.Object()
	if obj.Name != "square plate" || obj.TriangleCount() != 2 {
		t.Errorf("Unexpected object %s with %d triangles", obj.Name, obj.TriangleCount())
	}
	if _, err := Parse(filepath.Join(t.TempDir(), "missing.stl")); err == nil {
		t.Error("Expected error for missing file")
	}
}
