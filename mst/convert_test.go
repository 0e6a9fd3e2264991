package mst

import (
	"image/color"
	"math"
	"testing"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"go.uber.org/zap/zaptest"

	impostor "github.com/flywave/go-impostor"
)

func unitCube() *impostor.Mesh {
	m := impostor.NewMesh()
	for i := 0; i < 8; i++ {
		m.AddVertex(dvec3.T{float64(i & 1), float64(i >> 1 & 1), float64(i >> 2 & 1)})
	}
	for _, q := range [][]uint32{
		{0, 2, 3, 1}, {4, 5, 7, 6}, {0, 1, 5, 4},
		{2, 6, 7, 3}, {0, 4, 6, 2}, {1, 3, 7, 5},
	} {
		m.AddLoop(q...)
	}
	return m
}

// buildCube runs a real build of a quad cube impostor over a triangulated
// cube source.
func buildCube(t *testing.T, sink impostor.MaterialSink) *impostor.Result {
	t.Helper()
	opts := impostor.DefaultOptions()
	opts.AtlasWidth = 128
	opts.TexelsPerFace = 16
	b, err := impostor.NewBuilder(opts, impostor.NewRasterRenderer(impostor.DefaultRasterOptions()), sink, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	src := impostor.NewObject("source", unitCube())
	src.Color = color.RGBA{R: 255, A: 255}
	target := impostor.NewObject("cube", unitCube())
	res, err := b.Build(impostor.BuildRequest{Target: target, Sources: []*impostor.Object{src}})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

// TestFromResult checks geometry, texcoords and properties of the impostor.
func TestFromResult(t *testing.T) {
	res := buildCube(t, nil)
	ms, err := FromResult(res)
	if err != nil {
		t.Fatal(err)
	}
	if ms.NodeCount() != 1 || ms.MaterialCount() != 1 {
		t.Fatalf("Expected 1 node and 1 material, got %d and %d", ms.NodeCount(), ms.MaterialCount())
	}
	nd := ms.Nodes[0]
	if len(nd.Vertices) != 24 || len(nd.TexCoords) != 24 || len(nd.Normals) != 24 {
		t.Errorf("Expected 24 corners, got %d vertices, %d texcoords, %d normals",
			len(nd.Vertices), len(nd.TexCoords), len(nd.Normals))
	}
	if nd.TriangleCount() != 12 {
		t.Errorf("Expected 12 triangles, got %d", nd.TriangleCount())
	}
	for i, f := range res.Faces {
		for j := range f.Loop {
			got := nd.TexCoords[i*4+j]
			want := res.UVs[i][j]
			if math.Abs(float64(got[0])-want.U) > 1e-6 || math.Abs(float64(got[1])-want.V) > 1e-6 {
				t.Errorf("face %d corner %d: expected %v, got %v", i, j, want, got)
			}
		}
	}
	if nd.Mat != nil {
		t.Errorf("Expected no node matrix at the origin")
	}
	if ms.Props[PropBuild].Value != res.ID.String() || ms.Props[PropTarget].Value != "cube" {
		t.Errorf("Unexpected properties %v", ms.Props)
	}

	tex := ms.Materials[0].GetTexture()
	img, err := LoadTexture(tex, true)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != res.Atlas.Bounds() {
		t.Fatalf("Expected atlas bounds %v, got %v", res.Atlas.Bounds(), img.Bounds())
	}
	r := res.Layout.Rects[0].Inset(res.Layout.Margin)
	cx, cy := (r.X0+r.X1)/2, (r.Y0+r.Y1)/2
	if got, want := img.NRGBAAt(cx, cy), res.Atlas.RGBAAt(cx, cy); got.R != want.R || got.A != want.A {
		t.Errorf("Expected atlas pixel %v at face centre, got %v", want, got)
	}
}

// TestFromResultErrors covers incomplete results.
func TestFromResultErrors(t *testing.T) {
	if _, err := FromResult(nil); err == nil {
		t.Error("Expected error for nil result")
	}
	res := buildCube(t, nil)
	res.UVs = res.UVs[:2]
	if _, err := FromResult(res); err == nil {
		t.Error("Expected error for missing uvs")
	}
}

// TestToMesh flattens nodes and instances.
func TestToMesh(t *testing.T) {
	ms := NewMesh()
	nd := quadNode()
	m := dmat.Ident
	m[3][2] = 2
	nd.Mat = &m
	ms.Nodes = []*MeshNode{nd}
	shift := dmat.Ident
	shift[3][0] = 5
	ms.InstanceNode = []*InstanceMesh{{
		Transfors: []*dmat.T{&shift},
		Mesh:      &BaseMesh{Nodes: []*MeshNode{quadNode()}},
	}}
	ms.Materials = []MeshMaterial{&BaseMaterial{Color: [3]byte{10, 20, 30}}}

	obj, err := NewObject("quads", ms)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Mesh.FaceCount() != 4 || len(obj.Mesh.Vertices) != 8 {
		t.Fatalf("Expected 4 faces over 8 vertices, got %d and %d", obj.Mesh.FaceCount(), len(obj.Mesh.Vertices))
	}
	if obj.Mesh.Vertices[0] != (dvec3.T{0, 0, 2}) {
		t.Errorf("Expected node matrix applied, got %v", obj.Mesh.Vertices[0])
	}
	if obj.Mesh.Vertices[5] != (dvec3.T{6, 0, 0}) {
		t.Errorf("Expected instance transform applied, got %v", obj.Mesh.Vertices[5])
	}
	if obj.Color != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("Expected first material colour, got %v", obj.Color)
	}

	nd.FaceGroup[0].Faces[0].Vertex[0] = 10
	if _, err := ToMesh(ms); err == nil {
		t.Error("Expected error for out of range vertex")
	}
}

// TestNewObjectEmpty covers meshes without nodes or materials.
func TestNewObjectEmpty(t *testing.T) {
	src := NewMesh()
	src.Materials = []MeshMaterial{&BaseMaterial{Color: [3]byte{0, 0, 255}}}
	obj, err := NewObject("quads", src)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Mesh.FaceCount() != 0 {
		t.Errorf("Expected empty mesh, got %d faces", obj.Mesh.FaceCount())
	}
	if MeshColor(NewMesh()) != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("Expected grey default colour")
	}
}
