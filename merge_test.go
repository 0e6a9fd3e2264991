package impostor

import (
	"math"
	"testing"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// gridMesh returns an n x n grid of unit squares in z=0, each split into two
// triangles. skip removes cells.
func gridMesh(n int, skip func(x, y int) bool) *Mesh {
	m := NewMesh()
	for y := 0; y <= n; y++ {
		for x := 0; x <= n; x++ {
			m.AddVertex(dvec3.T{float64(x), float64(y), 0})
		}
	}
	idx := func(x, y int) uint32 { return uint32(y*(n+1) + x) }
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if skip != nil && skip(x, y) {
				continue
			}
			a, b, c, d := idx(x, y), idx(x+1, y), idx(x+1, y+1), idx(x, y+1)
			m.AddLoop(a, b, c)
			m.AddLoop(a, c, d)
		}
	}
	return m
}

func TestCoplanarMergeSquare(t *testing.T) {
	out := CoplanarMerger{}.Simplify(gridMesh(1, nil), 0.5)
	if out.FaceCount() != 1 {
		t.Fatalf("Expected 1 face, got %d: %v", out.FaceCount(), out.Loops)
	}
	if len(out.Loops[0]) != 4 {
		t.Errorf("Expected a quad, got %v", out.Loops[0])
	}
}

func TestCoplanarMergeGrid(t *testing.T) {
	out := CoplanarMerger{}.Simplify(gridMesh(3, nil), 0.5)
	if out.FaceCount() != 1 {
		t.Fatalf("Expected 1 face, got %d", out.FaceCount())
	}
	// collinear boundary vertices are dropped
	if len(out.Loops[0]) != 4 {
		t.Errorf("Expected 4 corners, got %v", out.Loops[0])
	}
	f, err := NewFace(NewObject("grid", out), 0, out.Loops[0], DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.Width()-3) > 1e-9 || math.Abs(f.Height()-3) > 1e-9 {
		t.Errorf("Expected 3x3 face, got %fx%f", f.Width(), f.Height())
	}
}

func TestCoplanarMergeCube(t *testing.T) {
	out := CoplanarMerger{}.Simplify(cubeMesh(true), 0.5)
	if out.FaceCount() != 6 {
		t.Fatalf("Expected 6 faces, got %d", out.FaceCount())
	}
	for i, l := range out.Loops {
		if len(l) != 4 {
			t.Errorf("face %d: expected quad, got %v", i, l)
		}
	}
	if out.TriangleCount() != 12 {
		t.Errorf("Expected 12 triangles, got %d", out.TriangleCount())
	}
}

func TestCoplanarMergeKeepsFolds(t *testing.T) {
	m := NewMesh()
	for _, p := range []dvec3.T{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 1}} {
		m.AddVertex(p)
	}
	m.AddLoop(0, 1, 2)
	m.AddLoop(0, 2, 3)
	out := CoplanarMerger{}.Simplify(m, 0.5)
	if out.FaceCount() != 2 {
		t.Errorf("Expected folded triangles to stay apart, got %v", out.Loops)
	}

	wide := CoplanarMerger{}.Simplify(m, 60)
	if wide.FaceCount() != 1 {
		t.Errorf("Expected a 60 degree threshold to merge the fold, got %v", wide.Loops)
	}
}

func TestCoplanarMergeKeepsHoles(t *testing.T) {
	m := gridMesh(3, func(x, y int) bool { return x == 1 && y == 1 })
	out := CoplanarMerger{}.Simplify(m, 0.5)
	if out.FaceCount() != m.FaceCount() {
		t.Errorf("Expected a ring region to stay unmerged, got %d of %d faces", out.FaceCount(), m.FaceCount())
	}
}
