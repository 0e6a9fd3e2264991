package mst

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

// TestSinkPublish runs a build through the sink and checks every file.
func TestSinkPublish(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, []string{FormatMST, FormatGLB, ImagePNG, ImageTGA}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	res := buildCube(t, sink)

	for _, name := range []string{"cube.mst", "cube.glb", "cube_atlas.png", "cube_atlas.tga"} {
		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("Expected %s: %v", name, err)
			continue
		}
		if st.Size() == 0 {
			t.Errorf("Expected %s to be non-empty", name)
		}
	}

	ms, err := MeshReadFrom(filepath.Join(dir, "cube.mst"))
	if err != nil {
		t.Fatal(err)
	}
	if ms.Props[PropBuild].Value != res.ID.String() {
		t.Errorf("Expected build id %s, got %v", res.ID, ms.Props[PropBuild].Value)
	}

	tex, err := CreateTexture(filepath.Join(dir, "cube_atlas.png"), false)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Size != [2]uint64{uint64(res.Atlas.Rect.Dx()), uint64(res.Atlas.Rect.Dy())} {
		t.Errorf("Expected atlas size %v, got %v", res.Atlas.Rect.Size(), tex.Size)
	}
}

// TestSinkName checks the override and path sanitising.
func TestSinkName(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewSink(dir, []string{ImageBMP}, nil)
	if err != nil {
		t.Fatal(err)
	}
	sink.Name = "a/b"
	buildCube(t, sink)
	if _, err := os.Stat(filepath.Join(dir, "a_b_atlas.bmp")); err != nil {
		t.Errorf("Expected sanitised file name: %v", err)
	}
}

// TestSinkFormats rejects unknown formats.
func TestSinkFormats(t *testing.T) {
	if _, err := NewSink(t.TempDir(), []string{"png", "jpeg"}, nil); err == nil {
		t.Error("Expected error for jpeg output")
	}
	for _, f := range []string{"MST", "glb", "png", "tga", "bmp", "tiff"} {
		if !IsOutputFormat(f) {
			t.Errorf("Expected %s to be accepted", f)
		}
	}
}

// TestSinkCollectsErrors checks one failing format does not stop others.
func TestSinkCollectsErrors(t *testing.T) {
	dir := t.TempDir()
	// a directory where the glb file should go makes that write fail
	if err := os.Mkdir(filepath.Join(dir, "cube.glb"), 0o755); err != nil {
		t.Fatal(err)
	}
	sink, err := NewSink(dir, []string{FormatGLB, FormatMST}, nil)
	if err != nil {
		t.Fatal(err)
	}
	res := buildCube(t, nil)
	err = sink.Publish(res)
	if err == nil || !strings.Contains(err.Error(), "cube.glb") {
		t.Errorf("Expected glb write error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cube.mst")); err != nil {
		t.Errorf("Expected mst written despite glb failure: %v", err)
	}
}
