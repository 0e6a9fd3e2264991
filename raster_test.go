package impostor

import (
	"errors"
	"image/color"
	"testing"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

func squareAt(name string, z, half float64, c color.RGBA) *Object {
	obj, _ := polygonObject(
		dvec3.T{-half, -half, z}, dvec3.T{half, -half, z}, dvec3.T{half, half, z}, dvec3.T{-half, half, z})
	obj.Name = name
	obj.Color = c
	return obj
}

func topDownContext(objects ...*Object) *RenderContext {
	return &RenderContext{
		Scene: &Scene{Objects: objects},
		Camera: &Camera{
			Frame:       NewRigidTransform(dvec3.T{1, 0, 0}, dvec3.T{0, 1, 0}, dvec3.T{0, 0, 1}, dvec3.T{0, 0, 5}),
			OrthoWidth:  2,
			OrthoHeight: 2,
		},
		Light: &Light{Direction: dvec3.T{0, 0, -1}, Energy: 1},
	}
}

func TestRasterRendererCoverage(t *testing.T) {
	red := color.RGBA{200, 0, 0, 255}
	rc := topDownContext(squareAt("sq", 0, 0.5, red))
	r := NewRasterRenderer(RasterOptions{Supersample: 1, Ambient: 0.25})

	c, err := r.Render(rc, RenderRequest{Width: 8, Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Release()
	if c.Image.Bounds().Dx() != 8 || c.Image.Bounds().Dy() != 8 {
		t.Fatalf("Expected 8x8 image, got %v", c.Image.Bounds())
	}
	// the square covers pixels 2..5 on both axes
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			got := c.Image.RGBAAt(x, y)
			inside := x >= 2 && x <= 5 && y >= 2 && y <= 5
			if inside && got != red {
				t.Errorf("pixel (%d,%d): expected %v, got %v", x, y, red, got)
			}
			if !inside && got.A != 0 {
				t.Errorf("pixel (%d,%d): expected transparent, got %v", x, y, got)
			}
		}
	}
}

func TestRasterRendererDepth(t *testing.T) {
	near := squareAt("near", 1, 0.5, color.RGBA{0, 200, 0, 255})
	far := squareAt("far", 0, 0.9, color.RGBA{0, 0, 200, 255})
	r := NewRasterRenderer(RasterOptions{Supersample: 1})

	for _, order := range [][]*Object{{near, far}, {far, near}} {
		c, err := r.Render(topDownContext(order...), RenderRequest{Width: 16, Height: 16})
		if err != nil {
			t.Fatal(err)
		}
		if got := c.Image.RGBAAt(8, 8); got != near.Color {
			t.Errorf("centre: expected near colour, got %v", got)
		}
		if got := c.Image.RGBAAt(2, 8); got != far.Color {
			t.Errorf("edge: expected far colour, got %v", got)
		}
		c.Release()
	}
}

func TestRasterRendererSkipsHidden(t *testing.T) {
	obj := squareAt("sq", 0, 0.5, color.RGBA{200, 0, 0, 255})
	obj.Hidden = true
	r := NewRasterRenderer(RasterOptions{Supersample: 1})
	c, err := r.Render(topDownContext(obj), RenderRequest{Width: 8, Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !isBlank(c.Image) {
		t.Errorf("Expected hidden object not to be drawn")
	}
}

func TestRasterRendererSupersample(t *testing.T) {
	red := color.RGBA{200, 0, 0, 255}
	r := NewRasterRenderer(RasterOptions{Supersample: 4, Background: color.RGBA{0, 0, 0, 255}})
	c, err := r.Render(topDownContext(squareAt("sq", 0, 0.5, red)), RenderRequest{Width: 10, Height: 6})
	if err != nil {
		t.Fatal(err)
	}
	if c.Image.Bounds().Dx() != 10 || c.Image.Bounds().Dy() != 6 {
		t.Fatalf("Expected 10x6 image, got %v", c.Image.Bounds())
	}
	if got := c.Image.RGBAAt(5, 3); got.R < 150 {
		t.Errorf("Expected red centre, got %v", got)
	}
	if got := c.Image.RGBAAt(0, 0); got.R != 0 || got.A != 255 {
		t.Errorf("Expected opaque background corner, got %v", got)
	}
}

func TestRasterRendererShading(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	rc := topDownContext(squareAt("sq", 0, 0.5, white))
	rc.Light.Direction = dvec3.T{1, 0, 0}
	r := NewRasterRenderer(RasterOptions{Supersample: 1, Ambient: 0.2})
	c, err := r.Render(rc, RenderRequest{Width: 8, Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Image.RGBAAt(4, 4); got.R != 51 {
		t.Errorf("Expected ambient only shading (51), got %v", got)
	}
}

func TestRenderContextErrors(t *testing.T) {
	obj := squareAt("sq", 0, 0.5, color.RGBA{200, 0, 0, 255})
	tests := []struct {
		name   string
		modify func(rc *RenderContext)
		req    RenderRequest
	}{
		{"no camera", func(rc *RenderContext) { rc.Camera = nil }, RenderRequest{Width: 4, Height: 4}},
		{"no light", func(rc *RenderContext) { rc.Light = nil }, RenderRequest{Width: 4, Height: 4}},
		{"no scene", func(rc *RenderContext) { rc.Scene = nil }, RenderRequest{Width: 4, Height: 4}},
		{"empty size", func(rc *RenderContext) {}, RenderRequest{Width: 0, Height: 4}},
		{"flat ortho", func(rc *RenderContext) { rc.Camera.OrthoHeight = 0 }, RenderRequest{Width: 4, Height: 4}},
		{"dark light", func(rc *RenderContext) { rc.Light.Direction = dvec3.T{} }, RenderRequest{Width: 4, Height: 4}},
	}
	r := NewRasterRenderer(DefaultRasterOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := topDownContext(obj)
			tt.modify(rc)
			_, err := r.Render(rc, tt.req)
			if !errors.Is(err, ErrRender) {
				t.Errorf("Expected render error, got %v", err)
			}
		})
	}
}

func TestCaptureRelease(t *testing.T) {
	released := 0
	c := NewCapture(solidImage(2, 2, color.RGBA{1, 1, 1, 1}), func() { released++ })
	if err := c.Release(); err != nil {
		t.Fatal(err)
	}
	if released != 1 || c.Image != nil {
		t.Errorf("Expected release callback once and image dropped")
	}
	if err := c.Release(); !errors.Is(err, ErrResource) {
		t.Errorf("Expected resource error on double release, got %v", err)
	}
	if released != 1 {
		t.Errorf("Expected release callback once, got %d", released)
	}
}
