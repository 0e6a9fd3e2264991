package impostor

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func isBlank(img *image.RGBA) bool {
	for _, b := range img.Pix {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestAtlasPasteBounds(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		x, y int
	}{
		{"negative x", 2, 2, -1, 0},
		{"negative y", 2, 2, 0, -1},
		{"too wide", 5, 2, 4, 0},
		{"too tall", 2, 5, 0, 4},
		{"bigger than atlas", 9, 9, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAtlas(8, 8)
			err := a.Paste(solidImage(tt.w, tt.h, color.RGBA{255, 0, 0, 255}), tt.x, tt.y)
			if !errors.Is(err, ErrLayout) {
				t.Errorf("Expected layout error, got %v", err)
			}
			if !isBlank(a.Finalize()) {
				t.Errorf("Expected atlas untouched after failed paste")
			}
		})
	}
}

func TestAtlasPasteRows(t *testing.T) {
	a := NewAtlas(4, 4)
	red := color.RGBA{255, 0, 0, 255}
	if err := a.Paste(solidImage(2, 2, red), 1, 2); err != nil {
		t.Fatal(err)
	}
	img := a.Finalize()
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := color.RGBA{}
			if x >= 1 && x < 3 && y >= 2 {
				want = red
			}
			if got := img.RGBAAt(x, y); got != want {
				t.Errorf("pixel (%d,%d): expected %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestAtlasPasteFullRows(t *testing.T) {
	a := NewAtlas(4, 8)
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for i := range src.Pix {
		src.Pix[i] = byte(i + 1)
	}
	if err := a.Paste(src, 0, 5); err != nil {
		t.Fatal(err)
	}
	img := a.Finalize()
	off := img.PixOffset(0, 5)
	for i, b := range src.Pix {
		if img.Pix[off+i] != b {
			t.Fatalf("byte %d: expected %d, got %d", i, b, img.Pix[off+i])
		}
	}
	for i := 0; i < off; i++ {
		if img.Pix[i] != 0 {
			t.Fatalf("byte %d above the pasted block was written", i)
		}
	}
}

func TestAtlasPasteSubImage(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 8, 8))
	green := color.RGBA{0, 255, 0, 255}
	for y := 2; y < 4; y++ {
		for x := 0; x < 8; x++ {
			big.SetRGBA(x, y, green)
		}
	}
	// a full-width sub image still has the parent stride
	sub := big.SubImage(image.Rect(0, 2, 8, 4)).(*image.RGBA)

	a := NewAtlas(8, 8)
	if err := a.Paste(sub, 0, 0); err != nil {
		t.Fatal(err)
	}
	img := a.Finalize()
	for x := 0; x < 8; x++ {
		if img.RGBAAt(x, 0) != green || img.RGBAAt(x, 1) != green {
			t.Errorf("column %d: expected green rows", x)
		}
		if img.RGBAAt(x, 2) != (color.RGBA{}) {
			t.Errorf("column %d: expected row 2 untouched", x)
		}
	}
}

func TestAtlasFinalize(t *testing.T) {
	a := NewAtlas(4, 4)
	if a.Finalized() {
		t.Fatal("new atlas is finalized")
	}
	img := a.Finalize()
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Expected 4x4 image, got %v", img.Bounds())
	}
	if err := a.Paste(solidImage(1, 1, color.RGBA{1, 2, 3, 4}), 0, 0); !errors.Is(err, ErrLayout) {
		t.Errorf("Expected layout error after finalize, got %v", err)
	}
}
