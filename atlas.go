package impostor

import (
	"image"
)

// Atlas is the RGBA buffer all face images are pasted into. It starts fully
// transparent and can only be written through Paste until Finalize.
type Atlas struct {
	img    *image.RGBA
	sealed bool
}

// NewAtlas allocates a transparent black atlas.
func NewAtlas(width, height int) *Atlas {
	return &Atlas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (a *Atlas) Width() int  { return a.img.Rect.Dx() }
func (a *Atlas) Height() int { return a.img.Rect.Dy() }

// Paste copies src into the atlas with its top-left corner at (x, y).
func (a *Atlas) Paste(src *image.RGBA, x, y int) error {
	if a.sealed {
		return layoutErrorf("atlas is finalized")
	}
	sb := src.Bounds()
	sw, sh := sb.Dx(), sb.Dy()
	if x < 0 || y < 0 || x+sw > a.Width() || y+sh > a.Height() {
		return layoutErrorf("paste of %dx%d at (%d,%d) exceeds atlas %dx%d", sw, sh, x, y, a.Width(), a.Height())
	}
	if sw == 0 || sh == 0 {
		return nil
	}

	dst := a.img
	rowBytes := sw * 4
	srcOff := src.PixOffset(sb.Min.X, sb.Min.Y)
	dstOff := dst.PixOffset(x, y)

	// Whole rows on both sides: one block copy.
	if x == 0 && sw == a.Width() && src.Stride == rowBytes {
		copy(dst.Pix[dstOff:dstOff+rowBytes*sh], src.Pix[srcOff:srcOff+rowBytes*sh])
		return nil
	}
	for row := 0; row < sh; row++ {
		copy(dst.Pix[dstOff:dstOff+rowBytes], src.Pix[srcOff:srcOff+rowBytes])
		srcOff += src.Stride
		dstOff += dst.Stride
	}
	return nil
}

// Finalize seals the atlas and returns its image. Later pastes fail.
func (a *Atlas) Finalize() *image.RGBA {
	a.sealed = true
	return a.img
}

// Finalized reports whether Finalize was called.
func (a *Atlas) Finalized() bool {
	return a.sealed
}
