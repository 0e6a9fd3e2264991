package impostor

import (
	"fmt"
	"math"
	"sort"
)

// Unbounded as atlas height lets Pack grow the atlas downward.
const Unbounded = 0

// Size of an image in pixels.
type Size struct {
	W, H int
}

// PackedRect is a pixel rectangle [X0,X1) x [Y0,Y1) with y growing down.
type PackedRect struct {
	X0, Y0, X1, Y1 int
}

func (r PackedRect) Width() int  { return r.X1 - r.X0 }
func (r PackedRect) Height() int { return r.Y1 - r.Y0 }

// Overlaps reports whether r and o share at least one pixel.
func (r PackedRect) Overlaps(o PackedRect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Inset shrinks r by m on every side.
func (r PackedRect) Inset(m int) PackedRect {
	return PackedRect{X0: r.X0 + m, Y0: r.Y0 + m, X1: r.X1 - m, Y1: r.Y1 - m}
}

func (r PackedRect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X0, r.Y0, r.X1, r.Y1)
}

// Layout is the result of a packing pass. Rects is indexed like the input.
type Layout struct {
	Width          int
	Height         int
	RequiredHeight int
	Margin         int
	Rects          []PackedRect
}

// Pack lays sizes out on shelves of an atlas atlasWidth wide. Rectangles are
// taken widest first, ties in input order. With atlasHeight == Unbounded the
// layout only reports RequiredHeight; otherwise every rectangle plus its
// margin must fit the height.
func Pack(sizes []Size, atlasWidth, atlasHeight, margin int) (*Layout, error) {
	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sizes[order[a]].W > sizes[order[b]].W
	})

	l := &Layout{
		Width:  atlasWidth,
		Height: atlasHeight,
		Margin: margin,
		Rects:  make([]PackedRect, len(sizes)),
	}

	var cursorX, shelfY, bottom int
	for _, idx := range order {
		s := sizes[idx]
		if s.W <= 0 || s.H <= 0 {
			return nil, layoutErrorf("rectangle %d has empty size %dx%d", idx, s.W, s.H)
		}
		if s.W > atlasWidth-2*margin {
			return nil, layoutErrorf("rectangle %d is %d pixels wide, atlas allows %d", idx, s.W, atlasWidth-2*margin)
		}

		x := cursorX + margin
		if x+s.W > atlasWidth-margin {
			shelfY = bottom
			x = margin
		}
		y := shelfY + margin
		if atlasHeight != Unbounded && y+s.H+margin > atlasHeight {
			return nil, layoutErrorf("rectangle %d does not fit atlas height %d", idx, atlasHeight)
		}

		l.Rects[idx] = PackedRect{X0: x, Y0: y, X1: x + s.W, Y1: y + s.H}
		cursorX = x + s.W
		if y+s.H > bottom {
			bottom = y + s.H
		}
	}
	if len(sizes) > 0 {
		l.RequiredHeight = bottom + margin
	}
	return l, nil
}

// PlanAtlas runs the two sizing passes: an unbounded pass finds the required
// height, which is rounded up to a power of two, and a second pass packs
// against that final height.
func PlanAtlas(sizes []Size, opts Options) (*Layout, error) {
	return planAtlas(sizes, opts, nil)
}

func planAtlas(sizes []Size, opts Options, reached func(Stage)) (*Layout, error) {
	if reached == nil {
		reached = func(Stage) {}
	}
	draft, err := Pack(sizes, opts.AtlasWidth, Unbounded, opts.Margin)
	if err != nil {
		return nil, err
	}
	reached(StagePackedDraft)
	if draft.RequiredHeight > opts.MaxTextureDimension {
		return nil, layoutErrorf("atlas needs %d rows, maximum texture dimension is %d",
			draft.RequiredHeight, opts.MaxTextureDimension)
	}
	height := NextPowerOfTwo(draft.RequiredHeight)
	reached(StageSized)

	final, err := Pack(sizes, opts.AtlasWidth, height, opts.Margin)
	if err != nil {
		return nil, err
	}
	for i := range final.Rects {
		if final.Rects[i] != draft.Rects[i] {
			panic(fmt.Sprintf("impostor: packing is not deterministic, rect %d moved from %s to %s",
				i, draft.Rects[i], final.Rects[i]))
		}
	}
	final.RequiredHeight = draft.RequiredHeight
	reached(StagePacked)
	return final, nil
}

// PixelsPerUnit gives the widest face texels pixels and scales every other
// face by the same factor.
func PixelsPerUnit(faces []*Face, texels int) (float64, error) {
	var widest float64
	for _, f := range faces {
		widest = math.Max(widest, f.Width())
	}
	if widest <= 0 {
		return 0, geometryErrorf(-1, "no face has a positive width")
	}
	return float64(texels) / widest, nil
}

func ceilPixels(v float64) int {
	n := int(math.Ceil(v - 1e-6))
	if n < 1 {
		n = 1
	}
	return n
}

// ContentSize is the pixel size of the face footprint itself.
func ContentSize(f *Face, ppu float64) Size {
	return Size{W: ceilPixels(f.Width() * ppu), H: ceilPixels(f.Height() * ppu)}
}

// FaceImageSize is the rendered image size of f: its footprint plus a bleed
// ring of margin pixels on every side.
func FaceImageSize(f *Face, ppu float64, margin int) Size {
	c := ContentSize(f, ppu)
	return Size{W: c.W + 2*margin, H: c.H + 2*margin}
}
