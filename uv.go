package impostor

// UV is a normalized atlas coordinate with the origin at the bottom-left
// corner of the atlas image.
type UV struct {
	U, V float64
}

// MapFraction places the face fraction (fx, fy) inside rect shrunk by
// margin and normalizes by the atlas size. Image rows grow downward while fy
// grows upward, hence the flips.
func MapFraction(fx, fy float64, rect PackedRect, margin, atlasWidth, atlasHeight int) UV {
	in := rect.Inset(margin)
	px := float64(in.X0) + fx*float64(in.Width())
	py := float64(in.Y0) + (1-fy)*float64(in.Height())
	return UV{
		U: px / float64(atlasWidth),
		V: 1 - py/float64(atlasHeight),
	}
}

// Unmap is the inverse of MapFraction.
func Unmap(uv UV, rect PackedRect, margin, atlasWidth, atlasHeight int) (fx, fy float64) {
	in := rect.Inset(margin)
	px := uv.U * float64(atlasWidth)
	py := (1 - uv.V) * float64(atlasHeight)
	fx = (px - float64(in.X0)) / float64(in.Width())
	fy = 1 - (py-float64(in.Y0))/float64(in.Height())
	return fx, fy
}

// MapFace returns one UV per loop vertex of f. It reuses the face's stored
// inverse transform and bounds so the UVs line up with the image rendered
// for the same face.
func MapFace(f *Face, rect PackedRect, margin, atlasWidth, atlasHeight int) []UV {
	uvs := make([]UV, len(f.Loop))
	for i := range f.Loop {
		fx, fy := f.Fraction(f.position(i))
		uvs[i] = MapFraction(fx, fy, rect, margin, atlasWidth, atlasHeight)
	}
	return uvs
}
