package mst

// BaseMaterial is a flat colour.
type BaseMaterial struct {
	Color        [3]byte `json:"color"`
	Transparency float32 `json:"transparency"`
}

func (m *BaseMaterial) HasTexture() bool {
	return false
}

func (m *BaseMaterial) GetEmissive() [3]byte {
	return [3]byte{0, 0, 0}
}

func (m *BaseMaterial) GetTexture() *Texture {
	return nil
}

func (m *BaseMaterial) GetColor() [3]byte {
	return m.Color
}

// TextureMaterial is a colour with an optional diffuse and normal texture.
// Impostor atlases are published as the diffuse texture of one.
type TextureMaterial struct {
	BaseMaterial
	Texture *Texture `json:"texture,omitempty"`
	Normal  *Texture `json:"normal,omitempty"`
}

func (m *TextureMaterial) HasTexture() bool {
	return m.Texture != nil
}

func (m *TextureMaterial) GetTexture() *Texture {
	return m.Texture
}

func (m *TextureMaterial) HasNormalTexture() bool {
	return m.Normal != nil
}

func (m *TextureMaterial) GetNormalTexture() *Texture {
	return m.Normal
}

// ShadingMaterial is a PBR, Lambert or Phong material. Only its texture
// material part is decoded; the lighting parameters are kept as raw bytes
// so the material is written back unchanged.
type ShadingMaterial struct {
	TextureMaterial
	Type   uint32 `json:"type"`
	Params []byte `json:"-"`
}

// shadingParamsSize returns the encoded size of the lighting parameters
// following the texture material of type t.
func shadingParamsSize(t uint32) int {
	switch t {
	case MESH_TRIANGLE_MATERIAL_TYPE_PBR:
		// emissive, six floats, clear coat normal, anisotropy and its
		// direction, thickness, subsurface power, sheen and subsurface colours
		return 3 + 6*4 + 3 + 4 + 3*4 + 4 + 4 + 3 + 3
	case MESH_TRIANGLE_MATERIAL_TYPE_LAMBERT:
		return 3 * 3
	case MESH_TRIANGLE_MATERIAL_TYPE_PHONG:
		return 3*3 + 3 + 4 + 4
	}
	return -1
}

func (m *ShadingMaterial) GetEmissive() [3]byte {
	var off int
	switch m.Type {
	case MESH_TRIANGLE_MATERIAL_TYPE_PBR:
		off = 0
	case MESH_TRIANGLE_MATERIAL_TYPE_LAMBERT, MESH_TRIANGLE_MATERIAL_TYPE_PHONG:
		off = 6
	default:
		return [3]byte{}
	}
	if len(m.Params) < off+3 {
		return [3]byte{}
	}
	return [3]byte{m.Params[off], m.Params[off+1], m.Params[off+2]}
}
