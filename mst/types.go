package mst

const MESH_SIGNATURE string = "fwtm"
const MSTEXT string = ".mst"
const V1 uint32 = 1
const V2 uint32 = 2
const V3 uint32 = 3
const V4 uint32 = 4
const V5 uint32 = 5

// CurrentVersion is the version written by NewMesh.
const CurrentVersion = V5

const (
	MESH_TRIANGLE_MATERIAL_TYPE_COLOR   = 0
	MESH_TRIANGLE_MATERIAL_TYPE_TEXTURE = 1
	MESH_TRIANGLE_MATERIAL_TYPE_PBR     = 2
	MESH_TRIANGLE_MATERIAL_TYPE_LAMBERT = 3
	MESH_TRIANGLE_MATERIAL_TYPE_PHONG   = 4
)

const (
	TEXTURE_PIXEL_TYPE_UBYTE = 0
)

const (
	TEXTURE_FORMAT_R    = 0
	TEXTURE_FORMAT_RGB  = 4
	TEXTURE_FORMAT_RGBA = 6
)

const (
	TEXTURE_COMPRESSED_ZLIB = 1
)

// MeshMaterial is implemented by every material a face group can reference
// through its batch id.
type MeshMaterial interface {
	HasTexture() bool
	GetTexture() *Texture
	GetColor() [3]byte
	GetEmissive() [3]byte
}

// Face is one triangle. Vertex indexes the node's Vertices, and by the same
// index its Normals, Colors and TexCoords.
type Face struct {
	Vertex [3]uint32
}

// MeshTriangle is a group of triangles sharing the material Batchid.
type MeshTriangle struct {
	Batchid int32   `json:"batchid"`
	Faces   []*Face `json:"faces"`
}

// MeshOutline is a group of edges drawn with the material Batchid.
type MeshOutline struct {
	Batchid int32       `json:"batchid"`
	Edges   [][2]uint32 `json:"edges"`
}
