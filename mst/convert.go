package mst

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"

	impostor "github.com/flywave/go-impostor"
)

// Property keys written by FromResult.
const (
	PropBuild         = "impostor.build"
	PropTarget        = "impostor.target"
	PropPixelsPerUnit = "impostor.pixels_per_unit"
	PropAtlasSize     = "impostor.atlas_size"
	PropFace          = "impostor.face"
)

// FromResult converts a finished build into a mesh with one textured
// material holding the atlas. Every face gets its own vertices so each
// corner carries its atlas coordinate; faces are fan triangulated.
func FromResult(res *impostor.Result) (*Mesh, error) {
	if res == nil || res.Atlas == nil {
		return nil, errors.New("mst: result has no atlas")
	}
	if len(res.UVs) != len(res.Faces) {
		return nil, fmt.Errorf("mst: %d uv sets for %d faces", len(res.UVs), len(res.Faces))
	}

	tex, err := atlasTexture(res.Atlas, "atlas.png")
	if err != nil {
		return nil, err
	}
	mtl := &TextureMaterial{
		BaseMaterial: BaseMaterial{Color: [3]byte{255, 255, 255}},
		Texture:      tex,
	}

	node := &MeshNode{Props: Properties{}}
	group := &MeshTriangle{Batchid: 0}
	faceIDs := make([]PropsValue, 0, len(res.Faces))
	for i, f := range res.Faces {
		uvs := res.UVs[i]
		if len(uvs) != len(f.Loop) {
			return nil, fmt.Errorf("mst: face %d has %d uvs for %d vertices", f.Index, len(uvs), len(f.Loop))
		}
		base := uint32(len(node.Vertices))
		for j, vi := range f.Loop {
			p := f.Object.ScaledVertex(vi)
			node.Vertices = append(node.Vertices, vec3.T{float32(p[0]), float32(p[1]), float32(p[2])})
			node.TexCoords = append(node.TexCoords, vec2.T{float32(uvs[j].U), float32(uvs[j].V)})
		}
		for j := 1; j+1 < len(f.Loop); j++ {
			group.Faces = append(group.Faces, &Face{Vertex: [3]uint32{base, base + uint32(j), base + uint32(j+1)}})
		}
		faceIDs = append(faceIDs, IntProp(int64(f.Index)))
	}
	node.FaceGroup = []*MeshTriangle{group}
	node.ReComputeNormal()
	node.Props[PropFace] = ArrayProp(faceIDs...)

	if res.Target != nil && res.Target.Location != (dvec3.T{}) {
		m := dmat.Ident
		m[3][0], m[3][1], m[3][2] = res.Target.Location[0], res.Target.Location[1], res.Target.Location[2]
		node.Mat = &m
	}

	ms := NewMesh()
	ms.Materials = []MeshMaterial{mtl}
	ms.Nodes = []*MeshNode{node}
	ms.Props[PropBuild] = StringProp(res.ID.String())
	ms.Props[PropPixelsPerUnit] = FloatProp(res.PixelsPerUnit)
	ms.Props[PropAtlasSize] = ArrayProp(IntProp(int64(res.Atlas.Rect.Dx())), IntProp(int64(res.Atlas.Rect.Dy())))
	if res.Target != nil {
		ms.Props[PropTarget] = StringProp(res.Target.Name)
	}
	return ms, nil
}

// atlasTexture stores img bottom row first, the row order LoadTexture
// undoes with flipY.
func atlasTexture(img *image.RGBA, name string) (*Texture, error) {
	b := img.Bounds()
	flipped := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Max.Y-1-y):]
		copy(flipped.Pix[y*flipped.Stride:(y+1)*flipped.Stride], src[:b.Dx()*4])
	}
	return CreateTextureFromImage(flipped, name, false)
}

// ToMesh flattens every node and instance of ms into one polygon mesh in
// mesh space. Triangles become three-vertex loops.
func ToMesh(ms *Mesh) (*impostor.Mesh, error) {
	out := impostor.NewMesh()
	add := func(nd *MeshNode, inst *dmat.T) error {
		base := uint32(len(out.Vertices))
		for i := range nd.Vertices {
			p := nd.position(i)
			if inst != nil {
				p = inst.MulVec3(&p)
			}
			out.AddVertex(p)
		}
		for _, g := range nd.FaceGroup {
			for _, f := range g.Faces {
				for _, vi := range f.Vertex {
					if int(vi) >= len(nd.Vertices) {
						return fmt.Errorf("mst: face references vertex %d of %d", vi, len(nd.Vertices))
					}
				}
				out.AddLoop(base+f.Vertex[0], base+f.Vertex[1], base+f.Vertex[2])
			}
		}
		return nil
	}

	for i, nd := range ms.Nodes {
		if err := add(nd, nil); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	for i, inst := range ms.InstanceNode {
		if inst.Mesh == nil {
			continue
		}
		for _, t := range inst.Transfors {
			for j, nd := range inst.Mesh.Nodes {
				if err := add(nd, t); err != nil {
					return nil, fmt.Errorf("instance %d node %d: %w", i, j, err)
				}
			}
		}
	}
	return out, nil
}

// MeshColor returns the colour of the first material, or opaque grey.
func MeshColor(ms *Mesh) color.RGBA {
	if len(ms.Materials) == 0 || ms.Materials[0] == nil {
		return color.RGBA{R: 200, G: 200, B: 200, A: 255}
	}
	c := ms.Materials[0].GetColor()
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

// NewObject loads ms as a scene object named name.
func NewObject(name string, ms *Mesh) (*impostor.Object, error) {
	m, err := ToMesh(ms)
	if err != nil {
		return nil, err
	}
	obj := impostor.NewObject(name, m)
	obj.Color = MeshColor(ms)
	return obj, nil
}
