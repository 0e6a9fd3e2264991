package mst

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/png"

	dmat "github.com/flywave/go3d/float64/mat4"
	"github.com/qmuntal/gltf"
)

const (
	GLTFVersion = "2.0"

	// PaddingChar pads the binary output to the requested unit.
	PaddingChar = 0x20
)

// CreateDoc returns a document with one scene and one empty buffer.
func CreateDoc() *gltf.Document {
	doc := &gltf.Document{
		Asset: gltf.Asset{
			Version:   GLTFVersion,
			Generator: "go-impostor",
		},
		Scenes:  []*gltf.Scene{{}},
		Buffers: []*gltf.Buffer{{}},
	}
	doc.Scene = indexPtr(0)
	return doc
}

func calcPadding(offset, unit int) int {
	padding := offset % unit
	if padding != 0 {
		padding = unit - padding
	}
	return padding
}

// GetGltfBinary encodes doc as GLB padded to a multiple of paddingUnit.
func GetGltfBinary(doc *gltf.Document, paddingUnit int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := gltf.NewEncoder(&buf)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	if paddingUnit > 0 {
		buf.Write(bytes.Repeat([]byte{PaddingChar}, calcPadding(buf.Len(), paddingUnit)))
	}
	return buf.Bytes(), nil
}

// MstToGltf converts meshes into one document.
func MstToGltf(meshes []*Mesh) (*gltf.Document, error) {
	doc := CreateDoc()
	for _, mesh := range meshes {
		if err := BuildGltf(doc, mesh); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// BuildGltf appends mesh to doc. Texture coordinates are flipped to the
// top-left origin of glTF and textures are embedded as PNG.
func BuildGltf(doc *gltf.Document, mesh *Mesh) error {
	if len(mesh.Props) > 0 {
		extras, _ := doc.Asset.Extras.(map[string]interface{})
		if extras == nil {
			extras = make(map[string]interface{})
		}
		for k, v := range propsToMap(mesh.Props) {
			extras[k] = v
		}
		doc.Asset.Extras = extras
	}

	if err := buildGltfFromBaseMesh(doc, &mesh.BaseMesh, nil); err != nil {
		return err
	}
	for i, inst := range mesh.InstanceNode {
		if inst.Mesh == nil {
			continue
		}
		if err := buildGltfFromBaseMesh(doc, inst.Mesh, inst.Transfors); err != nil {
			return fmt.Errorf("mst: instance %d: %w", i, err)
		}
	}
	return nil
}

// appendView pads the buffer to four bytes, appends data and returns the
// index of the new buffer view.
func appendView(doc *gltf.Document, data []byte, target gltf.Target) int {
	buffer := doc.Buffers[0]
	if pad := calcPadding(len(buffer.Data), 4); pad > 0 {
		buffer.Data = append(buffer.Data, make([]byte, pad)...)
	}
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(buffer.Data),
		ByteLength: len(data),
		Target:     target,
	}
	buffer.Data = append(buffer.Data, data...)
	buffer.ByteLength = len(buffer.Data)
	doc.BufferViews = append(doc.BufferViews, view)
	return len(doc.BufferViews) - 1
}

func encodeLittle(v interface{}) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func buildMesh(doc *gltf.Document, node *MeshNode, mtlOffset int) (*gltf.Mesh, error) {
	var indices []uint32
	for _, g := range node.FaceGroup {
		for _, f := range g.Faces {
			for _, vi := range f.Vertex {
				if int(vi) >= len(node.Vertices) {
					return nil, fmt.Errorf("mst: face references vertex %d of %d", vi, len(node.Vertices))
				}
			}
			indices = append(indices, f.Vertex[:]...)
		}
	}
	bvIndex := appendView(doc, encodeLittle(indices), gltf.TargetElementArrayBuffer)

	bounds := node.GetBoundbox()
	if node.Mat != nil {
		// accessor bounds are in node space
		bounds = (&MeshNode{Vertices: node.Vertices}).GetBoundbox()
	}
	doc.Accessors = append(doc.Accessors, &gltf.Accessor{
		BufferView:    indexPtr(appendView(doc, encodeLittle(node.Vertices), gltf.TargetArrayBuffer)),
		ComponentType: gltf.ComponentFloat,
		Type:          gltf.AccessorVec3,
		Count:         len(node.Vertices),
		Min:           bounds[:3],
		Max:           bounds[3:],
	})
	attributes := gltf.PrimitiveAttributes{"POSITION": len(doc.Accessors) - 1}

	if len(node.TexCoords) == len(node.Vertices) && len(node.TexCoords) > 0 {
		flipped := make([][2]float32, len(node.TexCoords))
		for i, t := range node.TexCoords {
			flipped[i] = [2]float32{t[0], 1 - t[1]}
		}
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    indexPtr(appendView(doc, encodeLittle(flipped), gltf.TargetArrayBuffer)),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec2,
			Count:         len(flipped),
		})
		attributes["TEXCOORD_0"] = len(doc.Accessors) - 1
	}
	if len(node.Normals) == len(node.Vertices) && len(node.Normals) > 0 {
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    indexPtr(appendView(doc, encodeLittle(node.Normals), gltf.TargetArrayBuffer)),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         len(node.Normals),
		})
		attributes["NORMAL"] = len(doc.Accessors) - 1
	}

	mesh := &gltf.Mesh{}
	offset := 0
	for _, g := range node.FaceGroup {
		if len(g.Faces) == 0 {
			continue
		}
		batch := int(g.Batchid)
		if batch < 0 {
			batch = 0
		}
		doc.Accessors = append(doc.Accessors, &gltf.Accessor{
			BufferView:    indexPtr(bvIndex),
			ByteOffset:    offset * 12,
			ComponentType: gltf.ComponentUint,
			Type:          gltf.AccessorScalar,
			Count:         len(g.Faces) * 3,
		})
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Attributes: attributes,
			Indices:    indexPtr(len(doc.Accessors) - 1),
			Material:   indexPtr(batch + mtlOffset),
			Mode:       gltf.PrimitiveTriangles,
		})
		offset += len(g.Faces)
	}
	return mesh, nil
}

// matrix flattens m in the column-major order glTF expects.
func matrix(m *dmat.T) [16]float64 {
	var out [16]float64
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[c*4+r] = m[c][r]
		}
	}
	return out
}

func buildGltfFromBaseMesh(doc *gltf.Document, mesh *BaseMesh, transforms []*dmat.T) error {
	mtlOffset := len(doc.Materials)
	var roots []int
	for i, node := range mesh.Nodes {
		m, err := buildMesh(doc, node, mtlOffset)
		if err != nil {
			return fmt.Errorf("mst: node %d: %w", i, err)
		}
		doc.Meshes = append(doc.Meshes, m)
		gnode := &gltf.Node{Mesh: indexPtr(len(doc.Meshes) - 1)}
		if node.Mat != nil {
			gnode.Matrix = matrix(node.Mat)
		}
		if len(node.Props) > 0 {
			gnode.Extras = propsToMap(node.Props)
		}
		doc.Nodes = append(doc.Nodes, gnode)
		roots = append(roots, len(doc.Nodes)-1)
	}

	if transforms == nil {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, roots...)
	} else {
		for _, t := range transforms {
			doc.Nodes = append(doc.Nodes, &gltf.Node{Matrix: matrix(t), Children: roots})
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
		}
	}
	return fillMaterials(doc, mesh.Materials)
}

func buildTexture(doc *gltf.Document, texture *Texture) (int, error) {
	img, err := LoadTexture(texture, true)
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, err
	}

	doc.Images = append(doc.Images, &gltf.Image{
		Name:       texture.Name,
		MimeType:   "image/png",
		BufferView: indexPtr(appendView(doc, buf.Bytes(), gltf.TargetNone)),
	})

	sampler := &gltf.Sampler{WrapS: gltf.WrapClampToEdge, WrapT: gltf.WrapClampToEdge}
	if texture.Repeated {
		sampler.WrapS, sampler.WrapT = gltf.WrapRepeat, gltf.WrapRepeat
	}
	doc.Samplers = append(doc.Samplers, sampler)

	doc.Textures = append(doc.Textures, &gltf.Texture{
		Sampler: indexPtr(len(doc.Samplers) - 1),
		Source:  indexPtr(len(doc.Images) - 1),
	})
	return len(doc.Textures) - 1, nil
}

func fillMaterials(doc *gltf.Document, materials []MeshMaterial) error {
	textures := make(map[*Texture]int)
	for i, mtl := range materials {
		color := mtl.GetColor()
		alpha := 1.0
		if bm, ok := baseOf(mtl); ok {
			alpha = 1 - float64(bm.Transparency)
		}
		em := mtl.GetEmissive()
		gm := &gltf.Material{
			Name:        fmt.Sprintf("material_%d", i),
			DoubleSided: true,
			AlphaMode:   gltf.AlphaMask,
			AlphaCutoff: floatPtr(0.5),
			EmissiveFactor: [3]float64{
				float64(em[0]) / 255, float64(em[1]) / 255, float64(em[2]) / 255,
			},
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				BaseColorFactor: &[4]float64{
					float64(color[0]) / 255, float64(color[1]) / 255, float64(color[2]) / 255, alpha,
				},
				MetallicFactor:  floatPtr(0),
				RoughnessFactor: floatPtr(1),
			},
		}
		if tex := mtl.GetTexture(); tex != nil {
			idx, ok := textures[tex]
			if !ok {
				var err error
				if idx, err = buildTexture(doc, tex); err != nil {
					return fmt.Errorf("mst: material %d: %w", i, err)
				}
				textures[tex] = idx
			}
			gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: idx}
		}
		doc.Materials = append(doc.Materials, gm)
	}
	return nil
}

func baseOf(mtl MeshMaterial) (*BaseMaterial, bool) {
	switch m := mtl.(type) {
	case *BaseMaterial:
		return m, true
	case *TextureMaterial:
		return &m.BaseMaterial, true
	case *ShadingMaterial:
		return &m.BaseMaterial, true
	}
	return nil, false
}

func indexPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func propsToMap(props Properties) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = propsValueToInterface(v)
	}
	return out
}

func propsValueToInterface(value PropsValue) interface{} {
	switch value.Type {
	case PROP_TYPE_ARRAY:
		arr, _ := value.Value.([]PropsValue)
		out := make([]interface{}, len(arr))
		for i, item := range arr {
			out[i] = propsValueToInterface(item)
		}
		return out
	case PROP_TYPE_MAP:
		sub, _ := value.Value.(Properties)
		return propsToMap(sub)
	}
	return value.Value
}
