package mst

import (
	"math"
	"sort"

	dmat "github.com/flywave/go3d/float64/mat4"
	dvec3 "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// MeshNode is a vertex buffer with triangle and edge groups. Mat, when set,
// places the node in mesh space.
type MeshNode struct {
	Vertices  []vec3.T        `json:"vertices"`
	Normals   []vec3.T        `json:"normals,omitempty"`
	Colors    [][3]byte       `json:"colors,omitempty"`
	TexCoords []vec2.T        `json:"texCoords,omitempty"`
	Mat       *dmat.T         `json:"mat,omitempty"`
	FaceGroup []*MeshTriangle `json:"faceGroup,omitempty"`
	EdgeGroup []*MeshOutline  `json:"edgeGroup,omitempty"`
	Props     Properties      `json:"props,omitempty"`
}

// TriangleCount returns the number of faces over all groups.
func (n *MeshNode) TriangleCount() int {
	c := 0
	for _, g := range n.FaceGroup {
		c += len(g.Faces)
	}
	return c
}

// ReComputeNormal replaces Normals with area independent vertex normals.
func (n *MeshNode) ReComputeNormal() {
	normals := make([]vec3.T, len(n.Vertices))
	for _, g := range n.FaceGroup {
		for _, f := range g.Faces {
			a, b, c := n.Vertices[f.Vertex[0]], n.Vertices[f.Vertex[1]], n.Vertices[f.Vertex[2]]
			ab, ac := vec3.Sub(&b, &a), vec3.Sub(&c, &a)
			fn := vec3.Cross(&ab, &ac)
			if l := fn.Length(); l > 0 {
				fn.Scale(1 / l)
				for _, vi := range f.Vertex {
					normals[vi].Add(&fn)
				}
			}
		}
	}

	for i := range normals {
		if normals[i].Length() > 0 {
			normals[i].Normalize()
		}
	}
	n.Normals = normals
}

func (n *MeshNode) GetBoundbox() *[6]float64 {
	minX, minY, minZ := math.MaxFloat64, math.MaxFloat64, math.MaxFloat64
	maxX, maxY, maxZ := -math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64
	for i := range n.Vertices {
		v := n.position(i)
		minX, maxX = math.Min(minX, v[0]), math.Max(maxX, v[0])
		minY, maxY = math.Min(minY, v[1]), math.Max(maxY, v[1])
		minZ, maxZ = math.Min(minZ, v[2]), math.Max(maxZ, v[2])
	}
	return &[6]float64{minX, minY, minZ, maxX, maxY, maxZ}
}

// position returns vertex i transformed by Mat.
func (n *MeshNode) position(i int) dvec3.T {
	v := dvec3.T{float64(n.Vertices[i][0]), float64(n.Vertices[i][1]), float64(n.Vertices[i][2])}
	if n.Mat == nil {
		return v
	}
	return n.Mat.MulVec3(&v)
}

// InstanceMesh draws Mesh once per transform.
type InstanceMesh struct {
	Transfors []*dmat.T
	Features  []uint64
	BBox      *[6]float64
	Mesh      *BaseMesh
	Props     Properties `json:"props,omitempty"`
	Hash      uint64
}

type BaseMesh struct {
	Materials []MeshMaterial `json:"materials,omitempty"`
	Nodes     []*MeshNode    `json:"nodes,omitempty"`
	Code      uint32         `json:"code,omitempty"`
}

type Mesh struct {
	BaseMesh
	Version      uint32 `json:"version"`
	InstanceNode []*InstanceMesh
	Props        Properties `json:"props,omitempty"`
}

func NewMesh() *Mesh {
	return &Mesh{Version: CurrentVersion, Props: Properties{}}
}

func (m *Mesh) NodeCount() int {
	return len(m.Nodes)
}

func (m *Mesh) MaterialCount() int {
	return len(m.Materials)
}

// TriangleCount returns the triangles of all nodes, counting every instance.
func (m *Mesh) TriangleCount() int {
	c := 0
	for _, nd := range m.Nodes {
		c += nd.TriangleCount()
	}
	for _, inst := range m.InstanceNode {
		if inst.Mesh == nil {
			continue
		}
		for _, nd := range inst.Mesh.Nodes {
			c += nd.TriangleCount() * len(inst.Transfors)
		}
	}
	return c
}

func (m *Mesh) ComputeBBox() dvec3.Box {
	if len(m.Nodes) == 0 {
		return dvec3.Box{}
	}

	bbox := dvec3.MinBox
	for _, nd := range m.Nodes {
		bx := nd.GetBoundbox()
		bbx := dvec3.Box{Min: dvec3.T{bx[0], bx[1], bx[2]}, Max: dvec3.T{bx[3], bx[4], bx[5]}}
		bbox.Join(&bbx)
	}
	return bbox
}

func sortedKeys(p Properties) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
