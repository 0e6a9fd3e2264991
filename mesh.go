package impostor

import (
	"image/color"
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Mesh is a polygon mesh. Loops index into Vertices; a vertex shared by
// several loops is stored once.
type Mesh struct {
	Vertices []dvec3.T
	Loops    [][]uint32
}

// NewMesh returns an empty mesh.
func NewMesh() *Mesh {
	return &Mesh{}
}

// AddVertex appends v and returns its index.
func (m *Mesh) AddVertex(v dvec3.T) uint32 {
	m.Vertices = append(m.Vertices, v)
	return uint32(len(m.Vertices) - 1)
}

// AddLoop appends a polygon given by vertex indices.
func (m *Mesh) AddLoop(indices ...uint32) {
	loop := make([]uint32, len(indices))
	copy(loop, indices)
	m.Loops = append(m.Loops, loop)
}

// FaceCount returns the number of loops.
func (m *Mesh) FaceCount() int {
	return len(m.Loops)
}

// TriangleCount returns the number of triangles of a fan triangulation.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, l := range m.Loops {
		if len(l) >= 3 {
			n += len(l) - 2
		}
	}
	return n
}

// ComputeBBox returns the bounding box of all vertices.
func (m *Mesh) ComputeBBox() dvec3.Box {
	if len(m.Vertices) == 0 {
		return dvec3.Box{}
	}
	min := dvec3.T{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64}
	max := dvec3.T{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64}
	for _, v := range m.Vertices {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], v[i])
			max[i] = math.Max(max[i], v[i])
		}
	}
	return dvec3.Box{Min: min, Max: max}
}

// Object places a mesh in the scene. Scale is applied per axis before
// Location; rotation is not modelled.
type Object struct {
	Name     string
	Mesh     *Mesh
	Scale    dvec3.T
	Location dvec3.T
	Color    color.RGBA
	Hidden   bool
}

// NewObject returns a visible object with unit scale.
func NewObject(name string, mesh *Mesh) *Object {
	return &Object{
		Name:  name,
		Mesh:  mesh,
		Scale: dvec3.T{1, 1, 1},
		Color: color.RGBA{R: 200, G: 200, B: 200, A: 255},
	}
}

// TriangleCount returns the triangle count of the object's mesh.
func (o *Object) TriangleCount() int {
	if o == nil || o.Mesh == nil {
		return 0
	}
	return o.Mesh.TriangleCount()
}

// ScaledVertex returns vertex i multiplied by the object scale.
func (o *Object) ScaledVertex(i uint32) dvec3.T {
	v := o.Mesh.Vertices[i]
	return dvec3.T{v[0] * o.Scale[0], v[1] * o.Scale[1], v[2] * o.Scale[2]}
}

// WorldVertex returns vertex i in scene space.
func (o *Object) WorldVertex(i uint32) dvec3.T {
	v := o.ScaledVertex(i)
	return dvec3.Add(&v, &o.Location)
}

// hideForCapture hides o and returns the function restoring its previous
// visibility.
func hideForCapture(o *Object) func() {
	prev := o.Hidden
	o.Hidden = true
	return func() {
		o.Hidden = prev
	}
}
