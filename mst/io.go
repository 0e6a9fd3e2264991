package mst

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	dmat "github.com/flywave/go3d/float64/mat4"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
	"go.uber.org/multierr"
)

// maxCount bounds every length prefix read from a file.
const maxCount = 1 << 28

var ErrSignature = errors.New("mst: bad signature")

// littleWriter writes little endian values and keeps the first error.
type littleWriter struct {
	w   io.Writer
	err error
}

func (w *littleWriter) put(v interface{}) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *littleWriter) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *littleWriter) raw(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *littleWriter) str(s string) {
	w.put(uint32(len(s)))
	w.raw([]byte(s))
}

func (w *littleWriter) mat(m *dmat.T) {
	for i := range m {
		w.put(m[i][:])
	}
}

// littleReader reads little endian values and keeps the first error.
type littleReader struct {
	r   io.Reader
	err error
}

func (r *littleReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *littleReader) get(v interface{}) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}

func (r *littleReader) raw(n int) []byte {
	if r.err != nil {
		return nil
	}
	b := make([]byte, n)
	_, r.err = io.ReadFull(r.r, b)
	return b
}

func (r *littleReader) count() int {
	var n uint32
	r.get(&n)
	if n > maxCount {
		r.fail(fmt.Errorf("mst: length %d out of range", n))
		return 0
	}
	return int(n)
}

func (r *littleReader) str() string {
	return string(r.raw(r.count()))
}

func (r *littleReader) mat() *dmat.T {
	m := &dmat.T{}
	for i := range m {
		r.get(m[i][:])
	}
	return m
}

func (w *littleWriter) baseMaterial(mtl *BaseMaterial) {
	w.put(mtl.Color[:])
	w.put(mtl.Transparency)
}

func (r *littleReader) baseMaterial() BaseMaterial {
	mtl := BaseMaterial{}
	r.get(mtl.Color[:])
	r.get(&mtl.Transparency)
	return mtl
}

func (w *littleWriter) texture(tex *Texture) {
	w.put(tex.Id)
	w.str(tex.Name)
	w.put(tex.Size[:])
	w.put(tex.Format)
	w.put(tex.Type)
	w.put(tex.Compressed)
	w.put(uint32(len(tex.Data)))
	w.raw(tex.Data)
	w.put(tex.Repeated)
}

func (r *littleReader) texture() *Texture {
	tex := &Texture{}
	r.get(&tex.Id)
	tex.Name = r.str()
	r.get(tex.Size[:])
	r.get(&tex.Format)
	r.get(&tex.Type)
	r.get(&tex.Compressed)
	tex.Data = r.raw(r.count())
	r.get(&tex.Repeated)
	return tex
}

func (w *littleWriter) optionalTexture(tex *Texture) {
	if tex == nil {
		w.put(uint16(0))
		return
	}
	w.put(uint16(1))
	w.texture(tex)
}

func (r *littleReader) optionalTexture() *Texture {
	var has uint16
	r.get(&has)
	if has != 1 || r.err != nil {
		return nil
	}
	return r.texture()
}

func (w *littleWriter) textureMaterial(mtl *TextureMaterial) {
	w.baseMaterial(&mtl.BaseMaterial)
	w.optionalTexture(mtl.Texture)
	w.optionalTexture(mtl.Normal)
}

func (r *littleReader) textureMaterial() TextureMaterial {
	mtl := TextureMaterial{BaseMaterial: r.baseMaterial()}
	mtl.Texture = r.optionalTexture()
	mtl.Normal = r.optionalTexture()
	return mtl
}

func (w *littleWriter) material(mt MeshMaterial, v uint32) {
	switch mtl := mt.(type) {
	case *BaseMaterial:
		w.put(uint32(MESH_TRIANGLE_MATERIAL_TYPE_COLOR))
		w.baseMaterial(mtl)
	case *TextureMaterial:
		w.put(uint32(MESH_TRIANGLE_MATERIAL_TYPE_TEXTURE))
		w.textureMaterial(mtl)
	case *ShadingMaterial:
		if len(mtl.Params) != shadingParamsSize(mtl.Type) {
			w.fail(fmt.Errorf("mst: material type %d with %d parameter bytes", mtl.Type, len(mtl.Params)))
			return
		}
		w.put(mtl.Type)
		w.textureMaterial(&mtl.TextureMaterial)
		if mtl.Type == MESH_TRIANGLE_MATERIAL_TYPE_PBR && v < V2 {
			// emissive carried an alpha byte before V2
			w.raw(mtl.Params[:3])
			w.put(byte(255))
			w.raw(mtl.Params[3:])
			return
		}
		w.raw(mtl.Params)
	default:
		w.fail(fmt.Errorf("mst: unsupported material %T", mt))
	}
}

func (r *littleReader) material(v uint32) MeshMaterial {
	var t uint32
	r.get(&t)
	if r.err != nil {
		return nil
	}
	switch t {
	case MESH_TRIANGLE_MATERIAL_TYPE_COLOR:
		mtl := r.baseMaterial()
		return &mtl
	case MESH_TRIANGLE_MATERIAL_TYPE_TEXTURE:
		mtl := r.textureMaterial()
		return &mtl
	}
	size := shadingParamsSize(t)
	if size < 0 {
		r.fail(fmt.Errorf("mst: unknown material type %d", t))
		return nil
	}
	mtl := &ShadingMaterial{TextureMaterial: r.textureMaterial(), Type: t}
	if t == MESH_TRIANGLE_MATERIAL_TYPE_PBR && v < V2 {
		emissive := r.raw(3)
		r.raw(1)
		mtl.Params = append(emissive, r.raw(size-3)...)
	} else {
		mtl.Params = r.raw(size)
	}
	return mtl
}

func (w *littleWriter) materials(mtls []MeshMaterial, v uint32) {
	w.put(uint32(len(mtls)))
	for _, m := range mtls {
		w.material(m, v)
	}
}

func (r *littleReader) materials(v uint32) []MeshMaterial {
	n := r.count()
	mtls := make([]MeshMaterial, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		mtls = append(mtls, r.material(v))
	}
	return mtls
}

func (w *littleWriter) node(nd *MeshNode, withProps bool) {
	w.put(uint32(len(nd.Vertices)))
	w.put(nd.Vertices)
	w.put(uint32(len(nd.Normals)))
	w.put(nd.Normals)
	w.put(uint32(len(nd.Colors)))
	w.put(nd.Colors)
	w.put(uint32(len(nd.TexCoords)))
	w.put(nd.TexCoords)
	if nd.Mat != nil {
		w.put(uint8(1))
		w.mat(nd.Mat)
	} else {
		w.put(uint8(0))
	}

	w.put(uint32(len(nd.FaceGroup)))
	for _, g := range nd.FaceGroup {
		w.put(g.Batchid)
		w.put(uint32(len(g.Faces)))
		for _, f := range g.Faces {
			w.put(f.Vertex[:])
		}
	}
	w.put(uint32(len(nd.EdgeGroup)))
	for _, g := range nd.EdgeGroup {
		w.put(g.Batchid)
		w.put(uint32(len(g.Edges)))
		w.put(g.Edges)
	}
	if withProps {
		w.properties(nd.Props)
	}
}

func (r *littleReader) node(withProps bool) *MeshNode {
	nd := &MeshNode{}
	nd.Vertices = make([]vec3.T, r.count())
	r.get(nd.Vertices)
	nd.Normals = make([]vec3.T, r.count())
	r.get(nd.Normals)
	nd.Colors = make([][3]byte, r.count())
	r.get(nd.Colors)
	nd.TexCoords = make([]vec2.T, r.count())
	r.get(nd.TexCoords)
	var isMat uint8
	r.get(&isMat)
	if isMat == 1 {
		nd.Mat = r.mat()
	}

	groups := r.count()
	for i := 0; i < groups && r.err == nil; i++ {
		g := &MeshTriangle{}
		r.get(&g.Batchid)
		g.Faces = make([]*Face, r.count())
		for j := range g.Faces {
			f := &Face{}
			r.get(f.Vertex[:])
			g.Faces[j] = f
		}
		nd.FaceGroup = append(nd.FaceGroup, g)
	}
	groups = r.count()
	for i := 0; i < groups && r.err == nil; i++ {
		g := &MeshOutline{}
		r.get(&g.Batchid)
		g.Edges = make([][2]uint32, r.count())
		r.get(g.Edges)
		nd.EdgeGroup = append(nd.EdgeGroup, g)
	}
	if withProps {
		nd.Props = r.properties()
	}
	return nd
}

func (w *littleWriter) nodes(nds []*MeshNode, withProps bool) {
	w.put(uint32(len(nds)))
	for _, nd := range nds {
		w.node(nd, withProps)
	}
}

func (r *littleReader) nodes(withProps bool) []*MeshNode {
	n := r.count()
	nds := make([]*MeshNode, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		nds = append(nds, r.node(withProps))
	}
	return nds
}

// optionalProperties writes a presence flag followed by the properties.
func (w *littleWriter) optionalProperties(p Properties) {
	if len(p) == 0 {
		w.put(uint32(0))
		return
	}
	w.put(uint32(1))
	w.properties(p)
}

func (r *littleReader) optionalProperties() Properties {
	var has uint32
	r.get(&has)
	if has == 0 || r.err != nil {
		return nil
	}
	return r.properties()
}

func (w *littleWriter) instance(inst *InstanceMesh, v uint32) {
	w.put(uint32(len(inst.Transfors)))
	for _, mt := range inst.Transfors {
		w.mat(mt)
	}
	w.put(uint32(len(inst.Features)))
	if v < V3 {
		fs := make([]uint32, len(inst.Features))
		for i, f := range inst.Features {
			fs[i] = uint32(f)
		}
		w.put(fs)
	} else {
		w.put(inst.Features)
	}
	bbox := inst.BBox
	if bbox == nil {
		bbox = &[6]float64{}
	}
	w.put(bbox[:])
	mesh := inst.Mesh
	if mesh == nil {
		mesh = &BaseMesh{}
	}
	w.materials(mesh.Materials, v)
	w.nodes(mesh.Nodes, false)
	if v >= V4 {
		w.put(mesh.Code)
	}
	if v >= V5 {
		w.optionalProperties(inst.Props)
	}
	w.put(inst.Hash)
}

func (r *littleReader) instance(v uint32) *InstanceMesh {
	inst := &InstanceMesh{}
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		inst.Transfors = append(inst.Transfors, r.mat())
	}
	inst.Features = make([]uint64, r.count())
	if v < V3 {
		fs := make([]uint32, len(inst.Features))
		r.get(fs)
		for i, f := range fs {
			inst.Features[i] = uint64(f)
		}
	} else {
		r.get(inst.Features)
	}
	inst.BBox = &[6]float64{}
	r.get(inst.BBox[:])
	inst.Mesh = &BaseMesh{}
	inst.Mesh.Materials = r.materials(v)
	inst.Mesh.Nodes = r.nodes(false)
	if v >= V4 {
		r.get(&inst.Mesh.Code)
	}
	if v >= V5 {
		inst.Props = r.optionalProperties()
	}
	r.get(&inst.Hash)
	return inst
}

// MeshMarshal writes ms in the layout of ms.Version.
func MeshMarshal(wt io.Writer, ms *Mesh) error {
	if ms.Version < V1 || ms.Version > V5 {
		return fmt.Errorf("mst: unsupported version %d", ms.Version)
	}
	w := &littleWriter{w: wt}
	w.raw([]byte(MESH_SIGNATURE))
	w.put(ms.Version)
	if ms.Version >= V4 {
		w.put(ms.Code)
	}
	w.materials(ms.Materials, ms.Version)
	w.nodes(ms.Nodes, ms.Version >= V5)
	w.put(uint32(len(ms.InstanceNode)))
	for _, inst := range ms.InstanceNode {
		w.instance(inst, ms.Version)
	}
	if ms.Version >= V5 {
		w.optionalProperties(ms.Props)
	}
	return w.err
}

// MeshUnMarshal reads a mesh of any version up to V5.
func MeshUnMarshal(rd io.Reader) (*Mesh, error) {
	r := &littleReader{r: rd}
	if sig := r.raw(len(MESH_SIGNATURE)); r.err == nil && string(sig) != MESH_SIGNATURE {
		return nil, ErrSignature
	}
	ms := &Mesh{}
	r.get(&ms.Version)
	if r.err == nil && (ms.Version < V1 || ms.Version > V5) {
		return nil, fmt.Errorf("mst: unsupported version %d", ms.Version)
	}
	if ms.Version >= V4 {
		r.get(&ms.Code)
	}
	ms.Materials = r.materials(ms.Version)
	ms.Nodes = r.nodes(ms.Version >= V5)
	n := r.count()
	for i := 0; i < n && r.err == nil; i++ {
		ms.InstanceNode = append(ms.InstanceNode, r.instance(ms.Version))
	}
	if ms.Version >= V5 {
		ms.Props = r.optionalProperties()
	}
	if r.err != nil {
		return nil, fmt.Errorf("mst: read mesh: %w", r.err)
	}
	return ms, nil
}

func MeshReadFrom(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return MeshUnMarshal(bufio.NewReader(f))
}

func MeshWriteTo(path string, ms *Mesh) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	bw := bufio.NewWriter(f)
	if err := MeshMarshal(bw, ms); err != nil {
		return err
	}
	return bw.Flush()
}
