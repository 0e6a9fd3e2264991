package impostor

import (
	"math"

	dvec3 "github.com/flywave/go3d/float64/vec3"
)

// Simplifier merges adjacent near-coplanar polygons of a mesh into larger
// ones. angle is the largest normal deviation in degrees that still counts as
// coplanar.
type Simplifier interface {
	Simplify(m *Mesh, angle float64) *Mesh
}

// CoplanarMerger is an edge based Simplifier. Two faces are merged when they
// share an edge and their normals agree with the seed face of the region.
// A region whose outline is not one simple loop is left as it was.
type CoplanarMerger struct{}

type edgeKey struct {
	a, b uint32
}

func undirected(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Simplify returns a new mesh sharing m's vertex array. Loops are emitted in
// the order of each region's first face.
func (CoplanarMerger) Simplify(m *Mesh, angle float64) *Mesh {
	tol := 1 - math.Cos(angle*math.Pi/180)
	n := len(m.Loops)

	normals := make([]dvec3.T, n)
	valid := make([]bool, n)
	for i, loop := range m.Loops {
		normals[i], valid[i] = meshLoopNormal(m, loop)
	}

	adjacent := make(map[edgeKey][]int)
	for i, loop := range m.Loops {
		for j := range loop {
			k := undirected(loop[j], loop[(j+1)%len(loop)])
			adjacent[k] = append(adjacent[k], i)
		}
	}

	out := &Mesh{Vertices: m.Vertices}
	region := make([]int, n)
	for i := range region {
		region[i] = -1
	}
	for seed := range m.Loops {
		if region[seed] >= 0 {
			continue
		}
		region[seed] = seed
		members := []int{seed}
		if valid[seed] {
			for q := 0; q < len(members); q++ {
				loop := m.Loops[members[q]]
				for j := range loop {
					k := undirected(loop[j], loop[(j+1)%len(loop)])
					for _, other := range adjacent[k] {
						if region[other] >= 0 || !valid[other] {
							continue
						}
						if dvec3.Dot(&normals[seed], &normals[other]) < 1-tol {
							continue
						}
						region[other] = seed
						members = append(members, other)
					}
				}
			}
		}
		if len(members) == 1 {
			out.AddLoop(m.Loops[seed]...)
			continue
		}
		outline, ok := regionOutline(m, members)
		if !ok {
			for _, f := range members {
				out.AddLoop(m.Loops[f]...)
			}
			continue
		}
		out.AddLoop(outline...)
	}
	return out
}

// regionOutline walks the boundary of the union of faces. Interior edges
// appear once in each direction; the rest must form one closed loop that
// visits every boundary vertex once.
func regionOutline(m *Mesh, faces []int) ([]uint32, bool) {
	type directed struct{ from, to uint32 }
	count := make(map[directed]int)
	for _, f := range faces {
		loop := m.Loops[f]
		for j := range loop {
			count[directed{loop[j], loop[(j+1)%len(loop)]}]++
		}
	}

	next := make(map[uint32]uint32)
	var start uint32
	found := false
	for _, f := range faces {
		loop := m.Loops[f]
		for j := range loop {
			e := directed{loop[j], loop[(j+1)%len(loop)]}
			if count[e] > 1 {
				// inconsistent winding
				return nil, false
			}
			if count[directed{e.to, e.from}] > 0 {
				continue
			}
			if _, dup := next[e.from]; dup {
				return nil, false
			}
			next[e.from] = e.to
			if !found {
				start, found = e.from, true
			}
		}
	}
	if !found {
		return nil, false
	}

	outline := []uint32{start}
	for v := next[start]; v != start; v = next[v] {
		if len(outline) > len(next) {
			return nil, false
		}
		outline = append(outline, v)
		if _, ok := next[v]; !ok {
			return nil, false
		}
	}
	if len(outline) != len(next) {
		return nil, false
	}
	outline = dropCollinear(m, outline)
	if len(outline) < 3 {
		return nil, false
	}
	return outline, true
}

func dropCollinear(m *Mesh, loop []uint32) []uint32 {
	out := make([]uint32, 0, len(loop))
	n := len(loop)
	for i := range loop {
		prev := m.Vertices[loop[(i+n-1)%n]]
		cur := m.Vertices[loop[i]]
		next := m.Vertices[loop[(i+1)%n]]
		e0 := dvec3.Sub(&cur, &prev)
		e1 := dvec3.Sub(&next, &cur)
		c := dvec3.Cross(&e0, &e1)
		if c.Length() <= 1e-9*e0.Length()*e1.Length() && dvec3.Dot(&e0, &e1) > 0 {
			continue
		}
		out = append(out, loop[i])
	}
	return out
}

func meshLoopNormal(m *Mesh, loop []uint32) (dvec3.T, bool) {
	var n dvec3.T
	for i := range loop {
		c := dvec3.Cross(&m.Vertices[loop[i]], &m.Vertices[loop[(i+1)%len(loop)]])
		n.Add(&c)
	}
	l := n.Length()
	if len(loop) < 3 || l < 1e-12 {
		return n, false
	}
	n.Scale(1 / l)
	return n, true
}
