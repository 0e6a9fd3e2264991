// Package stl reads ASCII and binary STL files into indexed meshes.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	dvec3 "github.com/flywave/go3d/float64/vec3"

	impostor "github.com/flywave/go-impostor"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// Model is a parsed STL solid. Identical vertex positions are stored once.
type Model struct {
	Name string
	Mesh *impostor.Mesh
}

// Object returns the model as a scene object.
func (m *Model) Object() *impostor.Object {
	return impostor.NewObject(m.Name, m.Mesh)
}

type welder struct {
	mesh  *impostor.Mesh
	index map[dvec3.T]uint32
}

func newWelder() *welder {
	return &welder{mesh: impostor.NewMesh(), index: make(map[dvec3.T]uint32)}
}

func (w *welder) vertex(v dvec3.T) uint32 {
	if i, ok := w.index[v]; ok {
		return i
	}
	i := w.mesh.AddVertex(v)
	w.index[v] = i
	return i
}

// triangle adds a face unless two of its corners weld together.
func (w *welder) triangle(a, b, c dvec3.T) {
	ia, ib, ic := w.vertex(a), w.vertex(b), w.vertex(c)
	if ia == ib || ib == ic || ia == ic {
		return
	}
	w.mesh.AddLoop(ia, ib, ic)
}

// Parse reads an STL file. The format is detected from the content.
func Parse(filename string) (*Model, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return Read(file)
}

// Read parses an STL stream. A stream starting with "solid" is still read
// as binary when its size matches the binary triangle count.
func Read(r io.ReadSeeker) (*Model, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to size input: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	head := make([]byte, headerSize+4)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read file header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	if n == len(head) {
		count := binary.LittleEndian.Uint32(head[headerSize:])
		if int64(headerSize+4)+int64(count)*triangleSize == size {
			return parseBinary(r)
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(head[:n], " \t\r\n"), []byte("solid")) {
		return parseASCII(r)
	}
	return parseBinary(r)
}

func parseVector(fields []string, line int) (dvec3.T, error) {
	var v dvec3.T
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, fmt.Errorf("line %d: %w", line, err)
		}
		v[i] = f
	}
	return v, nil
}

func parseASCII(reader io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(reader)
	w := newWelder()
	model := &Model{}

	var vertices []dvec3.T
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			if len(fields) > 1 {
				model.Name = strings.Join(fields[1:], " ")
			}
		case "vertex":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			v, err := parseVector(fields[1:], line)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v)
		case "endfacet":
			if len(vertices) != 3 {
				return nil, fmt.Errorf("line %d: facet with %d vertices", line, len(vertices))
			}
			w.triangle(vertices[0], vertices[1], vertices[2])
			vertices = vertices[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading ASCII STL: %w", err)
	}
	model.Mesh = w.mesh
	return model, nil
}

func parseBinary(reader io.Reader) (*Model, error) {
	br := bufio.NewReader(reader)
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	model := &Model{Name: strings.TrimSpace(string(bytes.TrimRight(header, "\x00")))}

	var triangleCount uint32
	if err := binary.Read(br, binary.LittleEndian, &triangleCount); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	w := newWelder()
	var rec struct {
		Normal    [3]float32
		Vertices  [3][3]float32
		Attribute uint16
	}
	for i := uint32(0); i < triangleCount; i++ {
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		var v [3]dvec3.T
		for j, p := range rec.Vertices {
			v[j] = dvec3.T{float64(p[0]), float64(p[1]), float64(p[2])}
		}
		w.triangle(v[0], v[1], v[2])
	}
	model.Mesh = w.mesh
	return model, nil
}
