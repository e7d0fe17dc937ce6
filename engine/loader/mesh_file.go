package loader

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// ParseMesh reads a text mesh: vertex count, index count, then per vertex position (3),
// normal (3), tangent (3) and texcoord (2), then the flat index list. The result has a single
// submesh named after the mesh.
//
// Parameters:
//   - name: the mesh name
//   - r: the mesh file contents
//
// Returns:
//   - *common.MeshData: the parsed mesh
//   - error: ErrInvalidMeshFile wrapped with the offending line
func ParseMesh(name string, r io.Reader) (*common.MeshData, error) {
	t, err := newTokenReader(r, ErrInvalidMeshFile)
	if err != nil {
		return nil, err
	}
	vertexCount, err := t.count("vertex count")
	if err != nil {
		return nil, err
	}
	indexCount, err := t.count("index count")
	if err != nil {
		return nil, err
	}
	if indexCount%3 != 0 {
		return nil, fmt.Errorf("%w: index count %d is not a multiple of 3", ErrInvalidMeshFile, indexCount)
	}

	m := &common.MeshData{
		Name:     name,
		Vertices: make([]common.Vertex, vertexCount),
		Indices:  make([]uint32, indexCount),
	}
	var attrs [11]float32
	for i := range m.Vertices {
		if err := t.floats(fmt.Sprintf("vertex %d", i), attrs[:]); err != nil {
			return nil, err
		}
		v := &m.Vertices[i]
		copy(v.Position[:], attrs[0:3])
		copy(v.Normal[:], attrs[3:6])
		copy(v.Tangent[:], attrs[6:9])
		copy(v.TexCoord[:], attrs[9:11])
	}
	for i := range m.Indices {
		tok, err := t.next("index")
		if err != nil {
			return nil, err
		}
		idx, err := strconv.ParseUint(tok.text, 10, 32)
		if err != nil || idx >= uint64(vertexCount) {
			return nil, fmt.Errorf("%w: line %d: index %q out of range [0, %d)", ErrInvalidMeshFile, tok.line, tok.text, vertexCount)
		}
		m.Indices[i] = uint32(idx)
	}
	if err := t.trailing(); err != nil {
		return nil, err
	}

	m.Submeshes = []common.SubmeshData{{Name: name, IndexCount: uint32(indexCount)}}
	return m, nil
}
