package loader

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// meshBackend loads one mesh file format into CPU-side mesh data.
type meshBackend interface {
	// Load imports the mesh at path.
	//
	// Parameters:
	//   - name: the mesh name recorded in the result
	//   - path: the file path to load
	//
	// Returns:
	//   - *common.MeshData: the imported mesh
	//   - error: error if loading fails
	Load(name, path string) (*common.MeshData, error)
}

// textMeshBackend loads the line-oriented text mesh format.
type textMeshBackend struct{}

var _ meshBackend = textMeshBackend{}

func (textMeshBackend) Load(name, path string) (*common.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ParseMesh(name, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
