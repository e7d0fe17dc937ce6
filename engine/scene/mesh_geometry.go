package scene

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// SubmeshGeometry is the DrawIndexed range of one mesh inside a MeshGeometry, plus a bounding
// sphere in mesh space for culling.
type SubmeshGeometry struct {
	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32

	BoundsCenter [3]float32
	BoundsRadius float32
}

// MeshGeometry is a GPU vertex and index buffer pair holding one or more meshes, addressed by
// name through DrawArgs.
type MeshGeometry struct {
	Name string

	VertexBuffer gpu.Buffer
	IndexBuffer  gpu.Buffer

	VertexByteStride uint64
	VertexCount      uint32
	IndexCount       uint32

	DrawArgs map[string]SubmeshGeometry
}

// MeshGeometryBuilder merges meshes into one vertex and index list, recording a
// SubmeshGeometry per mesh.
type MeshGeometryBuilder struct {
	name     string
	vertices []common.Vertex
	indices  []uint32
	args     map[string]SubmeshGeometry
}

// NewMeshGeometryBuilder creates an empty builder for a geometry called name.
func NewMeshGeometryBuilder(name string) *MeshGeometryBuilder {
	return &MeshGeometryBuilder{name: name, args: make(map[string]SubmeshGeometry)}
}

// Add appends every vertex and index of m and records one draw range under key covering all
// of m's submeshes. Adding the same key twice is a no-op.
//
// Parameters:
//   - key: the DrawArgs key
//   - m: the mesh to append
//
// Returns:
//   - error: error if m fails validation or a submesh does not start at vertex 0
func (b *MeshGeometryBuilder) Add(key string, m *common.MeshData) error {
	if _, ok := b.args[key]; ok {
		return nil
	}
	if err := m.Validate(); err != nil {
		return err
	}

	// Submesh indices are rebased onto the mesh's first vertex so the whole mesh draws as one
	// range with a single base vertex.
	start := uint32(len(b.indices))
	base := int32(len(b.vertices))
	for _, sm := range m.Submeshes {
		if sm.BaseVertex < 0 {
			return fmt.Errorf("mesh %q: submesh %q has negative base vertex", m.Name, sm.Name)
		}
		for _, idx := range m.Indices[sm.StartIndex : sm.StartIndex+sm.IndexCount] {
			b.indices = append(b.indices, idx+uint32(sm.BaseVertex))
		}
	}
	b.vertices = append(b.vertices, m.Vertices...)

	count := uint32(len(b.indices)) - start
	merged := common.MeshData{Vertices: b.vertices, Indices: b.indices}
	center, radius := merged.Bounds(start, count, base)
	b.args[key] = SubmeshGeometry{
		IndexCount:         count,
		StartIndexLocation: start,
		BaseVertexLocation: base,
		BoundsCenter:       center,
		BoundsRadius:       radius,
	}
	return nil
}

// Build uploads the merged vertices and indices.
//
// Parameters:
//   - device: the device to create the buffers on
//
// Returns:
//   - *MeshGeometry: the geometry
//   - error: error if the builder is empty or buffer creation fails
func (b *MeshGeometryBuilder) Build(device gpu.Device) (*MeshGeometry, error) {
	if len(b.vertices) == 0 || len(b.indices) == 0 {
		return nil, fmt.Errorf("geometry %q: no vertices", b.name)
	}
	g := &MeshGeometry{
		Name:             b.name,
		VertexByteStride: VertexStride,
		VertexCount:      uint32(len(b.vertices)),
		IndexCount:       uint32(len(b.indices)),
		DrawArgs:         b.args,
	}

	vb := common.SliceToBytes(b.vertices)
	ib := common.SliceToBytes(b.indices)
	var err error
	if g.VertexBuffer, err = device.CreateBuffer(gpu.BufferDesc{Label: b.name + " Vertices", Size: uint64(len(vb)), Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst}); err != nil {
		return nil, fmt.Errorf("geometry %q vertex buffer: %w", b.name, err)
	}
	if g.IndexBuffer, err = device.CreateBuffer(gpu.BufferDesc{Label: b.name + " Indices", Size: uint64(len(ib)), Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst}); err != nil {
		g.Release()
		return nil, fmt.Errorf("geometry %q index buffer: %w", b.name, err)
	}
	device.WriteBuffer(g.VertexBuffer, 0, vb)
	device.WriteBuffer(g.IndexBuffer, 0, ib)
	return g, nil
}

// Release releases the vertex and index buffers.
func (g *MeshGeometry) Release() {
	if g.VertexBuffer != nil {
		g.VertexBuffer.Release()
		g.VertexBuffer = nil
	}
	if g.IndexBuffer != nil {
		g.IndexBuffer.Release()
		g.IndexBuffer = nil
	}
}

// PostProcessQuadKey is the DrawArgs key of the post-processing quad in every scene geometry.
const PostProcessQuadKey = "post_process_quad"

// PostProcessQuadMesh returns the quad drawn by fullscreen passes. Its positions span
// [0, 2] x [-2, 0]; the vertex shader shifts them onto clip space.
func PostProcessQuadMesh() *common.MeshData {
	n := [3]float32{0, 0, -1}
	t := [3]float32{1, 0, 0}
	return &common.MeshData{
		Name: PostProcessQuadKey,
		Vertices: []common.Vertex{
			{Position: [3]float32{0, -2, 0}, Normal: n, Tangent: t, TexCoord: [2]float32{0, 1}},
			{Position: [3]float32{0, 0, 0}, Normal: n, Tangent: t, TexCoord: [2]float32{0, 0}},
			{Position: [3]float32{2, 0, 0}, Normal: n, Tangent: t, TexCoord: [2]float32{1, 0}},
			{Position: [3]float32{2, -2, 0}, Normal: n, Tangent: t, TexCoord: [2]float32{1, 1}},
		},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Submeshes: []common.SubmeshData{{Name: PostProcessQuadKey, IndexCount: 6}},
	}
}
