package scene

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gi/common"
)

// GPUVertexSource is the WGSL vertex input struct matching common.Vertex, injected into
// shaders by //@oxy:include vertex.
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// VertexStride is the byte size of one common.Vertex in a vertex buffer.
const VertexStride = uint64(unsafe.Sizeof(common.Vertex{}))
