package loader

import (
	"fmt"
	"log"
	"math"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// gltfMeshBackend loads .gltf and .glb files. Every triangle primitive of every mesh node in the
// default scene becomes one submesh, with the node's world transform baked into its vertices.
// Documents without mesh nodes load each mesh untransformed.
type gltfMeshBackend struct{}

var _ meshBackend = gltfMeshBackend{}

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func (gltfMeshBackend) Load(name, path string) (*common.MeshData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	out := &common.MeshData{Name: name}
	instances := gltfMeshInstances(doc)
	if len(instances) == 0 {
		for i := range doc.Meshes {
			var id [16]float32
			common.Identity(id[:])
			instances = append(instances, gltfInstance{mesh: i, world: id})
		}
	}
	for _, inst := range instances {
		mesh := doc.Meshes[inst.mesh]
		for pi, prim := range mesh.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				log.Printf("[Loader] %s: mesh %q primitive %d is not a triangle list, skipped", path, mesh.Name, pi)
				continue
			}
			if err := appendGLTFPrimitive(doc, out, fmt.Sprintf("%s/%d", mesh.Name, pi), prim, inst.world); err != nil {
				return nil, fmt.Errorf("%s: mesh %q primitive %d: %w", path, mesh.Name, pi, err)
			}
		}
	}
	if len(out.Submeshes) == 0 {
		return nil, fmt.Errorf("%s: no triangle primitives", path)
	}
	return out, nil
}

// gltfInstance is one placement of a glTF mesh.
type gltfInstance struct {
	mesh  int
	world [16]float32
}

// gltfMeshInstances walks the default scene (or every root node when none is set) and returns
// each mesh node with its accumulated world transform.
func gltfMeshInstances(doc *gltf.Document) []gltfInstance {
	var roots []int
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		roots = doc.Scenes[*doc.Scene].Nodes
	} else {
		hasParent := make([]bool, len(doc.Nodes))
		for _, n := range doc.Nodes {
			for _, c := range n.Children {
				if c < len(hasParent) {
					hasParent[c] = true
				}
			}
		}
		for i := range doc.Nodes {
			if !hasParent[i] {
				roots = append(roots, i)
			}
		}
	}

	var out []gltfInstance
	var visit func(idx int, parent [16]float32, depth int)
	visit = func(idx int, parent [16]float32, depth int) {
		if idx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return
		}
		n := doc.Nodes[idx]
		local := gltfNodeMatrix(n)
		var world [16]float32
		common.Mul4(world[:], parent[:], local[:])
		if n.Mesh != nil && *n.Mesh < len(doc.Meshes) {
			out = append(out, gltfInstance{mesh: *n.Mesh, world: world})
		}
		for _, c := range n.Children {
			visit(c, world, depth+1)
		}
	}
	var id [16]float32
	common.Identity(id[:])
	for _, r := range roots {
		visit(r, id, 0)
	}
	return out
}

// gltfNodeMatrix returns the node's local transform, from its matrix when one is set and
// from translation, rotation and scale otherwise.
func gltfNodeMatrix(n *gltf.Node) [16]float32 {
	var m [16]float32
	if mat := n.MatrixOrDefault(); mat != identity64 {
		for i, v := range mat {
			m[i] = float32(v)
		}
		return m
	}
	t, r, s := n.TranslationOrDefault(), n.RotationOrDefault(), n.ScaleOrDefault()
	common.BuildTRSMatrix(m[:],
		[3]float32{float32(t[0]), float32(t[1]), float32(t[2])},
		[4]float32{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])},
		[3]float32{float32(s[0]), float32(s[1]), float32(s[2])},
	)
	return m
}

// appendGLTFPrimitive reads one primitive's attributes and indices into out as a new submesh.
func appendGLTFPrimitive(doc *gltf.Document, out *common.MeshData, name string, prim *gltf.Primitive, world [16]float32) error {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	var (
		normals  [][3]float32
		tangents [][4]float32
		uvs      [][2]float32
	)
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TANGENT"]; ok {
		if tangents, err = modeler.ReadTangent(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("tangents: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("texcoords: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	verts := make([]common.Vertex, len(positions))
	for i, p := range positions {
		v := common.Vertex{Position: p, Normal: [3]float32{0, 1, 0}}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(tangents) {
			v.Tangent = [3]float32{tangents[i][0], tangents[i][1], tangents[i][2]}
		}
		if i < len(uvs) {
			v.TexCoord = uvs[i]
		}
		verts[i] = v
	}
	if len(tangents) == 0 {
		computeTangents(verts, indices)
	}
	for i := range verts {
		v := &verts[i]
		v.Position = common.TransformPoint(world[:], v.Position)
		v.Normal = common.Normalize3(transformDir(world, v.Normal))
		v.Tangent = common.Normalize3(transformDir(world, v.Tangent))
	}

	out.Submeshes = append(out.Submeshes, common.SubmeshData{
		Name:       name,
		IndexCount: uint32(len(indices)),
		StartIndex: uint32(len(out.Indices)),
		BaseVertex: int32(len(out.Vertices)),
	})
	out.Vertices = append(out.Vertices, verts...)
	out.Indices = append(out.Indices, indices...)
	return nil
}

// transformDir applies the upper 3x3 of a column-major matrix to a direction.
func transformDir(m [16]float32, d [3]float32) [3]float32 {
	return [3]float32{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
}

// computeTangents accumulates per-triangle tangents from texture coordinates and
// orthonormalizes them against the vertex normals.
func computeTangents(verts []common.Vertex, indices []uint32) {
	acc := make([][3]float32, len(verts))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(verts) || int(b) >= len(verts) || int(c) >= len(verts) {
			continue
		}
		e1 := common.Sub3(verts[b].Position, verts[a].Position)
		e2 := common.Sub3(verts[c].Position, verts[a].Position)
		du1 := verts[b].TexCoord[0] - verts[a].TexCoord[0]
		dv1 := verts[b].TexCoord[1] - verts[a].TexCoord[1]
		du2 := verts[c].TexCoord[0] - verts[a].TexCoord[0]
		dv2 := verts[c].TexCoord[1] - verts[a].TexCoord[1]
		det := du1*dv2 - du2*dv1
		if math.Abs(float64(det)) < 1e-12 {
			continue
		}
		t := common.Scale3(common.Sub3(common.Scale3(e1, dv2), common.Scale3(e2, dv1)), 1/det)
		for _, idx := range [3]uint32{a, b, c} {
			acc[idx] = common.Add3(acc[idx], t)
		}
	}
	for i := range verts {
		n := verts[i].Normal
		t := common.Sub3(acc[i], common.Scale3(n, common.Dot3(n, acc[i])))
		if common.Dot3(t, t) < 1e-12 {
			// Any vector perpendicular to the normal.
			axis := [3]float32{1, 0, 0}
			if math.Abs(float64(n[0])) > 0.9 {
				axis = [3]float32{0, 0, 1}
			}
			t = common.Cross3(n, axis)
		}
		verts[i].Tangent = common.Normalize3(t)
	}
}
