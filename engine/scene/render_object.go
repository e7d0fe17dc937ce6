package scene

import (
	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/frame_resource"
)

// RenderObject is one draw call: a range of a MeshGeometry, its material and its world
// transform. Like Material, it owes one constant upload per frame resource after every change.
type RenderObject struct {
	// World is scale, then rotation, then translation, column-major.
	World        [16]float32
	TexTransform [16]float32

	ObjCBIndex int
	Material   *Material
	Geometry   *MeshGeometry

	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32

	NumFramesDirty int

	position [3]float32
	rotation [4]float32
	scale    [3]float32

	boundsCenter [3]float32
	boundsRadius float32
}

// NewRenderObject creates an object drawing the submesh key of geo with an identity transform.
// It panics if geo has no such submesh.
func NewRenderObject(cbIndex int, geo *MeshGeometry, key string, mat *Material) *RenderObject {
	args, ok := geo.DrawArgs[key]
	if !ok {
		panic("scene: geometry " + geo.Name + " has no submesh " + key)
	}
	o := &RenderObject{
		ObjCBIndex:         cbIndex,
		Material:           mat,
		Geometry:           geo,
		IndexCount:         args.IndexCount,
		StartIndexLocation: args.StartIndexLocation,
		BaseVertexLocation: args.BaseVertexLocation,
		boundsCenter:       args.BoundsCenter,
		boundsRadius:       args.BoundsRadius,
		rotation:           [4]float32{0, 0, 0, 1},
		scale:              [3]float32{1, 1, 1},
	}
	common.Identity(o.TexTransform[:])
	o.rebuild()
	return o
}

// SetTransform replaces position, rotation (quaternion x, y, z, w) and scale.
func (o *RenderObject) SetTransform(position [3]float32, rotation [4]float32, scale [3]float32) {
	o.position, o.rotation, o.scale = position, common.NormalizeQuat(rotation), scale
	o.rebuild()
}

// SetPosition moves the object and marks it dirty.
func (o *RenderObject) SetPosition(position [3]float32) {
	o.position = position
	o.rebuild()
}

// SetRotation replaces the rotation quaternion (x, y, z, w), normalized, and marks the object dirty.
func (o *RenderObject) SetRotation(rotation [4]float32) {
	o.rotation = common.NormalizeQuat(rotation)
	o.rebuild()
}

// SetScale replaces the per-axis scale and marks the object dirty.
func (o *RenderObject) SetScale(scale [3]float32) {
	o.scale = scale
	o.rebuild()
}

// SetMaterial swaps the material and marks the object dirty.
func (o *RenderObject) SetMaterial(mat *Material) {
	o.Material = mat
	o.NumFramesDirty = frame_resource.NumFrameResources
}

// Position returns the world translation.
func (o *RenderObject) Position() [3]float32 { return o.position }

// Rotation returns the normalized rotation quaternion (x, y, z, w).
func (o *RenderObject) Rotation() [4]float32 { return o.rotation }

// Scale returns the per-axis scale.
func (o *RenderObject) Scale() [3]float32 { return o.scale }

// MarkFrameUpdated records that one frame resource received the current constants.
func (o *RenderObject) MarkFrameUpdated() {
	if o.NumFramesDirty > 0 {
		o.NumFramesDirty--
	}
}

// Constants returns the GPU constant block for this object.
func (o *RenderObject) Constants() frame_resource.ObjectConstants {
	return frame_resource.ObjectConstants{World: o.World, TexTransform: o.TexTransform}
}

// WorldBounds returns the object's bounding sphere in world space.
func (o *RenderObject) WorldBounds() ([3]float32, float32) {
	center := common.TransformPoint(o.World[:], o.boundsCenter)
	s := max(abs32(o.scale[0]), abs32(o.scale[1]), abs32(o.scale[2]))
	return center, o.boundsRadius * s
}

func (o *RenderObject) rebuild() {
	common.BuildTRSMatrix(o.World[:], o.position, o.rotation, o.scale)
	o.NumFramesDirty = frame_resource.NumFrameResources
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
