package frame_resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// Frame bind group (group 0) binding indices shared by every shader.
const (
	FrameBindingPass     = 0
	FrameBindingObject   = 1
	FrameBindingMaterial = 2
)

// FrameLayoutEntries returns the binding layout of group 0: pass constants, then object and
// material constants addressed with dynamic offsets.
func FrameLayoutEntries() []gpu.BindingLayout {
	all := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute
	var (
		pc PassConstants
		oc ObjectConstants
		mc MaterialConstants
	)
	return []gpu.BindingLayout{
		{Binding: FrameBindingPass, Name: "pass_cb", Type: gpu.BindingUniformBuffer, Visibility: all, MinBindingSize: uint64(pc.Size())},
		{Binding: FrameBindingObject, Name: "object_cb", Type: gpu.BindingUniformBuffer, Visibility: all, HasDynamicOffset: true, MinBindingSize: uint64(oc.Size())},
		{Binding: FrameBindingMaterial, Name: "material_cb", Type: gpu.BindingUniformBuffer, Visibility: all, HasDynamicOffset: true, MinBindingSize: uint64(mc.Size())},
	}
}

// NewFrameLayout creates the shared group 0 bind group layout.
func NewFrameLayout(device gpu.Device) (gpu.BindGroupLayout, error) {
	return device.CreateBindGroupLayout("Frame Layout", FrameLayoutEntries())
}

// FrameResource holds everything the CPU writes for one in-flight frame.
type FrameResource struct {
	Index int
	// CommandListLabel labels the command list recorded for this frame.
	CommandListLabel string

	PassCB     *UploadBuffer[PassConstants]
	ObjectCB   *UploadBuffer[ObjectConstants]
	MaterialCB *UploadBuffer[MaterialConstants]

	// Fence is the value signaled after this frame's commands were submitted, 0 if never submitted.
	Fence uint64

	// BindGroup binds the three constant buffers against the frame layout.
	BindGroup gpu.BindGroup
}

// NewFrameResource allocates the constant buffers and the frame bind group.
//
// Parameters:
//   - device: the device to allocate on
//   - layout: the shared frame layout from NewFrameLayout
//   - index: the ring slot of this frame resource
//   - passCount: number of PassConstants elements, at least 1
//   - objectCount: number of ObjectConstants elements, at least 1
//   - materialCount: number of MaterialConstants elements, at least 1
//
// Returns:
//   - *FrameResource: the frame resource
//   - error: an error if any GPU object could not be created
func NewFrameResource(device gpu.Device, layout gpu.BindGroupLayout, index, passCount, objectCount, materialCount int) (*FrameResource, error) {
	f := &FrameResource{Index: index, CommandListLabel: fmt.Sprintf("Frame %d", index)}
	var err error
	if f.PassCB, err = NewUploadBuffer[PassConstants](device, fmt.Sprintf("Frame %d Pass CB", index), passCount, true); err != nil {
		return nil, err
	}
	if f.ObjectCB, err = NewUploadBuffer[ObjectConstants](device, fmt.Sprintf("Frame %d Object CB", index), max(objectCount, 1), true); err != nil {
		f.Release()
		return nil, err
	}
	if f.MaterialCB, err = NewUploadBuffer[MaterialConstants](device, fmt.Sprintf("Frame %d Material CB", index), max(materialCount, 1), true); err != nil {
		f.Release()
		return nil, err
	}
	f.BindGroup, err = device.CreateBindGroup(fmt.Sprintf("Frame %d Bind Group", index), layout, []gpu.BindGroupEntry{
		{Binding: FrameBindingPass, Buffer: f.PassCB.Resource(), Size: f.PassCB.ElementSize()},
		{Binding: FrameBindingObject, Buffer: f.ObjectCB.Resource(), Size: f.ObjectCB.ElementSize()},
		{Binding: FrameBindingMaterial, Buffer: f.MaterialCB.Resource(), Size: f.MaterialCB.ElementSize()},
	})
	if err != nil {
		f.Release()
		return nil, err
	}
	return f, nil
}

// Release frees the constant buffers and the bind group.
func (f *FrameResource) Release() {
	if f.BindGroup != nil {
		f.BindGroup.Release()
		f.BindGroup = nil
	}
	if f.PassCB != nil {
		f.PassCB.Release()
		f.PassCB = nil
	}
	if f.ObjectCB != nil {
		f.ObjectCB.Release()
		f.ObjectCB = nil
	}
	if f.MaterialCB != nil {
		f.MaterialCB.Release()
		f.MaterialCB = nil
	}
}
