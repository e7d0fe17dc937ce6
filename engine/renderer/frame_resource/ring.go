package frame_resource

import (
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
)

// NumFrameResources is the number of frames the CPU may record ahead of the GPU.
const NumFrameResources = 3

// FrameState is the lifecycle state of a ring slot.
type FrameState int

const (
	// FrameStateIdle means the slot may be acquired without waiting.
	FrameStateIdle FrameState = iota
	// FrameStateInUse means the CPU is recording into the slot or the GPU has not reached its fence.
	FrameStateInUse
)

// Ring cycles through NumFrameResources frame resources, blocking on a slot's fence before
// it is reused so the CPU never overwrites constants the GPU is still reading.
type Ring struct {
	device       gpu.Device
	frames       [NumFrameResources]*FrameResource
	recording    [NumFrameResources]bool
	currentFence uint64
	frameCount   uint64
}

// NewRing allocates NumFrameResources frame resources.
//
// Parameters:
//   - device: the device to allocate on and to wait for
//   - layout: the shared frame layout
//   - passCount, objectCount, materialCount: per-frame constant buffer sizes
//
// Returns:
//   - *Ring: the ring, positioned at frame 0
//   - error: an error if any frame resource could not be created
func NewRing(device gpu.Device, layout gpu.BindGroupLayout, passCount, objectCount, materialCount int) (*Ring, error) {
	r := &Ring{device: device}
	for i := range NumFrameResources {
		f, err := NewFrameResource(device, layout, i, passCount, objectCount, materialCount)
		if err != nil {
			r.Release()
			return nil, err
		}
		r.frames[i] = f
	}
	return r, nil
}

// SlotForFrame returns the ring slot used by frame n.
func SlotForFrame(n uint64) int {
	return int(n % NumFrameResources)
}

// Acquire returns the frame resource for the next frame, waiting until the GPU has
// completed the commands last submitted from that slot.
func (r *Ring) Acquire() *FrameResource {
	slot := SlotForFrame(r.frameCount)
	r.frameCount++
	f := r.frames[slot]
	if f.Fence != 0 && r.device.CompletedValue() < f.Fence {
		r.device.WaitForValue(f.Fence)
	}
	r.recording[slot] = true
	return f
}

// Signal assigns the next fence value to frame and signals it on the device. Call it after
// the frame's command lists were submitted.
func (r *Ring) Signal(frame *FrameResource) {
	r.currentFence++
	frame.Fence = r.currentFence
	r.device.Signal(frame.Fence)
	r.recording[frame.Index] = false
}

// State reports the lifecycle state of a slot.
func (r *Ring) State(slot int) FrameState {
	if r.recording[slot] {
		return FrameStateInUse
	}
	f := r.frames[slot]
	if f.Fence != 0 && r.device.CompletedValue() < f.Fence {
		return FrameStateInUse
	}
	return FrameStateIdle
}

// Frame returns the frame resource in slot.
func (r *Ring) Frame(slot int) *FrameResource {
	return r.frames[slot]
}

// FrameCount returns the number of frames acquired so far.
func (r *Ring) FrameCount() uint64 {
	return r.frameCount
}

// CurrentFence returns the last fence value assigned.
func (r *Ring) CurrentFence() uint64 {
	return r.currentFence
}

// Flush blocks until every submitted frame has completed.
func (r *Ring) Flush() {
	if r.currentFence > 0 {
		r.device.WaitForValue(r.currentFence)
	}
}

// Release waits for the GPU and frees every frame resource.
func (r *Ring) Release() {
	r.Flush()
	for i, f := range r.frames {
		if f != nil {
			f.Release()
			r.frames[i] = nil
		}
	}
}
