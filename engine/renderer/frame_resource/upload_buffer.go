package frame_resource

import (
	"fmt"
	"log"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-gi/common"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// ConstantBufferAlignment is the byte alignment of each element of a constant buffer,
// which is also the dynamic-offset alignment of uniform bindings.
const ConstantBufferAlignment = 256

// CalcConstantBufferByteSize rounds byteSize up to the next multiple of ConstantBufferAlignment.
func CalcConstantBufferByteSize(byteSize uint64) uint64 {
	return (byteSize + ConstantBufferAlignment - 1) &^ (ConstantBufferAlignment - 1)
}

// UploadBuffer is a typed GPU buffer holding count elements of T. T must be a plain struct
// of fixed-size numeric fields whose memory layout matches its WGSL definition.
type UploadBuffer[T any] struct {
	device     gpu.Device
	buffer     gpu.Buffer
	count      int
	stride     uint64
	isConstant bool
}

// NewUploadBuffer creates the backing buffer. Constant buffers round the element stride
// up to ConstantBufferAlignment so each element can be bound with a dynamic offset.
//
// Parameters:
//   - device: the device to allocate on
//   - label: debug label of the buffer
//   - count: the number of elements, at least 1
//   - isConstantBuffer: whether elements are bound as uniforms
//
// Returns:
//   - *UploadBuffer[T]: the typed buffer
//   - error: an error if count is not positive or the buffer could not be created
func NewUploadBuffer[T any](device gpu.Device, label string, count int, isConstantBuffer bool) (*UploadBuffer[T], error) {
	if count <= 0 {
		return nil, fmt.Errorf("upload buffer %q: element count %d must be positive", label, count)
	}
	var zero T
	stride := uint64(unsafe.Sizeof(zero))
	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	if isConstantBuffer {
		stride = CalcConstantBufferByteSize(stride)
		usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	buf, err := device.CreateBuffer(gpu.BufferDesc{
		Label: label,
		Size:  stride * uint64(count),
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	return &UploadBuffer[T]{
		device:     device,
		buffer:     buf,
		count:      count,
		stride:     stride,
		isConstant: isConstantBuffer,
	}, nil
}

// CopyData writes one element at index*stride. An out-of-range index panics.
func (u *UploadBuffer[T]) CopyData(index int, data T) {
	if index < 0 || index >= u.count {
		log.Panicf("[UploadBuffer] %s: index %d out of range [0, %d)", u.buffer.Label(), index, u.count)
	}
	u.device.WriteBuffer(u.buffer, uint64(index)*u.stride, common.StructToBytes(&data))
}

// Resource returns the backing GPU buffer.
func (u *UploadBuffer[T]) Resource() gpu.Buffer {
	return u.buffer
}

// Stride returns the distance in bytes between consecutive elements.
func (u *UploadBuffer[T]) Stride() uint64 {
	return u.stride
}

// ElementSize returns the unpadded size of T in bytes.
func (u *UploadBuffer[T]) ElementSize() uint64 {
	var zero T
	return uint64(unsafe.Sizeof(zero))
}

// Count returns the number of elements.
func (u *UploadBuffer[T]) Count() int {
	return u.count
}

// Offset returns the byte offset of element index, suitable as a dynamic offset.
func (u *UploadBuffer[T]) Offset(index int) uint32 {
	return uint32(uint64(index) * u.stride)
}

// Release frees the backing buffer.
func (u *UploadBuffer[T]) Release() {
	if u.buffer != nil {
		u.buffer.Release()
		u.buffer = nil
	}
}
