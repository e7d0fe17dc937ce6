package frame_resource

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu/gputest"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestCalcConstantBufferByteSize(t *testing.T) {
	tests := []struct {
		in, want uint64
	}{
		{0, 0},
		{1, 256},
		{32, 256},
		{256, 256},
		{257, 512},
		{672, 768},
	}
	for _, tt := range tests {
		if got := CalcConstantBufferByteSize(tt.in); got != tt.want {
			t.Errorf("CalcConstantBufferByteSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStructSizesMatchWGSL(t *testing.T) {
	var (
		pc PassConstants
		oc ObjectConstants
		mc MaterialConstants
	)
	if pc.Size() != 672 {
		t.Errorf("PassConstants size = %d, want 672", pc.Size())
	}
	if oc.Size() != 128 {
		t.Errorf("ObjectConstants size = %d, want 128", oc.Size())
	}
	if mc.Size() != 32 {
		t.Errorf("MaterialConstants size = %d, want 32", mc.Size())
	}
}

func TestUploadBufferStrideAndCopy(t *testing.T) {
	dev := gputest.NewDevice()
	ub, err := NewUploadBuffer[MaterialConstants](dev, "materials", 4, true)
	if err != nil {
		t.Fatal(err)
	}
	if ub.Stride() != 256 {
		t.Fatalf("stride = %d, want 256", ub.Stride())
	}
	buf := ub.Resource().(*gputest.Buffer)
	if buf.Size() != 1024 {
		t.Fatalf("buffer size = %d, want 1024", buf.Size())
	}
	if buf.Desc().Usage&wgpu.BufferUsageUniform == 0 {
		t.Error("constant upload buffer should be a uniform buffer")
	}

	ub.CopyData(2, MaterialConstants{DiffuseAlbedo: [4]float32{0.5, 1, 0, 1}})
	w := dev.BufferWrites[len(dev.BufferWrites)-1]
	if w.Offset != 512 || len(w.Data) != 32 {
		t.Fatalf("write at %d of %d bytes, want 512 and 32", w.Offset, len(w.Data))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf.Data[512:])); got != 0.5 {
		t.Errorf("albedo.r = %v, want 0.5", got)
	}
	if ub.Offset(3) != 768 {
		t.Errorf("Offset(3) = %d, want 768", ub.Offset(3))
	}
}

func TestUploadBufferNonConstantIsTightlyPacked(t *testing.T) {
	ub, err := NewUploadBuffer[MaterialConstants](gputest.NewDevice(), "packed", 3, false)
	if err != nil {
		t.Fatal(err)
	}
	if ub.Stride() != 32 {
		t.Errorf("stride = %d, want 32", ub.Stride())
	}
}

func TestUploadBufferOutOfRangePanics(t *testing.T) {
	ub, err := NewUploadBuffer[ObjectConstants](gputest.NewDevice(), "objects", 2, true)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range index")
		}
	}()
	ub.CopyData(2, ObjectConstants{})
}

func TestUploadBufferRejectsEmpty(t *testing.T) {
	if _, err := NewUploadBuffer[ObjectConstants](gputest.NewDevice(), "empty", 0, true); err == nil {
		t.Fatal("expected error for zero elements")
	}
}

func TestFrameResourceBindGroup(t *testing.T) {
	dev := gputest.NewDevice()
	layout, err := NewFrameLayout(dev)
	if err != nil {
		t.Fatal(err)
	}
	f, err := NewFrameResource(dev, layout, 1, 1, 5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if f.CommandListLabel != "Frame 1" {
		t.Errorf("label = %q", f.CommandListLabel)
	}
	groups := dev.ObjectsOfKind("bind group")
	if len(groups) != 1 {
		t.Fatalf("bind groups = %d, want 1", len(groups))
	}
	if got := groups[0].Entries[FrameBindingObject].Size; got != 128 {
		t.Errorf("object binding size = %d, want 128", got)
	}

	entries := layout.Entries()
	if entries[FrameBindingPass].HasDynamicOffset {
		t.Error("pass binding must not use a dynamic offset")
	}
	if !entries[FrameBindingObject].HasDynamicOffset || !entries[FrameBindingMaterial].HasDynamicOffset {
		t.Error("object and material bindings must use dynamic offsets")
	}

	f.Release()
	for _, b := range dev.Buffers {
		if b.Released != 1 {
			t.Errorf("buffer %q released %d times", b.Label(), b.Released)
		}
	}
}

func TestFrameResourceCreationFailure(t *testing.T) {
	dev := gputest.NewDevice()
	dev.FailOn = "Material CB"
	layout, err := NewFrameLayout(dev)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewFrameResource(dev, layout, 0, 1, 1, 1); err == nil {
		t.Fatal("expected error")
	}
	for _, b := range dev.Buffers {
		if b.Released != 1 {
			t.Errorf("buffer %q leaked", b.Label())
		}
	}
}

func newTestRing(t *testing.T, dev *gputest.Device) *Ring {
	t.Helper()
	layout, err := NewFrameLayout(dev)
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewRing(dev, layout, 1, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRingSlotIsFrameModThree(t *testing.T) {
	r := newTestRing(t, gputest.NewDevice())
	for n := range 10 {
		f := r.Acquire()
		if want := n % NumFrameResources; f.Index != want {
			t.Fatalf("frame %d got slot %d, want %d", n, f.Index, want)
		}
		r.Signal(f)
	}
	if SlotForFrame(7) != 1 {
		t.Errorf("SlotForFrame(7) = %d", SlotForFrame(7))
	}
}

func TestRingFencesStrictlyIncreasePerSlot(t *testing.T) {
	r := newTestRing(t, gputest.NewDevice())
	last := make(map[int]uint64)
	for range 12 {
		f := r.Acquire()
		r.Signal(f)
		if f.Fence <= last[f.Index] {
			t.Fatalf("slot %d fence %d not greater than %d", f.Index, f.Fence, last[f.Index])
		}
		last[f.Index] = f.Fence
	}
	if r.CurrentFence() != 12 {
		t.Errorf("current fence = %d, want 12", r.CurrentFence())
	}
}

func TestRingWaitsForIncompleteSlot(t *testing.T) {
	dev := gputest.NewDevice()
	dev.HoldFences()
	r := newTestRing(t, dev)

	for range NumFrameResources {
		r.Signal(r.Acquire())
	}
	if len(dev.Waits) != 0 {
		t.Fatalf("first pass over the ring waited: %v", dev.Waits)
	}
	if r.State(0) != FrameStateInUse {
		t.Error("slot 0 should be in use until its fence completes")
	}

	dev.Complete(2)
	f := r.Acquire()
	if f.Index != 0 || len(dev.Waits) != 0 {
		t.Fatalf("slot %d acquired with waits %v, want slot 0 without waiting", f.Index, dev.Waits)
	}
	r.Signal(f)

	f = r.Acquire()
	if f.Index != 1 || len(dev.Waits) != 0 {
		t.Fatalf("slot 1 fence 2 is complete, waits = %v", dev.Waits)
	}
	r.Signal(f)

	f = r.Acquire()
	if len(dev.Waits) != 1 || dev.Waits[0] != 3 {
		t.Fatalf("waits = %v, want [3]", dev.Waits)
	}
	if r.State(f.Index) != FrameStateInUse {
		t.Error("acquired slot should be in use while recording")
	}
	r.Signal(f)
	dev.Complete(r.CurrentFence())
	if r.State(f.Index) != FrameStateIdle {
		t.Error("slot should be idle after its fence completed")
	}
}
