package gpu

import (
	"errors"
	"fmt"
)

// ResourceState is the usage a texture is currently prepared for. WebGPU inserts hardware
// barriers implicitly, so states are tracked on the CPU to enforce the read/write protocol
// between passes: a consumer only ever sees a producer's output in StateGenericRead.
type ResourceState int

const (
	StateCommon ResourceState = iota
	StateGenericRead
	StateRenderTarget
	StateUnorderedAccess
	StateDepthWrite
	StateCopySource
	StateCopyDest
	StatePresent
)

var stateNames = [...]string{
	StateCommon:          "COMMON",
	StateGenericRead:     "GENERIC_READ",
	StateRenderTarget:    "RENDER_TARGET",
	StateUnorderedAccess: "UNORDERED_ACCESS",
	StateDepthWrite:      "DEPTH_WRITE",
	StateCopySource:      "COPY_SOURCE",
	StateCopyDest:        "COPY_DEST",
	StatePresent:         "PRESENT",
}

func (s ResourceState) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", int(s))
}

// ErrStateMismatch is returned when a barrier's Before state is not the tracked state of its resource.
var ErrStateMismatch = errors.New("resource state mismatch")

// Barrier is a state transition of one texture.
type Barrier struct {
	Resource Texture
	Before   ResourceState
	After    ResourceState
}

// Transition builds a Barrier moving tex from before to after.
func Transition(tex Texture, before, after ResourceState) Barrier {
	return Barrier{Resource: tex, Before: before, After: after}
}

// Apply validates the barrier against the tracked state and records the new state.
func (b Barrier) Apply() error {
	if b.Resource == nil {
		return fmt.Errorf("barrier %s -> %s: nil resource", b.Before, b.After)
	}
	if cur := b.Resource.State(); cur != b.Before {
		return fmt.Errorf("%w: %q is %s, barrier expects %s", ErrStateMismatch, b.Resource.Label(), cur, b.Before)
	}
	b.Resource.SetState(b.After)
	return nil
}

// ApplyBarriers applies barriers in order, stopping at the first invalid one.
func ApplyBarriers(barriers []Barrier) error {
	for _, b := range barriers {
		if err := b.Apply(); err != nil {
			return err
		}
	}
	return nil
}
