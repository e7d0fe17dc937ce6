package gputest

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
)

// EventKind names a recorded command.
type EventKind string

const (
	EventBarrier      EventKind = "barrier"
	EventBeginRender  EventKind = "begin_render"
	EventBeginCompute EventKind = "begin_compute"
	EventSetPipeline  EventKind = "set_pipeline"
	EventSetBindGroup EventKind = "set_bind_group"
	EventSetViewport  EventKind = "set_viewport"
	EventVertexBuffer EventKind = "vertex_buffer"
	EventIndexBuffer  EventKind = "index_buffer"
	EventDrawIndexed  EventKind = "draw_indexed"
	EventDispatch     EventKind = "dispatch"
	EventEnd          EventKind = "end"
	EventCopyTexture  EventKind = "copy_texture"
)

// Event is one recorded command.
type Event struct {
	Kind    EventKind
	Label   string
	Barrier gpu.Barrier
	Pass    gpu.RenderPassDesc
	Group   uint32
	Offsets []uint32
	// Counts holds draw (indexCount, instanceCount, firstIndex) or dispatch (x, y, z).
	Counts     [3]uint32
	BaseVertex int32
	Src, Dst   gpu.Texture
}

// CommandList is a recording gpu.CommandList. Barrier validation failures panic, matching
// the fatal behavior of the real backend.
type CommandList struct {
	label    string
	Events   []Event
	Closed   bool
	Released int
}

var _ gpu.CommandList = &CommandList{}

func (c *CommandList) Label() string { return c.label }

func (c *CommandList) record(e Event) {
	if c.Closed {
		panic(fmt.Sprintf("gputest: command list %q recorded after Close", c.label))
	}
	c.Events = append(c.Events, e)
}

func (c *CommandList) ResourceBarrier(barriers ...gpu.Barrier) {
	for _, b := range barriers {
		if err := b.Apply(); err != nil {
			panic(fmt.Sprintf("gputest: %s: %v", c.label, err))
		}
		c.record(Event{Kind: EventBarrier, Label: b.Resource.Label(), Barrier: b})
	}
}

func (c *CommandList) BeginRenderPass(desc gpu.RenderPassDesc) gpu.RenderPassEncoder {
	for _, a := range desc.Colors {
		if a.Target.State() != gpu.StateRenderTarget {
			panic(fmt.Sprintf("gputest: %s: color target %q is %s", c.label, a.Target.Label(), a.Target.State()))
		}
	}
	if desc.Depth != nil && desc.Depth.Target.State() != gpu.StateDepthWrite {
		panic(fmt.Sprintf("gputest: %s: depth target %q is %s", c.label, desc.Depth.Target.Label(), desc.Depth.Target.State()))
	}
	c.record(Event{Kind: EventBeginRender, Label: desc.Label, Pass: desc})
	return &renderEncoder{encoder{list: c}}
}

func (c *CommandList) BeginComputePass(label string) gpu.ComputePassEncoder {
	c.record(Event{Kind: EventBeginCompute, Label: label})
	return &computeEncoder{encoder{list: c}}
}

func (c *CommandList) CopyTexture(src, dst gpu.Texture) {
	if src.State() != gpu.StateCopySource || dst.State() != gpu.StateCopyDest {
		panic(fmt.Sprintf("gputest: %s: copy %q (%s) -> %q (%s)", c.label, src.Label(), src.State(), dst.Label(), dst.State()))
	}
	c.record(Event{Kind: EventCopyTexture, Src: src, Dst: dst})
}

func (c *CommandList) Close() error {
	c.Closed = true
	return nil
}

func (c *CommandList) Release() { c.Released++ }

// EventsOfKind returns the recorded events of one kind in order.
func (c *CommandList) EventsOfKind(kind EventKind) []Event {
	var out []Event
	for _, e := range c.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Transitions returns the barriers recorded for tex in order.
func (c *CommandList) Transitions(tex gpu.Texture) []gpu.Barrier {
	var out []gpu.Barrier
	for _, e := range c.Events {
		if e.Kind == EventBarrier && e.Barrier.Resource == tex {
			out = append(out, e.Barrier)
		}
	}
	return out
}

// encoder holds the commands shared by render and compute passes.
type encoder struct {
	list *CommandList
}

type renderEncoder struct{ encoder }

type computeEncoder struct{ encoder }

func (e *renderEncoder) SetPipeline(p gpu.RenderPipeline) {
	e.list.record(Event{Kind: EventSetPipeline, Label: p.Label()})
}

func (e *computeEncoder) SetPipeline(p gpu.ComputePipeline) {
	e.list.record(Event{Kind: EventSetPipeline, Label: p.Label()})
}

func (e *encoder) SetBindGroup(index uint32, group gpu.BindGroup, dynamicOffsets ...uint32) {
	e.list.record(Event{Kind: EventSetBindGroup, Label: group.Label(), Group: index, Offsets: append([]uint32(nil), dynamicOffsets...)})
}

func (e *renderEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	e.list.record(Event{Kind: EventSetViewport, Counts: [3]uint32{uint32(width), uint32(height), 0}})
}

func (e *renderEncoder) SetVertexBuffer(slot uint32, buf gpu.Buffer) {
	e.list.record(Event{Kind: EventVertexBuffer, Label: buf.Label(), Group: slot})
}

func (e *renderEncoder) SetIndexBuffer(buf gpu.Buffer) {
	e.list.record(Event{Kind: EventIndexBuffer, Label: buf.Label()})
}

func (e *renderEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.list.record(Event{Kind: EventDrawIndexed, Counts: [3]uint32{indexCount, instanceCount, firstIndex}, BaseVertex: baseVertex})
}

func (e *computeEncoder) Dispatch(x, y, z uint32) {
	e.list.record(Event{Kind: EventDispatch, Counts: [3]uint32{x, y, z}})
}

func (e *encoder) End() {
	e.list.record(Event{Kind: EventEnd})
}
