package gpu

import (
	"log"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuCommandList records into a single wgpu command encoder. Barriers are validated and
// tracked on the CPU only; WebGPU derives the hardware synchronization from usage.
type wgpuCommandList struct {
	label   string
	device  *wgpuDevice
	encoder *wgpu.CommandEncoder
	buffer  *wgpu.CommandBuffer

	// transient bind groups created for blits, released with the list
	transient []*wgpu.BindGroup
}

var _ CommandList = &wgpuCommandList{}

func (c *wgpuCommandList) Label() string { return c.label }

func (c *wgpuCommandList) ResourceBarrier(barriers ...Barrier) {
	if err := ApplyBarriers(barriers); err != nil {
		log.Panicf("[GPU] %s: %v", c.label, err)
	}
}

func (c *wgpuCommandList) BeginRenderPass(desc RenderPassDesc) RenderPassEncoder {
	colors := make([]wgpu.RenderPassColorAttachment, 0, len(desc.Colors))
	for _, a := range desc.Colors {
		loadOp := wgpu.LoadOpLoad
		if a.Clear {
			loadOp = wgpu.LoadOpClear
		}
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:    a.Target.(*wgpuTexture).view,
			LoadOp:  loadOp,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: a.ClearColor[0], G: a.ClearColor[1], B: a.ClearColor[2], A: a.ClearColor[3],
			},
		})
	}
	rp := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if desc.Depth != nil {
		loadOp := wgpu.LoadOpLoad
		if desc.Depth.Clear {
			loadOp = wgpu.LoadOpClear
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            desc.Depth.Target.(*wgpuTexture).view,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.Depth.ClearDepth,
		}
		if HasStencil(desc.Depth.Target.Desc().Format) {
			rp.DepthStencilAttachment.StencilLoadOp = wgpu.LoadOpClear
			rp.DepthStencilAttachment.StencilStoreOp = wgpu.StoreOpDiscard
		}
	}
	return &wgpuRenderPassEncoder{pass: c.encoder.BeginRenderPass(rp)}
}

func (c *wgpuCommandList) BeginComputePass(label string) ComputePassEncoder {
	return &wgpuComputePassEncoder{pass: c.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (c *wgpuCommandList) CopyTexture(src, dst Texture) {
	if src.State() != StateCopySource || dst.State() != StateCopyDest {
		log.Panicf("[GPU] %s: copy %q (%s) -> %q (%s) requires COPY_SOURCE -> COPY_DEST",
			c.label, src.Label(), src.State(), dst.Label(), dst.State())
	}
	ws, wd := src.(*wgpuTexture), dst.(*wgpuTexture)
	sd, dd := ws.desc, wd.desc

	direct := CopyCompatible(sd.Format, dd.Format) &&
		sd.Width == dd.Width && sd.Height == dd.Height &&
		HasUsage(sd.Usage, wgpu.TextureUsageCopySrc) && HasUsage(dd.Usage, wgpu.TextureUsageCopyDst)
	if direct {
		c.encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: ws.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: wd.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
			&wgpu.Extent3D{Width: sd.Width, Height: sd.Height, DepthOrArrayLayers: 1},
		)
		return
	}
	if !HasUsage(sd.Usage, wgpu.TextureUsageTextureBinding) || !HasUsage(dd.Usage, wgpu.TextureUsageRenderAttachment) {
		log.Panicf("[GPU] %s: %q cannot be blitted to %q", c.label, src.Label(), dst.Label())
	}
	c.device.blitTo(c, ws, wd)
}

func (c *wgpuCommandList) Close() error {
	if c.buffer != nil {
		return nil
	}
	buf, err := c.encoder.Finish(nil)
	if err != nil {
		return err
	}
	c.buffer = buf
	return nil
}

func (c *wgpuCommandList) Release() {
	for _, bg := range c.transient {
		bg.Release()
	}
	c.transient = nil
	if c.buffer != nil {
		c.buffer.Release()
		c.buffer = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
}

type wgpuRenderPassEncoder struct {
	pass *wgpu.RenderPassEncoder
}

func (e *wgpuRenderPassEncoder) SetPipeline(p RenderPipeline) {
	e.pass.SetPipeline(p.(*wgpuRenderPipeline).pipeline)
}

func (e *wgpuRenderPassEncoder) SetBindGroup(index uint32, group BindGroup, dynamicOffsets ...uint32) {
	e.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, dynamicOffsets)
}

func (e *wgpuRenderPassEncoder) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	e.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

func (e *wgpuRenderPassEncoder) SetVertexBuffer(slot uint32, buf Buffer) {
	e.pass.SetVertexBuffer(slot, buf.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
}

func (e *wgpuRenderPassEncoder) SetIndexBuffer(buf Buffer) {
	e.pass.SetIndexBuffer(buf.(*wgpuBuffer).buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (e *wgpuRenderPassEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	e.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (e *wgpuRenderPassEncoder) End() {
	e.pass.End()
	e.pass.Release()
}

type wgpuComputePassEncoder struct {
	pass *wgpu.ComputePassEncoder
}

func (e *wgpuComputePassEncoder) SetPipeline(p ComputePipeline) {
	e.pass.SetPipeline(p.(*wgpuComputePipeline).pipeline)
}

func (e *wgpuComputePassEncoder) SetBindGroup(index uint32, group BindGroup, dynamicOffsets ...uint32) {
	e.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, dynamicOffsets)
}

func (e *wgpuComputePassEncoder) Dispatch(x, y, z uint32) {
	e.pass.DispatchWorkgroups(x, y, z)
}

func (e *wgpuComputePassEncoder) End() {
	e.pass.End()
	e.pass.Release()
}
