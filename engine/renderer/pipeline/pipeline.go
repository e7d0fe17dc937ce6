package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-gi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

// pipeline is the implementation of the Pipeline interface.
// It holds the GPU pipeline-state object together with the layouts built from its shader.
type pipeline struct {
	// pipelineType indicates the type of pipeline this is; compute or render
	pipelineType PipelineType
	// pipelineKey is the unique identifier for this pipeline, used as the label of every GPU object it creates
	pipelineKey string

	// shader is required before Build. Its type must match pipelineType.
	shader shader.Shader

	module          gpu.ShaderModule
	layout          gpu.PipelineLayout
	groupLayouts    map[int]gpu.BindGroupLayout
	renderPipeline  gpu.RenderPipeline
	computePipeline gpu.ComputePipeline

	// The following properties configure render pipelines only; compute pipelines ignore them.

	colorFormats        []wgpu.TextureFormat
	depthFormat         wgpu.TextureFormat
	depthWriteEnabled   bool
	depthCompare        wgpu.CompareFunction
	depthBias           int32
	depthBiasSlopeScale float32
	cullMode            wgpu.CullMode
}

// Pipeline defines the interface for a GPU pipeline-state object, encapsulating either a render
// pipeline (vertex + fragment entry points) or a compute pipeline. Build creates the GPU objects
// from the reflected shader: group 0 is always the shared frame layout and every group above
// it gets a layout generated from the shader's declarations.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the reflected shader the pipeline is built from.
	//
	// Returns:
	//   - shader.Shader: the shader, or nil if none was set
	Shader() shader.Shader

	// Build compiles the shader module and creates the bind group layouts, the pipeline layout
	// and the pipeline-state object.
	//
	// Parameters:
	//   - device: the device to create the objects on
	//   - frameLayout: the shared group 0 layout
	//
	// Returns:
	//   - error: an error if the shader's group 0 does not match frameLayout or a GPU object could not be created
	Build(device gpu.Device, frameLayout gpu.BindGroupLayout) error

	// RenderPipeline returns the built render pipeline, nil for compute pipelines or before Build.
	RenderPipeline() gpu.RenderPipeline

	// ComputePipeline returns the built compute pipeline, nil for render pipelines or before Build.
	ComputePipeline() gpu.ComputePipeline

	// BindGroupLayout returns the generated layout of a group above 0, or nil if the shader does not use it.
	//
	// Parameters:
	//   - group: the bind group index, at least 1
	//
	// Returns:
	//   - gpu.BindGroupLayout: the layout built by Build
	BindGroupLayout(group int) gpu.BindGroupLayout

	// ColorFormats returns the formats of the render targets the pipeline writes.
	ColorFormats() []wgpu.TextureFormat

	// DepthFormat returns the depth attachment format, wgpu.TextureFormatUndefined when depth is disabled.
	DepthFormat() wgpu.TextureFormat

	DepthWriteEnabled() bool
	DepthBias() int32
	DepthBiasSlopeScale() float32
	CullMode() wgpu.CullMode

	// Release frees every GPU object created by Build. It is safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new Pipeline interface. A PipelineType must be specified and provided upon creation.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		pipelineType:      pipelineType,
		depthWriteEnabled: true,
		depthCompare:      wgpu.CompareFunctionLess,
		cullMode:          wgpu.CullModeNone,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) RenderPipeline() gpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) ComputePipeline() gpu.ComputePipeline {
	return p.computePipeline
}

func (p *pipeline) BindGroupLayout(group int) gpu.BindGroupLayout {
	return p.groupLayouts[group]
}

func (p *pipeline) ColorFormats() []wgpu.TextureFormat {
	return p.colorFormats
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Build(device gpu.Device, frameLayout gpu.BindGroupLayout) error {
	if p.shader == nil {
		return fmt.Errorf("pipeline %s: no shader", p.pipelineKey)
	}
	wantShader := shader.ShaderTypeCompute
	if p.pipelineType == PipelineTypeRender {
		wantShader = shader.ShaderTypeRender
	}
	if p.shader.ShaderType() != wantShader {
		return fmt.Errorf("pipeline %s: %s shader %q in a %s pipeline", p.pipelineKey, p.shader.ShaderType(), p.shader.Key(), wantShader)
	}
	if err := validateFrameGroup(p.shader.BindGroupLayout(0), frameLayout.Entries()); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
	}

	if err := p.build(device, frameLayout); err != nil {
		p.Release()
		return fmt.Errorf("pipeline %s: %w", p.pipelineKey, err)
	}
	return nil
}

// build creates the GPU objects in dependency order. On error the caller releases whatever was created.
func (p *pipeline) build(device gpu.Device, frameLayout gpu.BindGroupLayout) error {
	var err error
	if p.module, err = device.CreateShaderModule(p.pipelineKey+" Shader", p.shader.Source()); err != nil {
		return err
	}

	groups := []gpu.BindGroupLayout{frameLayout}
	p.groupLayouts = make(map[int]gpu.BindGroupLayout)
	for _, g := range sortedGroups(p.shader.BindGroupLayouts()) {
		if g == 0 {
			continue
		}
		// Unused groups below the highest one still need a layout.
		for len(groups) < g {
			empty, err := device.CreateBindGroupLayout(fmt.Sprintf("%s Group %d", p.pipelineKey, len(groups)), nil)
			if err != nil {
				return err
			}
			p.groupLayouts[len(groups)] = empty
			groups = append(groups, empty)
		}
		layout, err := device.CreateBindGroupLayout(fmt.Sprintf("%s Group %d", p.pipelineKey, g), p.shader.BindGroupLayout(g))
		if err != nil {
			return err
		}
		p.groupLayouts[g] = layout
		groups = append(groups, layout)
	}

	if p.layout, err = device.CreatePipelineLayout(p.pipelineKey+" Layout", groups); err != nil {
		return err
	}

	switch p.pipelineType {
	case PipelineTypeRender:
		p.renderPipeline, err = device.CreateRenderPipeline(gpu.RenderPipelineDesc{
			Label:               p.pipelineKey,
			Layout:              p.layout,
			Module:              p.module,
			VertexEntry:         p.shader.EntryPoint(wgpu.ShaderStageVertex),
			FragmentEntry:       p.shader.EntryPoint(wgpu.ShaderStageFragment),
			VertexBuffers:       p.shader.VertexLayouts(),
			ColorFormats:        p.colorFormats,
			DepthFormat:         p.depthFormat,
			DepthWrite:          p.depthWriteEnabled,
			DepthCompare:        p.depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			CullMode:            p.cullMode,
		})
	case PipelineTypeCompute:
		p.computePipeline, err = device.CreateComputePipeline(gpu.ComputePipelineDesc{
			Label:  p.pipelineKey,
			Layout: p.layout,
			Module: p.module,
			Entry:  p.shader.EntryPoint(wgpu.ShaderStageCompute),
		})
	}
	return err
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for g, layout := range p.groupLayouts {
		layout.Release()
		delete(p.groupLayouts, g)
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// validateFrameGroup checks that every group 0 binding a shader declares exists in the frame
// layout under the same name and binding type.
func validateFrameGroup(declared, frame []gpu.BindingLayout) error {
	for _, d := range declared {
		var found bool
		for _, f := range frame {
			if f.Binding != d.Binding {
				continue
			}
			if f.Name != d.Name || f.Type != d.Type {
				return fmt.Errorf("group 0 binding %d is %q, frame layout has %q", d.Binding, d.Name, f.Name)
			}
			found = true
		}
		if !found {
			return fmt.Errorf("group 0 binding %d (%s) is not in the frame layout", d.Binding, d.Name)
		}
	}
	return nil
}

func sortedGroups(m map[int][]gpu.BindingLayout) []int {
	out := make([]int, 0, len(m))
	for g := range m {
		out = append(out, g)
	}
	sort.Ints(out)
	return out
}
